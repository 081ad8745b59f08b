package synth

import (
	"math"
	"sort"

	"github.com/ivlev/screenstudio/internal/track"
)

// Pointer samples are normalized fractions; the follow threshold is
// expressed in pixels on this reference width.
const referenceWidth = 1920.0

// Synthesize expands the sparse zoom windows plus the pointer-sample log
// into a dense per-frame pan/zoom track covering [0, duration] at 1/fps
// spacing. It never fails: overlapping windows are resolved first-by-start
// wins, out-of-range samples are clamped.
func Synthesize(windows []track.ZoomWindow, samples []track.PointerSample, duration float64, fps int, settings track.ZoomSettings) track.ZoomTrack {
	zt := track.ZoomTrack{
		SchemaVersion: track.SchemaVersion,
		FPS:           fps,
		Settings:      settings,
	}
	if fps <= 0 || duration <= 0 {
		return zt
	}

	sorted := make([]track.ZoomWindow, 0, len(windows))
	for _, w := range windows {
		if w.End > w.Start {
			sorted = append(sorted, w)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	frameCount := int(math.Ceil(duration * float64(fps)))
	zt.Frames = make([]track.ZoomFrame, 0, frameCount)

	threshold := settings.FollowThresholdPx / referenceWidth
	cursor := 0
	heldX, heldY := 0.5, 0.5
	targetX, targetY := heldX, heldY

	for i := 0; i < frameCount; i++ {
		t := float64(i) / float64(fps)
		ms := t * 1000

		// Zero-order hold: advance to the last sample at or before t.
		for cursor < len(samples) && float64(samples[cursor].OffsetMS) <= ms {
			heldX = clamp01(samples[cursor].AXN)
			heldY = clamp01(samples[cursor].AYN)
			cursor++
		}

		w, inside := windowAt(sorted, t)
		zoom := 1.0
		if inside {
			zoom = rampValue(t, w, settings)
			// While zoomed, small pointer excursions do not move the pan
			// target; this keeps the crop from chasing jitter.
			if math.Abs(heldX-targetX) > threshold || math.Abs(heldY-targetY) > threshold {
				targetX, targetY = heldX, heldY
			}
		} else {
			targetX, targetY = heldX, heldY
		}

		zt.Frames = append(zt.Frames, track.ZoomFrame{
			TimeMS: uint32(math.Round(t * 1000)),
			AXN:    float32(targetX),
			AYN:    float32(targetY),
			Zoom:   float32(zoom),
		})
	}
	return zt
}

// windowAt returns the window containing t. With overlapping windows (which
// the editor prevents) the first window by start time wins.
func windowAt(sorted []track.ZoomWindow, t float64) (track.ZoomWindow, bool) {
	for _, w := range sorted {
		if t >= w.Start && t <= w.End {
			return w, true
		}
		if w.Start > t {
			break
		}
	}
	return track.ZoomWindow{}, false
}

// rampValue computes the eased zoom level inside a window. Within ramp
// distance of a boundary the cubic ease-out curve applies; in between the
// value is flat at MaxZoom. Windows shorter than rampIn+rampOut compress
// both ramps proportionally so the peak lands inside the window.
func rampValue(t float64, w track.ZoomWindow, s track.ZoomSettings) float64 {
	rampIn, rampOut := s.RampInS, s.RampOutS
	length := w.End - w.Start
	if sum := rampIn + rampOut; sum > length && sum > 0 {
		scale := length / sum
		rampIn *= scale
		rampOut *= scale
	}

	u := 1.0
	if rampIn > 0 {
		if v := (t - w.Start) / rampIn; v < u {
			u = v
		}
	}
	if rampOut > 0 {
		if v := (w.End - t) / rampOut; v < u {
			u = v
		}
	}
	if u < 0 {
		u = 0
	}
	return 1 + (s.MaxZoom-1)*easeOutCubic(u)
}

// easeOutCubic maps [0,1] onto [0,1] with zero velocity at u=1, so the zoom
// level has no visible velocity discontinuity at window edges.
func easeOutCubic(u float64) float64 {
	v := 1 - u
	return 1 - v*v*v
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
