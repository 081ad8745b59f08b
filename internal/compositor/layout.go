package compositor

import "image"

// Rect is a rectangle expressed as fractions of a reference surface.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// SafeArea returns the source-relative inset into which the letterboxed
// source is drawn before any zoom crop. The margins are fixed per output
// aspect and are not user-tunable: 16:9 insets 6% left/right, 1:1 insets
// 24% top/bottom, 9:16 insets 36% top/bottom.
func SafeArea(aspect string) Rect {
	switch aspect {
	case "1:1":
		return Rect{X: 0, Y: 0.24, W: 1, H: 0.52}
	case "9:16":
		return Rect{X: 0, Y: 0.36, W: 1, H: 0.28}
	default: // 16:9
		return Rect{X: 0.06, Y: 0, W: 0.88, H: 1}
	}
}

// AspectRatio returns width/height for an output aspect string.
func AspectRatio(aspect string) float64 {
	switch aspect {
	case "1:1":
		return 1
	case "9:16":
		return 9.0 / 16.0
	default:
		return 16.0 / 9.0
	}
}

// pixels maps a fractional rect onto a canvas of the given dimensions.
func (r Rect) pixels(w, h int) image.Rectangle {
	x0 := int(r.X*float64(w) + 0.5)
	y0 := int(r.Y*float64(h) + 0.5)
	x1 := int((r.X+r.W)*float64(w) + 0.5)
	y1 := int((r.Y+r.H)*float64(h) + 0.5)
	return image.Rect(x0, y0, x1, y1)
}

// evenize rounds a dimension down to an even value, which keeps geometry
// friendly to yuv420p encoders downstream.
func evenize(v int) int {
	if v%2 == 0 {
		return v
	}
	return v - 1
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
