package track

// SchemaVersion is stamped into every persisted track document so the
// on-disk format can evolve without breaking older recordings.
const SchemaVersion = 1

// Interval is a half-open-ish time range in seconds on the source timeline.
// Invariant: Start < End, both within [0, source duration].
type Interval struct {
	Start float64 `json:"start_s"`
	End   float64 `json:"end_s"`
}

// Length returns the interval length in seconds.
func (iv Interval) Length() float64 {
	return iv.End - iv.Start
}

// Contains reports whether t falls inside the interval (endpoints included).
func (iv Interval) Contains(t float64) bool {
	return t >= iv.Start && t <= iv.End
}

// ZoomWindow is an editable interval during which the pan/zoom effect is
// active. Windows must not overlap; the editor enforces this.
type ZoomWindow struct {
	Start float64 `json:"start_s"`
	End   float64 `json:"end_s"`
}

// ZoomFrame is one sample of the dense pan/zoom track. AXN/AYN are the pan
// center as fractions of the source safe-area width/height. Zoom is 1.0
// outside any active window (AXN/AYN are still present but inert there).
type ZoomFrame struct {
	TimeMS uint32  `json:"time_ms"`
	AXN    float32 `json:"axn"`
	AYN    float32 `json:"ayn"`
	Zoom   float32 `json:"zoom"`
}

// ZoomSettings are the synthesis parameters the dense track was built with.
type ZoomSettings struct {
	MaxZoom           float64 `json:"max_zoom"`
	RampInS           float64 `json:"ramp_in_s"`
	RampOutS          float64 `json:"ramp_out_s"`
	SampleMS          int     `json:"sample_ms"`
	FollowThresholdPx float64 `json:"follow_threshold_px"`
}

// DefaultZoomSettings returns the synthesis parameters used when a recording
// has no persisted settings.
func DefaultZoomSettings() ZoomSettings {
	return ZoomSettings{
		MaxZoom:           2.0,
		RampInS:           0.4,
		RampOutS:          0.4,
		SampleMS:          50,
		FollowThresholdPx: 24,
	}
}

// ZoomTrack is the dense, per-output-frame materialization of the sparse
// zoom windows. It is a derived cache: always regenerable from the windows,
// the pointer samples and the settings, never hand-edited.
type ZoomTrack struct {
	SchemaVersion int          `json:"schema_version"`
	FPS           int          `json:"fps"`
	Frames        []ZoomFrame  `json:"frames"`
	Settings      ZoomSettings `json:"settings"`
}

// SampleAt returns the frame nearest to time t (seconds). The identity
// sample is returned for an empty track or out-of-range time.
func (zt ZoomTrack) SampleAt(t float64) ZoomFrame {
	if len(zt.Frames) == 0 || zt.FPS <= 0 {
		return ZoomFrame{Zoom: 1, AXN: 0.5, AYN: 0.5}
	}
	idx := int(t*float64(zt.FPS) + 0.5)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(zt.Frames) {
		idx = len(zt.Frames) - 1
	}
	return zt.Frames[idx]
}

// PointerSample is one record of the sparse pointer-activity log.
// OffsetMS is monotonically increasing; coordinates are fractions of the
// source width/height.
type PointerSample struct {
	OffsetMS uint32  `json:"offset_ms"`
	AXN      float64 `json:"axn"`
	AYN      float64 `json:"ayn"`
}

// ClipTrack marks the portion of the source retained in output. This design
// keeps at most one active interval (the trim window), but the persisted
// form is a segment list.
type ClipTrack struct {
	SchemaVersion int        `json:"schema_version"`
	Segments      []Interval `json:"segments"`
}

// Active returns the trim window, falling back to the full duration when
// the track is empty.
func (ct ClipTrack) Active(duration float64) Interval {
	if len(ct.Segments) == 0 {
		return Interval{Start: 0, End: duration}
	}
	return ct.Segments[0]
}

// CameraSegment is an interval tagged with camera-overlay visibility.
type CameraSegment struct {
	Interval
	Visible bool `json:"visible"`
}

// CameraTrack defines when the camera overlay is composited.
type CameraTrack struct {
	SchemaVersion int             `json:"schema_version"`
	Segments      []CameraSegment `json:"segments"`
}

// VisibleAt reports whether the camera overlay is shown at time t.
func (ct CameraTrack) VisibleAt(t float64) bool {
	for _, seg := range ct.Segments {
		if seg.Contains(t) {
			return seg.Visible
		}
	}
	return false
}

// EditState holds the layout parameters of the composited output. Field
// names match the persisted edit_state.json document of the recorder.
type EditState struct {
	SchemaVersion    int    `json:"schema_version"`
	Aspect           string `json:"aspect"`
	Padding          int    `json:"padding"`
	Radius           int    `json:"radius"`
	Shadow           int    `json:"shadow"`
	CameraSize       int    `json:"camera_size"`
	CameraShape      string `json:"camera_shape"`
	CameraShadow     int    `json:"camera_shadow"`
	CameraMirror     bool   `json:"camera_mirror"`
	CameraBlur       bool   `json:"camera_blur"`
	BackgroundType   string `json:"background_type"`
	BackgroundPreset int    `json:"background_preset"`
	CameraPosition   string `json:"camera_position"`
}

// DefaultEditState returns the editing defaults applied to a fresh recording.
func DefaultEditState() EditState {
	return EditState{
		SchemaVersion:    SchemaVersion,
		Aspect:           "16:9",
		Padding:          0,
		Radius:           12,
		Shadow:           20,
		CameraSize:       104,
		CameraShape:      "circle",
		CameraShadow:     22,
		CameraMirror:     false,
		CameraBlur:       false,
		BackgroundType:   "gradient",
		BackgroundPreset: 0,
		CameraPosition:   "bottom_left",
	}
}
