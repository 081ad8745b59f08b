package compositor

// Sample is the pan/zoom state consumed by one composited frame.
type Sample struct {
	AXN  float64
	AYN  float64
	Zoom float64
}

// Smoothing factors for the exponential blend toward the target sample.
// The values damp sub-frame jitter from track discretization without
// materially altering the authored ramp shape.
const (
	defaultZoomAlpha = 0.35
	defaultPanAlpha  = 0.25
)

// Smoother is the single piece of renderer state: it exponentially blends
// the previously rendered (zoom, axn, ayn) toward the target sample. It is
// owned by the caller so a cold start is always reproducible.
type Smoother struct {
	ZoomAlpha float64
	PanAlpha  float64

	primed bool
	zoom   float64
	axn    float64
	ayn    float64
}

// NewSmoother returns a smoother with the default per-axis factors.
func NewSmoother() *Smoother {
	return &Smoother{ZoomAlpha: defaultZoomAlpha, PanAlpha: defaultPanAlpha}
}

// Next advances the accumulator toward target and returns the blended
// sample. The first call after a reset adopts the target exactly, so a
// single render at time t (a scrub) is deterministic.
func (s *Smoother) Next(target Sample) Sample {
	if !s.primed {
		s.zoom, s.axn, s.ayn = target.Zoom, target.AXN, target.AYN
		s.primed = true
		return target
	}
	s.zoom += (target.Zoom - s.zoom) * s.ZoomAlpha
	s.axn += (target.AXN - s.axn) * s.PanAlpha
	s.ayn += (target.AYN - s.ayn) * s.PanAlpha
	return Sample{AXN: s.axn, AYN: s.ayn, Zoom: s.zoom}
}

// Reset clears the accumulator; the next sample is adopted unblended.
func (s *Smoother) Reset() {
	s.primed = false
}
