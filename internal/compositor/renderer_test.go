package compositor

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ivlev/screenstudio/internal/track"
)

func TestSafeAreaPerAspect(t *testing.T) {
	cases := []struct {
		aspect string
		want   Rect
	}{
		{"16:9", Rect{X: 0.06, Y: 0, W: 0.88, H: 1}},
		{"1:1", Rect{X: 0, Y: 0.24, W: 1, H: 0.52}},
		{"9:16", Rect{X: 0, Y: 0.36, W: 1, H: 0.28}},
		{"weird", Rect{X: 0.06, Y: 0, W: 0.88, H: 1}}, // unknown falls back to 16:9
	}
	for _, c := range cases {
		if got := SafeArea(c.aspect); got != c.want {
			t.Errorf("SafeArea(%q) = %+v, want %+v", c.aspect, got, c.want)
		}
	}
}

func TestAspectRatio(t *testing.T) {
	cases := []struct {
		aspect string
		want   float64
	}{
		{"16:9", 16.0 / 9.0},
		{"1:1", 1},
		{"9:16", 9.0 / 16.0},
		{"unknown", 16.0 / 9.0},
	}
	for _, c := range cases {
		if got := AspectRatio(c.aspect); got != c.want {
			t.Errorf("AspectRatio(%q) = %v, want %v", c.aspect, got, c.want)
		}
	}
}

func TestSmootherAdoptsFirstSample(t *testing.T) {
	s := NewSmoother()
	target := Sample{AXN: 0.3, AYN: 0.7, Zoom: 1.8}
	if got := s.Next(target); got != target {
		t.Errorf("first sample must be adopted exactly, got %+v", got)
	}

	// Second call blends with the per-axis factors.
	next := s.Next(Sample{AXN: 0.3, AYN: 0.7, Zoom: 1.0})
	wantZoom := 1.8 + (1.0-1.8)*0.35
	if math.Abs(next.Zoom-wantZoom) > 1e-9 {
		t.Errorf("blended zoom: expected %v, got %v", wantZoom, next.Zoom)
	}
	if next.AXN != 0.3 || next.AYN != 0.7 {
		t.Errorf("stable pan target must not drift, got %+v", next)
	}

	s.Reset()
	cold := Sample{AXN: 0.9, AYN: 0.1, Zoom: 2.0}
	if got := s.Next(cold); got != cold {
		t.Errorf("after reset the next sample must be adopted exactly, got %+v", got)
	}
}

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestComposeLetterboxesSource(t *testing.T) {
	r := New(640, 360, track.DefaultEditState(), 2.0)
	src := solidImage(640, 360, color.RGBA{255, 255, 255, 255})

	out := r.Compose(src, nil, false, Sample{AXN: 0.5, AYN: 0.5, Zoom: 1})
	defer r.Release(out)

	// Center of the safe area shows the source.
	if c := out.RGBAAt(320, 180); c.R != 255 || c.G != 255 || c.B != 255 {
		t.Errorf("center pixel should be source white, got %+v", c)
	}
	// The 6% side margins show the background, never the source.
	if c := out.RGBAAt(5, 180); c.R == 255 && c.G == 255 && c.B == 255 {
		t.Error("margin pixel leaked source content")
	}
	if c := out.RGBAAt(5, 180); c.A != 255 {
		t.Errorf("output must be opaque, got alpha %d", c.A)
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	edit := track.DefaultEditState()
	src := solidImage(640, 360, color.RGBA{200, 120, 40, 255})
	sample := Sample{AXN: 0.4, AYN: 0.6, Zoom: 1.7}

	render := func() []byte {
		r := New(640, 360, edit, 2.0)
		out := r.Compose(src, nil, true, sample)
		pix := append([]byte(nil), out.Pix...)
		r.Release(out)
		return pix
	}

	if !bytes.Equal(render(), render()) {
		t.Error("identical inputs produced different frames")
	}
}

func TestComposeCameraPlaceholder(t *testing.T) {
	r := New(640, 360, track.DefaultEditState(), 2.0)
	src := solidImage(640, 360, color.RGBA{255, 255, 255, 255})

	// Camera visible but no decoded frame: a placeholder tile is drawn in
	// the bottom-left corner instead of dropping the overlay.
	out := r.Compose(src, nil, true, Sample{AXN: 0.5, AYN: 0.5, Zoom: 1})
	defer r.Release(out)

	// Camera geometry at 640px: scale 640/420, size even(104*scale)=158,
	// offset 18, so the tile center sits near (97, 263).
	c := out.RGBAAt(97, 263)
	if c.R != 17 || c.G != 24 || c.B != 39 {
		t.Errorf("expected placeholder tile at camera center, got %+v", c)
	}
}

func TestComposeCameraHiddenWhenTrackSaysSo(t *testing.T) {
	r := New(640, 360, track.DefaultEditState(), 2.0)
	src := solidImage(640, 360, color.RGBA{255, 255, 255, 255})

	out := r.Compose(src, nil, false, Sample{AXN: 0.5, AYN: 0.5, Zoom: 1})
	defer r.Release(out)

	c := out.RGBAAt(97, 263)
	if c.R == 17 && c.G == 24 && c.B == 39 {
		t.Error("camera tile drawn while the track marks it hidden")
	}
}

func TestComposePunchInStaysOnSource(t *testing.T) {
	r := New(640, 360, track.DefaultEditState(), 2.0)
	src := solidImage(640, 360, color.RGBA{255, 255, 255, 255})

	// Pan target at the far corner with full zoom: the crop window is
	// clamped, so the frame stays fully opaque and mostly source content.
	out := r.Compose(src, nil, false, Sample{AXN: 1, AYN: 1, Zoom: 2})
	defer r.Release(out)

	if c := out.RGBAAt(320, 180); c.A != 255 {
		t.Errorf("punch-in produced non-opaque center, alpha %d", c.A)
	}
	if c := out.RGBAAt(320, 180); c.R != 255 {
		t.Errorf("clamped crop should show source at center, got %+v", c)
	}
}

func TestNewEvenizesGeometry(t *testing.T) {
	r := New(641, 361, track.DefaultEditState(), 2.0)
	w, h := r.Size()
	if w != 640 || h != 360 {
		t.Errorf("expected 640x360, got %dx%d", w, h)
	}
}
