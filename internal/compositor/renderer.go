package compositor

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/screenstudio/internal/system"
	"github.com/ivlev/screenstudio/internal/track"
)

const (
	// Camera metrics (size, offset, corner radii) are authored against a
	// 420px-wide reference canvas and scaled to the real output width.
	referenceOutputWidth = 420.0

	// The camera tile shrinks toward this fraction of its size as the
	// zoom progress approaches 1.
	cameraShrinkMin = 0.6

	zoomEpsilon = 1e-3
)

// Renderer produces one composited output frame from the source frame, the
// optional camera frame, the smoothed pan/zoom sample and the edit state.
// It holds no hidden per-frame state: the same inputs always produce the
// same pixels, in the preview and in the export path alike.
type Renderer struct {
	width   int
	height  int
	edit    track.EditState
	maxZoom float64

	safe       image.Rectangle
	inner      image.Rectangle
	radius     int
	background *image.RGBA
}

// New builds a renderer for a fixed output geometry. maxZoom is the
// synthesis ceiling the zoom progress is measured against.
func New(width, height int, edit track.EditState, maxZoom float64) *Renderer {
	width = evenize(width)
	if width < 2 {
		width = 2
	}
	height = evenize(height)
	if height < 2 {
		height = 2
	}
	if maxZoom <= 1 {
		maxZoom = track.DefaultZoomSettings().MaxZoom
	}

	safe := SafeArea(edit.Aspect).pixels(width, height)
	inner := safe.Inset(edit.Padding)
	if inner.Dx() < 2 || inner.Dy() < 2 {
		inner = safe
	}

	radius := edit.Radius
	if max := min(inner.Dx(), inner.Dy()) / 2; radius > max {
		radius = max
	}

	background := image.NewRGBA(image.Rect(0, 0, width, height))
	renderBackground(background, edit.BackgroundType, edit.BackgroundPreset)

	return &Renderer{
		width:      width,
		height:     height,
		edit:       edit,
		maxZoom:    maxZoom,
		safe:       safe,
		inner:      inner,
		radius:     radius,
		background: background,
	}
}

// Size returns the output dimensions.
func (r *Renderer) Size() (w, h int) {
	return r.width, r.height
}

// Compose renders one output frame. cam may be nil; when the camera track
// marks the frame visible but no decoded camera frame is available a
// placeholder tile is drawn instead of aborting the frame. The returned
// image comes from the shared pool; hand it back with Release when done.
func (r *Renderer) Compose(src image.Image, cam image.Image, camVisible bool, s Sample) *image.RGBA {
	canvas := system.GetImage(image.Rect(0, 0, r.width, r.height))
	copy(canvas.Pix, r.background.Pix)

	// Frame drop shadow under the letterboxed source.
	if r.edit.Shadow > 0 {
		off := r.edit.Shadow / 6
		alpha := clampF(float64(r.edit.Shadow)/120, 0, 0.6)
		drawShadow(canvas, r.inner.Add(image.Pt(off, off)), r.radius, alpha)
	}

	// Letterbox the source into the safe area with crop-to-fill.
	if src != nil {
		frame := system.GetImage(image.Rect(0, 0, r.inner.Dx(), r.inner.Dy()))
		cropToFill(frame, src)
		roundCorners(frame, r.radius)
		draw.Draw(canvas, r.inner, frame, image.Point{}, draw.Over)
		system.PutImage(frame)
	}

	// Punch in: scale the crop window up to the full canvas.
	out := canvas
	if s.Zoom > 1+zoomEpsilon {
		crop := r.cropWindow(s)
		zoomed := system.GetImage(image.Rect(0, 0, r.width, r.height))
		xdraw.ApproxBiLinear.Scale(zoomed, zoomed.Bounds(), canvas, crop, xdraw.Src, nil)
		system.PutImage(canvas)
		out = zoomed
	}

	// Camera overlay is composited after the punch-in so its scale is
	// unaffected by the zoom level.
	if camVisible {
		r.drawCamera(out, cam, s)
	}
	return out
}

// Release returns a composited frame to the pool.
func (r *Renderer) Release(img *image.RGBA) {
	system.PutImage(img)
}

// progress maps the eased zoom level onto [0,1] against the synthesis
// ceiling. Interpolations key off this, never off the raw zoom value.
func (r *Renderer) progress(zoom float64) float64 {
	if r.maxZoom <= 1 {
		return 0
	}
	return clampF((zoom-1)/(r.maxZoom-1), 0, 1)
}

// cropWindow computes the source rectangle of the punch-in. The pan center
// is clamped to the full canvas first, then pulled toward a safe-area-only
// clamp as the zoom progress grows, so a progressed zoom never reveals the
// background outside the safe area while low zoom levels may stray a little.
func (r *Renderer) cropWindow(s Sample) image.Rectangle {
	w := float64(r.width)
	h := float64(r.height)
	zoom := s.Zoom
	if zoom < 1 {
		zoom = 1
	}
	cw := w / zoom
	ch := h / zoom
	p := r.progress(zoom)

	sx0 := float64(r.safe.Min.X)
	sy0 := float64(r.safe.Min.Y)
	sx1 := float64(r.safe.Max.X)
	sy1 := float64(r.safe.Max.Y)

	cx := sx0 + clampF(s.AXN, 0, 1)*(sx1-sx0)
	cy := sy0 + clampF(s.AYN, 0, 1)*(sy1-sy0)

	cx = lerp(clampCenter(cx, cw, 0, w), clampCenter(cx, cw, sx0, sx1), p)
	cy = lerp(clampCenter(cy, ch, 0, h), clampCenter(cy, ch, sy0, sy1), p)

	rect := image.Rect(
		int(cx-cw/2+0.5),
		int(cy-ch/2+0.5),
		int(cx+cw/2+0.5),
		int(cy+ch/2+0.5),
	)
	return rect.Intersect(image.Rect(0, 0, r.width, r.height))
}

// clampCenter keeps a crop center such that a window of the given size
// stays within [lo, hi]; if the window cannot fit it sits centered.
func clampCenter(c, size, lo, hi float64) float64 {
	if size >= hi-lo {
		return (lo + hi) / 2
	}
	return clampF(c, lo+size/2, hi-size/2)
}

func (r *Renderer) drawCamera(dst *image.RGBA, cam image.Image, s Sample) {
	scale := float64(r.width) / referenceOutputWidth
	if scale < 0.1 {
		scale = 0.1
	}
	aspectScale := 1.0
	if r.edit.Aspect == "9:16" {
		aspectScale = 2.0
	}

	// Secondary shrink-on-zoom effect, clamped to [cameraShrinkMin, 1].
	factor := clampF(1-(1-cameraShrinkMin)*r.progress(s.Zoom), cameraShrinkMin, 1)
	size := evenize(int(float64(r.edit.CameraSize)*scale*aspectScale*factor + 0.5))
	if size < 2 {
		size = 2
	}
	offset := int(12*scale + 0.5)

	var x, y int
	switch r.edit.CameraPosition {
	case "top_left":
		x, y = offset, offset
	case "top_right":
		x, y = r.width-size-offset, offset
	case "bottom_right":
		x, y = r.width-size-offset, r.height-size-offset
	default: // bottom_left
		x, y = offset, r.height-size-offset
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	rect := image.Rect(x, y, x+size, y+size)

	var radius int
	switch r.edit.CameraShape {
	case "circle":
		radius = size / 2
	case "rounded":
		radius = int(18*scale + 0.5)
	default: // square
		radius = int(6*scale + 0.5)
	}
	if radius > size/2 {
		radius = size / 2
	}

	if r.edit.CameraShadow > 0 {
		off := r.edit.CameraShadow / 6
		alpha := clampF(float64(r.edit.CameraShadow)/120, 0, 0.6)
		drawShadow(dst, rect.Add(image.Pt(off, off)), radius, alpha)
	}

	tile := system.GetImage(image.Rect(0, 0, size, size))
	if cam == nil {
		// Camera marked visible but the decoded frame is absent.
		fillRGBA(tile, 17, 24, 39, 255)
	} else {
		cropToFill(tile, cam)
		if r.edit.CameraMirror {
			mirrorHorizontal(tile)
		}
		if r.edit.CameraBlur {
			boxBlur(tile, int(4*scale+0.5))
		}
	}
	roundCorners(tile, radius)
	draw.Draw(dst, rect, tile, image.Point{}, draw.Over)
	system.PutImage(tile)
}
