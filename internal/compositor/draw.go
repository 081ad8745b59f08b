package compositor

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// cropToFill scales src into dst, center-cropping the source to dst's
// aspect ratio first so the destination is filled exactly. It never
// stretches and never leaves empty space.
func cropToFill(dst *image.RGBA, src image.Image) {
	db := dst.Bounds()
	sb := src.Bounds()
	if db.Dx() <= 0 || db.Dy() <= 0 || sb.Dx() <= 0 || sb.Dy() <= 0 {
		return
	}
	dstAspect := float64(db.Dx()) / float64(db.Dy())
	srcAspect := float64(sb.Dx()) / float64(sb.Dy())

	crop := sb
	if srcAspect > dstAspect {
		// Source too wide: trim left/right.
		cw := int(float64(sb.Dy())*dstAspect + 0.5)
		dx := (sb.Dx() - cw) / 2
		crop = image.Rect(sb.Min.X+dx, sb.Min.Y, sb.Min.X+dx+cw, sb.Max.Y)
	} else if srcAspect < dstAspect {
		// Source too tall: trim top/bottom.
		ch := int(float64(sb.Dx())/dstAspect + 0.5)
		dy := (sb.Dy() - ch) / 2
		crop = image.Rect(sb.Min.X, sb.Min.Y+dy, sb.Max.X, sb.Min.Y+dy+ch)
	}
	xdraw.ApproxBiLinear.Scale(dst, db, src, crop, xdraw.Src, nil)
}

// mirrorHorizontal flips the image around its vertical axis in place.
func mirrorHorizontal(img *image.RGBA) {
	b := img.Bounds()
	w := b.Dx()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride : (y-b.Min.Y)*img.Stride+w*4]
		for x := 0; x < w/2; x++ {
			l := x * 4
			r := (w - 1 - x) * 4
			row[l], row[r] = row[r], row[l]
			row[l+1], row[r+1] = row[r+1], row[l+1]
			row[l+2], row[r+2] = row[r+2], row[l+2]
			row[l+3], row[r+3] = row[r+3], row[l+3]
		}
	}
}

// roundCorners zeroes the alpha of pixels outside a rounded-rect mask.
// Only the four corner squares are touched; a radius of half the smaller
// dimension turns a square image into a circle.
func roundCorners(img *image.RGBA, radius int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if radius <= 0 {
		return
	}
	if max := min(w, h) / 2; radius > max {
		radius = max
	}
	r2 := radius * radius
	clear := func(x, y int) {
		img.Pix[y*img.Stride+x*4+3] = 0
	}
	for y := 0; y < radius; y++ {
		for x := 0; x < radius; x++ {
			dx := radius - 1 - x
			dy := radius - 1 - y
			if dx*dx+dy*dy > r2 {
				clear(x, y)
				clear(w-1-x, y)
				clear(x, h-1-y)
				clear(w-1-x, h-1-y)
			}
		}
	}
}

// fillRGBA fills the whole image with one color.
func fillRGBA(img *image.RGBA, r, g, b, a uint8) {
	bounds := img.Bounds()
	w := bounds.Dx()
	for y := 0; y < bounds.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			i := x * 4
			row[i], row[i+1], row[i+2], row[i+3] = r, g, b, a
		}
	}
}

// drawShadow blends a translucent black rounded rect onto dst, the cheap
// approximation of the blurred drop shadow used by the export filter.
func drawShadow(dst *image.RGBA, rect image.Rectangle, radius int, alpha float64) {
	if alpha <= 0 {
		return
	}
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	w, h := rect.Dx(), rect.Dy()
	if max := min(w, h) / 2; radius > max {
		radius = max
	}
	r2 := radius * radius
	a := clampF(alpha, 0, 1)
	keep := 1 - a
	for y := 0; y < h; y++ {
		row := dst.Pix[(rect.Min.Y+y-dst.Rect.Min.Y)*dst.Stride:]
		for x := 0; x < w; x++ {
			if radius > 0 {
				dx, dy := 0, 0
				if x < radius {
					dx = radius - 1 - x
				} else if x >= w-radius {
					dx = x - (w - radius)
				}
				if y < radius {
					dy = radius - 1 - y
				} else if y >= h-radius {
					dy = y - (h - radius)
				}
				if dx*dx+dy*dy > r2 {
					continue
				}
			}
			i := (rect.Min.X + x - dst.Rect.Min.X) * 4
			row[i] = uint8(float64(row[i]) * keep)
			row[i+1] = uint8(float64(row[i+1]) * keep)
			row[i+2] = uint8(float64(row[i+2]) * keep)
		}
	}
}

// boxBlur applies a two-pass box blur to the color channels. Radius is in
// pixels; alpha is left untouched so the blur can run before corner masking.
func boxBlur(img *image.RGBA, radius int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if radius <= 0 || w == 0 || h == 0 {
		return
	}
	tmp := make([]uint8, len(img.Pix))
	copy(tmp, img.Pix)

	// Horizontal pass: img -> tmp.
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		out := tmp[y*img.Stride:]
		for x := 0; x < w; x++ {
			var r, g, bl, n int
			for dx := -radius; dx <= radius; dx++ {
				xx := x + dx
				if xx < 0 || xx >= w {
					continue
				}
				i := xx * 4
				r += int(row[i])
				g += int(row[i+1])
				bl += int(row[i+2])
				n++
			}
			i := x * 4
			out[i] = uint8(r / n)
			out[i+1] = uint8(g / n)
			out[i+2] = uint8(bl / n)
		}
	}

	// Vertical pass: tmp -> img.
	for y := 0; y < h; y++ {
		out := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			var r, g, bl, n int
			for dy := -radius; dy <= radius; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				i := yy*img.Stride + x*4
				r += int(tmp[i])
				g += int(tmp[i+1])
				bl += int(tmp[i+2])
				n++
			}
			i := x * 4
			out[i] = uint8(r / n)
			out[i+1] = uint8(g / n)
			out[i+2] = uint8(bl / n)
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
