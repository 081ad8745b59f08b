package compositor

import (
	"image"
	"image/color"
)

// Background presets. The gradient table carries start/mid/end colors with
// the mid-stop position; wallpapers are simple two-color ramps.
var gradientPresets = []struct {
	start, mid, end string
	midPos          float64
}{
	{"#6ee7ff", "#a855f7", "#f97316", 0.5},
	{"#0f172a", "#1e40af", "#38bdf8", 0.55},
	{"#111827", "#7c3aed", "#ec4899", 0.6},
	{"#0b1020", "#0f766e", "#22d3ee", 0.6},
}

var wallpaperPresets = []struct {
	start, end string
}{
	{"#0f172a", "#1f2937"},
	{"#0b1020", "#1f1b3a"},
	{"#1f2937", "#0f172a"},
	{"#0a0f1f", "#0b1020"},
}

// parseHexColor decodes "#rrggbb"; invalid input yields black.
func parseHexColor(value string) (r, g, b float64) {
	if len(value) != 7 || value[0] != '#' {
		return 0, 0, 0
	}
	hex := func(c byte) int {
		switch {
		case c >= '0' && c <= '9':
			return int(c - '0')
		case c >= 'a' && c <= 'f':
			return int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			return int(c-'A') + 10
		}
		return 0
	}
	r = float64(hex(value[1])<<4 | hex(value[2]))
	g = float64(hex(value[3])<<4 | hex(value[4]))
	b = float64(hex(value[5])<<4 | hex(value[6]))
	return r, g, b
}

// renderBackground paints the preset background across the full canvas as a
// diagonal ramp t = (x/(w-1) + y/(h-1)) / 2.
func renderBackground(dst *image.RGBA, bgType string, preset int) {
	bounds := dst.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return
	}
	if preset < 0 {
		preset = 0
	}

	var colorAt func(t float64) color.RGBA
	if bgType == "wallpaper" {
		p := wallpaperPresets[preset%len(wallpaperPresets)]
		sr, sg, sb := parseHexColor(p.start)
		er, eg, eb := parseHexColor(p.end)
		colorAt = func(t float64) color.RGBA {
			return color.RGBA{
				R: uint8(sr + (er-sr)*t),
				G: uint8(sg + (eg-sg)*t),
				B: uint8(sb + (eb-sb)*t),
				A: 255,
			}
		}
	} else {
		p := gradientPresets[preset%len(gradientPresets)]
		sr, sg, sb := parseHexColor(p.start)
		mr, mg, mb := parseHexColor(p.mid)
		er, eg, eb := parseHexColor(p.end)
		m := p.midPos
		colorAt = func(t float64) color.RGBA {
			if t <= m {
				u := t / m
				return color.RGBA{
					R: uint8(sr + (mr-sr)*u),
					G: uint8(sg + (mg-sg)*u),
					B: uint8(sb + (mb-sb)*u),
					A: 255,
				}
			}
			u := (t - m) / (1 - m)
			return color.RGBA{
				R: uint8(mr + (er-mr)*u),
				G: uint8(mg + (eg-mg)*u),
				B: uint8(mb + (eb-mb)*u),
				A: 255,
			}
		}
	}

	maxX := float64(w - 1)
	maxY := float64(h - 1)
	if maxX == 0 {
		maxX = 1
	}
	if maxY == 0 {
		maxY = 1
	}
	for y := 0; y < h; y++ {
		fy := float64(y) / maxY
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for x := 0; x < w; x++ {
			t := (float64(x)/maxX + fy) / 2
			c := colorAt(t)
			i := x * 4
			row[i] = c.R
			row[i+1] = c.G
			row[i+2] = c.B
			row[i+3] = c.A
		}
	}
}
