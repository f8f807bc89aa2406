package dither

import "github.com/tinyland/rastertext/raster/color"

// QuantizeFunc snaps a color to the nearest representable output color;
// FloydSteinberg diffuses the resulting quantization error to neighboring
// pixels.
type QuantizeFunc func(c color.Color) color.Color

// errAccum carries diffused per-channel error in whole channel units; each
// weighted share is divided by 16 (truncating) as it is added.
type errAccum struct{ r, g, b int32 }

// FloydSteinberg applies grain-aware error-diffusion dithering in place to a
// row-major RGBA8 buffer of the given width and height, calling quantize to
// pick the actual output color for each grain block and diffusing the
// quantization error of the block's mean color to the neighboring blocks
// with the standard 7/16, 3/16, 5/16, 1/16 weights. Rows alternate scan
// direction (boustrophedon) to
// avoid directional artifacts.
func FloydSteinberg(pixels []byte, width, height int, grain Grain, quantize QuantizeFunc) {
	gw, gh := grain.W, grain.H
	if gw < 1 {
		gw = 1
	}
	if gh < 1 {
		gh = 1
	}
	bw := (width + gw - 1) / gw
	bh := (height + gh - 1) / gh

	errBuf := make([]errAccum, bw*bh)

	blockMean := func(bx, by int) color.Color {
		var acc color.Accum
		n := 0
		for y := by * gh; y < by*gh+gh && y < height; y++ {
			for x := bx * gw; x < bx*gw+gw && x < width; x++ {
				off := (y*width + x) * 4
				acc.Add(color.Color{R: pixels[off], G: pixels[off+1], B: pixels[off+2], A: pixels[off+3]})
				n++
			}
		}
		if n == 0 {
			return color.Color{}
		}
		return acc.DivScalar(n)
	}

	writeBlock := func(bx, by int, c color.Color) {
		for y := by * gh; y < by*gh+gh && y < height; y++ {
			for x := bx * gw; x < bx*gw+gw && x < width; x++ {
				off := (y*width + x) * 4
				pixels[off], pixels[off+1], pixels[off+2] = c.R, c.G, c.B
			}
		}
	}

	addErr := func(bx, by int, dr, dg, db int32, weight int32) {
		if bx < 0 || bx >= bw || by < 0 || by >= bh {
			return
		}
		e := &errBuf[by*bw+bx]
		e.r += dr * weight / 16
		e.g += dg * weight / 16
		e.b += db * weight / 16
	}

	for by := 0; by < bh; by++ {
		leftToRight := by%2 == 0
		for i := 0; i < bw; i++ {
			bx := i
			if !leftToRight {
				bx = bw - 1 - i
			}

			mean := blockMean(bx, by)
			e := errBuf[by*bw+bx]
			withErr := color.Color{
				R: clampChannel(int(mean.R) + int(e.r)),
				G: clampChannel(int(mean.G) + int(e.g)),
				B: clampChannel(int(mean.B) + int(e.b)),
				A: mean.A,
			}

			out := quantize(withErr)
			writeBlock(bx, by, out)

			dr := int32(withErr.R) - int32(out.R)
			dg := int32(withErr.G) - int32(out.G)
			db := int32(withErr.B) - int32(out.B)

			dir := 1
			if !leftToRight {
				dir = -1
			}
			addErr(bx+dir, by, dr, dg, db, 7)
			addErr(bx-dir, by+1, dr, dg, db, 3)
			addErr(bx, by+1, dr, dg, db, 5)
			addErr(bx+dir, by+1, dr, dg, db, 1)
		}
	}
}
