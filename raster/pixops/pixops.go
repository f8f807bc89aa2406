// Package pixops implements the pixel preprocessing pipeline: tuck/align
// geometry, scaling, histogram-based contrast normalization, alpha
// compositing, dithering, and DIN99d conversion.
package pixops

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/tinyland/rastertext/raster/color"
	"github.com/tinyland/rastertext/raster/dither"
)

// Tuck selects how a source image is placed into a destination rectangle.
type Tuck int

const (
	TuckStretch Tuck = iota
	TuckFit
	TuckShrinkToFit
)

// Align selects placement along one axis once tuck has determined scale.
type Align int

const (
	AlignStart Align = iota
	AlignCenter
	AlignEnd
)

// Config controls one preprocessing pass.
type Config struct {
	CanvasWidth, CanvasHeight int // destination pixel dimensions (cells * cell size)
	CellWidth, CellHeight     int

	Tuck       Tuck
	HAlign     Align
	VAlign     Align

	Background     color.Color // composited under transparent source pixels
	HasBackground  bool
	PaletteIsSmall bool // selects the histogram tail-trim percentage

	Dither       dither.Config
	ToDIN99d     bool
	Quantize     dither.QuantizeFunc // required when Dither.Mode == ModeFS
}

// destRect computes the destination sub-rectangle within a canvasW x
// canvasH area for a srcW x srcH image under the given tuck/align policy,
// snapping edges outward to cell boundaries per spec §4.5 step 1.
func destRect(srcW, srcH, canvasW, canvasH, cellW, cellH int, tuck Tuck, hAlign, vAlign Align) image.Rectangle {
	var dw, dh int

	switch tuck {
	case TuckStretch:
		dw, dh = canvasW, canvasH
	case TuckFit, TuckShrinkToFit:
		if srcW <= 0 || srcH <= 0 {
			dw, dh = canvasW, canvasH
			break
		}
		ratioW := float64(canvasW) / float64(srcW)
		ratioH := float64(canvasH) / float64(srcH)
		ratio := ratioW
		if ratioH < ratioW {
			ratio = ratioH
		}
		if tuck == TuckShrinkToFit && ratio > 1 {
			ratio = 1
		}
		dw = int(float64(srcW)*ratio + 0.5)
		dh = int(float64(srcH)*ratio + 0.5)
		if dw < 1 {
			dw = 1
		}
		if dh < 1 {
			dh = 1
		}
	}

	// Snap outward to cell boundaries so no partial cell row/column results.
	if cellW > 0 {
		dw = ((dw + cellW - 1) / cellW) * cellW
	}
	if cellH > 0 {
		dh = ((dh + cellH - 1) / cellH) * cellH
	}
	if dw > canvasW {
		dw = canvasW
	}
	if dh > canvasH {
		dh = canvasH
	}

	var x0, y0 int
	switch hAlign {
	case AlignStart:
		x0 = 0
	case AlignCenter:
		x0 = (canvasW - dw) / 2
	case AlignEnd:
		x0 = canvasW - dw
	}
	switch vAlign {
	case AlignStart:
		y0 = 0
	case AlignCenter:
		y0 = (canvasH - dh) / 2
	case AlignEnd:
		y0 = canvasH - dh
	}

	return image.Rect(x0, y0, x0+dw, y0+dh)
}

// workFactor estimates the ratio of destination to source area; below this
// threshold a cheap nearest-neighbor resample replaces the batched scaler,
// per spec §4.5 step 2.
const nearestNeighborThreshold = 0.3

func workFactor(srcW, srcH, dstW, dstH int) float64 {
	srcArea := float64(srcW * srcH)
	dstArea := float64(dstW * dstH)
	if srcArea == 0 {
		return 1
	}
	return dstArea / srcArea
}

// Result is the output of Process: a row-major RGBA8 buffer sized
// cfg.CanvasWidth x cfg.CanvasHeight, plus the flags pass 1 detected.
type Result struct {
	Pixels     []byte
	Width      int
	Height     int
	HasAlpha   bool
	DIN99d     bool
}

// Process runs the full preprocessing pipeline (spec §4.5) on src, producing
// a canvas-sized RGBA8 buffer ready for cell analysis or palette
// quantization.
func Process(src image.Image, cfg Config) Result {
	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	rect := destRect(srcW, srcH, cfg.CanvasWidth, cfg.CanvasHeight, cfg.CellWidth, cfg.CellHeight, cfg.Tuck, cfg.HAlign, cfg.VAlign)
	dstW, dstH := rect.Dx(), rect.Dy()
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	wf := workFactor(srcW, srcH, dstW, dstH)

	var scaled image.Image
	if wf < nearestNeighborThreshold {
		scaled = imaging.Resize(src, dstW, dstH, imaging.NearestNeighbor)
	} else {
		scaled = imaging.Resize(src, dstW, dstH, imaging.Lanczos)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, cfg.CanvasWidth, cfg.CanvasHeight))
	if cfg.HasBackground {
		bg := image.NewUniform(rgbaModel(cfg.Background))
		draw.Draw(canvas, canvas.Bounds(), bg, image.Point{}, draw.Src)
	}
	draw.Draw(canvas, rect, scaled, image.Point{}, draw.Over)

	pixels := canvas.Pix
	w, h := cfg.CanvasWidth, cfg.CanvasHeight

	hasAlpha := detectAlpha(pixels)

	lo, hi, hist := buildHistogram(pixels)
	trimPct := 0.05
	if !cfg.PaletteIsSmall {
		trimPct = 0.20
	}
	factor, offset := clampBounds(hist, lo, hi, trimPct)

	if cfg.PaletteIsSmall {
		normalize(pixels, factor, offset)
	}

	if hasAlpha && cfg.HasBackground {
		compositeOverBackground(pixels, cfg.Background)
	}

	applyDither(pixels, w, h, cfg.Dither, cfg.Quantize)

	if cfg.ToDIN99d {
		convertToDIN99d(pixels)
	}

	return Result{Pixels: pixels, Width: w, Height: h, HasAlpha: hasAlpha, DIN99d: cfg.ToDIN99d}
}

func rgbaModel(c color.Color) image.Image {
	return image.NewUniform(rgbaColor(c))
}

type rgbaColorT struct{ r, g, b, a uint8 }

func (c rgbaColorT) RGBA() (r, g, b, a uint32) {
	return uint32(c.r) * 0x101, uint32(c.g) * 0x101, uint32(c.b) * 0x101, uint32(c.a) * 0x101
}

func rgbaColor(c color.Color) rgbaColorT { return rgbaColorT{c.R, c.G, c.B, c.A} }

// histogramBins is the number of buckets in the intensity histogram used for
// contrast normalization, per spec §4.5 step 3.
const histogramBins = 2048

// intensity computes I = 3R + 4G + B, in range [0, 2048).
func intensity(r, g, b uint8) int {
	return 3*int(r) + 4*int(g) + int(b)
}

func detectAlpha(pixels []byte) bool {
	for i := 3; i < len(pixels); i += 4 {
		if pixels[i] < 0xFF {
			return true
		}
	}
	return false
}

func buildHistogram(pixels []byte) (lo, hi int, hist [histogramBins]int) {
	lo, hi = histogramBins, 0
	for i := 0; i < len(pixels); i += 4 {
		v := intensity(pixels[i], pixels[i+1], pixels[i+2])
		if v >= histogramBins {
			v = histogramBins - 1
		}
		hist[v]++
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, hist
}

// clampBounds determines the [lo, hi] intensity bounds after discarding
// trimPct of samples from each histogram tail, and returns the linear
// rescale factor and offset used by normalize, per spec §4.5 step 4.
func clampBounds(hist [histogramBins]int, lo, hi int, trimPct float64) (factor, offset float64) {
	total := 0
	for _, c := range hist {
		total += c
	}
	if total == 0 {
		return 1, 0
	}

	trim := int(float64(total) * trimPct)

	acc := 0
	newLo := lo
	for v := 0; v < histogramBins; v++ {
		acc += hist[v]
		if acc > trim {
			newLo = v
			break
		}
	}

	acc = 0
	newHi := hi
	for v := histogramBins - 1; v >= 0; v-- {
		acc += hist[v]
		if acc > trim {
			newHi = v
			break
		}
	}

	if newHi <= newLo {
		return 1, 0
	}

	factor = float64(histogramBins-1) / float64(newHi-newLo)
	offset = -float64(newLo) * factor
	return factor, offset
}

func normalize(pixels []byte, factor, offset float64) {
	apply := func(v uint8) uint8 {
		f := float64(v)*factor + offset/(histogramBins/256.0)
		if f < 0 {
			f = 0
		}
		if f > 255 {
			f = 255
		}
		return uint8(f + 0.5)
	}
	for i := 0; i < len(pixels); i += 4 {
		pixels[i] = apply(pixels[i])
		pixels[i+1] = apply(pixels[i+1])
		pixels[i+2] = apply(pixels[i+2])
	}
}

func compositeOverBackground(pixels []byte, bg color.Color) {
	for i := 0; i < len(pixels); i += 4 {
		a := float64(pixels[i+3]) / 255.0
		pixels[i] = blend(pixels[i], bg.R, a)
		pixels[i+1] = blend(pixels[i+1], bg.G, a)
		pixels[i+2] = blend(pixels[i+2], bg.B, a)
		pixels[i+3] = 255
	}
}

func blend(fg, bgc uint8, a float64) uint8 {
	v := float64(fg)*a + float64(bgc)*(1-a)
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v + 0.5)
}

func applyDither(pixels []byte, w, h int, cfg dither.Config, quantize dither.QuantizeFunc) {
	switch cfg.Mode {
	case dither.ModeNone:
		return
	case dither.ModeOrdered:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				off := (y*w + x) * 4
				c := color.FetchRGBA8(pixels[off : off+4])
				out := dither.ApplyOrdered(c, x, y, cfg)
				color.StoreRGBA8(out, pixels[off:off+4])
			}
		}
	case dither.ModeNoise:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				off := (y*w + x) * 4
				c := color.FetchRGBA8(pixels[off : off+4])
				out := dither.ApplyNoise(c, x, y, cfg)
				color.StoreRGBA8(out, pixels[off:off+4])
			}
		}
	case dither.ModeFS:
		if quantize != nil {
			dither.FloydSteinberg(pixels, w, h, cfg.Grain, quantize)
		}
	}
}

func convertToDIN99d(pixels []byte) {
	for i := 0; i < len(pixels); i += 4 {
		c := color.FetchRGBA8(pixels[i : i+4])
		out := color.RGBToDIN99d(c)
		color.StoreRGBA8(out, pixels[i:i+4])
	}
}
