package pixops

import (
	"image"
	"image/color"
	"testing"

	rcolor "github.com/tinyland/rastertext/raster/color"
	"github.com/tinyland/rastertext/raster/dither"
)

func solidImage(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestDestRectStretchFillsCanvas(t *testing.T) {
	r := destRect(10, 20, 80, 80, 8, 8, TuckStretch, AlignCenter, AlignCenter)
	if r.Dx() != 80 || r.Dy() != 80 {
		t.Errorf("Stretch rect = %v, want full 80x80 canvas", r)
	}
}

func TestDestRectFitPreservesAspect(t *testing.T) {
	// 2:1 source into a square canvas should fit width-limited.
	r := destRect(200, 100, 80, 80, 8, 8, TuckFit, AlignCenter, AlignCenter)
	if r.Dx() != 80 {
		t.Errorf("Fit rect width = %d, want 80 (cell-snapped)", r.Dx())
	}
	if r.Dy() > 80 {
		t.Errorf("Fit rect height = %d, want <= 80", r.Dy())
	}
}

func TestDestRectShrinkToFitNeverEnlarges(t *testing.T) {
	// A tiny source in a huge canvas should not be upscaled.
	r := destRect(4, 4, 800, 800, 8, 8, TuckShrinkToFit, AlignStart, AlignStart)
	if r.Dx() > 8 || r.Dy() > 8 {
		t.Errorf("ShrinkToFit rect = %v, source should not be enlarged beyond one cell", r)
	}
}

func TestDestRectSnapsToCell(t *testing.T) {
	r := destRect(10, 10, 100, 100, 8, 8, TuckFit, AlignStart, AlignStart)
	if r.Dx()%8 != 0 || r.Dy()%8 != 0 {
		t.Errorf("dest rect %v not snapped to 8x8 cells", r)
	}
}

func TestProcessSolidColorNoDither(t *testing.T) {
	src := solidImage(16, 16, color.RGBA{R: 200, G: 50, B: 50, A: 255})
	cfg := Config{
		CanvasWidth: 16, CanvasHeight: 16,
		CellWidth: 8, CellHeight: 8,
		Tuck: TuckStretch, HAlign: AlignCenter, VAlign: AlignCenter,
		Dither: dither.Config{Mode: dither.ModeNone},
	}
	res := Process(src, cfg)
	if res.Width != 16 || res.Height != 16 {
		t.Fatalf("Result dims = %dx%d, want 16x16", res.Width, res.Height)
	}
	if res.HasAlpha {
		t.Error("fully opaque source should not be flagged as having alpha")
	}
}

func TestProcessDetectsAlpha(t *testing.T) {
	src := solidImage(8, 8, color.RGBA{R: 100, G: 100, B: 100, A: 128})
	cfg := Config{
		CanvasWidth: 8, CanvasHeight: 8,
		Tuck: TuckStretch,
	}
	res := Process(src, cfg)
	if !res.HasAlpha {
		t.Error("semi-transparent source should be flagged as having alpha")
	}
}

func TestProcessCompositesOverBackground(t *testing.T) {
	src := solidImage(4, 4, color.RGBA{R: 0, G: 0, B: 0, A: 0})
	bg := rcolor.Color{R: 255, G: 0, B: 0, A: 255}
	cfg := Config{
		CanvasWidth: 4, CanvasHeight: 4,
		Tuck:          TuckStretch,
		Background:    bg,
		HasBackground: true,
	}
	res := Process(src, cfg)
	// Fully transparent source composited over a red background should end
	// up close to red.
	if res.Pixels[0] < 200 {
		t.Errorf("composited R = %d, want close to 255 (background)", res.Pixels[0])
	}
}

func TestProcessDIN99dConversionChangesValues(t *testing.T) {
	src := solidImage(4, 4, color.RGBA{R: 10, G: 200, B: 30, A: 255})
	cfg := Config{CanvasWidth: 4, CanvasHeight: 4, Tuck: TuckStretch, ToDIN99d: true}
	res := Process(src, cfg)
	if !res.DIN99d {
		t.Error("Result.DIN99d should be true when ToDIN99d requested")
	}
	// A saturated green should not convert to itself in DIN99d space.
	if res.Pixels[0] == 10 && res.Pixels[1] == 200 && res.Pixels[2] == 30 {
		t.Error("DIN99d conversion should change channel values for a saturated color")
	}
}

func TestWorkFactorPicksNearestNeighborWhenShrinkingALot(t *testing.T) {
	wf := workFactor(1000, 1000, 50, 50)
	if wf >= nearestNeighborThreshold {
		t.Errorf("workFactor = %f, want < %f for large downscale", wf, nearestNeighborThreshold)
	}
}

func TestClampBoundsHandlesEmptyHistogram(t *testing.T) {
	var hist [histogramBins]int
	factor, offset := clampBounds(hist, histogramBins, 0, 0.1)
	if factor != 1 || offset != 0 {
		t.Errorf("clampBounds on empty histogram = (%f, %f), want (1, 0)", factor, offset)
	}
}
