package canvas

import (
	"bytes"
	"image"
	stdcolor "image/color"
	"testing"

	"github.com/tinyland/rastertext/raster/color"
	"github.com/tinyland/rastertext/raster/passthrough"
)

func solidImage(w, h int, c stdcolor.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// Spec scenario 1: a 2x2 solid-red image rendered to an 8x8-pixel 1-cell
// canvas in TrueColor symbol mode with the default symbol map must select
// U+2588 FULL BLOCK with FG=0xFF0000, BG irrelevant.
func TestDrawAllPixelsSolidRedPicksFullBlock(t *testing.T) {
	src := solidImage(2, 2, stdcolor.RGBA{R: 0xFF, G: 0, B: 0, A: 0xFF})

	c := NewCanvas(Config{
		Cols: 1, Rows: 1,
		Mode:      ModeSymbols,
		ColorMode: ColorTrueColor,
	})
	c.DrawAllPixels(src)

	cells := c.Cells()
	if len(cells) != 1 {
		t.Fatalf("Cells() = %d entries, want 1", len(cells))
	}
	cell := cells[0]
	if cell.CodePoint != 0x2588 {
		t.Errorf("CodePoint = %U, want U+2588 FULL BLOCK", cell.CodePoint)
	}
	want := color.Color{R: 0xFF, G: 0, B: 0, A: 0xFF}
	if cell.FG != want {
		t.Errorf("FG = %v, want %v", cell.FG, want)
	}
}

// Spec scenario 2: a 16x8-pixel image, left half solid-white right half
// solid-black, rendered to a 2x1-cell canvas in 256-color mode with the
// default symbol map must produce first cell U+2588 FG=white, second cell
// U+2588 FG=black (or U+2580 with the opposite choice, both acceptable).
func TestDrawAllPixelsHalfWhiteHalfBlack256Color(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			c := stdcolor.RGBA{A: 0xFF}
			if x < 8 {
				c = stdcolor.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
			}
			img.SetRGBA(x, y, c)
		}
	}

	c := NewCanvas(Config{
		Cols: 2, Rows: 1,
		Mode:      ModeSymbols,
		ColorMode: Color256,
	})
	c.DrawAllPixels(img)

	cells := c.Cells()
	if len(cells) != 2 {
		t.Fatalf("Cells() = %d entries, want 2", len(cells))
	}

	acceptable := func(cp rune) bool { return cp == 0x2588 || cp == 0x2580 }
	if !acceptable(cells[0].CodePoint) {
		t.Errorf("cell 0 CodePoint = %U, want U+2588 or U+2580", cells[0].CodePoint)
	}
	if !acceptable(cells[1].CodePoint) {
		t.Errorf("cell 1 CodePoint = %U, want U+2588 or U+2580", cells[1].CodePoint)
	}
	if cells[0].FGPen < 0 || cells[0].FGPen >= 256 {
		t.Errorf("cell 0 FGPen = %d out of 256-color range", cells[0].FGPen)
	}
}

func TestBuildANSISymbolModeEmitsColorAndResetPerRow(t *testing.T) {
	src := solidImage(2, 2, stdcolor.RGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xFF})
	c := NewCanvas(Config{Cols: 1, Rows: 1, Mode: ModeSymbols, ColorMode: ColorTrueColor})
	c.DrawAllPixels(src)

	out := c.BuildANSI()
	if len(out) == 0 {
		t.Fatal("BuildANSI returned empty output")
	}
	want := "\x1b[38;2;17;34;51m"
	if string(out[:len(want)]) != want {
		t.Errorf("BuildANSI output = %q, want prefix %q", out, want)
	}
}

func TestDrawAllPixelsSixelModeProducesDCSFraming(t *testing.T) {
	src := solidImage(8, 6, stdcolor.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF})
	c := NewCanvas(Config{Cols: 1, Rows: 1, CellWidthPx: 8, CellHeightPx: 6, Mode: ModeSixel, ColorMode: Color256})
	c.DrawAllPixels(src)

	out := c.BuildANSI()
	if len(out) < 2 || out[0] != 0x1b || out[1] != 'P' {
		t.Errorf("sixel BuildANSI output does not start with DCS framing: %q", out)
	}
}

func TestDrawAllPixelsKittyModeProducesAPCFraming(t *testing.T) {
	src := solidImage(8, 8, stdcolor.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xFF})
	c := NewCanvas(Config{Cols: 1, Rows: 1, Mode: ModeKitty, ColorMode: ColorTrueColor})
	c.DrawAllPixels(src)

	out := c.BuildANSI()
	want := "\x1b_G"
	if string(out[:len(want)]) != want {
		t.Errorf("kitty BuildANSI output = %q, want prefix %q", out, want)
	}
}

func TestDrawAllPixelsIterm2ModeProducesOSCFraming(t *testing.T) {
	src := solidImage(8, 8, stdcolor.RGBA{R: 0x40, G: 0x50, B: 0x60, A: 0xFF})
	c := NewCanvas(Config{Cols: 1, Rows: 1, Mode: ModeIterm2, ColorMode: ColorTrueColor})
	c.DrawAllPixels(src)

	out := c.BuildANSI()
	want := "\x1b]1337;File=inline=1;"
	if string(out[:len(want)]) != want {
		t.Errorf("iterm2 BuildANSI output = %q, want prefix %q", out, want)
	}
}

func TestEncodeKittyUsesSmallerChunksUnderScreenPassthrough(t *testing.T) {
	src := solidImage(64, 64, stdcolor.RGBA{R: 9, G: 8, B: 7, A: 0xFF})

	direct := NewCanvas(Config{Cols: 8, Rows: 8, Mode: ModeKitty, ColorMode: ColorTrueColor})
	direct.DrawAllPixels(src)

	screen := NewCanvas(Config{
		Cols: 8, Rows: 8,
		Mode:        ModeKitty,
		ColorMode:   ColorTrueColor,
		Passthrough: passthrough.KindScreen,
	})
	screen.DrawAllPixels(src)

	directChunks := bytes.Count(direct.graphics, []byte("m=1;"))
	screenChunks := bytes.Count(screen.graphics, []byte("m=1;"))
	if screenChunks <= directChunks {
		t.Errorf("screen-passthrough chunk count = %d, want more than the default chunk count %d (smaller chunks under GNU Screen)", screenChunks, directChunks)
	}
}

func TestBuildANSIWrapsGraphicsForTmuxPassthrough(t *testing.T) {
	src := solidImage(8, 8, stdcolor.RGBA{R: 5, G: 5, B: 5, A: 0xFF})
	c := NewCanvas(Config{
		Cols: 1, Rows: 1,
		Mode:        ModeKitty,
		ColorMode:   ColorTrueColor,
		Passthrough: passthrough.KindTmux,
	})
	c.DrawAllPixels(src)

	out := c.BuildANSI()
	want := "\x1bPtmux;"
	if string(out[:len(want)]) != want {
		t.Errorf("tmux-wrapped BuildANSI output = %q, want prefix %q", out, want)
	}
}
