package sixel

import (
	"bytes"
	"testing"

	"github.com/tinyland/rastertext/raster/palette"
)

func TestWriteRLECollapsesLongRuns(t *testing.T) {
	var buf bytes.Buffer
	chars := bytes.Repeat([]byte{'@'}, 10)
	writeRLE(&buf, chars)
	got := buf.String()
	want := "!10@"
	if got != want {
		t.Errorf("writeRLE(10x '@') = %q, want %q", got, want)
	}
}

func TestWriteRLEShortRunsLiteral(t *testing.T) {
	var buf bytes.Buffer
	writeRLE(&buf, []byte{'@', '@'})
	if buf.String() != "@@" {
		t.Errorf("writeRLE(2x '@') = %q, want literal %q", buf.String(), "@@")
	}
}

func TestWriteRLESplitsOver255(t *testing.T) {
	var buf bytes.Buffer
	chars := bytes.Repeat([]byte{'A'}, 300)
	writeRLE(&buf, chars)
	want := "!255A!45A"
	if buf.String() != want {
		t.Errorf("writeRLE(300x 'A') = %q, want %q", buf.String(), want)
	}
}

func TestEncodeFramingStartsAndEnds(t *testing.T) {
	pal := palette.NewFixed16()
	img := IndexedImage{Width: 6, Height: 6, Pixels: make([]int, 36), Palette: pal}
	out := Encode(img)
	if !bytes.HasPrefix(out, []byte(dcs)) {
		t.Errorf("encoded sixel should start with DCS, got %q", out[:4])
	}
	if !bytes.HasSuffix(out, []byte(st)) {
		t.Errorf("encoded sixel should end with ST, got %q", out[len(out)-2:])
	}
}

func TestEncodeContainsPaletteDefinitions(t *testing.T) {
	pal := palette.NewFixed16()
	img := IndexedImage{Width: 6, Height: 6, Pixels: make([]int, 36), Palette: pal}
	out := Encode(img)
	if !bytes.Contains(out, []byte("#0;2;")) {
		t.Error("expected at least one palette definition #0;2;...")
	}
}

func TestQuantizeMarksTransparentBelowThreshold(t *testing.T) {
	pal := palette.NewFixed16()
	pal.AlphaThreshold = 128
	pixels := make([]byte, 4)
	pixels[3] = 10 // alpha well below threshold
	img := Quantize(pixels, 1, 1, pal)
	if img.Pixels[0] != pal.TransparentIndex {
		t.Errorf("Quantize pen = %d, want transparent index %d", img.Pixels[0], pal.TransparentIndex)
	}
}
