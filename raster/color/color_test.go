package color

import "testing"

func TestPackUnpackRoundTrip(t *testing.T) {
	cases := []Color{
		{R: 0, G: 0, B: 0, A: 0},
		{R: 255, G: 255, B: 255, A: 255},
		{R: 12, G: 200, B: 7, A: 128},
		{R: 255, G: 0, B: 0, A: 255},
	}
	for _, c := range cases {
		got := Unpack(Pack(c))
		if got != c {
			t.Errorf("Unpack(Pack(%+v)) = %+v, want %+v", c, got, c)
		}
	}
}

func TestFetchStoreRGBA8RoundTrip(t *testing.T) {
	c := Color{R: 10, G: 20, B: 30, A: 40}
	buf := make([]byte, 4)
	StoreRGBA8(c, buf)
	got := FetchRGBA8(buf)
	if got != c {
		t.Errorf("FetchRGBA8(StoreRGBA8(%+v)) = %+v", c, got)
	}
}

func TestDiffFastZeroForEqual(t *testing.T) {
	c := Color{R: 100, G: 150, B: 200, A: 255}
	if d := DiffFast(c, c); d != 0 {
		t.Errorf("DiffFast(c, c) = %d, want 0", d)
	}
}

func TestDiffFastSymmetric(t *testing.T) {
	a := Color{R: 10, G: 20, B: 30}
	b := Color{R: 200, G: 100, B: 5}
	if DiffFast(a, b) != DiffFast(b, a) {
		t.Errorf("DiffFast not symmetric")
	}
}

func TestDiffFastKnownValue(t *testing.T) {
	a := Color{R: 0, G: 0, B: 0}
	b := Color{R: 1, G: 2, B: 3}
	want := 1*1 + 2*2 + 3*3
	if got := DiffFast(a, b); got != want {
		t.Errorf("DiffFast = %d, want %d", got, want)
	}
}

func TestAverage2Midpoint(t *testing.T) {
	a := Color{R: 0, G: 0, B: 0, A: 255}
	b := Color{R: 254, G: 254, B: 254, A: 255}
	got := Average2(a, b)
	// (0>>1)+(254>>1) = 0 + 127 = 127 for each channel.
	if got.R != 127 || got.G != 127 || got.B != 127 {
		t.Errorf("Average2 = %+v, want R=G=B=127", got)
	}
}

func TestRGBToDIN99dPreservesAlpha(t *testing.T) {
	c := Color{R: 128, G: 64, B: 32, A: 77}
	got := RGBToDIN99d(c)
	if got.A != c.A {
		t.Errorf("alpha not preserved: got %d, want %d", got.A, c.A)
	}
}

func TestRGBToDIN99dBlackIsOrigin(t *testing.T) {
	black := Color{R: 0, G: 0, B: 0, A: 255}
	got := RGBToDIN99d(black)
	if got.R != 0 {
		t.Errorf("black L99 = %d, want 0", got.R)
	}
}

func TestRGBToDIN99dWhiteDiffersFromBlack(t *testing.T) {
	white := RGBToDIN99d(Color{R: 255, G: 255, B: 255, A: 255})
	black := RGBToDIN99d(Color{R: 0, G: 0, B: 0, A: 255})
	if white.R == black.R {
		t.Errorf("white and black map to same L99 component")
	}
}

func TestAccumAddAndDiv(t *testing.T) {
	var acc Accum
	acc.Add(Color{R: 10, G: 20, B: 30, A: 40})
	acc.Add(Color{R: 30, G: 40, B: 50, A: 60})
	got := acc.DivScalar(2)
	want := Color{R: 20, G: 30, B: 40, A: 50}
	if got != want {
		t.Errorf("DivScalar = %+v, want %+v", got, want)
	}
}

func TestDiffSlowRGBZeroForEqual(t *testing.T) {
	c := Color{R: 50, G: 60, B: 70, A: 255}
	if d := DiffSlowRGB(c, c); d != 0 {
		t.Errorf("DiffSlowRGB(c, c) = %d, want 0", d)
	}
}
