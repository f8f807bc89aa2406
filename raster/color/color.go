// Package color implements the 8-bit RGBA color representation shared by the
// rest of the rendering core, plus conversion to and from the DIN99d
// perceptually uniform color space and the fast/slow color-difference
// metrics used by the palette and cell-analysis stages.
package color

import (
	"encoding/binary"
	"math"
)

// Space identifies which color space a Color value is expressed in. The
// container is the same four-byte struct for both; callers must track which
// space a given value is in themselves.
type Space int

const (
	// SpaceRGB is plain sRGB with an alpha channel.
	SpaceRGB Space = iota
	// SpaceDIN99d is the DIN99d perceptually uniform space (see RGBToDIN99d).
	SpaceDIN99d
)

// Color is the 8-bit, 4-channel (R, G, B, A) pixel representation used
// throughout the core. It doubles as a DIN99d container; which space it
// holds is tracked by the caller via Space.
type Color struct {
	R, G, B, A uint8
}

// Accum is the 16-bit accumulator form of Color, used when summing pixel
// groups. A cell holds at most 64 pixels, so int16 cannot overflow even when
// every channel is 0xFF.
type Accum struct {
	R, G, B, A int16
}

// Add accumulates c into a in place.
func (a *Accum) Add(c Color) {
	a.R += int16(c.R)
	a.G += int16(c.G)
	a.B += int16(c.B)
	a.A += int16(c.A)
}

// DivScalar divides every channel of a by n, rounding toward zero, and
// returns the result as a Color. n must be > 0.
func (a Accum) DivScalar(n int) Color {
	return Color{
		R: uint8(int(a.R) / n),
		G: uint8(int(a.G) / n),
		B: uint8(int(a.B) / n),
		A: uint8(int(a.A) / n),
	}
}

// Pack returns the color packed into a 32-bit word as A<<24 | R<<16 | G<<8 | B.
func Pack(c Color) uint32 {
	return uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// Unpack reverses Pack.
func Unpack(packed uint32) Color {
	return Color{
		A: uint8(packed >> 24),
		R: uint8(packed >> 16),
		G: uint8(packed >> 8),
		B: uint8(packed),
	}
}

// FetchRGBA8 loads a Color from 4 consecutive RGBA bytes, matching the
// layout produced by StoreRGBA8. This is the cheap load path used when
// walking a caller-supplied RGBA8 pixel buffer: a straight 4-byte copy
// rather than channel-by-channel assignment.
func FetchRGBA8(p []byte) Color {
	_ = p[3]
	return Color{R: p[0], G: p[1], B: p[2], A: p[3]}
}

// StoreRGBA8 writes c into 4 consecutive bytes in R,G,B,A order.
func StoreRGBA8(c Color, p []byte) {
	_ = p[3]
	p[0], p[1], p[2], p[3] = c.R, c.G, c.B, c.A
}

// packedLE reinterprets a Color as a little-endian uint32 for Average2's
// bit trick below, which depends on this exact byte order.
func packedLE(c Color) uint32 {
	var b [4]byte
	StoreRGBA8(c, b[:])
	return binary.LittleEndian.Uint32(b[:])
}

func unpackedLE(v uint32) Color {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return FetchRGBA8(b[:])
}

// Average2 returns the per-channel average of a and b using the halve-and-add
// bit trick from the reference implementation: each color is treated as a
// packed little-endian u32, halved with an 0x7f7f7f7f mask to avoid carry
// across channel boundaries, then summed. This is a couple of integer ops
// cheaper than a per-channel division and is exact except for the bottom bit,
// which is an acceptable approximation for palette duplicate-merge cleanup.
func Average2(a, b Color) Color {
	sum := ((packedLE(a) >> 1) & 0x7f7f7f7f) + ((packedLE(b) >> 1) & 0x7f7f7f7f)
	return unpackedLE(sum)
}

// DiffFast is the squared 3D Euclidean distance over R, G, B only (alpha is
// ignored). It is symmetric in its arguments and valid in both RGB and
// DIN99d space.
func DiffFast(a, b Color) int {
	dr := int(b.R) - int(a.R)
	dg := int(b.G) - int(a.G)
	db := int(b.B) - int(a.B)
	return dr*dr + dg*dg + db*db
}

// DiffSlowRGB is the alpha-aware weighted RGB difference: a luma-weighted
// squared difference with a chroma cross term, folded with an alpha-presence
// penalty. Used where alpha blending correctness matters more than raw
// distance (e.g. comparing against a partially transparent source pixel).
func DiffSlowRGB(a, b Color) int {
	dr := int(b.R) - int(a.R)
	dg := int(b.G) - int(a.G)
	db := int(b.B) - int(a.B)
	da := int(b.A) - int(a.A)

	drSq := dr * dr
	dgSq := dg * dg
	dbSq := db * db

	weighted := 2*drSq + 4*dgSq + 3*dbSq

	chroma := ((int(a.R) + int(b.R)) / 2) * abs(drSq-dbSq) / 256
	weighted += chroma

	maxA := int(a.A)
	if int(b.A) > maxA {
		maxA = int(b.A)
	}
	alphaPenalty := (weighted * maxA) / 256
	alphaPenalty += 8 * da * da

	return alphaPenalty
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// linearize inverts sRGB companding for one channel value in [0, 1].
func linearize(v float64) float64 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.044, 2.4)
}

// labF is the standard CIE L*a*b* helper function.
func labF(t float64) float64 {
	const delta3 = 216.0 / 24389.0
	if t > delta3 {
		return math.Cbrt(t)
	}
	return (24389.0*t/27.0 + 16.0) / 116.0
}

// D65 white point tristimulus values (2-degree observer).
const (
	whiteX = 0.95047
	whiteY = 1.00000
	whiteZ = 1.08883
)

// RGBToDIN99d converts an 8-bit sRGB color to the DIN99d space, per the fixed
// pipeline in spec §4.1: sRGB decompand, RGB->XYZ, tristimulus correction,
// XYZ->Lab, then the DIN99d hue/chroma remap. Alpha passes through unchanged.
func RGBToDIN99d(rgb Color) Color {
	r := linearize(float64(rgb.R) / 255.0)
	g := linearize(float64(rgb.G) / 255.0)
	b := linearize(float64(rgb.B) / 255.0)

	// sRGB D65 RGB->XYZ matrix.
	x := 0.4124564*r + 0.3575761*g + 0.1804375*b
	y := 0.2126729*r + 0.7151522*g + 0.0721750*b
	z := 0.0193339*r + 0.1191920*g + 0.9503041*b

	// Tristimulus correction.
	xCorr := 1.12*x - 0.12*z

	fx := labF(xCorr / whiteX)
	fy := labF(y / whiteY)
	fz := labF(z / whiteZ)

	l := 116.0*fy - 16.0
	a := 500.0 * (fx - fy)
	bb := 200.0 * (fy - fz)

	l99 := 325.22 * math.Log(1+0.0036*l) * 2.5

	e := 0.6427876*a + 0.7660444*bb
	f := 1.14 * (0.6427876*bb - 0.7660444*a)
	g2 := math.Sqrt(e*e + f*f)
	c := 22.5 * math.Log(1+0.06*g2)
	h := math.Atan2(f, e) + 50.0*math.Pi/180.0

	a99 := c*math.Cos(h)*2.5 + 128.0
	b99 := c*math.Sin(h)*2.5 + 128.0

	clampCh := func(v float64) uint8 {
		if v < 0 {
			return 0
		}
		if v > 255 {
			return 255
		}
		return uint8(v + 0.5)
	}

	return Color{
		R: clampCh(l99),
		G: clampCh(a99),
		B: clampCh(b99),
		A: rgb.A,
	}
}
