// Package dither implements the three dithering modes used by the pixel
// preprocessor: none (no-op), ordered (Bayer matrix), noise (precomputed
// blue-noise-style texture), and Floyd-Steinberg error diffusion with
// configurable grain.
package dither

import "github.com/tinyland/rastertext/raster/color"

// Mode selects the dithering algorithm.
type Mode int

const (
	ModeNone Mode = iota
	ModeOrdered
	ModeNoise
	ModeFS
)

// Grain is the rectangle size (in pixels) over which a single dither
// decision is made; both axes must be one of {1, 2, 4, 8}.
type Grain struct{ W, H int }

// Config controls a dither pass.
type Config struct {
	Mode      Mode
	Grain     Grain
	Intensity float64 // in [0, +inf); scales ordered and noise perturbation (0 disables it); FloydSteinberg does not read it
}

// bayerSize is the Bayer matrix edge length used for ordered dithering.
const bayerSize = 8

// bayerMatrix is generated recursively: the base case is the 2x2 matrix
// [[0,2],[3,1]], and each doubling applies the standard 4x scale-and-offset
// recurrence.
var bayerMatrix = generateBayer(bayerSize)

func generateBayer(size int) [][]int {
	m := [][]int{{0, 2}, {3, 1}}
	for len(m) < size {
		n := len(m)
		next := make([][]int, n*2)
		for i := range next {
			next[i] = make([]int, n*2)
		}
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				v := m[y][x] * 4
				next[y][x] = v
				next[y][x+n] = v + 2
				next[y+n][x] = v + 3
				next[y+n][x+n] = v + 1
			}
		}
		m = next
	}
	return m
}

// bayerValue returns the matrix cell for (x, y), rescaled to center around 0
// in 0-255 channel units, spanning intensity*128/256 of the channel range
// (about +/-64 at intensity 1), per spec §4.4.
func bayerValue(x, y int, intensity float64) float64 {
	total := bayerSize * bayerSize
	v := bayerMatrix[y%bayerSize][x%bayerSize]
	centered := float64(v)/float64(total) - 0.5
	return centered * intensity * 128.0
}

// noiseTextureSize is the edge length of the precomputed per-channel noise
// texture.
const noiseTextureSize = 64

var noiseTexture = generateNoise()

// generateNoise produces a deterministic 64x64x3 pseudo-random texture
// using a fixed linear congruential sequence, so dithering stays
// reproducible across runs for a given (x, y, channel) regardless of host
// PRNG state.
func generateNoise() [noiseTextureSize][noiseTextureSize][3]int8 {
	var tex [noiseTextureSize][noiseTextureSize][3]int8
	state := uint32(0x9E3779B9)
	next := func() int8 {
		state = state*1664525 + 1013904223
		return int8((state >> 24) - 128)
	}
	for y := 0; y < noiseTextureSize; y++ {
		for x := 0; x < noiseTextureSize; x++ {
			tex[y][x][0] = next()
			tex[y][x][1] = next()
			tex[y][x][2] = next()
		}
	}
	return tex
}

func clampChannel(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// grainShift returns the bit shift corresponding to a grain dimension in
// {1,2,4,8}.
func grainShift(n int) uint {
	switch n {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	case 8:
		return 3
	default:
		return 0
	}
}

// ApplyOrdered perturbs a single RGB pixel at image coordinate (x, y) using
// the Bayer matrix, looked up by (x>>grain_w_shift, y>>grain_h_shift).
func ApplyOrdered(c color.Color, x, y int, cfg Config) color.Color {
	if cfg.Intensity == 0 {
		return c
	}
	gx := x >> grainShift(cfg.Grain.W)
	gy := y >> grainShift(cfg.Grain.H)
	delta := bayerValue(gx, gy, cfg.Intensity)
	return color.Color{
		R: clampChannel(int(c.R) + int(delta)),
		G: clampChannel(int(c.G) + int(delta)),
		B: clampChannel(int(c.B) + int(delta)),
		A: c.A,
	}
}

// ApplyNoise perturbs a single RGB pixel using the precomputed noise
// texture, scaled by intensity*0.1, with independent per-channel noise.
func ApplyNoise(c color.Color, x, y int, cfg Config) color.Color {
	if cfg.Intensity == 0 {
		return c
	}
	tx := x % noiseTextureSize
	ty := y % noiseTextureSize
	n := noiseTexture[ty][tx]
	scale := cfg.Intensity * 0.1
	return color.Color{
		R: clampChannel(int(c.R) + int(float64(n[0])*scale)),
		G: clampChannel(int(c.G) + int(float64(n[1])*scale)),
		B: clampChannel(int(c.B) + int(float64(n[2])*scale)),
		A: c.A,
	}
}
