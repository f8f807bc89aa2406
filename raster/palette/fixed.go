// Package palette implements Chafa-style indexed color palettes: the fixed
// VT/xterm palettes (2/8/16/240/256 colors), the adaptive 256-color
// pairwise-nearest-neighbor quantizer, and the PCA-projected ColorTable used
// for fast nearest-pen lookup.
package palette

import "github.com/tinyland/rastertext/raster/color"

// Sentinel pen indices beyond the 256 palette slots, giving a 259-entry
// table layout for transparent/foreground/background special pens.
const (
	IndexTransparent = 256
	IndexFG          = 257
	IndexBG          = 258
	IndexMax         = 259
)

// Mode identifies which fixed color set a Palette was built from.
type Mode int

const (
	ModeFgBg Mode = iota
	ModeFgBgInvert
	Mode8
	Mode16
	Mode240
	Mode256
	ModeDynamic256
)

// Entry is one palette slot: its RGB color, plus a precomputed DIN99d copy
// used when the canvas's working color space is DIN99d.
type Entry struct {
	RGB    color.Color
	DIN99d color.Color
}

// Palette is a fixed-size (up to IndexMax) color table plus the metadata
// needed to resolve transparency and alpha thresholding.
type Palette struct {
	Mode             Mode
	Entries          [IndexMax]Entry
	Count            int // number of "real" color entries, excluding sentinels
	AlphaThreshold   int // 0-255; pixels below this opacity snap to transparent
	TransparentIndex int

	Table *ColorTable // set by the palette constructors via BuildColorTable
}

func newBase(mode Mode) *Palette {
	p := &Palette{Mode: mode, AlphaThreshold: 128, TransparentIndex: IndexTransparent}
	p.Entries[IndexTransparent] = Entry{RGB: color.Color{}}
	return p
}

func (p *Palette) finishDIN99d() {
	for i := range p.Entries {
		p.Entries[i].DIN99d = color.RGBToDIN99d(p.Entries[i].RGB)
	}
}

// cubeLevels are the six intensity levels xterm's 6x6x6 color cube uses per
// channel.
var cubeLevels = [6]uint8{0x00, 0x5f, 0x87, 0xaf, 0xd7, 0xff}

// channelIndex maps an 8-bit channel value to the index (0-5) of the nearest
// cube level, used for O(1) cube-cell lookup in Mode256/Mode240.
var channelIndex [256]int

func init() {
	for v := 0; v < 256; v++ {
		best := 0
		bestDist := 1 << 30
		for i, lvl := range cubeLevels {
			d := int(lvl) - v
			if d < 0 {
				d = -d
			}
			if d < bestDist {
				bestDist = d
				best = i
			}
		}
		channelIndex[v] = best
	}
}

// NewFixed256 builds the standard 256-color xterm palette: 16 ANSI colors,
// a 6x6x6 color cube (indices 16-231), and 24 grayscale ramp steps
// (232-255), plus the transparent/FG/BG sentinels.
func NewFixed256() *Palette {
	p := newBase(Mode256)
	idx := 0

	ansi16 := ansi16Colors()
	for _, c := range ansi16 {
		p.Entries[idx] = Entry{RGB: c}
		idx++
	}

	for r := 0; r < 6; r++ {
		for g := 0; g < 6; g++ {
			for b := 0; b < 6; b++ {
				c := color.Color{R: cubeLevels[r], G: cubeLevels[g], B: cubeLevels[b], A: 0xFF}
				p.Entries[idx] = Entry{RGB: c}
				idx++
			}
		}
	}

	for i := 0; i < 24; i++ {
		level := uint8(8 + i*10)
		c := color.Color{R: level, G: level, B: level, A: 0xFF}
		p.Entries[idx] = Entry{RGB: c}
		idx++
	}

	p.Count = idx
	p.Entries[IndexFG] = Entry{RGB: color.Color{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}}
	p.Entries[IndexBG] = Entry{RGB: color.Color{A: 0xFF}}
	p.finishDIN99d()
	p.Table = BuildColorTable(p)
	return p
}

// NewFixed240 is NewFixed256 minus the 16 ANSI colors (used by terminals
// that only support the 216-cube + 24-gray range, indices 16-255 renumbered
// from 0).
func NewFixed240() *Palette {
	p := newBase(Mode240)
	idx := 0
	for r := 0; r < 6; r++ {
		for g := 0; g < 6; g++ {
			for b := 0; b < 6; b++ {
				c := color.Color{R: cubeLevels[r], G: cubeLevels[g], B: cubeLevels[b], A: 0xFF}
				p.Entries[idx] = Entry{RGB: c}
				idx++
			}
		}
	}
	for i := 0; i < 24; i++ {
		level := uint8(8 + i*10)
		c := color.Color{R: level, G: level, B: level, A: 0xFF}
		p.Entries[idx] = Entry{RGB: c}
		idx++
	}
	p.Count = idx
	p.finishDIN99d()
	p.Table = BuildColorTable(p)
	return p
}

// NewFixed16 is the plain ANSI 16-color palette.
func NewFixed16() *Palette {
	p := newBase(Mode16)
	colors := ansi16Colors()
	for i, c := range colors {
		p.Entries[i] = Entry{RGB: c}
	}
	p.Count = len(colors)
	p.finishDIN99d()
	p.Table = BuildColorTable(p)
	return p
}

// NewFixed8 is the basic 8-color ANSI palette (no bright variants).
func NewFixed8() *Palette {
	p := newBase(Mode8)
	colors := ansi16Colors()[:8]
	for i, c := range colors {
		p.Entries[i] = Entry{RGB: c}
	}
	p.Count = len(colors)
	p.finishDIN99d()
	p.Table = BuildColorTable(p)
	return p
}

// NewFgBg builds a 2-entry monochrome palette from the given foreground and
// background colors (optionally inverted).
func NewFgBg(fg, bg color.Color, invert bool) *Palette {
	mode := ModeFgBg
	if invert {
		mode = ModeFgBgInvert
		fg, bg = bg, fg
	}
	p := newBase(mode)
	p.Entries[0] = Entry{RGB: bg}
	p.Entries[1] = Entry{RGB: fg}
	p.Count = 2
	p.finishDIN99d()
	p.Table = BuildColorTable(p)
	return p
}

func ansi16Colors() []color.Color {
	mk := func(r, g, b uint8) color.Color { return color.Color{R: r, G: g, B: b, A: 0xFF} }
	return []color.Color{
		mk(0, 0, 0), mk(0x80, 0, 0), mk(0, 0x80, 0), mk(0x80, 0x80, 0),
		mk(0, 0, 0x80), mk(0x80, 0, 0x80), mk(0, 0x80, 0x80), mk(0xC0, 0xC0, 0xC0),
		mk(0x80, 0x80, 0x80), mk(0xFF, 0, 0), mk(0, 0xFF, 0), mk(0xFF, 0xFF, 0),
		mk(0, 0, 0xFF), mk(0xFF, 0, 0xFF), mk(0, 0xFF, 0xFF), mk(0xFF, 0xFF, 0xFF),
	}
}

// NearestFixed256 returns the pen index (0-255) in the standard 256-color
// cube+grays+ansi16 layout closest to c, using the O(1) channel_index LUT to
// find the cube cell, then linearly scanning the 24 grays and 16 ANSI ramp
// entries.
func NearestFixed256(p *Palette, c color.Color) int {
	ri, gi, bi := channelIndex[c.R], channelIndex[c.G], channelIndex[c.B]
	cubeIdx := 16 + ri*36 + gi*6 + bi
	best := cubeIdx
	bestDist := color.DiffFast(p.Entries[cubeIdx].RGB, c)

	for i := 232; i < 256; i++ {
		d := color.DiffFast(p.Entries[i].RGB, c)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	for i := 0; i < 16; i++ {
		d := color.DiffFast(p.Entries[i].RGB, c)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}
