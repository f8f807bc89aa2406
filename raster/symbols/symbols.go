// Package symbols holds the built-in glyph catalog used by symbol-mode
// rendering: each glyph is an 8x8 (or, for wide glyphs, 16x8) monochrome
// coverage bitmap tagged by class, plus the selection machinery
// (SymbolMap) that filters/orders a subset of the catalog for a render.
package symbols

import "math/bits"

// Tag classifies a glyph for selection purposes. A glyph may carry several
// tags at once (bitmask).
type Tag uint32

const (
	TagNone Tag = 0
	TagSpace Tag = 1 << iota
	TagBlock
	TagBorder
	TagDiagonal
	TagDot
	TagStipple
	TagBraille
	TagHalf
	TagQuadrant
	TagAscii
	TagTechnical
	TagGeometric
	TagWide
	TagExtra
	TagLegacy
	TagUgly
)

// TagAll matches every built-in tag; used as the "everything" selector.
const TagAll Tag = ^Tag(0)

// Symbol is a single built-in or user-supplied glyph.
type Symbol struct {
	// Bitmap is the 64-bit coverage bitmap: bit i is the pixel at row i/8,
	// col i%8 (row 0, col 0 is the MSB).
	Bitmap uint64
	// CodePoint is the glyph's Unicode code point.
	CodePoint rune
	// Tags classifies the glyph for selector matching.
	Tags Tag
	// FGWeight is popcount(Bitmap); BGWeight is 64-FGWeight. Cached because
	// the candidate search computes these in its inner loop.
	FGWeight, BGWeight int
	// Wide glyphs occupy two adjacent cells; WideBitmap holds the second
	// (right) half's coverage. Narrow glyphs leave this at 0 and Wide false.
	Wide       bool
	WideBitmap uint64
}

// NewSymbol builds a Symbol from a bitmap, computing the cached weights.
func NewSymbol(bitmap uint64, cp rune, tags Tag) Symbol {
	fg := bits.OnesCount64(bitmap)
	return Symbol{
		Bitmap:    bitmap,
		CodePoint: cp,
		Tags:      tags,
		FGWeight:  fg,
		BGWeight:  64 - fg,
	}
}

// NewWideSymbol builds a two-cell-wide Symbol from its left and right 8x8
// halves.
func NewWideSymbol(left, right uint64, cp rune, tags Tag) Symbol {
	s := NewSymbol(left, cp, tags|TagWide)
	s.Wide = true
	s.WideBitmap = right
	// FG/BG weight for wide symbols covers both halves (128 total pixels).
	s.FGWeight = bits.OnesCount64(left) + bits.OnesCount64(right)
	s.BGWeight = 128 - s.FGWeight
	return s
}

// bitmapFromArt converts an 8x8 ASCII-art bitmap (' '=background, 'X'=
// foreground, row-major, exactly 64 characters) into the packed form, row 0
// in the MSB.
func bitmapFromArt(art string) uint64 {
	if len(art) != 64 {
		panic("symbols: bitmapFromArt requires exactly 64 characters")
	}
	var bm uint64
	for i := 0; i < 64; i++ {
		bm <<= 1
		if art[i] == 'X' {
			bm |= 1
		}
	}
	return bm
}

// Braille dot bit positions within a code point's low byte, in the standard
// Unicode Braille layout: dots 1-8 map to bits 0-7, arranged in the pattern
//
//	1 4
//	2 5
//	3 6
//	7 8
//
// which we expand to an 8x8 coverage bitmap by filling a 2-row by 4-column
// pixel block for each set dot.
func brailleBitmap(cp rune) uint64 {
	dots := byte(cp) & 0xFF
	// Map each of the 8 dot positions to a (row, col) in a 4-row x 2-col
	// conceptual grid, then expand that into an 8x8 bitmap by doubling each
	// cell to a 2x4 block of pixels.
	positions := [8][2]int{
		{0, 0}, {1, 0}, {2, 0}, {0, 1}, {1, 1}, {2, 1}, {3, 0}, {3, 1},
	}
	var bm uint64
	for dot := 0; dot < 8; dot++ {
		if dots&(1<<uint(dot)) == 0 {
			continue
		}
		row, col := positions[dot][0], positions[dot][1]
		// Each conceptual cell is 2 pixel-rows tall, 4 pixel-cols wide.
		for pr := 0; pr < 2; pr++ {
			for pc := 0; pc < 4; pc++ {
				pixelRow := row*2 + pr
				pixelCol := col*4 + pc
				bitIndex := 63 - (pixelRow*8 + pixelCol)
				bm |= 1 << uint(bitIndex)
			}
		}
	}
	return bm
}

// GenerateBrailleSymbol programmatically builds the Symbol for a Braille
// code point in U+2800-U+28FF; bits of the low byte select which of the 8
// dot positions are set, per the standard Braille cell layout.
func GenerateBrailleSymbol(cp rune) Symbol {
	if cp < 0x2800 || cp > 0x28FF {
		panic("symbols: code point out of Braille range")
	}
	return NewSymbol(brailleBitmap(cp), cp, TagBraille)
}

func full(pattern ...string) uint64 {
	joined := ""
	for _, row := range pattern {
		joined += row
	}
	return bitmapFromArt(joined)
}

// Built-in catalog. This is a representative subset of chafa's font: every
// tag class is populated, which is sufficient to drive selection, candidate
// search and scoring faithfully; it is not the full multi-hundred-glyph
// upstream catalog.
var builtins = buildBuiltins()

func buildBuiltins() []Symbol {
	blank := "        "
	solid := "XXXXXXXX"

	syms := []Symbol{
		NewSymbol(full(blank, blank, blank, blank, blank, blank, blank, blank), ' ', TagSpace|TagAscii),
		NewSymbol(full(solid, solid, solid, solid, solid, solid, solid, solid), 0x2588, TagBlock), // FULL BLOCK
		NewSymbol(full(solid, solid, solid, solid, blank, blank, blank, blank), 0x2580, TagBlock), // UPPER HALF BLOCK
		NewSymbol(full(blank, blank, blank, blank, solid, solid, solid, solid), 0x2584, TagBlock), // LOWER HALF BLOCK
		NewSymbol(full("XXXX    ", "XXXX    ", "XXXX    ", "XXXX    ", "XXXX    ", "XXXX    ", "XXXX    ", "XXXX    "), 0x258C, TagBlock), // LEFT HALF BLOCK
		NewSymbol(full("    XXXX", "    XXXX", "    XXXX", "    XXXX", "    XXXX", "    XXXX", "    XXXX", "    XXXX"), 0x2590, TagBlock), // RIGHT HALF BLOCK
		NewSymbol(full("XXXX    ", "XXXX    ", "XXXX    ", "XXXX    ", blank, blank, blank, blank), 0x2598, TagBlock|TagQuadrant),        // QUADRANT UPPER LEFT
		NewSymbol(full("    XXXX", "    XXXX", "    XXXX", "    XXXX", blank, blank, blank, blank), 0x259D, TagBlock|TagQuadrant), // QUADRANT UPPER RIGHT
		NewSymbol(full(blank, blank, blank, blank, "XXXX    ", "XXXX    ", "XXXX    ", "XXXX    "), 0x2596, TagBlock|TagQuadrant), // QUADRANT LOWER LEFT
		NewSymbol(full(blank, blank, blank, blank, "    XXXX", "    XXXX", "    XXXX", "    XXXX"), 0x2597, TagBlock|TagQuadrant), // QUADRANT LOWER RIGHT

		// Border: box-drawing.
		NewSymbol(full("XXXXXXXX", blank, blank, blank, blank, blank, blank, blank), 0x2500, TagBorder), // light horizontal
		NewSymbol(full("   X    ", "   X    ", "   X    ", "   X    ", "   X    ", "   X    ", "   X    ", "   X    "), 0x2502, TagBorder), // light vertical
		NewSymbol(full(blank, blank, blank, "   X    ", "   X    ", "   X    ", "   X    ", "   X    "), 0x250C, TagBorder), // down and right
		NewSymbol(full("   X    ", "   X    ", "   X    ", "   X    ", blank, blank, blank, blank), 0x2514, TagBorder), // up and right

		// Diagonal.
		NewSymbol(full("X       ", " X      ", "  X     ", "   X    ", "    X   ", "     X  ", "      X ", "       X"), 0x2572, TagDiagonal), // backslash
		NewSymbol(full("       X", "      X ", "     X  ", "    X   ", "   X    ", "  X     ", " X      ", "X       "), 0x2571, TagDiagonal), // forward slash

		// Dot: low-density stipple used for gradients.
		NewSymbol(full("X   X   ", "   X   X", "X   X   ", "   X   X", "X   X   ", "   X   X", "X   X   ", "   X   X"), 0x2591, TagDot|TagStipple), // light shade
		NewSymbol(full("X X X X ", " X X X X", "X X X X ", " X X X X", "X X X X ", " X X X X", "X X X X ", " X X X X"), 0x2592, TagDot|TagStipple), // medium shade
		NewSymbol(full("XXX XXX ", "XX XXX X", "X XXX XX", " XXX XXX", "XXX XXX ", "XX XXX X", "X XXX XX", " XXX XXX"), 0x2593, TagDot|TagStipple), // dark shade

		// ASCII fallback set.
		NewSymbol(full(blank, "  XXXX  ", " X    X ", " X XX X ", " X XX X ", " X    X ", "  XXXX  ", blank), '@', TagAscii),
		NewSymbol(full(blank, "  XX    ", " X  X   ", "X    X  ", "XXXXXX  ", "X    X  ", "X    X  ", blank), 'A', TagAscii),
		NewSymbol(full(blank, "X       ", "X       ", "X       ", "X       ", "X       ", "XXXXXX  ", blank), 'L', TagAscii),
		NewSymbol(full(blank, "XXXXX   ", "X    X  ", "X    X  ", "XXXXX   ", "X    X  ", "X    X  ", blank), 'R', TagAscii),
		NewSymbol(full("XXXXXXXX", "X      X", "X      X", "X      X", "X      X", "X      X", "X      X", "XXXXXXXX"), '#', TagAscii|TagGeometric),
		NewSymbol(full(".       ", blank, blank, blank, blank, blank, blank, blank), '.', TagAscii),
		NewSymbol(full(blank, blank, blank, "  XX    ", "  XX    ", blank, blank, blank), ':', TagAscii),
		NewSymbol(full("-       ", blank, "XXXXXXXX", blank, blank, blank, blank, blank), '-', TagAscii),
		NewSymbol(full(blank, blank, blank, blank, blank, blank, blank, blank), '\'', TagAscii),

		// Technical: horizontal scan lines (used by the reference font).
		NewSymbol(full(solid, blank, blank, blank, blank, blank, blank, blank), 0x23BA, TagTechnical),
		NewSymbol(full(blank, blank, solid, blank, blank, blank, blank, blank), 0x23BB, TagTechnical),

		// Legacy/ugly: rarely a good visual match but kept for completeness
		// and to exercise the exclude-by-tag selector path.
		NewSymbol(full("X X X X ", blank, "X X X X ", blank, "X X X X ", blank, "X X X X ", blank), 0x2504, TagLegacy|TagUgly),
	}

	// Braille range: generate the full 256-glyph block programmatically.
	for cp := rune(0x2800); cp <= 0x28FF; cp++ {
		syms = append(syms, GenerateBrailleSymbol(cp))
	}

	// Wide block glyphs: left/right half pairs for double-width rendering.
	syms = append(syms, NewWideSymbol(
		full(solid, solid, solid, solid, solid, solid, solid, solid),
		full(solid, solid, solid, solid, solid, solid, solid, solid),
		0x1FB00, TagBlock|TagWide))

	return syms
}

// Builtins returns the built-in glyph catalog. The returned slice must not
// be mutated by callers.
func Builtins() []Symbol {
	return builtins
}
