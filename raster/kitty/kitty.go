// Package kitty implements the Kitty terminal graphics protocol encoder:
// base64-chunked immediate-mode transmission and the Unicode
// virtual-placement mode.
package kitty

import (
	"bytes"
	"encoding/base64"
	"fmt"
)

const (
	esc = "\x1b"
	apcStart = esc + "_G"
	apcEnd   = esc + "\\"
)

// DefaultChunkSize is the payload size (in base64 bytes) per chunk when not
// multiplexed through a terminal multiplexer.
const DefaultChunkSize = 512

// MultiplexedChunkSize is used when the session is detected inside GNU
// Screen, whose input buffer chokes on larger APC payloads.
const MultiplexedChunkSize = 64

// EncodeImmediate renders pixels (RGBA8, width x height) as a complete
// Kitty immediate-mode transmit+display sequence: one header followed by
// chunked base64 payloads and a terminator, per spec §4.8.
func EncodeImmediate(pixels []byte, width, height, cellCols, cellRows, chunkSize int) []byte {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%sa=T,f=32,s=%d,v=%d,c=%d,r=%d,m=1%s", apcStart, width, height, cellCols, cellRows, apcEnd)

	encoded := base64.StdEncoding.EncodeToString(pixels)
	for i := 0; i < len(encoded); i += chunkSize {
		end := i + chunkSize
		more := 1
		if end >= len(encoded) {
			end = len(encoded)
			more = 0
		}
		fmt.Fprintf(&buf, "%sm=%d;%s%s", apcStart, more, encoded[i:end], apcEnd)
	}

	return buf.Bytes()
}

// diacriticTable is the fixed 297-entry table of Unicode combining marks
// used to encode a cell's (row, col) position in Unicode virtual placement
// mode. Index 0 encodes row/col 0; entries beyond the printable ASCII range
// start at U+0305 and continue through the general combining-marks block,
// skipping code points already reserved by other diacritic uses upstream.
var diacriticTable = buildDiacriticTable()

func buildDiacriticTable() []rune {
	table := make([]rune, 297)
	cp := rune(0x0305)
	for i := range table {
		table[i] = cp
		cp++
		// Skip the variation-selector block, which upstream reserves for a
		// different purpose.
		if cp == 0xFE00 {
			cp = 0xFE10
		}
	}
	return table
}

// idCounter hands out image IDs 1-255 with wraparound, avoiding 0 (which
// Kitty treats as "no image").
type idCounter struct{ next int }

func (c *idCounter) Next() int {
	if c.next == 0 {
		c.next = 1
	}
	id := c.next
	c.next++
	if c.next > 255 {
		c.next = 1
	}
	return id
}

var globalIDCounter idCounter

// NextImageID returns the next image ID in the 1-255 wraparound sequence
// used to tag Unicode virtual-placement images via the foreground color
// escape.
func NextImageID() int { return globalIDCounter.Next() }

// EncodeUnicodePlacementHeader builds the upload header for Unicode virtual
// placement mode: same transmission as immediate mode, but tagged a=T,U=1
// with a stable image ID so subsequent placement cells can reference it.
func EncodeUnicodePlacementHeader(pixels []byte, width, height, id int) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%sa=T,U=1,q=2,f=32,s=%d,v=%d,i=%d,m=1%s", apcStart, width, height, id, apcEnd)

	encoded := base64.StdEncoding.EncodeToString(pixels)
	for i := 0; i < len(encoded); i += DefaultChunkSize {
		end := i + DefaultChunkSize
		more := 1
		if end >= len(encoded) {
			end = len(encoded)
			more = 0
		}
		fmt.Fprintf(&buf, "%sm=%d;%s%s", apcStart, more, encoded[i:end], apcEnd)
	}
	return buf.Bytes()
}

// PlacementCell renders one grid cell of a Unicode-virtual-placement image:
// the image's foreground-carried ID, the U+10EEEE placeholder glyph with
// row/col diacritics, and the SGR reset for the color.
func PlacementCell(id, row, col int) string {
	rowMark := diacriticTable[row%len(diacriticTable)]
	colMark := diacriticTable[col%len(diacriticTable)]
	return fmt.Sprintf("\x1b[38;5;%dm\U0010EEEE%c%c\x1b[39m", id, rowMark, colMark)
}

// EndTransmission emits the terminator that closes an immediate-mode image
// upload (m=0), signaling no more chunks will follow.
func EndTransmission() []byte {
	return []byte(apcStart + "m=0" + apcEnd)
}
