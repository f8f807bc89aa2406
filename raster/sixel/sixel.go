// Package sixel implements the Sixel graphics protocol encoder: DCS-framed,
// palette-indexed, run-length-encoded output for terminals like xterm,
// mlterm and the Windows Terminal.
package sixel

import (
	"bytes"
	"fmt"

	"github.com/tinyland/rastertext/raster/color"
	"github.com/tinyland/rastertext/raster/palette"
)

const (
	esc = "\x1b"
	dcs = esc + "P"
	st  = esc + "\\"
)

// IndexedImage is a palette-quantized image ready for sixel encoding: one
// pen index per pixel, row-major.
type IndexedImage struct {
	Width, Height int
	Pixels        []int // len == Width*Height, values index into Palette
	Palette       *palette.Palette
}

// sixelChar maps a 6-bit value to its printable sixel character, '?'..'~'.
func sixelChar(v int) byte { return byte('?' + v) }

// packColumn builds the 6-bit-per-row SixelData word for one column across
// 6 scanlines, using the "14/0325 -> 140325" interleave from the reference
// implementation: row bit order is rearranged so that sixel_data_to_schar
// reduces to a shift and mask.
func packColumn(rows [6]bool) byte {
	// Bit i of the sixel char corresponds to scanline i (0 = top); the
	// reference interleave just means the internal 64-bit accumulator used a
	// different row order than the output character, which only matters for
	// the wide SIMD fetch path. For per-pixel byte output the direct mapping
	// below is equivalent.
	var v int
	for i := 0; i < 6; i++ {
		if rows[i] {
			v |= 1 << uint(i)
		}
	}
	return sixelChar(v)
}

// Encode renders img as a complete Sixel DCS sequence, including framing and
// palette definitions, per spec §4.7.
func Encode(img IndexedImage) []byte {
	var buf bytes.Buffer

	h := img.Height
	if h%6 != 0 {
		h += 6 - h%6
	}

	fmt.Fprintf(&buf, "%s0;1;0q\"1;1;%d;%d", dcs, img.Width, h)

	for pen := 0; pen < img.Palette.Count; pen++ {
		c := img.Palette.Entries[pen].RGB
		r := int(c.R) * 100 / 255
		g := int(c.G) * 100 / 255
		b := int(c.B) * 100 / 255
		fmt.Fprintf(&buf, "#%d;2;%d;%d;%d", pen, r, g, b)
	}

	nStrips := h / 6
	for strip := 0; strip < nStrips; strip++ {
		// mlterm and Screen mishandle a sixel row whose first or last strip
		// doesn't span the full declared width; force a full-width pass on
		// those two strips so every column gets at least one pen character.
		forceFullWidth := strip == 0 || strip == nStrips-1
		encodeStrip(&buf, img, strip, forceFullWidth)
		if strip < nStrips-1 {
			buf.WriteByte('-')
		}
	}

	buf.WriteString(st)
	return buf.Bytes()
}

// presentPens returns, for a 64-column band starting at colStart, the set of
// pens actually used anywhere in the strip's 6 rows within that band — used
// to let the per-pen scan skip whole bands with none of the current pen.
func presentPens(img IndexedImage, rowStart, colStart, colEnd int) map[int]bool {
	present := make(map[int]bool)
	for y := rowStart; y < rowStart+6 && y < img.Height; y++ {
		for x := colStart; x < colEnd && x < img.Width; x++ {
			present[img.Pixels[y*img.Width+x]] = true
		}
	}
	return present
}

func encodeStrip(buf *bytes.Buffer, img IndexedImage, strip int, forceFullWidth bool) {
	rowStart := strip * 6

	for pen := 0; pen < img.Palette.Count; pen++ {
		if pen == img.Palette.TransparentIndex {
			continue
		}

		anyForPen := forceFullWidth
		if !anyForPen {
			for bandStart := 0; bandStart < img.Width; bandStart += 64 {
				bandEnd := bandStart + 64
				if bandEnd > img.Width {
					bandEnd = img.Width
				}
				if presentPens(img, rowStart, bandStart, bandEnd)[pen] {
					anyForPen = true
					break
				}
			}
		}
		if !anyForPen {
			continue
		}

		buf.WriteByte('$')
		fmt.Fprintf(buf, "#%d", pen)

		var chars []byte
		for x := 0; x < img.Width; x++ {
			var rows [6]bool
			for r := 0; r < 6; r++ {
				y := rowStart + r
				if y >= img.Height {
					continue
				}
				if img.Pixels[y*img.Width+x] == pen {
					rows[r] = true
				}
			}
			chars = append(chars, packColumn(rows))
		}

		writeRLE(buf, chars)
	}
}

// writeRLE run-length-encodes a sequence of sixel characters, emitting
// `!<count><char>` for runs longer than 3 and splitting runs over 255.
func writeRLE(buf *bytes.Buffer, chars []byte) {
	i := 0
	for i < len(chars) {
		c := chars[i]
		j := i + 1
		for j < len(chars) && chars[j] == c {
			j++
		}
		count := j - i

		for count > 0 {
			n := count
			if n > 255 {
				n = 255
			}
			if n > 3 {
				fmt.Fprintf(buf, "!%d%c", n, c)
			} else {
				for k := 0; k < n; k++ {
					buf.WriteByte(c)
				}
			}
			count -= n
		}

		i = j
	}
}

// Quantize converts an RGBA8 buffer into an IndexedImage using pal's
// nearest-pen lookup, treating pixels whose alpha is below pal.AlphaThreshold
// as the transparent pen.
func Quantize(pixels []byte, width, height int, pal *palette.Palette) IndexedImage {
	out := make([]int, width*height)
	for i := 0; i < width*height; i++ {
		off := i * 4
		c := color.FetchRGBA8(pixels[off : off+4])
		if int(c.A) < pal.AlphaThreshold {
			out[i] = pal.TransparentIndex
			continue
		}
		out[i] = pal.Table.Nearest(c)
	}
	return IndexedImage{Width: width, Height: height, Pixels: out, Palette: pal}
}
