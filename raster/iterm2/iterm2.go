// Package iterm2 implements the iTerm2 inline image protocol: an
// uncompressed TIFF container wrapped in a base64 OSC 1337 sequence.
package iterm2

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

const (
	esc = "\x1b"
	bel = "\x07"
)

// tiffTag IDs used by the 11-entry IFD, in the exact order spec §4.9
// requires.
const (
	tagImageWidth               = 256
	tagImageLength               = 257
	tagBitsPerSample              = 258
	tagPhotometricInterpretation  = 262
	tagStripOffsets                = 273
	tagOrientation                  = 274
	tagSamplesPerPixel                = 277
	tagRowsPerStrip                     = 278
	tagStripByteCounts                    = 279
	tagPlanarConfiguration                  = 284
	tagExtraSamples                           = 338
)

const (
	typeShort = 3
	typeLong  = 4
)

type ifdEntry struct {
	tag, typ uint16
	count    uint32
	value    uint32 // for SHORT values this holds the value left-justified in the low 16 bits
}

// buildTIFF assembles an uncompressed TIFF container holding w x h RGBA8
// pixels, per spec §4.9: "II"+42 header, an offset to the IFD placed right
// after the raw pixel data, the pixel data itself, the 11-entry IFD, a
// next-IFD offset of 0, and finally the external BitsPerSample array of
// four u16 = 8 (since BitsPerSample has 4 values it cannot be inlined into
// the IFD entry's 4-byte value field).
func buildTIFF(pixels []byte, w, h int) []byte {
	const headerLen = 8 // "II" + 42 (2 bytes) + IFD offset (4 bytes) = 8
	pixelDataOffset := uint32(headerLen)
	pixelDataLen := uint32(w * h * 4)
	ifdOffset := pixelDataOffset + pixelDataLen

	entries := []ifdEntry{
		{tagImageWidth, typeLong, 1, uint32(w)},
		{tagImageLength, typeLong, 1, uint32(h)},
		{tagBitsPerSample, typeShort, 4, 0}, // filled below: external pointer
		{tagPhotometricInterpretation, typeShort, 1, 2}, // RGB
		{tagStripOffsets, typeLong, 1, pixelDataOffset},
		{tagOrientation, typeShort, 1, 1}, // top-left
		{tagSamplesPerPixel, typeShort, 1, 4},
		{tagRowsPerStrip, typeLong, 1, uint32(h)},
		{tagStripByteCounts, typeLong, 1, pixelDataLen},
		{tagPlanarConfiguration, typeShort, 1, 1}, // contiguous
		{tagExtraSamples, typeShort, 1, 2},        // unassociated alpha
	}

	numEntries := uint16(len(entries))
	ifdLen := uint32(2 + 12*int(numEntries) + 4) // count + entries + next-IFD offset
	bitsPerSampleOffset := ifdOffset + ifdLen

	var buf bytes.Buffer
	buf.WriteString("II")
	binary.Write(&buf, binary.LittleEndian, uint16(42))
	binary.Write(&buf, binary.LittleEndian, ifdOffset)

	buf.Write(pixels[:pixelDataLen])

	binary.Write(&buf, binary.LittleEndian, numEntries)
	for _, e := range entries {
		binary.Write(&buf, binary.LittleEndian, e.tag)
		binary.Write(&buf, binary.LittleEndian, e.typ)
		binary.Write(&buf, binary.LittleEndian, e.count)
		if e.tag == tagBitsPerSample {
			binary.Write(&buf, binary.LittleEndian, bitsPerSampleOffset)
		} else if e.typ == typeShort {
			// SHORT values are left-justified in the 4-byte value field.
			binary.Write(&buf, binary.LittleEndian, uint16(e.value))
			binary.Write(&buf, binary.LittleEndian, uint16(0))
		} else {
			binary.Write(&buf, binary.LittleEndian, e.value)
		}
	}
	binary.Write(&buf, binary.LittleEndian, uint32(0)) // next IFD offset

	for i := 0; i < 4; i++ {
		binary.Write(&buf, binary.LittleEndian, uint16(8))
	}

	return buf.Bytes()
}

// Encode wraps pixels (RGBA8, w x h) in an uncompressed TIFF and returns the
// complete OSC 1337 inline-image sequence sized for a cellCols x cellRows
// terminal cell grid.
func Encode(pixels []byte, w, h, cellCols, cellRows int) []byte {
	tiff := buildTIFF(pixels, w, h)
	b64 := base64.StdEncoding.EncodeToString(tiff)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s]1337;File=inline=1;width=%d;height=%d;preserveAspectRatio=0:%s%s",
		esc, cellCols, cellRows, b64, bel)
	return buf.Bytes()
}
