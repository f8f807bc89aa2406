package iterm2

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"strings"
	"testing"
)

func TestBuildTIFFHeader(t *testing.T) {
	pixels := bytes.Repeat([]byte{1, 2, 3, 255}, 4) // 2x2
	tiff := buildTIFF(pixels, 2, 2)

	if tiff[0] != 'I' || tiff[1] != 'I' {
		t.Fatalf("TIFF should start with little-endian 'II', got %q", tiff[:2])
	}
	magic := binary.LittleEndian.Uint16(tiff[2:4])
	if magic != 42 {
		t.Errorf("TIFF magic = %d, want 42", magic)
	}
}

func TestBuildTIFFIFDOffsetPointsPastPixelData(t *testing.T) {
	pixels := bytes.Repeat([]byte{1, 2, 3, 255}, 4) // 2x2 = 16 bytes
	tiff := buildTIFF(pixels, 2, 2)
	ifdOffset := binary.LittleEndian.Uint32(tiff[4:8])
	wantOffset := uint32(8 + 16)
	if ifdOffset != wantOffset {
		t.Errorf("IFD offset = %d, want %d", ifdOffset, wantOffset)
	}

	numEntries := binary.LittleEndian.Uint16(tiff[ifdOffset : ifdOffset+2])
	if numEntries != 11 {
		t.Errorf("IFD entry count = %d, want 11", numEntries)
	}
}

func TestBuildTIFFPixelDataRoundTrips(t *testing.T) {
	pixels := []byte{10, 20, 30, 255, 40, 50, 60, 255, 70, 80, 90, 255, 100, 110, 120, 255}
	tiff := buildTIFF(pixels, 2, 2)
	got := tiff[8 : 8+16]
	if !bytes.Equal(got, pixels) {
		t.Errorf("embedded pixel data does not match input")
	}
}

func TestBuildTIFFNextIFDOffsetIsZero(t *testing.T) {
	pixels := bytes.Repeat([]byte{1, 2, 3, 255}, 4)
	tiff := buildTIFF(pixels, 2, 2)
	ifdOffset := binary.LittleEndian.Uint32(tiff[4:8])
	nextOffsetPos := ifdOffset + 2 + 12*11
	next := binary.LittleEndian.Uint32(tiff[nextOffsetPos : nextOffsetPos+4])
	if next != 0 {
		t.Errorf("next-IFD offset = %d, want 0", next)
	}
}

func TestEncodeWrapsInOSC1337(t *testing.T) {
	pixels := bytes.Repeat([]byte{1, 2, 3, 255}, 4)
	out := Encode(pixels, 2, 2, 1, 1)
	s := string(out)
	if !strings.HasPrefix(s, esc+"]1337;File=inline=1;width=1;height=1;preserveAspectRatio=0:") {
		t.Errorf("unexpected OSC 1337 prefix: %q", s[:60])
	}
	if !strings.HasSuffix(s, bel) {
		t.Error("OSC 1337 sequence should terminate with BEL")
	}
}

func TestEncodeBase64IsValid(t *testing.T) {
	pixels := bytes.Repeat([]byte{9, 8, 7, 255}, 4)
	out := Encode(pixels, 2, 2, 1, 1)
	s := string(out)
	start := strings.Index(s, "0:") + 2
	end := strings.Index(s, bel)
	_, err := base64.StdEncoding.DecodeString(s[start:end])
	if err != nil {
		t.Fatalf("payload is not valid base64: %v", err)
	}
}
