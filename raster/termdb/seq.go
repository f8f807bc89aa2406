// Package termdb implements a terminal capability database: a catalog of
// named escape-sequence templates (TermSeq), a per-terminal sequence table
// (TermInfo) with typed argument substitution, and a rule-based classifier
// (TermDb) that builds a TermInfo from an environment-variable map.
package termdb

import (
	"bytes"
	"fmt"
)

// Seq names one entry in the sequence catalog. This is a representative
// subset of the full upstream set: every category (reset/cursor, SGR color
// variants, Sixel, Kitty, iTerm2, multiplexer passthrough) is present,
// which is enough to drive detection and emission faithfully without
// reproducing the full ~200-entry table.
type Seq int

const (
	SeqResetTerminalSoft Seq = iota
	SeqResetAttributes
	SeqClear
	SeqCursorToPos
	SeqCursorUp
	SeqCursorDown
	SeqCursorLeft
	SeqCursorRight
	SeqEnableCursor
	SeqDisableCursor
	SeqSetColorFGDirect
	SeqSetColorBGDirect
	SeqSetColorFGBGDirect
	SeqSetColorFG256
	SeqSetColorBG256
	SeqSetColorFG16
	SeqSetColorBG16
	SeqSetDefaultFG
	SeqSetDefaultBG
	SeqBeginSixels
	SeqEndSixels
	SeqBeginKittyImmediateImageV1
	SeqEndKittyImage
	SeqBeginKittyImageChunk
	SeqEndKittyImageChunk
	SeqBeginIterm2Image
	SeqEndIterm2Image
	SeqBeginTmuxPassthrough
	SeqEndTmuxPassthrough
	SeqBeginScreenPassthrough
	SeqEndScreenPassthrough
	seqCount
)

// ArgType is the typed formatting rule for one template argument.
type ArgType int

const (
	ArgGuint ArgType = iota
	ArgGuint8
	ArgGuint16Hex
)

// LengthMax bounds the byte length of any sequence after argument
// substitution.
const LengthMax = 96

// template is a pre-parsed TermSeq definition: literal chunks interleaved
// with typed argument slots (slot i holds marker %<i+1>; markers appear in
// order).
type template struct {
	raw     string
	chunks  []string // len(chunks) == len(argTypes)+1
	argTypes []ArgType
}

// parseTemplate parses a template string containing up to 6 %1..%6 argument
// markers (typed per argTypes, in %N order) and literal %% escapes for '%'.
// It rejects templates whose substituted length could exceed LengthMax for
// the widest possible argument values.
func parseTemplate(raw string, argTypes []ArgType) (template, error) {
	var chunks []string
	var cur bytes.Buffer
	var found []int

	i := 0
	for i < len(raw) {
		if raw[i] != '%' {
			cur.WriteByte(raw[i])
			i++
			continue
		}
		if i+1 >= len(raw) {
			return template{}, fmt.Errorf("termdb: dangling %% at end of template %q", raw)
		}
		next := raw[i+1]
		if next == '%' {
			cur.WriteByte('%')
			i += 2
			continue
		}
		if next < '1' || next > '6' {
			return template{}, fmt.Errorf("termdb: invalid argument marker %%%c in %q", next, raw)
		}
		chunks = append(chunks, cur.String())
		cur.Reset()
		found = append(found, int(next-'1'))
		i += 2
	}
	chunks = append(chunks, cur.String())

	if len(found) != len(argTypes) {
		return template{}, fmt.Errorf("termdb: template %q references %d args, definition wants %d", raw, len(found), len(argTypes))
	}
	for want, idx := range found {
		if idx != want {
			return template{}, fmt.Errorf("termdb: template %q argument markers must appear in order %%1..%%%d", raw, len(argTypes))
		}
	}

	maxLen := 0
	for _, c := range chunks {
		maxLen += len(c)
	}
	for _, t := range argTypes {
		switch t {
		case ArgGuint:
			maxLen += 10 // max uint32 decimal digits
		case ArgGuint8:
			maxLen += 3
		case ArgGuint16Hex:
			maxLen += 4
		}
	}
	if maxLen > LengthMax {
		return template{}, fmt.Errorf("termdb: template %q could exceed LENGTH_MAX (%d) after substitution", raw, LengthMax)
	}

	return template{raw: raw, chunks: chunks, argTypes: argTypes}, nil
}

// emit formats args (len(args) == len(t.argTypes)) into buf, per t's typed
// formatting rules, and returns the number of bytes written.
func (t template) emit(buf []byte, args []uint32) int {
	n := 0
	for i, chunk := range t.chunks {
		n += copy(buf[n:], chunk)
		if i >= len(t.argTypes) {
			continue
		}
		switch t.argTypes[i] {
		case ArgGuint:
			n += copy(buf[n:], fmt.Sprintf("%d", args[i]))
		case ArgGuint8:
			n += copy(buf[n:], fmt.Sprintf("%d", uint8(args[i])))
		case ArgGuint16Hex:
			n += copy(buf[n:], fmt.Sprintf("%04x", uint16(args[i])))
		}
	}
	return n
}

// ParseResult is the outcome of a streaming parse attempt.
type ParseResult int

const (
	ParseAgain ParseResult = iota
	ParseSuccess
	ParseFailure
)

// parse attempts to match data against t's literal chunks, extracting
// decimal or hex argument values at each slot. It returns ParseAgain if data
// is a valid-so-far prefix but incomplete, ParseSuccess with the consumed
// length and decoded args on a full match, or ParseFailure on mismatch.
func (t template) parse(data []byte) (ParseResult, int, []uint32) {
	pos := 0
	args := make([]uint32, len(t.argTypes))

	for i, chunk := range t.chunks {
		if pos+len(chunk) > len(data) {
			if !bytes.HasPrefix(data[pos:], []byte(chunk)) && len(data)-pos < len(chunk) {
				if !bytes.HasPrefix([]byte(chunk), data[pos:]) {
					return ParseFailure, 0, nil
				}
				return ParseAgain, 0, nil
			}
		}
		if !bytes.HasPrefix(data[pos:], []byte(chunk)) {
			return ParseFailure, 0, nil
		}
		pos += len(chunk)

		if i >= len(t.argTypes) {
			continue
		}

		start := pos
		isHex := t.argTypes[i] == ArgGuint16Hex
		for pos < len(data) && isDigit(data[pos], isHex) {
			pos++
		}
		if pos == start {
			if pos >= len(data) {
				return ParseAgain, 0, nil
			}
			return ParseFailure, 0, nil
		}
		// Without a following literal we can't be sure the number is
		// complete; only safe when this is the final chunk and caller
		// accepts a greedy match, or another literal chunk follows.
		if i+1 >= len(t.chunks)-1 && pos >= len(data) {
			return ParseAgain, 0, nil
		}

		var v uint32
		base := 10
		if isHex {
			base = 16
		}
		for _, b := range data[start:pos] {
			v = v*uint32(base) + uint32(digitVal(b))
		}
		args[i] = v
	}

	return ParseSuccess, pos, args
}

func isDigit(b byte, hex bool) bool {
	if b >= '0' && b <= '9' {
		return true
	}
	if hex && ((b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')) {
		return true
	}
	return false
}

func digitVal(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	}
	return 0
}
