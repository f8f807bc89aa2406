package termdb

import "fmt"

// seqArgTypes gives the argument type signature for each Seq, matching the
// reference implementation's per-sequence CHAFA_TERM_SEQ_ARGS declarations.
var seqArgTypes = map[Seq][]ArgType{
	SeqCursorToPos:                {ArgGuint, ArgGuint},
	SeqCursorUp:                   {ArgGuint},
	SeqCursorDown:                 {ArgGuint},
	SeqCursorLeft:                 {ArgGuint},
	SeqCursorRight:                {ArgGuint},
	SeqSetColorFGDirect:           {ArgGuint8, ArgGuint8, ArgGuint8},
	SeqSetColorBGDirect:           {ArgGuint8, ArgGuint8, ArgGuint8},
	SeqSetColorFGBGDirect:         {ArgGuint8, ArgGuint8, ArgGuint8, ArgGuint8, ArgGuint8, ArgGuint8},
	SeqSetColorFG256:              {ArgGuint8},
	SeqSetColorBG256:              {ArgGuint8},
	SeqSetColorFG16:               {ArgGuint8},
	SeqSetColorBG16:               {ArgGuint8},
	SeqBeginSixels:                {ArgGuint, ArgGuint, ArgGuint},
	SeqBeginKittyImmediateImageV1: {ArgGuint, ArgGuint, ArgGuint, ArgGuint, ArgGuint},
	SeqBeginIterm2Image:           {ArgGuint, ArgGuint},
}

func argTypesFor(s Seq) []ArgType {
	if t, ok := seqArgTypes[s]; ok {
		return t
	}
	return nil
}

// inheritable marks sequences that chain() treats specially: state-setting
// sequences an outer (muxer) TermInfo should still provide even if the
// inner terminal doesn't define a distinct variant, because the muxer
// itself interprets them (e.g. passthrough framing).
var inheritable = map[Seq]bool{
	SeqBeginTmuxPassthrough:   true,
	SeqEndTmuxPassthrough:     true,
	SeqBeginScreenPassthrough: true,
	SeqEndScreenPassthrough:   true,
}

// TermInfo holds one parsed template per Seq for a specific terminal, plus
// the unparsed source string (kept for diagnostics and for supplement's
// is-set check).
type TermInfo struct {
	templates [seqCount]*template
	raw       [seqCount]string
}

// NewTermInfo returns an empty TermInfo with no sequences set.
func NewTermInfo() *TermInfo {
	return &TermInfo{}
}

// SetSeq parses raw as the template for seq and installs it, rejecting bad
// argument counts, malformed escapes, or an overlong worst-case expansion.
func (ti *TermInfo) SetSeq(seq Seq, raw string) error {
	tmpl, err := parseTemplate(raw, argTypesFor(seq))
	if err != nil {
		return err
	}
	ti.templates[seq] = &tmpl
	ti.raw[seq] = raw
	return nil
}

// HasSeq reports whether seq has been set.
func (ti *TermInfo) HasSeq(seq Seq) bool {
	return ti.templates[seq] != nil
}

// EmitSeq formats seq's template with args into a caller-provided buffer of
// at least LengthMax bytes, and returns the number of bytes written, or
// (0, false) if seq is unset.
func (ti *TermInfo) EmitSeq(buf []byte, seq Seq, args ...uint32) (int, bool) {
	t := ti.templates[seq]
	if t == nil {
		return 0, false
	}
	return t.emit(buf, args), true
}

// Emit is a convenience wrapper around EmitSeq that allocates its own
// LengthMax buffer and returns the formatted bytes.
func (ti *TermInfo) Emit(seq Seq, args ...uint32) ([]byte, error) {
	buf := make([]byte, LengthMax)
	n, ok := ti.EmitSeq(buf, seq, args...)
	if !ok {
		return nil, fmt.Errorf("termdb: sequence %v not set", seq)
	}
	return buf[:n], nil
}

// ParseSeq attempts to match data against seq's template, per the streaming
// parser semantics in (template).parse.
func (ti *TermInfo) ParseSeq(seq Seq, data []byte) (ParseResult, int, []uint32) {
	t := ti.templates[seq]
	if t == nil {
		return ParseFailure, 0, nil
	}
	return t.parse(data)
}

// Supplement fills any seq left unset in ti from other, in place.
func (ti *TermInfo) Supplement(other *TermInfo) {
	for s := Seq(0); s < seqCount; s++ {
		if ti.templates[s] == nil && other.templates[s] != nil {
			ti.templates[s] = other.templates[s]
			ti.raw[s] = other.raw[s]
		}
	}
}

// Chain produces a new TermInfo that uses inner's sequence for each seq, but
// clears it if outer lacks the sequence too — modeling a terminal wrapped by
// a multiplexer that can only pass through what it itself understands.
// Inheritable sequences (multiplexer passthrough framing) are taken from
// outer directly rather than being gated by inner.
func Chain(inner, outer *TermInfo) *TermInfo {
	result := NewTermInfo()
	for s := Seq(0); s < seqCount; s++ {
		if inheritable[s] {
			// Inheritable seqs are defined by whichever layer actually
			// carries them (typically the muxer), not gated by the other.
			if inner.templates[s] != nil {
				result.templates[s] = inner.templates[s]
				result.raw[s] = inner.raw[s]
			} else if outer.templates[s] != nil {
				result.templates[s] = outer.templates[s]
				result.raw[s] = outer.raw[s]
			}
			continue
		}
		if inner.templates[s] != nil && outer.templates[s] != nil {
			result.templates[s] = inner.templates[s]
			result.raw[s] = inner.raw[s]
		}
	}
	return result
}
