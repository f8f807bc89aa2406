// Package passthrough wraps graphics-protocol payloads for transmission
// through a terminal multiplexer (tmux or GNU Screen), each of which
// requires its own framing and packet-size limit.
package passthrough

import "bytes"

const (
	esc = "\x1b"
	st  = esc + "\\"
)

// Kind selects the multiplexer framing rules.
type Kind int

const (
	KindNone Kind = iota
	KindTmux
	KindScreen
)

// maxPacketSize returns the hard payload-size limit for k, per spec §4.10.
func maxPacketSize(k Kind) int {
	switch k {
	case KindTmux:
		return 1_000_000
	case KindScreen:
		return 200
	default:
		return 0 // unlimited
	}
}

// Wrap frames payload for transmission through multiplexer k, splitting it
// into multiple DCS packets if it exceeds the multiplexer's limit. For
// KindNone, payload is returned unchanged.
func Wrap(payload []byte, k Kind) []byte {
	switch k {
	case KindNone:
		return payload
	case KindTmux:
		return wrapTmux(payload)
	case KindScreen:
		return wrapScreen(payload)
	default:
		return payload
	}
}

// wrapTmux doubles every embedded ESC byte (tmux's DCS passthrough
// convention) and splits the result across multiple ESC P tmux; ... ESC \
// packets if it exceeds the ~1,000,000-byte limit.
func wrapTmux(payload []byte) []byte {
	doubled := doubleEscapes(payload)
	limit := maxPacketSize(KindTmux)

	var out bytes.Buffer
	for i := 0; i < len(doubled); i += limit {
		end := i + limit
		if end > len(doubled) {
			end = len(doubled)
		}
		out.WriteString(esc + "Ptmux;")
		out.Write(doubled[i:end])
		out.WriteString(st)
	}
	if len(doubled) == 0 {
		out.WriteString(esc + "Ptmux;" + st)
	}
	return out.Bytes()
}

func doubleEscapes(payload []byte) []byte {
	var out bytes.Buffer
	for _, b := range payload {
		out.WriteByte(b)
		if b == 0x1b {
			out.WriteByte(0x1b)
		}
	}
	return out.Bytes()
}

// wrapScreen frames payload with no escape doubling, splitting into 200-byte
// packets.
func wrapScreen(payload []byte) []byte {
	limit := maxPacketSize(KindScreen)

	var out bytes.Buffer
	if len(payload) == 0 {
		out.WriteString(esc + "P" + st)
		return out.Bytes()
	}
	for i := 0; i < len(payload); i += limit {
		end := i + limit
		if end > len(payload) {
			end = len(payload)
		}
		out.WriteString(esc + "P")
		out.Write(payload[i:end])
		out.WriteString(st)
	}
	return out.Bytes()
}

// Encoder buffers an in-progress packet, transparently flushing and
// restarting when the multiplexer's limit is reached, so a caller can
// stream bytes without precomputing the whole payload up front.
type Encoder struct {
	kind    Kind
	limit   int
	pending bytes.Buffer
	out     bytes.Buffer
}

// NewEncoder returns a streaming Encoder for multiplexer kind k.
func NewEncoder(k Kind) *Encoder {
	return &Encoder{kind: k, limit: maxPacketSize(k)}
}

// Write appends data to the current packet, flushing and starting a new
// packet whenever the limit would be exceeded.
func (e *Encoder) Write(data []byte) {
	if e.kind == KindNone {
		e.out.Write(data)
		return
	}

	for _, b := range data {
		toAdd := 1
		if e.kind == KindTmux && b == 0x1b {
			toAdd = 2
		}
		if e.limit > 0 && e.pending.Len()+toAdd > e.limit {
			e.flush()
		}
		e.pending.WriteByte(b)
		if e.kind == KindTmux && b == 0x1b {
			e.pending.WriteByte(0x1b)
		}
	}
}

func (e *Encoder) flush() {
	if e.pending.Len() == 0 {
		return
	}
	switch e.kind {
	case KindTmux:
		e.out.WriteString(esc + "Ptmux;")
	case KindScreen:
		e.out.WriteString(esc + "P")
	}
	e.out.Write(e.pending.Bytes())
	if e.kind != KindNone {
		e.out.WriteString(st)
	}
	e.pending.Reset()
}

// Flush finalizes the in-progress packet. The graphics-protocol terminator
// is atomic to the encoder: callers must call Flush before writing it so it
// is never split across packets.
func (e *Encoder) Flush() []byte {
	e.flush()
	return e.out.Bytes()
}
