// Package fifo implements a chunked byte queue with absolute stream-position
// tracking, used to buffer incoming terminal-response bytes (e.g. Sixel or
// Kitty protocol replies) for incremental parsing.
package fifo

// ChunkSize is the allocation granularity for each internal buffer segment.
const ChunkSize = 16 * 1024

type chunk struct {
	buf      [ChunkSize]byte
	ofs, len int // valid bytes are buf[ofs : ofs+len]
}

// FIFO is a queue of byte chunks with a running absolute stream offset, so
// that positions returned by Search remain meaningful even after earlier
// chunks have been popped and recycled.
type FIFO struct {
	chunks []*chunk
	// streamBase is the absolute stream offset of the first byte currently
	// held in chunks[0].
	streamBase int64
}

// New returns an empty FIFO.
func New() *FIFO {
	return &FIFO{}
}

// Push appends data to the queue, splitting across new chunks as needed.
func (f *FIFO) Push(data []byte) {
	for len(data) > 0 {
		var c *chunk
		if n := len(f.chunks); n > 0 {
			last := f.chunks[n-1]
			if last.ofs+last.len < ChunkSize {
				c = last
			}
		}
		if c == nil {
			c = &chunk{}
			f.chunks = append(f.chunks, c)
		}
		room := ChunkSize - (c.ofs + c.len)
		n := copy(c.buf[c.ofs+c.len:], data[:min(room, len(data))])
		c.len += n
		data = data[n:]
	}
}

// Len returns the total number of buffered bytes.
func (f *FIFO) Len() int {
	total := 0
	for _, c := range f.chunks {
		total += c.len
	}
	return total
}

// Peek returns the current head chunk's valid bytes without consuming them,
// or nil if the queue is empty.
func (f *FIFO) Peek() []byte {
	if len(f.chunks) == 0 {
		return nil
	}
	c := f.chunks[0]
	return c.buf[c.ofs : c.ofs+c.len]
}

// Pop removes and returns up to n bytes from the front of the queue.
func (f *FIFO) Pop(n int) []byte {
	out := make([]byte, 0, n)
	for n > 0 && len(f.chunks) > 0 {
		c := f.chunks[0]
		take := n
		if take > c.len {
			take = c.len
		}
		out = append(out, c.buf[c.ofs:c.ofs+take]...)
		c.ofs += take
		c.len -= take
		n -= take
		f.streamBase += int64(take)
		if c.len == 0 {
			f.chunks = f.chunks[1:]
		}
	}
	return out
}

// Drop discards up to n bytes from the front of the queue without copying
// them out.
func (f *FIFO) Drop(n int) {
	for n > 0 && len(f.chunks) > 0 {
		c := f.chunks[0]
		take := n
		if take > c.len {
			take = c.len
		}
		c.ofs += take
		c.len -= take
		n -= take
		f.streamBase += int64(take)
		if c.len == 0 {
			f.chunks = f.chunks[1:]
		}
	}
}

// StreamBase is the absolute stream offset of the first byte still held in
// the queue (i.e. the total number of bytes ever popped or dropped).
func (f *FIFO) StreamBase() int64 {
	return f.streamBase
}

// Search scans the buffered bytes for pattern, starting at absolute stream
// position from (which must be >= StreamBase()), and returns the absolute
// offset of the first match, or (-1, false) if pattern is not found in the
// currently buffered data. Callers resume an incremental search by passing
// the previous call's returned offset (or StreamBase()+Len()-len(pattern)+1
// conservatively) back in as from.
func (f *FIFO) Search(pattern []byte, from int64) (int64, bool) {
	if len(pattern) == 0 {
		return from, true
	}

	total := f.Len()
	end := f.streamBase + int64(total)
	if from < f.streamBase {
		from = f.streamBase
	}

	flat := make([]byte, 0, total)
	for _, c := range f.chunks {
		flat = append(flat, c.buf[c.ofs:c.ofs+c.len]...)
	}

	startIdx := int(from - f.streamBase)
	if startIdx < 0 || int64(startIdx) >= end-f.streamBase {
		return -1, false
	}

	for i := startIdx; i+len(pattern) <= len(flat); i++ {
		if matchesAt(flat, i, pattern) {
			return f.streamBase + int64(i), true
		}
	}
	return -1, false
}

func matchesAt(data []byte, i int, pattern []byte) bool {
	for j, b := range pattern {
		if data[i+j] != b {
			return false
		}
	}
	return true
}
