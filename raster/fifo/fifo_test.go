package fifo

import (
	"bytes"
	"testing"
)

func TestPushPopRoundTrip(t *testing.T) {
	f := New()
	f.Push([]byte("hello world"))
	got := f.Pop(5)
	if string(got) != "hello" {
		t.Errorf("Pop(5) = %q, want %q", got, "hello")
	}
	rest := f.Pop(f.Len())
	if string(rest) != " world" {
		t.Errorf("remaining Pop = %q, want %q", rest, " world")
	}
}

func TestPushAcrossChunkBoundary(t *testing.T) {
	f := New()
	big := bytes.Repeat([]byte{'a'}, ChunkSize+100)
	f.Push(big)
	if f.Len() != len(big) {
		t.Fatalf("Len() = %d, want %d", f.Len(), len(big))
	}
	got := f.Pop(f.Len())
	if !bytes.Equal(got, big) {
		t.Error("data corrupted across chunk boundary")
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	f := New()
	f.Push([]byte("abc"))
	p1 := f.Peek()
	p2 := f.Peek()
	if !bytes.Equal(p1, p2) || f.Len() != 3 {
		t.Error("Peek should not consume bytes")
	}
}

func TestDropDiscardsWithoutCopy(t *testing.T) {
	f := New()
	f.Push([]byte("abcdef"))
	f.Drop(3)
	if f.Len() != 3 {
		t.Fatalf("Len() after Drop(3) = %d, want 3", f.Len())
	}
	got := f.Pop(3)
	if string(got) != "def" {
		t.Errorf("Pop after Drop = %q, want %q", got, "def")
	}
}

func TestStreamBaseTracksAbsolutePosition(t *testing.T) {
	f := New()
	f.Push([]byte("0123456789"))
	f.Pop(4)
	if f.StreamBase() != 4 {
		t.Errorf("StreamBase() = %d, want 4", f.StreamBase())
	}
}

func TestSearchFindsPatternAndTracksAbsoluteOffset(t *testing.T) {
	f := New()
	f.Push([]byte("abcXYZdef"))
	pos, ok := f.Search([]byte("XYZ"), 0)
	if !ok || pos != 3 {
		t.Fatalf("Search = (%d, %v), want (3, true)", pos, ok)
	}
}

func TestSearchResumesFromPreviousPosition(t *testing.T) {
	f := New()
	f.Push([]byte("XYZ__XYZ"))
	first, ok := f.Search([]byte("XYZ"), 0)
	if !ok || first != 0 {
		t.Fatalf("first Search = (%d, %v), want (0, true)", first, ok)
	}
	second, ok := f.Search([]byte("XYZ"), first+1)
	if !ok || second != 5 {
		t.Fatalf("resumed Search = (%d, %v), want (5, true)", second, ok)
	}
}

func TestSearchAccountsForDroppedPrefix(t *testing.T) {
	f := New()
	f.Push([]byte("0123456789XYZ"))
	f.Drop(5)
	pos, ok := f.Search([]byte("XYZ"), f.StreamBase())
	if !ok || pos != 10 {
		t.Fatalf("Search after Drop = (%d, %v), want (10, true)", pos, ok)
	}
}

func TestSearchNotFound(t *testing.T) {
	f := New()
	f.Push([]byte("abcdef"))
	_, ok := f.Search([]byte("zzz"), 0)
	if ok {
		t.Error("Search for an absent pattern should return ok=false")
	}
}
