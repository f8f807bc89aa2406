package termdb

import (
	"bytes"
	"testing"
)

func TestSetSeqRejectsBadArgCount(t *testing.T) {
	ti := NewTermInfo()
	err := ti.SetSeq(SeqCursorToPos, "\x1b[%1H") // wants 2 args, template has 1
	if err == nil {
		t.Fatal("expected an error for a template with too few argument markers")
	}
}

func TestSetSeqRejectsOverlongExpansion(t *testing.T) {
	ti := NewTermInfo()
	raw := "\x1b[" + string(make([]byte, LengthMax)) + "%1m"
	err := ti.SetSeq(SeqSetColorFG256, raw)
	if err == nil {
		t.Fatal("expected an error for a template exceeding LENGTH_MAX")
	}
}

func TestEmitSeqFormatsArgs(t *testing.T) {
	ti := NewTermInfo()
	if err := ti.SetSeq(SeqCursorToPos, "\x1b[%1;%2H"); err != nil {
		t.Fatal(err)
	}
	got, err := ti.Emit(SeqCursorToPos, 5, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := "\x1b[5;10H"
	if string(got) != want {
		t.Errorf("Emit = %q, want %q", got, want)
	}
}

func TestEmitSeqUnsetFails(t *testing.T) {
	ti := NewTermInfo()
	_, err := ti.Emit(SeqCursorToPos, 1, 2)
	if err == nil {
		t.Fatal("expected an error emitting an unset sequence")
	}
}

func TestParseSeqRoundTrips(t *testing.T) {
	ti := NewTermInfo()
	if err := ti.SetSeq(SeqCursorToPos, "\x1b[%1;%2H"); err != nil {
		t.Fatal(err)
	}
	encoded, err := ti.Emit(SeqCursorToPos, 7, 3)
	if err != nil {
		t.Fatal(err)
	}
	result, n, args := ti.ParseSeq(SeqCursorToPos, encoded)
	if result != ParseSuccess {
		t.Fatalf("ParseSeq result = %v, want ParseSuccess", result)
	}
	if n != len(encoded) {
		t.Errorf("consumed %d bytes, want %d", n, len(encoded))
	}
	if args[0] != 7 || args[1] != 3 {
		t.Errorf("parsed args = %v, want [7 3]", args)
	}
}

func TestParseSeqAgainOnPrefix(t *testing.T) {
	ti := NewTermInfo()
	if err := ti.SetSeq(SeqCursorToPos, "\x1b[%1;%2H"); err != nil {
		t.Fatal(err)
	}
	result, _, _ := ti.ParseSeq(SeqCursorToPos, []byte("\x1b[7;"))
	if result != ParseAgain {
		t.Errorf("ParseSeq on partial input = %v, want ParseAgain", result)
	}
}

func TestSupplementFillsUnsetSeqs(t *testing.T) {
	a := NewTermInfo()
	b := NewTermInfo()
	if err := b.SetSeq(SeqClear, "\x1b[2J"); err != nil {
		t.Fatal(err)
	}
	a.Supplement(b)
	if !a.HasSeq(SeqClear) {
		t.Error("Supplement should have filled SeqClear from b")
	}
}

func TestChainClearsSeqOuterLacks(t *testing.T) {
	inner := NewTermInfo()
	outer := NewTermInfo()
	if err := inner.SetSeq(SeqClear, "\x1b[2J"); err != nil {
		t.Fatal(err)
	}
	chained := Chain(inner, outer)
	if chained.HasSeq(SeqClear) {
		t.Error("Chain should clear a seq the outer TermInfo lacks")
	}
}

func TestChainKeepsInheritableFromOuter(t *testing.T) {
	inner := NewTermInfo()
	outer := NewTermInfo()
	if err := outer.SetSeq(SeqBeginTmuxPassthrough, "\x1bPtmux;"); err != nil {
		t.Fatal(err)
	}
	chained := Chain(inner, outer)
	if !chained.HasSeq(SeqBeginTmuxPassthrough) {
		t.Error("Chain should take inheritable sequences from outer even if inner lacks them")
	}
}

func TestVersionGECompares(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"1.2.3", "1.2.0", true},
		{"1.2.0", "1.2.3", false},
		{"2.0", "1.9.9", true},
		{"1.0", "1.0", true},
	}
	for _, c := range cases {
		if got := versionGE(c.a, c.b); got != c.want {
			t.Errorf("versionGE(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestDetectKittyFromEnv(t *testing.T) {
	db := NewDefaultDb()
	env := map[string]string{"TERM": "xterm-kitty", "KITTY_WINDOW_ID": "1"}
	info := db.Detect(env)
	if !info.HasSeq(SeqBeginKittyImmediateImageV1) {
		t.Error("Detect with TERM=xterm-kitty + KITTY_WINDOW_ID should select the Kitty rule")
	}
}

func TestDetectKittyFromWindowIDAlone(t *testing.T) {
	db := NewDefaultDb()
	env := map[string]string{"KITTY_WINDOW_ID": "1"}
	info := db.Detect(env)
	if !info.HasSeq(SeqBeginKittyImmediateImageV1) {
		t.Error("Detect with only KITTY_WINDOW_ID set should still select the Kitty rule: its Include predicates are independently sufficient")
	}
}

func TestDetectKittyFromTermAlone(t *testing.T) {
	db := NewDefaultDb()
	env := map[string]string{"TERM": "xterm-kitty"}
	info := db.Detect(env)
	if !info.HasSeq(SeqBeginKittyImmediateImageV1) {
		t.Error("Detect with only TERM=xterm-kitty set should still select the Kitty rule")
	}
}

func TestTermDefPriorityIsMaxOfMatchingIncludes(t *testing.T) {
	d := TermDef{
		Predicates: []EnvPredicate{
			{Op: EnvOpInclude, Cmp: EnvCmpExact, Key: "TERM", Value: "xterm-kitty", Priority: 20},
			{Op: EnvOpInclude, Cmp: EnvCmpIsSet, Key: "KITTY_WINDOW_ID", Priority: 5},
		},
	}
	both := map[string]string{"TERM": "xterm-kitty", "KITTY_WINDOW_ID": "1"}
	if got := d.priority(both); got != 20 {
		t.Errorf("priority with both predicates matching = %d, want 20 (max, not 25 summed)", got)
	}
	windowIDOnly := map[string]string{"KITTY_WINDOW_ID": "1"}
	if got := d.priority(windowIDOnly); got != 5 {
		t.Errorf("priority with only KITTY_WINDOW_ID matching = %d, want 5", got)
	}
}

func TestDetectFallsBackWhenNoRuleMatches(t *testing.T) {
	db := NewDefaultDb()
	info := db.Detect(map[string]string{})
	if !info.HasSeq(SeqResetAttributes) {
		t.Error("Detect with an empty environment should still produce baseline VT220-ish sequences")
	}
}

func TestDetectTmuxChainsMuxRule(t *testing.T) {
	db := NewDefaultDb()
	env := map[string]string{"TERM": "xterm-256color", "TMUX": "/tmp/tmux-1000/default,1234,0"}
	info := db.Detect(env)
	if !info.HasSeq(SeqBeginTmuxPassthrough) {
		t.Error("Detect under tmux should chain in the tmux passthrough sequences")
	}
}

func TestEmitBufferNoOverflow(t *testing.T) {
	ti := GetFallbackInfo()
	buf := make([]byte, LengthMax)
	n, ok := ti.EmitSeq(buf, SeqSetColorFGDirect, 255, 255, 255)
	if !ok {
		t.Fatal("expected SeqSetColorFGDirect to be set in fallback info")
	}
	if n > LengthMax {
		t.Errorf("emitted length %d exceeds LengthMax %d", n, LengthMax)
	}
	if !bytes.Contains(buf[:n], []byte("255;255;255")) {
		t.Errorf("emitted sequence %q missing expected RGB values", buf[:n])
	}
}
