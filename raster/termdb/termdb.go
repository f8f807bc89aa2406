package termdb

import (
	"strconv"
	"strings"
)

// RuleType classifies a TermDef by which layer of the terminal stack it
// describes.
type RuleType int

const (
	RuleTerm RuleType = iota
	RuleMux
	RuleApp
)

// EnvOp selects whether a predicate must hold (Include) or must not hold
// (Exclude) for the owning rule to match.
type EnvOp int

const (
	EnvOpInclude EnvOp = iota
	EnvOpExclude
)

// EnvCmp selects how a predicate compares an environment variable's value.
type EnvCmp int

const (
	EnvCmpIsSet EnvCmp = iota
	EnvCmpExact
	EnvCmpPrefix
	EnvCmpSuffix
	EnvCmpVersionGE
)

// EnvPredicate is one (op, cmp, key, value, priority) rule clause.
type EnvPredicate struct {
	Op       EnvOp
	Cmp      EnvCmp
	Key      string
	Value    string
	Priority int
}

func (p EnvPredicate) eval(env map[string]string) bool {
	v, isSet := env[p.Key]
	var pass bool
	switch p.Cmp {
	case EnvCmpIsSet:
		pass = isSet
	case EnvCmpExact:
		pass = isSet && v == p.Value
	case EnvCmpPrefix:
		pass = isSet && strings.HasPrefix(v, p.Value)
	case EnvCmpSuffix:
		pass = isSet && strings.HasSuffix(v, p.Value)
	case EnvCmpVersionGE:
		pass = isSet && versionGE(v, p.Value)
	}
	if p.Op == EnvOpExclude {
		return !pass
	}
	return pass
}

// versionGE compares dot-separated numeric version strings component-wise;
// a missing trailing component is treated as 0.
func versionGE(a, b string) bool {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(as) {
			av, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(bs[i])
		}
		if av != bv {
			return av > bv
		}
	}
	return true
}

// TermDef is one rule in the database: a named terminal/mux/app definition
// with its predicates and the TermInfo it contributes when it wins.
type TermDef struct {
	Type        RuleType
	Name        string
	Predicates  []EnvPredicate
	Info        *TermInfo
}

func (d TermDef) matches(env map[string]string) bool {
	for _, p := range d.Predicates {
		if p.Op == EnvOpExclude && !p.eval(env) {
			return false
		}
	}
	// Exclude predicates hard-gate (all must hold); Include predicates are
	// OR'd against each other, so a rule with several independently
	// sufficient ways to detect a terminal (e.g. TERM=xterm-kitty, or
	// KITTY_WINDOW_ID set) matches on any one of them.
	hasInclude := false
	includeMatched := false
	for _, p := range d.Predicates {
		if p.Op != EnvOpInclude {
			continue
		}
		hasInclude = true
		if p.eval(env) {
			includeMatched = true
		}
	}
	return !hasInclude || includeMatched
}

// priority is the highest priority among the rule's matching Include
// predicates, so a rule wins on the strength of its best signal rather than
// an accumulation of every predicate that happens to hold.
func (d TermDef) priority(env map[string]string) int {
	best := 0
	for _, p := range d.Predicates {
		if p.Op == EnvOpInclude && p.eval(env) && p.Priority > best {
			best = p.Priority
		}
	}
	return best
}

// Db is a table of TermDef rules across all three RuleTypes.
type Db struct {
	defs []TermDef
}

// NewDb returns an empty Db. Use AddDef to register rules, or NewDefaultDb
// for the built-in rule set.
func NewDb() *Db {
	return &Db{}
}

// AddDef registers a rule.
func (db *Db) AddDef(d TermDef) {
	db.defs = append(db.defs, d)
}

// bestMatch returns the highest-priority matching rule of the given type,
// or nil if none match.
func (db *Db) bestMatch(typ RuleType, env map[string]string) *TermDef {
	var best *TermDef
	bestPriority := -1
	for i := range db.defs {
		d := &db.defs[i]
		if d.Type != typ || !d.matches(env) {
			continue
		}
		p := d.priority(env)
		if p > bestPriority {
			bestPriority = p
			best = d
		}
	}
	return best
}

// Detect builds the final TermInfo for an environment by finding the
// best-matching rule in each of the three layers and chaining them
// App <- Mux <- Term, per spec §4.11. Layers with no match are skipped.
func (db *Db) Detect(env map[string]string) *TermInfo {
	term := db.bestMatch(RuleTerm, env)
	mux := db.bestMatch(RuleMux, env)
	app := db.bestMatch(RuleApp, env)

	result := GetFallbackInfo()
	if term != nil {
		result = term.Info
	}
	if mux != nil {
		result = Chain(mux.Info, result)
	}
	if app != nil {
		result = Chain(app.Info, result)
	}
	return result
}

// GetFallbackInfo returns a best-effort TrueColor, VT220-ish base TermInfo
// used when no rule in the database matches the environment.
func GetFallbackInfo() *TermInfo {
	ti := NewTermInfo()
	must := func(seq Seq, raw string) {
		if err := ti.SetSeq(seq, raw); err != nil {
			panic(err)
		}
	}
	must(SeqResetTerminalSoft, "\x1b[!p")
	must(SeqResetAttributes, "\x1b[0m")
	must(SeqClear, "\x1b[2J")
	must(SeqCursorToPos, "\x1b[%1;%2H")
	must(SeqCursorUp, "\x1b[%1A")
	must(SeqCursorDown, "\x1b[%1B")
	must(SeqCursorLeft, "\x1b[%1D")
	must(SeqCursorRight, "\x1b[%1C")
	must(SeqEnableCursor, "\x1b[?25h")
	must(SeqDisableCursor, "\x1b[?25l")
	must(SeqSetColorFGDirect, "\x1b[38;2;%1;%2;%3m")
	must(SeqSetColorBGDirect, "\x1b[48;2;%1;%2;%3m")
	must(SeqSetColorFG256, "\x1b[38;5;%1m")
	must(SeqSetColorBG256, "\x1b[48;5;%1m")
	must(SeqSetColorFG16, "\x1b[%1m")
	must(SeqSetColorBG16, "\x1b[%1m")
	return ti
}

// NewDefaultDb returns a Db pre-populated with a handful of real terminal,
// multiplexer and app rules grounded in the upstream term-db: xterm-family
// direct-color, Kitty, iTerm2, tmux and GNU Screen passthrough.
func NewDefaultDb() *Db {
	db := NewDb()

	xterm := &TermInfo{}
	*xterm = *GetFallbackInfo()
	must := func(ti *TermInfo, seq Seq, raw string) {
		if err := ti.SetSeq(seq, raw); err != nil {
			panic(err)
		}
	}
	must(xterm, SeqBeginSixels, "\x1bP%1;%2;%3q")
	must(xterm, SeqEndSixels, "\x1b\\")

	db.AddDef(TermDef{
		Type: RuleTerm,
		Name: "xterm",
		Predicates: []EnvPredicate{
			{Op: EnvOpInclude, Cmp: EnvCmpPrefix, Key: "TERM", Value: "xterm", Priority: 10},
		},
		Info: xterm,
	})

	kitty := &TermInfo{}
	*kitty = *GetFallbackInfo()
	must(kitty, SeqBeginKittyImmediateImageV1, "\x1b_Ga=T,f=%1,s=%2,v=%3,c=%4,r=%5,m=1\x1b\\")
	must(kitty, SeqEndKittyImage, "\x1b_Gm=0\x1b\\")
	must(kitty, SeqBeginKittyImageChunk, "\x1b_Gm=1;")
	must(kitty, SeqEndKittyImageChunk, "\x1b\\")

	db.AddDef(TermDef{
		Type: RuleTerm,
		Name: "kitty",
		Predicates: []EnvPredicate{
			{Op: EnvOpInclude, Cmp: EnvCmpExact, Key: "TERM", Value: "xterm-kitty", Priority: 20},
			{Op: EnvOpInclude, Cmp: EnvCmpIsSet, Key: "KITTY_WINDOW_ID", Priority: 5},
		},
		Info: kitty,
	})

	iterm := &TermInfo{}
	*iterm = *GetFallbackInfo()
	must(iterm, SeqBeginIterm2Image, "\x1b]1337;File=inline=1;width=%1;height=%2;preserveAspectRatio=0:")
	must(iterm, SeqEndIterm2Image, "\x07")

	db.AddDef(TermDef{
		Type: RuleTerm,
		Name: "iterm2",
		Predicates: []EnvPredicate{
			{Op: EnvOpInclude, Cmp: EnvCmpIsSet, Key: "ITERM_SESSION_ID", Priority: 20},
		},
		Info: iterm,
	})

	tmuxMux := &TermInfo{}
	must(tmuxMux, SeqBeginTmuxPassthrough, "\x1bPtmux;")
	must(tmuxMux, SeqEndTmuxPassthrough, "\x1b\\")

	db.AddDef(TermDef{
		Type: RuleMux,
		Name: "tmux",
		Predicates: []EnvPredicate{
			{Op: EnvOpInclude, Cmp: EnvCmpIsSet, Key: "TMUX", Priority: 10},
		},
		Info: tmuxMux,
	})

	screenMux := &TermInfo{}
	must(screenMux, SeqBeginScreenPassthrough, "\x1bP")
	must(screenMux, SeqEndScreenPassthrough, "\x1b\\")

	db.AddDef(TermDef{
		Type: RuleMux,
		Name: "screen",
		Predicates: []EnvPredicate{
			{Op: EnvOpInclude, Cmp: EnvCmpPrefix, Key: "TERM", Value: "screen", Priority: 10},
			{Op: EnvOpExclude, Cmp: EnvCmpIsSet, Key: "TMUX", Priority: 5},
		},
		Info: screenMux,
	})

	return db
}
