package symbols

import (
	"math/bits"
	"sort"
)

// Range selects symbols by tag set and/or code-point span. Include controls
// whether a matching Range adds (true) or removes (false) symbols from the
// running selection. A zero-value Tags (TagNone) with FirstCP/LastCP set
// selects purely by code point range; a zero code-point range with Tags set
// selects purely by tag.
type Range struct {
	Include        bool
	Tags           Tag
	FirstCP, LastCP rune
}

func (r Range) matches(s Symbol) bool {
	tagOK := r.Tags == TagNone || s.Tags&r.Tags != 0
	cpOK := r.FirstCP == 0 && r.LastCP == 0
	if !cpOK {
		cpOK = s.CodePoint >= r.FirstCP && s.CodePoint <= r.LastCP
	}
	if r.Tags != TagNone && (r.FirstCP != 0 || r.LastCP != 0) {
		return tagOK && cpOK
	}
	if r.Tags != TagNone {
		return tagOK
	}
	return cpOK
}

// Map is a bag of selector rules plus an optional
// user-glyph override table. Calling Prepare materializes the selection into
// dense, sorted arrays suitable for fast candidate search; mutating a Map
// after Prepare sets needsRebuild so the next Prepare recomputes (the
// "prepared" variant is copy-on-write: cloned on first Prepare call after a
// mutation rather than mutated in place, so a canvas that already captured a
// prepared snapshot is unaffected).
type Map struct {
	ranges       []Range
	userGlyphs   []Symbol
	needsRebuild bool

	prepared *prepared
}

type prepared struct {
	narrow       []Symbol // sorted by CodePoint for deterministic iteration
	wide         []Symbol
	narrowBitmap []uint64 // parallel to narrow: packed bitmaps for tight loops
	wideBitmapL  []uint64
	wideBitmapR  []uint64
}

// NewMap returns an empty Map. Use AddRange/AddUserGlyph to build
// up a selection before calling Prepare.
func NewMap() *Map {
	return &Map{needsRebuild: true}
}

// DefaultRanges is the base set used when no selector has been applied yet:
// block + border + space, plus any wide glyphs (two-cell-wide block art),
// so a default render can still pair adjacent cells into a wide glyph.
var DefaultRanges = []Range{
	{Include: true, Tags: TagBlock | TagBorder | TagSpace},
	{Include: true, Tags: TagWide},
}

// NewDefaultMap returns a Map preloaded with DefaultRanges (block+border+space
// plus the built-in wide glyphs), matching the default canvas behavior.
func NewDefaultMap() *Map {
	m := NewMap()
	for _, r := range DefaultRanges {
		m.apply(r)
	}
	return m
}

// AddRange applies an include/exclude selector rule to the map's running
// selection. Rules are additive and applied in call order.
func (m *Map) AddRange(r Range) {
	m.apply(r)
}

func (m *Map) apply(r Range) {
	m.ranges = append(m.ranges, r)
	m.needsRebuild = true
	m.prepared = nil
}

// AddUserGlyph registers a user-supplied narrow (8x8) or wide (two 8x8
// halves) glyph override. Wide glyphs are passed as left/right bitmap
// halves; pass right=0 for a narrow glyph.
func (m *Map) AddUserGlyph(cp rune, left, right uint64, wide bool) {
	var s Symbol
	if wide {
		s = NewWideSymbol(left, right, cp, TagExtra|TagWide)
	} else {
		s = NewSymbol(left, cp, TagExtra)
	}
	m.userGlyphs = append(m.userGlyphs, s)
	m.needsRebuild = true
	m.prepared = nil
}

// Prepare materializes the current selection into the dense, sorted form
// used by candidate search. It is idempotent when the map has not been
// mutated since the last call (copy-on-write: returns the same cached
// snapshot).
func (m *Map) Prepare() {
	if !m.needsRebuild && m.prepared != nil {
		return
	}

	selected := make(map[rune]Symbol)
	for _, r := range m.ranges {
		for _, s := range Builtins() {
			if s.Wide {
				continue // base selection never includes wide glyphs
			}
			if r.matches(s) {
				if r.Include {
					selected[s.CodePoint] = s
				} else {
					delete(selected, s.CodePoint)
				}
			}
		}
	}

	var narrow, wide []Symbol
	for _, s := range selected {
		narrow = append(narrow, s)
	}
	for _, s := range m.userGlyphs {
		if s.Wide {
			wide = append(wide, s)
		} else {
			narrow = append(narrow, s)
		}
	}
	// Any builtin wide glyphs explicitly requested via a Range with TagWide
	// set are included too.
	for _, r := range m.ranges {
		if !r.Include || r.Tags&TagWide == 0 {
			continue
		}
		for _, s := range Builtins() {
			if s.Wide && r.matches(s) {
				wide = append(wide, s)
			}
		}
	}

	sort.Slice(narrow, func(i, j int) bool { return narrow[i].CodePoint < narrow[j].CodePoint })
	sort.Slice(wide, func(i, j int) bool { return wide[i].CodePoint < wide[j].CodePoint })

	p := &prepared{narrow: narrow, wide: wide}
	for _, s := range narrow {
		p.narrowBitmap = append(p.narrowBitmap, s.Bitmap)
	}
	for _, s := range wide {
		p.wideBitmapL = append(p.wideBitmapL, s.Bitmap)
		p.wideBitmapR = append(p.wideBitmapR, s.WideBitmap)
	}

	m.prepared = p
	m.needsRebuild = false
}

// IsEmpty reports whether Prepare produced no narrow symbols. A prepared Map
// must always have at least one narrow symbol to be usable by the cell
// analyzer.
func (m *Map) IsEmpty() bool {
	m.Prepare()
	return len(m.prepared.narrow) == 0
}

// HasWide reports whether Prepare produced any wide (two-cell) symbols,
// letting a caller skip the wide-pairing search entirely when the map was
// built without any.
func (m *Map) HasWide() bool {
	m.Prepare()
	return len(m.prepared.wide) > 0
}

// Candidate is one result from a candidate search: the matched symbol and
// its Hamming distance to the query bitmap.
type Candidate struct {
	Symbol   Symbol
	Distance int
	Inverted bool
}

// TopK returns up to k narrow symbols whose coverage bitmap has the smallest
// Hamming distance to target. If allowInvert is set, the complemented
// target is also matched and results are merged, tagging inverted matches.
func (m *Map) TopK(target uint64, k int, allowInvert bool) []Candidate {
	m.Prepare()
	p := m.prepared

	cands := make([]Candidate, 0, len(p.narrow))
	for i, bm := range p.narrowBitmap {
		d := bits.OnesCount64(bm ^ target)
		cands = append(cands, Candidate{Symbol: p.narrow[i], Distance: d})
	}
	if allowInvert {
		inv := ^target
		for i, bm := range p.narrowBitmap {
			d := bits.OnesCount64(bm ^ inv)
			cands = append(cands, Candidate{Symbol: p.narrow[i], Distance: d, Inverted: true})
		}
	}

	sort.Slice(cands, func(i, j int) bool { return cands[i].Distance < cands[j].Distance })
	if k > 0 && len(cands) > k {
		cands = cands[:k]
	}
	return cands
}

// TopKWide is TopK for the paired (128-bit, two 64-bit halves) wide-symbol
// candidate set.
func (m *Map) TopKWide(targetL, targetR uint64, k int) []Candidate {
	m.Prepare()
	p := m.prepared

	cands := make([]Candidate, 0, len(p.wide))
	for i := range p.wide {
		d := bits.OnesCount64(p.wideBitmapL[i]^targetL) + bits.OnesCount64(p.wideBitmapR[i]^targetR)
		cands = append(cands, Candidate{Symbol: p.wide[i], Distance: d})
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].Distance < cands[j].Distance })
	if k > 0 && len(cands) > k {
		cands = cands[:k]
	}
	return cands
}

// FillCandidate returns the narrow symbol whose popcount is closest to
// targetPopcount, irrespective of bitmap shape. Used by the fill symbol map
// to pick a glyph that best matches a flat region's FG/BG ratio.
func (m *Map) FillCandidate(targetPopcount int) (Symbol, bool) {
	m.Prepare()
	p := m.prepared
	if len(p.narrow) == 0 {
		return Symbol{}, false
	}

	best := p.narrow[0]
	bestDist := abs(best.FGWeight - targetPopcount)
	for _, s := range p.narrow[1:] {
		d := abs(s.FGWeight - targetPopcount)
		if d < bestDist {
			best = s
			bestDist = d
		}
	}
	return best, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
