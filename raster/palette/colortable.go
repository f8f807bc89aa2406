package palette

import (
	"math"
	"sort"

	"github.com/tinyland/rastertext/raster/color"
)

// vec3 is a 3-component float vector used by the PCA power-iteration solver.
type vec3 struct{ x, y, z float64 }

func (a vec3) dot(b vec3) float64 { return a.x*b.x + a.y*b.y + a.z*b.z }
func (a vec3) scale(s float64) vec3 { return vec3{a.x * s, a.y * s, a.z * s} }
func (a vec3) sub(b vec3) vec3    { return vec3{a.x - b.x, a.y - b.y, a.z - b.z} }
func (a vec3) add(b vec3) vec3    { return vec3{a.x + b.x, a.y + b.y, a.z + b.z} }
func (a vec3) norm() float64      { return math.Sqrt(a.dot(a)) }
func (a vec3) normalized() vec3 {
	n := a.norm()
	if n == 0 {
		return a
	}
	return a.scale(1 / n)
}

const (
	pcaPowerMaxIterations = 1000
	pcaPowerMinError      = 0.0001
)

// pcaConverge runs power iteration with the fixed seed vector from the
// reference implementation, returning the dominant eigenvector.
func pcaConverge(vecs []vec3) vec3 {
	r := vec3{0.11, 0.23, 0.51}.normalized()

	for j := 0; j < pcaPowerMaxIterations; j++ {
		var s vec3
		for _, v := range vecs {
			u := v.dot(r)
			s = s.add(v.scale(u))
		}
		eigenvalue := r.dot(s)

		t := r.scale(eigenvalue)
		errVec := s.sub(t)
		errMag := errVec.norm()

		if s.norm() > 0 {
			r = s.normalized()
		}
		if errMag < pcaPowerMinError {
			break
		}
	}
	return r
}

// pcaTwoAxes returns the two dominant eigenvectors (and the point cloud
// mean) via power iteration with residual deflation: after the first
// eigenvector is found, its component is subtracted from each point before
// solving again.
func pcaTwoAxes(points []vec3) (mean, e1, e2 vec3) {
	n := float64(len(points))
	var sum vec3
	for _, p := range points {
		sum = sum.add(p)
	}
	mean = sum.scale(1 / n)

	centered := make([]vec3, len(points))
	for i, p := range points {
		centered[i] = p.sub(mean)
	}

	e1 = pcaConverge(centered)

	deflated := make([]vec3, len(centered))
	for i, p := range centered {
		proj := p.dot(e1)
		deflated[i] = p.sub(e1.scale(proj))
	}
	e2 = pcaConverge(deflated)

	return mean, e1, e2
}

// tableEntry is one palette color projected onto the PCA plane.
type tableEntry struct {
	x, y float64
	pen  int
}

// ColorTable accelerates nearest-palette-color queries via a 2D PCA
// projection of the palette's point cloud: entries are sorted by the first
// axis and binary-searched, then scanned in both directions while the
// squared x-distance bound still beats the current best.
type ColorTable struct {
	entries    []tableEntry
	mean       vec3
	e1, e2     vec3
	e1RecipSq  float64
	e2RecipSq  float64
	palette    *Palette
}

func colorToVec3(c color.Color) vec3 {
	return vec3{float64(c.R), float64(c.G), float64(c.B)}
}

// BuildColorTable runs PCA over p's non-sentinel entries and builds the
// sorted projection table used by Nearest.
func BuildColorTable(p *Palette) *ColorTable {
	if p.Count == 0 {
		return &ColorTable{palette: p}
	}

	points := make([]vec3, 0, p.Count)
	for i := 0; i < p.Count; i++ {
		points = append(points, colorToVec3(p.Entries[i].RGB))
	}

	mean, e1, e2 := pcaTwoAxes(points)

	ct := &ColorTable{palette: p, mean: mean, e1: e1, e2: e2}
	if n := e1.dot(e1); n > 0 {
		ct.e1RecipSq = 1 / n
	}
	if n := e2.dot(e2); n > 0 {
		ct.e2RecipSq = 1 / n
	}

	for i := 0; i < p.Count; i++ {
		v := points[i].sub(mean)
		ct.entries = append(ct.entries, tableEntry{
			x:   v.dot(e1) * ct.e1RecipSq,
			y:   v.dot(e2) * ct.e2RecipSq,
			pen: i,
		})
	}
	sort.Slice(ct.entries, func(i, j int) bool { return ct.entries[i].x < ct.entries[j].x })

	return ct
}

func (ct *ColorTable) project(c color.Color) (x, y float64) {
	v := colorToVec3(c).sub(ct.mean)
	return v.dot(ct.e1) * ct.e1RecipSq, v.dot(ct.e2) * ct.e2RecipSq
}

// Nearest returns the pen index of the palette entry closest to c in actual
// RGB space, using the PCA projection as a cheap pre-filter: binary search
// for c's projected x, then scan both directions while (entry.x-vx)^2 stays
// below the current best squared error.
func (ct *ColorTable) Nearest(c color.Color) int {
	if len(ct.entries) == 0 {
		return IndexTransparent
	}
	vx, vy := ct.project(c)

	i := sort.Search(len(ct.entries), func(i int) bool { return ct.entries[i].x >= vx })
	if i >= len(ct.entries) {
		i = len(ct.entries) - 1
	}

	best := ct.entries[i].pen
	bestErr := color.DiffFast(ct.palette.Entries[best].RGB, c)
	_ = vy // the secondary y bound is a cheap pre-filter only; RGB diff is authoritative

	scan := func(idx int) {
		e := color.DiffFast(ct.palette.Entries[ct.entries[idx].pen].RGB, c)
		if e < bestErr {
			bestErr = e
			best = ct.entries[idx].pen
		}
	}

	for lo := i - 1; lo >= 0; lo-- {
		dx := ct.entries[lo].x - vx
		if dx*dx > float64(bestErr) {
			break
		}
		scan(lo)
	}
	for hi := i + 1; hi < len(ct.entries); hi++ {
		dx := ct.entries[hi].x - vx
		if dx*dx > float64(bestErr) {
			break
		}
		scan(hi)
	}

	return best
}
