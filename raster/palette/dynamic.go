package palette

import (
	"container/heap"
	"log/slog"

	"github.com/tinyland/rastertext/raster/color"
)

// targetSamples maps a quality knob in [0, 1] to a target sample count,
// interpolating between 2^14 and 2^26 samples and 3-5 bits per channel of
// histogram resolution, per spec §4.3 step 1.
func targetSamples(quality float64) int {
	if quality < 0 {
		quality = 0
	}
	if quality > 1 {
		quality = 1
	}
	const lo, hi = 14.0, 26.0
	bits := lo + quality*(hi-lo)
	return 1 << uint(bits+0.5)
}

func bitsPerChannel(quality float64) int {
	if quality < 0 {
		quality = 0
	}
	if quality > 1 {
		quality = 1
	}
	b := 3 + int(quality*2+0.5)
	if b > 5 {
		b = 5
	}
	return b
}

// bin is one 3D RGB histogram bucket: an accumulated mean color and sample
// count, plus the doubly linked PNN merge-queue bookkeeping.
type bin struct {
	sum   color.Accum
	count int

	mean color.Color

	// doubly linked list over all live bins, in original histogram order
	prev, next int // bin index, or -1

	nearest   int // index of the cheapest bin to merge with
	mergeCost float64
	alive     bool
	heapIdx   int
}

// quantizeWeights returns per-channel weights used in the merge-cost metric.
// w = min(0.9, n_colors/n_bins); below 0.03 the weights relax to (1,1,1).
func quantizeWeights(nColors, nBins int) (wr, wg, wb float64) {
	w := float64(nColors) / float64(nBins)
	if w > 0.9 {
		w = 0.9
	}
	if w < 0.03 {
		return 1, 1, 1
	}
	return 0.299, 0.587, 0.114
}

func mergeCost(a, b *bin, wr, wg, wb float64) float64 {
	n1, n2 := float64(a.count), float64(b.count)
	dr := float64(a.mean.R) - float64(b.mean.R)
	dg := float64(a.mean.G) - float64(b.mean.G)
	db := float64(a.mean.B) - float64(b.mean.B)

	weighted := wr*dr*dr + wg*dg*dg + wb*db*db

	// Opponent-space chroma term: a cheap red-green / blue-yellow proxy that
	// penalizes merges crossing a hue boundary even when luma is close.
	oppRG := dr - dg
	oppBY := db - (dr+dg)/2
	opponent := 0.15 * (oppRG*oppRG + oppBY*oppBY)

	return (n1 * n2 / (n1 + n2)) * (weighted + opponent)
}

// binHeap is a min-heap over live bin indices ordered by mergeCost.
type binHeap struct {
	bins *[]bin
	idx  []int
}

func (h binHeap) Len() int { return len(h.idx) }
func (h binHeap) Less(i, j int) bool {
	return (*h.bins)[h.idx[i]].mergeCost < (*h.bins)[h.idx[j]].mergeCost
}
func (h binHeap) Swap(i, j int) {
	h.idx[i], h.idx[j] = h.idx[j], h.idx[i]
	(*h.bins)[h.idx[i]].heapIdx = i
	(*h.bins)[h.idx[j]].heapIdx = j
}
func (h *binHeap) Push(x any) {
	i := x.(int)
	(*h.bins)[i].heapIdx = len(h.idx)
	h.idx = append(h.idx, i)
}
func (h *binHeap) Pop() any {
	old := h.idx
	n := len(old)
	x := old[n-1]
	h.idx = old[:n-1]
	return x
}

// BuildDynamic256 builds a 256-color adaptive palette from pixels using
// pairwise-nearest-neighbor clustering (spec §4.3). pixels is a flat RGBA8
// buffer; alphaThreshold excludes near-transparent samples.
func BuildDynamic256(pixels []byte, nColors int, quality float64, alphaThreshold int, logger *slog.Logger) *Palette {
	if logger == nil {
		logger = slog.Default()
	}
	if nColors <= 0 {
		nColors = 255 // leave room for the reserved transparent pen
	}

	nPixels := len(pixels) / 4
	samples := targetSamples(quality)
	step := nPixels / samples
	if step < 1 {
		step = 1
	}

	bitsPerCh := bitsPerChannel(quality)
	nBins := 1 << uint(3*bitsPerCh)
	shift := 8 - bitsPerCh

	bins := make([]bin, nBins)
	for i := range bins {
		bins[i].prev, bins[i].next = -1, -1
	}

	collect := func(stepSize int) int {
		for i := range bins {
			bins[i] = bin{prev: -1, next: -1}
		}
		n := 0
		for i := 0; i < nPixels; i += stepSize {
			off := i * 4
			a := pixels[off+3]
			if int(a) < alphaThreshold {
				continue
			}
			r, g, b := pixels[off], pixels[off+1], pixels[off+2]
			idx := (int(r)>>uint(shift))<<uint(2*bitsPerCh) | (int(g)>>uint(shift))<<uint(bitsPerCh) | (int(b) >> uint(shift))
			bins[idx].sum.Add(color.Color{R: r, G: g, B: b, A: a})
			bins[idx].count++
			n++
		}
		return n
	}

	survived := collect(step)
	if survived < nColors {
		survived = collect(1)
		if survived == 0 {
			logger.Warn("palette: no opaque samples found, returning empty dynamic palette")
			p := newBase(ModeDynamic256)
			p.finishDIN99d()
			p.Table = BuildColorTable(p)
			return p
		}
	}

	// Build the live doubly linked list in bin order, and compute means.
	live := make([]int, 0, nBins)
	for i := range bins {
		if bins[i].count == 0 {
			continue
		}
		bins[i].mean = bins[i].sum.DivScalar(bins[i].count)
		bins[i].alive = true
		live = append(live, i)
	}
	for k, i := range live {
		if k > 0 {
			bins[i].prev = live[k-1]
		}
		if k < len(live)-1 {
			bins[i].next = live[k+1]
		}
	}

	wr, wg, wb := quantizeWeights(nColors, len(live))

	recomputeNearest := func(i int) {
		best := -1
		bestCost := 0.0
		for j := bins[i].next; j != -1; j = bins[j].next {
			c := mergeCost(&bins[i], &bins[j], wr, wg, wb)
			if best == -1 || c < bestCost {
				best, bestCost = j, c
			}
		}
		// Also consider predecessors, since the list is a simple chain and
		// merge candidates are not restricted to forward neighbors.
		for j := bins[i].prev; j != -1; j = bins[j].prev {
			c := mergeCost(&bins[i], &bins[j], wr, wg, wb)
			if best == -1 || c < bestCost {
				best, bestCost = j, c
			}
		}
		bins[i].nearest = best
		if best != -1 {
			bins[i].mergeCost = bestCost
		} else {
			bins[i].mergeCost = 1e18
		}
	}

	for _, i := range live {
		recomputeNearest(i)
	}

	h := &binHeap{bins: &bins}
	for _, i := range live {
		heap.Push(h, i)
	}

	liveCount := len(live)
	for liveCount > nColors {
		top := heap.Pop(h).(int)
		if !bins[top].alive {
			continue
		}
		nn := bins[top].nearest
		if nn == -1 || !bins[nn].alive {
			recomputeNearest(top)
			if bins[top].nearest != -1 {
				heap.Push(h, top)
			}
			continue
		}

		// Merge nn into top: the survivor's mean becomes the count-weighted
		// average of both bins' means (spec §4.3 step 5).
		totalCount := bins[top].count + bins[nn].count
		weightedMean := func(a, b uint8, na, nb int) uint8 {
			return uint8((int(a)*na + int(b)*nb) / (na + nb))
		}
		bins[top].mean = color.Color{
			R: weightedMean(bins[top].mean.R, bins[nn].mean.R, bins[top].count, bins[nn].count),
			G: weightedMean(bins[top].mean.G, bins[nn].mean.G, bins[top].count, bins[nn].count),
			B: weightedMean(bins[top].mean.B, bins[nn].mean.B, bins[top].count, bins[nn].count),
			A: weightedMean(bins[top].mean.A, bins[nn].mean.A, bins[top].count, bins[nn].count),
		}
		bins[top].count = totalCount

		// Splice nn out of the linked list.
		bins[nn].alive = false
		if bins[nn].prev != -1 {
			bins[bins[nn].prev].next = bins[nn].next
		}
		if bins[nn].next != -1 {
			bins[bins[nn].next].prev = bins[nn].prev
		}

		liveCount--
		recomputeNearest(top)
		heap.Push(h, top)
	}

	// Collect surviving means.
	var result []color.Color
	for i := range bins {
		if bins[i].alive {
			result = append(result, bins[i].mean)
		}
	}

	// Clean-up pass: drop near-duplicates (distance < 2 in sixel-quantized
	// units, i.e. channels scaled to 0..100), then cap the list at nColors.
	result = dropNearDuplicates(result, nColors)

	p := newBase(ModeDynamic256)
	p.Entries[IndexTransparent] = Entry{RGB: color.Color{}}
	idx := 0
	for _, c := range result {
		if idx >= 255 {
			break
		}
		p.Entries[idx] = Entry{RGB: c}
		idx++
	}
	p.Count = idx
	p.finishDIN99d()
	p.Table = BuildColorTable(p)
	return p
}

func sixelQuantize(v uint8) int {
	return (int(v) * 100) / 255
}

func dropNearDuplicates(colors []color.Color, maxCount int) []color.Color {
	out := make([]color.Color, 0, len(colors))
	for _, c := range colors {
		dup := false
		for _, existing := range out {
			dr := sixelQuantize(c.R) - sixelQuantize(existing.R)
			dg := sixelQuantize(c.G) - sixelQuantize(existing.G)
			db := sixelQuantize(c.B) - sixelQuantize(existing.B)
			if dr*dr+dg*dg+db*db < 4 {
				dup = true
				break
			}
		}
		if !dup || len(out) < maxCount {
			if !dup {
				out = append(out, c)
			}
		}
	}
	if len(out) > maxCount {
		out = out[:maxCount]
	}
	return out
}
