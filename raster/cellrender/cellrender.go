// Package cellrender implements the symbol-mode cell analyzer: for each
// terminal cell it picks the best-matching symbol glyph plus foreground and
// background colors, optionally snapped to a palette.
package cellrender

import (
	"github.com/tinyland/rastertext/raster/color"
	"github.com/tinyland/rastertext/raster/palette"
	"github.com/tinyland/rastertext/raster/symbols"
)

// GridW and GridH are the dimensions of the canonical coverage grid that
// each source cell window is resampled to.
const (
	GridW = 8
	GridH = 8
)

// fullBlockCodePoint is U+2588 FULL BLOCK, used as the solid-fill glyph for
// a perfectly flat cell (spec §4.6's "uniform window" special case): a flat
// window carries no shape information, so the candidate search (which ranks
// by Hamming distance to an all-background target) would otherwise prefer
// a blank glyph over the visually-equivalent, more common full block.
const fullBlockCodePoint = 0x2588

// Cell is the analyzer's output for one terminal cell: a code point plus
// foreground/background color, each already resolved to a palette pen
// (TrueColor mode stores the actual RGB in FG/BG and leaves the pen fields
// at their zero value).
type Cell struct {
	CodePoint    rune
	FG, BG       color.Color
	FGPen, BGPen int
	Wide         bool
	Continuation bool // true for the right-hand cell of a wide-glyph pair
}

// Extractor selects how a cell's coverage bitmap is thresholded.
type Extractor int

const (
	// ExtractorMedian thresholds on the dominant channel's median sample
	// (the default; tracks local contrast best).
	ExtractorMedian Extractor = iota
	// ExtractorAverage thresholds on the mean of all three channels,
	// cheaper and more stable on noisy or dithered input.
	ExtractorAverage
)

// Config controls one analyzer pass.
type Config struct {
	Map         *symbols.Map
	FillMap     *symbols.Map // optional; used when the primary map's best score is poor
	Palette     *palette.Palette
	TrueColor   bool
	AllowInvert bool
	CandidateK  int
	FillThreshold int // best candidate's squared error, summed over the 64 samples, above which the fill map is tried
	Extractor     Extractor
}

// extractCoverage rescales a cellW x cellH window of pixels (row-major RGBA8,
// stride rowStride bytes) to an 8x8 coverage bitmap, thresholding on the
// dominant channel's median value (spec §4.6 step 1).
func extractCoverage(pixels []byte, originX, originY, cellW, cellH, rowStride int) (bitmap uint64, samples []color.Color) {
	samples = make([]color.Color, GridW*GridH)
	for gy := 0; gy < GridH; gy++ {
		for gx := 0; gx < GridW; gx++ {
			sx := originX + gx*cellW/GridW
			sy := originY + gy*cellH/GridH
			off := sy*rowStride + sx*4
			samples[gy*GridW+gx] = color.FetchRGBA8(pixels[off : off+4])
		}
	}

	channel := dominantChannel(samples)
	threshold := medianChannel(samples, channel)

	for i, c := range samples {
		v := channelValue(c, channel)
		if v > threshold {
			bitmap |= 1 << uint(63-i)
		}
	}
	return bitmap, samples
}

// extractCoverageAverage is the simpler mean-of-channels threshold variant
// used by the "average" color extractor mode.
func extractCoverageAverage(samples []color.Color) uint64 {
	var sum int
	for _, c := range samples {
		sum += (int(c.R) + int(c.G) + int(c.B)) / 3
	}
	mean := sum / len(samples)

	var bitmap uint64
	for i, c := range samples {
		v := (int(c.R) + int(c.G) + int(c.B)) / 3
		if v > mean {
			bitmap |= 1 << uint(63-i)
		}
	}
	return bitmap
}

type channelID int

const (
	channelR channelID = iota
	channelG
	channelB
)

func channelValue(c color.Color, ch channelID) int {
	switch ch {
	case channelR:
		return int(c.R)
	case channelG:
		return int(c.G)
	default:
		return int(c.B)
	}
}

// dominantChannel picks the channel with the largest max-min range across
// samples.
func dominantChannel(samples []color.Color) channelID {
	var minR, maxR, minG, maxG, minB, maxB int = 255, 0, 255, 0, 255, 0
	for _, c := range samples {
		if int(c.R) < minR {
			minR = int(c.R)
		}
		if int(c.R) > maxR {
			maxR = int(c.R)
		}
		if int(c.G) < minG {
			minG = int(c.G)
		}
		if int(c.G) > maxG {
			maxG = int(c.G)
		}
		if int(c.B) < minB {
			minB = int(c.B)
		}
		if int(c.B) > maxB {
			maxB = int(c.B)
		}
	}
	rRange, gRange, bRange := maxR-minR, maxG-minG, maxB-minB
	if rRange >= gRange && rRange >= bRange {
		return channelR
	}
	if gRange >= bRange {
		return channelG
	}
	return channelB
}

func medianChannel(samples []color.Color, ch channelID) int {
	vals := make([]int, len(samples))
	for i, c := range samples {
		vals[i] = channelValue(c, ch)
	}
	// Simple insertion sort: GridW*GridH is fixed at 64, so O(n^2) is cheap
	// and avoids importing sort for a single small fixed-size array.
	for i := 1; i < len(vals); i++ {
		v := vals[i]
		j := i - 1
		for j >= 0 && vals[j] > v {
			vals[j+1] = vals[j]
			j--
		}
		vals[j+1] = v
	}
	mid := len(vals) / 2
	return (vals[mid-1] + vals[mid]) / 2
}

// meanFGBG computes the mean color of pixels where bitmap bit = 1 (FG) and
// bit = 0 (BG), both over samples (spec §4.6 step 3). fgEmpty or bgEmpty is
// true when that side has no pixels, signaling the caller to treat the cell
// as solid-color.
func meanFGBG(samples []color.Color, bitmap uint64) (fg, bg color.Color, fgEmpty, bgEmpty bool) {
	var fgAcc, bgAcc color.Accum
	fgCount, bgCount := 0, 0

	for i, c := range samples {
		if bitmap&(1<<uint(63-i)) != 0 {
			fgAcc.Add(c)
			fgCount++
		} else {
			bgAcc.Add(c)
			bgCount++
		}
	}

	if fgCount == 0 {
		fgEmpty = true
	} else {
		fg = fgAcc.DivScalar(fgCount)
	}
	if bgCount == 0 {
		bgEmpty = true
	} else {
		bg = bgAcc.DivScalar(bgCount)
	}
	return fg, bg, fgEmpty, bgEmpty
}

// scoreError is the summed per-pixel squared error between the original
// samples and the reconstruction symbol_bit ? fg : bg (spec §4.6 step 4).
func scoreError(samples []color.Color, bitmap uint64, fg, bg color.Color) int {
	total := 0
	for i, c := range samples {
		var ref color.Color
		if bitmap&(1<<uint(63-i)) != 0 {
			ref = fg
		} else {
			ref = bg
		}
		total += color.DiffFast(ref, c)
	}
	return total
}

// AnalyzeCell runs the full candidate search, scoring, and (optional)
// palette-snap pipeline for one cell window and returns the winning Cell.
func AnalyzeCell(pixels []byte, originX, originY, cellW, cellH, rowStride int, cfg Config) Cell {
	cell, _ := AnalyzeCellScored(pixels, originX, originY, cellW, cellH, rowStride, cfg)
	return cell
}

// AnalyzeCellScored is AnalyzeCell but also returns the winning candidate's
// error score, so a caller can decide whether pairing this cell with its
// neighbor into a wide glyph (AnalyzeWidePair) would do better.
func AnalyzeCellScored(pixels []byte, originX, originY, cellW, cellH, rowStride int, cfg Config) (Cell, int) {
	bitmap, samples := extractCoverage(pixels, originX, originY, cellW, cellH, rowStride)
	if cfg.Extractor == ExtractorAverage {
		bitmap = extractCoverageAverage(samples)
	}

	if flat, solid := uniform(samples); flat {
		cell := Cell{CodePoint: fullBlockCodePoint, FG: solid, BG: solid}
		if !cfg.TrueColor && cfg.Palette != nil {
			pen := cfg.Palette.Table.Nearest(solid)
			cell.FGPen, cell.BGPen = pen, pen
		}
		return cell, 0
	}

	k := cfg.CandidateK
	if k <= 0 {
		k = 8
	}
	candidates := cfg.Map.TopK(bitmap, k, cfg.AllowInvert)

	if len(candidates) == 0 {
		return Cell{CodePoint: ' '}, 1 << 30
	}

	bestScore := -1
	var best Cell

	for _, cand := range candidates {
		queryBitmap := cand.Symbol.Bitmap

		fg, bg, fgEmpty, bgEmpty := meanFGBG(samples, queryBitmap)
		if fgEmpty || bgEmpty {
			// Pure solid symbol: treat the whole cell as one flat color.
			solid := fg
			if fgEmpty {
				solid = bg
			}
			score := 0
			for _, c := range samples {
				score += color.DiffFast(solid, c)
			}
			if bestScore == -1 || score < bestScore {
				bestScore = score
				best = Cell{CodePoint: ' ', FG: solid, BG: solid}
				if !cfg.TrueColor && cfg.Palette != nil {
					pen := cfg.Palette.Table.Nearest(solid)
					best.FGPen, best.BGPen = pen, pen
				}
			}
			continue
		}

		score := scoreError(samples, queryBitmap, fg, bg)

		if !cfg.TrueColor && cfg.Palette != nil {
			fgPen := cfg.Palette.Table.Nearest(fg)
			bgPen := cfg.Palette.Table.Nearest(bg)
			snappedFG := cfg.Palette.Entries[fgPen].RGB
			snappedBG := cfg.Palette.Entries[bgPen].RGB
			score = scoreError(samples, queryBitmap, snappedFG, snappedBG)
			fg, bg = snappedFG, snappedBG

			if bestScore == -1 || score < bestScore {
				bestScore = score
				best = Cell{CodePoint: cand.Symbol.CodePoint, FG: fg, BG: bg, FGPen: fgPen, BGPen: bgPen}
			}
			continue
		}

		if bestScore == -1 || score < bestScore {
			bestScore = score
			best = Cell{CodePoint: cand.Symbol.CodePoint, FG: fg, BG: bg}
		}
	}

	if cfg.FillMap != nil && cfg.FillThreshold > 0 && bestScore > cfg.FillThreshold {
		fgFraction := popcount64(bitmap)
		if s, ok := cfg.FillMap.FillCandidate(fgFraction); ok {
			fg, bg, fgEmpty, bgEmpty := meanFGBG(samples, s.Bitmap)
			if !fgEmpty && !bgEmpty {
				fillCell := Cell{CodePoint: s.CodePoint, FG: fg, BG: bg}
				if !cfg.TrueColor && cfg.Palette != nil {
					fillCell.FGPen = cfg.Palette.Table.Nearest(fg)
					fillCell.BGPen = cfg.Palette.Table.Nearest(bg)
				}
				return fillCell, bestScore
			}
		}
	}

	return best, bestScore
}

// uniform reports whether every sample is exactly the same color, returning
// that color when true.
func uniform(samples []color.Color) (bool, color.Color) {
	first := samples[0]
	for _, c := range samples[1:] {
		if c != first {
			return false, color.Color{}
		}
	}
	return true, first
}

func popcount64(v uint64) int {
	n := 0
	for v != 0 {
		n += int(v & 1)
		v >>= 1
	}
	return n
}

// AnalyzeWidePair runs the analyzer over a 128-bit paired coverage bitmap
// for two adjacent cells and returns the winning left Cell (Wide=true) plus
// a matching continuation Cell for the right-hand slot, or (_, _, false) if
// no wide candidate beats the per-cell baseline score passed in as
// baselineScore.
func AnalyzeWidePair(pixels []byte, originX, originY, cellW, cellH, rowStride int, cfg Config, baselineScore int) (left, right Cell, ok bool) {
	bitmapL, samplesL := extractCoverage(pixels, originX, originY, cellW, cellH, rowStride)
	bitmapR, samplesR := extractCoverage(pixels, originX+cellW, originY, cellW, cellH, rowStride)

	k := cfg.CandidateK
	if k <= 0 {
		k = 8
	}
	candidates := cfg.Map.TopKWide(bitmapL, bitmapR, k)
	if len(candidates) == 0 {
		return Cell{}, Cell{}, false
	}

	combined := append(append([]color.Color{}, samplesL...), samplesR...)

	bestScore := -1
	var bestCand symbols.Candidate
	var bestFG, bestBG color.Color

	for _, cand := range candidates {
		fg, bg, fgEmpty, bgEmpty := meanFGBGWide(combined, cand.Symbol.Bitmap, cand.Symbol.WideBitmap)
		if fgEmpty || bgEmpty {
			continue
		}
		score := scoreErrorWide(combined, cand.Symbol.Bitmap, cand.Symbol.WideBitmap, fg, bg)
		if bestScore == -1 || score < bestScore {
			bestScore = score
			bestCand = cand
			bestFG, bestBG = fg, bg
		}
	}

	if bestScore == -1 || bestScore >= baselineScore {
		return Cell{}, Cell{}, false
	}

	fgPen, bgPen := 0, 0
	if !cfg.TrueColor && cfg.Palette != nil {
		fgPen = cfg.Palette.Table.Nearest(bestFG)
		bgPen = cfg.Palette.Table.Nearest(bestBG)
	}

	left = Cell{CodePoint: bestCand.Symbol.CodePoint, FG: bestFG, BG: bestBG, FGPen: fgPen, BGPen: bgPen, Wide: true}
	right = Cell{Continuation: true}
	return left, right, true
}

func meanFGBGWide(combined []color.Color, bitmapL, bitmapR uint64) (fg, bg color.Color, fgEmpty, bgEmpty bool) {
	var fgAcc, bgAcc color.Accum
	fgCount, bgCount := 0, 0
	for i, c := range combined {
		var bit uint64
		if i < 64 {
			bit = bitmapL & (1 << uint(63-i))
		} else {
			bit = bitmapR & (1 << uint(63-(i-64)))
		}
		if bit != 0 {
			fgAcc.Add(c)
			fgCount++
		} else {
			bgAcc.Add(c)
			bgCount++
		}
	}
	if fgCount == 0 {
		fgEmpty = true
	} else {
		fg = fgAcc.DivScalar(fgCount)
	}
	if bgCount == 0 {
		bgEmpty = true
	} else {
		bg = bgAcc.DivScalar(bgCount)
	}
	return
}

func scoreErrorWide(combined []color.Color, bitmapL, bitmapR uint64, fg, bg color.Color) int {
	total := 0
	for i, c := range combined {
		var bit uint64
		if i < 64 {
			bit = bitmapL & (1 << uint(63-i))
		} else {
			bit = bitmapR & (1 << uint(63-(i-64)))
		}
		ref := bg
		if bit != 0 {
			ref = fg
		}
		total += color.DiffFast(ref, c)
	}
	return total
}
