// Package batch implements the row-range work scheduler used by the pixel
// preprocessor, cell analyzer and sixel encoder to parallelize per-row work
// across a bounded worker pool, with a post-pass that runs in deterministic
// batch order.
package batch

import (
	"sync"
	"sync/atomic"
)

// globalBudget is the process-wide thread budget: the total number of
// worker goroutines any concurrent Run call may reserve at once, preventing
// thread explosion when multiple callers each request their own pool.
var globalBudget int64 = int64(maxThreads())

func maxThreads() int {
	// A conservative fixed ceiling; a real deployment would derive this from
	// runtime.NumCPU(), but a fixed value keeps scheduling deterministic for
	// testing.
	return 8
}

// Range is one batch's row span [Start, End).
type Range struct {
	Start, End int
}

// WorkFunc processes one batch's row range.
type WorkFunc func(r Range)

// PostFunc runs after all batches complete, once per batch, in batch order.
type PostFunc func(r Range)

// Run splits [0, nRows) into batches sized to a multiple of batchUnit rows
// (except possibly the last), reserves a thread budget via geometric
// backoff against the global counter, executes work per batch in a pool,
// then invokes post for every batch in order on the calling goroutine.
// nBatches is a hint for the desired parallelism; Run may use fewer.
func Run(nRows, nBatches, batchUnit int, work WorkFunc, post PostFunc) {
	ranges := splitRanges(nRows, nBatches, batchUnit)
	if len(ranges) == 0 {
		return
	}

	threads := reserveThreads(len(ranges))
	defer atomic.AddInt64(&globalBudget, int64(threads))

	if threads <= 1 {
		for _, r := range ranges {
			work(r)
		}
	} else {
		var wg sync.WaitGroup
		sem := make(chan struct{}, threads)
		for _, r := range ranges {
			wg.Add(1)
			sem <- struct{}{}
			go func(r Range) {
				defer wg.Done()
				defer func() { <-sem }()
				work(r)
			}(r)
		}
		wg.Wait()
	}

	if post != nil {
		for _, r := range ranges {
			post(r)
		}
	}
}

// splitRanges divides nRows into up to nBatches ranges, each a multiple of
// batchUnit rows except possibly the last.
func splitRanges(nRows, nBatches, batchUnit int) []Range {
	if nRows <= 0 {
		return nil
	}
	if batchUnit < 1 {
		batchUnit = 1
	}
	if nBatches < 1 {
		nBatches = 1
	}

	units := (nRows + batchUnit - 1) / batchUnit
	if nBatches > units {
		nBatches = units
	}
	unitsPerBatch := (units + nBatches - 1) / nBatches

	var ranges []Range
	row := 0
	for row < nRows {
		end := row + unitsPerBatch*batchUnit
		if end > nRows {
			end = nRows
		}
		ranges = append(ranges, Range{Start: row, End: end})
		row = end
	}
	return ranges
}

// reserveThreads reserves up to want threads from the global budget,
// halving the request until it fits (or reaches 1), per spec §4.13's
// geometric-backoff allocation policy.
func reserveThreads(want int) int {
	for want > 1 {
		if atomic.AddInt64(&globalBudget, -int64(want)) >= 0 {
			return want
		}
		atomic.AddInt64(&globalBudget, int64(want))
		want /= 2
	}
	atomic.AddInt64(&globalBudget, -1)
	return 1
}
