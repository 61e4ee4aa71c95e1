// Package parallel runs data parallel tasks on a fixed size worker pool.
package parallel

import (
	"sync"
	"sync/atomic"

	"github.com/unixpickle/essentials"
)

// ForEach runs task i for every i in [0, n) on at most workers goroutines and
// returns once all tasks finished. newWorker is called once per goroutine and
// returns the task function bound to that goroutine's scratch state, which is
// dropped when the goroutine ends.
//
// After a failure tasks with a higher index than the failed one are skipped.
// Lower tasks still run, so the returned error is the one of the lowest failing
// task index regardless of scheduling.
func ForEach(workers, n int, newWorker func() func(i int) error) error {
	if n <= 0 {
		return nil
	}
	var (
		firstID atomic.Int64
		mu      sync.Mutex
		first   error
	)
	firstID.Store(int64(n))
	essentials.StatefulConcurrentMap(workers, n, func() func(i int) {
		task := newWorker()
		return func(i int) {
			if int64(i) > firstID.Load() {
				return
			}
			if err := task(i); err != nil {
				mu.Lock()
				if int64(i) < firstID.Load() {
					firstID.Store(int64(i))
					first = err
				}
				mu.Unlock()
			}
		}
	})
	return first
}

// Map is ForEach for tasks without per worker state.
func Map(workers, n int, task func(i int) error) error {
	return ForEach(workers, n, func() func(int) error { return task })
}

// Split1D splits [0, n) into parts contiguous ranges. Sizes differ by at most one
// and the remainder is spread over the first ranges. Ranges may be empty when parts > n.
func Split1D(n, parts int) [][2]int {
	if parts <= 0 {
		parts = 1
	}
	out := make([][2]int, parts)
	size, rem := n/parts, n%parts
	for p := range out {
		var startAdd, endAdd int
		if rem != 0 {
			if p+1 > rem {
				startAdd = rem
			} else {
				startAdd, endAdd = p, 1
			}
		}
		out[p][0] = p*size + startAdd
		out[p][1] = out[p][0] + size + endAdd
	}
	return out
}
