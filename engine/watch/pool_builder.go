package watch

import (
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// PoolBuilderOption is a functional option applied to a pool during construction via NewPool.
type PoolBuilderOption func(*pool)

// WithWorkerPool stats entries concurrently on workers goroutines, handing entries out
// round-robin. Values below 2 keep stats on the polling goroutine.
//
// Parameters:
//   - workers: the maximum number of stat goroutines
//
// Returns:
//   - PoolBuilderOption: a function that applies the worker pool to a pool
func WithWorkerPool(workers int) PoolBuilderOption {
	return func(p *pool) {
		p.lanes = nil
		if workers < 2 {
			return
		}
		for range workers {
			p.lanes = append(p.lanes, worker.NewDynamicWorkerPool(1, 256, 1*time.Second))
		}
	}
}

// WithStatFunc replaces the os.Stat based modification time lookup.
func WithStatFunc(stat func(path string) (time.Time, error)) PoolBuilderOption {
	return func(p *pool) {
		p.stat = stat
	}
}
