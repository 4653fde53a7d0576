// Package parallel splits a volume along z into contiguous slabs and runs one
// worker per slab, with a barrier at the end of every phase.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"watershed3d/internal/models"
	"watershed3d/pkg/progress"
)

// Options configures a parallel phase.
type Options struct {
	// Workers is the number of slabs/goroutines; <= 0 means runtime.NumCPU()
	Workers int

	// Progress receives per-slab completion reports; nil discards them
	Progress progress.Sink
}

// NumWorkers resolves the effective worker count.
func (o Options) NumWorkers() int {
	if o.Workers <= 0 {
		return runtime.NumCPU()
	}
	return o.Workers
}

// Sink returns the configured progress sink or progress.Nop.
func (o Options) Sink() progress.Sink {
	return progress.OrNop(o.Progress)
}

// Partition divides depth planes into at most workers contiguous slabs of
// ceil(depth/workers) planes each. Empty slabs are not returned.
func Partition(depth, workers int) []models.Slab {
	if workers < 1 {
		workers = 1
	}
	if depth <= 0 {
		return nil
	}
	perWorker := (depth + workers - 1) / workers

	slabs := make([]models.Slab, 0, workers)
	for start := 0; start < depth; start += perWorker {
		end := start + perWorker
		if end > depth {
			end = depth
		}
		slabs = append(slabs, models.Slab{Index: len(slabs), Start: start, End: end})
	}
	return slabs
}

// Run executes fn once per slab of the depth planes and waits for all of
// them. The first error returned by any slab is returned after every worker
// has finished. Progress is reported in planes.
func Run(depth int, opts Options, fn func(s models.Slab) error) error {
	slabs := Partition(depth, opts.NumWorkers())
	counter := progress.NewCounter(opts.Sink(), depth)

	var g errgroup.Group
	g.SetLimit(len(slabs))
	for _, s := range slabs {
		g.Go(func() error {
			if err := fn(s); err != nil {
				return err
			}
			counter.Add(s.Planes())
			return nil
		})
	}
	return g.Wait()
}
