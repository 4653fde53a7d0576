// Package watershed grows seed labels over an intensity volume by simulated
// flooding from low to high intensity.
package watershed

import (
	"container/heap"
	"slices"

	"github.com/pkg/errors"

	"watershed3d/internal/models"
	"watershed3d/pkg/parallel"
	"watershed3d/pkg/progress"
	"watershed3d/pkg/volume"
)

// Strategy selects the flooding algorithm.
type Strategy int

const (
	// StrategyPriorityQueue floods with heaps keyed by (intensity, index),
	// one heap per sweep round, and assigns the same labels as StrategySweep.
	StrategyPriorityQueue Strategy = iota
	// StrategySweep sorts every unlabeled voxel once and sweeps the sorted
	// list until a sweep assigns nothing.
	StrategySweep
)

// String returns the config name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyPriorityQueue:
		return "queue"
	case StrategySweep:
		return "sweep"
	}
	return "unknown"
}

// ParseStrategy maps a config name back to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "", "queue":
		return StrategyPriorityQueue, nil
	case "sweep":
		return StrategySweep, nil
	}
	return 0, errors.Errorf("watershed: unknown strategy %q", name)
}

// Options configures Flood.
type Options struct {
	parallel.Options

	Strategy Strategy

	// MaxSweeps bounds StrategySweep; 0 means one more than the voxel count
	MaxSweeps int
}

// Flood labels every in-domain voxel reachable from a seed through a path
// of non-decreasing intensity. A voxel takes the label of the labeled
// neighbor with the lowest intensity not above its own, ties going to the
// lowest flattened index. Seeds outside the mask are dropped and
// unreachable voxels stay 0. The inputs are not modified.
func Flood(intensity *volume.Grid, seeds *volume.LabelGrid, mask *volume.Mask, opts Options) (*volume.LabelGrid, error) {
	if err := volume.CheckSameShape(intensity.Shape, seeds.Shape); err != nil {
		return nil, errors.Wrap(err, "seeds")
	}
	if err := volume.CheckMask(intensity.Shape, mask); err != nil {
		return nil, errors.Wrap(err, "mask")
	}

	f := &flooder{
		in:   intensity,
		mask: mask,
		out:  volume.NewLabelGrid(intensity.Shape),
		sink: opts.Sink(),
	}
	for i, l := range seeds.Data {
		if l != 0 && mask.At(i) {
			f.out.Data[i] = l
		}
	}

	var err error
	switch opts.Strategy {
	case StrategyPriorityQueue:
		f.floodQueue()
	case StrategySweep:
		err = f.floodSweep(opts)
	default:
		err = errors.Errorf("watershed: unknown strategy %d", opts.Strategy)
	}
	if err != nil {
		return nil, err
	}
	f.sink.ReportStatus("Done")
	return f.out, nil
}

type flooder struct {
	in   *volume.Grid
	mask *volume.Mask
	out  *volume.LabelGrid
	sink progress.Sink
}

// choose returns the label a voxel at (x, y, z) with intensity v takes from
// its current neighbors, or 0 if no neighbor qualifies.
func (f *flooder) choose(x, y, z int, v float64) uint32 {
	var (
		label uint32
		bestV float64
		bestN = -1
	)
	for _, o := range volume.Neighbors26 {
		n, ok := f.in.Neighbor(x, y, z, o)
		if !ok || f.out.Data[n] == 0 {
			continue
		}
		nv := f.in.Data[n]
		if nv > v {
			continue
		}
		if bestN < 0 || nv < bestV || (nv == bestV && n < bestN) {
			label, bestV, bestN = f.out.Data[n], nv, n
		}
	}
	return label
}

// floodQueue assigns the same labels as floodSweep without rescanning the
// sorted list. Each round pops voxels in (value, index) order, exactly like
// one sweep. A voxel released by a neighbor that sorts after it has already
// been passed by that sweep, so it waits for the next round.
func (f *flooder) floodQueue() {
	f.sink.ReportStatus("Flooding...")
	in, out := f.in, f.out
	queuedFor := make([]int, len(in.Data))
	var cur, next voxelHeap
	round := 1

	release := func(p entry, seeded bool) {
		x, y, z := in.Coords(p.index)
		for _, o := range volume.Neighbors26 {
			n, ok := in.Neighbor(x, y, z, o)
			if !ok || out.Data[n] != 0 || !f.mask.At(n) || in.Data[n] < p.value {
				continue
			}
			e := entry{value: in.Data[n], index: n}
			target, h := round, &cur
			if !seeded && e.before(p) {
				target, h = round+1, &next
			}
			if queuedFor[n] >= target {
				continue
			}
			queuedFor[n] = target
			heap.Push(h, e)
		}
	}

	// seeds are labeled before the first sweep starts
	for i, l := range out.Data {
		if l != 0 {
			release(entry{value: in.Data[i], index: i}, true)
		}
	}

	counter := progress.NewCounter(f.sink, len(in.Data))
	done := 0
	for ; cur.Len() > 0; round++ {
		for cur.Len() > 0 {
			e := heap.Pop(&cur).(entry)
			x, y, z := in.Coords(e.index)
			out.Data[e.index] = f.choose(x, y, z, e.value)
			release(e, false)

			if done++; done%4096 == 0 {
				counter.Add(4096)
			}
		}
		cur, next = next, cur[:0]
	}
	// voxels never popped are unreachable and settled as well
	f.sink.ReportProgress(len(in.Data), len(in.Data))
}

func (f *flooder) floodSweep(opts Options) error {
	f.sink.ReportStatus("Sorting...")
	records, err := f.pending(opts.Options)
	if err != nil {
		return err
	}

	maxSweeps := opts.MaxSweeps
	if maxSweeps <= 0 {
		maxSweeps = len(f.in.Data) + 1
	}

	f.sink.ReportStatus("Flooding...")
	total := len(records)
	for sweep := 1; len(records) > 0; sweep++ {
		if sweep > maxSweeps {
			return errors.Wrapf(volume.ErrNotConverged, "watershed: %d voxels unresolved after %d sweeps", len(records), maxSweeps)
		}
		// records are compacted in place; writes never overtake reads
		next := records[:0]
		for _, r := range records {
			if l := f.choose(r.X, r.Y, r.Z, r.Value); l != 0 {
				f.out.Data[r.Index] = l
			} else {
				next = append(next, r)
			}
		}
		if len(next) == len(records) {
			break
		}
		records = next
		f.sink.ReportProgress(total-len(records), total)
	}
	f.sink.ReportProgress(total, total)
	return nil
}

// pending collects the unlabeled in-domain voxels sorted by (value, index).
// Slabs are scanned in parallel and concatenated in z order.
func (f *flooder) pending(opts parallel.Options) ([]models.VoxelRecord, error) {
	in := f.in
	parts := make([][]models.VoxelRecord, len(parallel.Partition(in.Depth, opts.NumWorkers())))
	err := parallel.Run(in.Depth, opts, func(s models.Slab) error {
		var recs []models.VoxelRecord
		i := s.Start * in.PlaneLen()
		for z := s.Start; z < s.End; z++ {
			for y := 0; y < in.Height; y++ {
				for x := 0; x < in.Width; x++ {
					if f.out.Data[i] == 0 && f.mask.At(i) {
						recs = append(recs, models.VoxelRecord{X: x, Y: y, Z: z, Index: i, Value: in.Data[i]})
					}
					i++
				}
			}
		}
		parts[s.Index] = recs
		return nil
	})
	if err != nil {
		return nil, err
	}

	records := slices.Concat(parts...)
	slices.SortStableFunc(records, func(a, b models.VoxelRecord) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	return records, nil
}
