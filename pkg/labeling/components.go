// Package labeling assigns dense component ids to the foreground of a binary
// volume with a two-pass union-find scan.
package labeling

import (
	"github.com/pkg/errors"

	"watershed3d/internal/models"
	"watershed3d/pkg/parallel"
	"watershed3d/pkg/volume"
)

// Connectivity selects the neighbor relation between foreground voxels.
type Connectivity int

const (
	// Connectivity26 connects voxels sharing a face, an edge or a corner.
	Connectivity26 Connectivity = 26
	// Connectivity6 connects voxels sharing a face only.
	Connectivity6 Connectivity = 6
)

// Options configures LabelConnectedComponents.
type Options struct {
	parallel.Options

	// Connectivity defaults to Connectivity26
	Connectivity Connectivity
}

func (o Options) predecessors() ([]volume.Offset, error) {
	switch o.Connectivity {
	case 0, Connectivity26:
		return volume.Backward13, nil
	case Connectivity6:
		return volume.Backward3, nil
	}
	return nil, errors.Errorf("labeling: unsupported connectivity %d", o.Connectivity)
}

// LabelConnectedComponents labels every nonzero voxel of bin with the id of
// its connected component. Ids are dense in 1..numLabels and ordered by the
// first voxel of each component in raster order (z outermost), so the
// result does not depend on the worker count.
func LabelConnectedComponents(bin *volume.Grid, opts Options) (*volume.LabelGrid, int, error) {
	preds, err := opts.predecessors()
	if err != nil {
		return nil, 0, err
	}
	sink := opts.Sink()
	sink.ReportStatus("Calculating connected components...")

	out := volume.NewLabelGrid(bin.Shape)
	slabs := parallel.Partition(bin.Depth, opts.NumWorkers())
	tables := make([]*DisjointSet, len(slabs))

	// first pass: provisional labels, one equivalence table per slab
	err = parallel.Run(bin.Depth, opts.Options, func(s models.Slab) error {
		tables[s.Index] = scanSlab(bin, out, s, preds)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	global := NewDisjointSet(0)
	offsets := make([]uint32, len(slabs))
	for k, table := range tables {
		offsets[k] = global.Merge(table)
	}
	for k, s := range slabs[1:] {
		joinBoundary(out, global, s, offsets[k], offsets[k+1], preds)
	}

	// second pass: dense renumbering
	table, numLabels := global.Compact()
	err = parallel.Run(bin.Depth, opts.Options, func(s models.Slab) error {
		offset := offsets[s.Index]
		lo, hi := out.Index(0, 0, s.Start), out.Index(0, 0, s.End)
		for i := lo; i < hi; i++ {
			if l := out.Data[i]; l != 0 {
				out.Data[i] = table[l+offset]
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, numLabels, nil
}

// scanSlab runs the first pass inside s with slab-local ids. Predecessors in
// the previous slab are left to joinBoundary.
func scanSlab(bin *volume.Grid, out *volume.LabelGrid, s models.Slab, preds []volume.Offset) *DisjointSet {
	table := NewDisjointSet(64)
	roots := make([]uint32, 0, len(preds))

	for z := s.Start; z < s.End; z++ {
		for y := 0; y < bin.Height; y++ {
			for x := 0; x < bin.Width; x++ {
				i := bin.Index(x, y, z)
				if bin.Data[i] == 0 {
					continue
				}

				roots = roots[:0]
				for _, o := range preds {
					if !s.Contains(z + o.DZ) {
						continue
					}
					n, ok := bin.Neighbor(x, y, z, o)
					if !ok || out.Data[n] == 0 {
						continue
					}
					roots = appendUnique(roots, table.Find(out.Data[n]))
				}

				switch len(roots) {
				case 0:
					out.Data[i] = table.MakeSet()
				case 1:
					out.Data[i] = roots[0]
				default:
					out.Data[i] = table.Equivalence(roots...)
				}
			}
		}
	}
	return table
}

// joinBoundary unions components that touch across the plane between the
// slab before s and s itself.
func joinBoundary(out *volume.LabelGrid, global *DisjointSet, s models.Slab, prevOffset, offset uint32, preds []volume.Offset) {
	z := s.Start
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			l := out.Data[out.Index(x, y, z)]
			if l == 0 {
				continue
			}
			for _, o := range preds {
				if o.DZ != -1 {
					continue
				}
				n, ok := out.Neighbor(x, y, z, o)
				if !ok || out.Data[n] == 0 {
					continue
				}
				global.Union(l+offset, out.Data[n]+prevOffset)
			}
		}
	}
}

func appendUnique(roots []uint32, r uint32) []uint32 {
	for _, v := range roots {
		if v == r {
			return roots
		}
	}
	return append(roots, r)
}
