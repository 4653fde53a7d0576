// Package minima marks the regional minima (and maxima) of a volume: maximal
// 26-connected plateaus of equal intensity with no strictly lower neighbor.
package minima

import (
	"github.com/pkg/errors"

	"watershed3d/internal/models"
	"watershed3d/pkg/filter"
	"watershed3d/pkg/parallel"
	"watershed3d/pkg/volume"
)

// DetectRegionalMinima returns a binary grid holding 1 for every voxel of a
// regional minimum and 0 elsewhere. Voxels with intensity <= 0 are never
// used as flood seeds, so they stay marked. With a mask, out-of-mask voxels
// are 0 and plateaus only connect through in-mask pairs.
func DetectRegionalMinima(g *volume.Grid, mask *volume.Mask, opts parallel.Options) (*volume.Grid, error) {
	filtered, err := filter.MinFilter3D(g, mask, opts)
	if err != nil {
		return nil, errors.Wrap(err, "minimum filter")
	}
	return DetectWithFiltered(g, filtered, mask, opts)
}

// DetectRegionalMinimaMasked is DetectRegionalMinima with a mandatory mask.
func DetectRegionalMinimaMasked(g *volume.Grid, mask *volume.Mask, opts parallel.Options) (*volume.Grid, error) {
	if err := volume.RequireMask(g.Shape, mask); err != nil {
		return nil, err
	}
	return DetectRegionalMinima(g, mask, opts)
}

// DetectRegionalMaxima marks regional maxima. Unlike the minima detector,
// every plateau is considered regardless of its sign.
func DetectRegionalMaxima(g *volume.Grid, mask *volume.Mask, opts parallel.Options) (*volume.Grid, error) {
	return DetectExtrema(g, mask, opts, true, true)
}

// DetectExtrema is the general form behind the minima and maxima detectors.
// maxima selects the dual filter; considerAll lifts the rule that
// non-positive voxels are never seeds.
func DetectExtrema(g *volume.Grid, mask *volume.Mask, opts parallel.Options, maxima, considerAll bool) (*volume.Grid, error) {
	var (
		filtered *volume.Grid
		err      error
	)
	if maxima {
		filtered, err = filter.MaxFilter3D(g, mask, opts)
	} else {
		filtered, err = filter.MinFilter3D(g, mask, opts)
	}
	if err != nil {
		return nil, errors.Wrap(err, "rank filter")
	}
	return detect(g, filtered, mask, opts, considerAll, maxima)
}

// DetectWithFiltered runs the plateau flooding against a precomputed
// minimum-filtered grid.
func DetectWithFiltered(g, filtered *volume.Grid, mask *volume.Mask, opts parallel.Options) (*volume.Grid, error) {
	return detect(g, filtered, mask, opts, false, false)
}

func detect(g, filtered *volume.Grid, mask *volume.Mask, opts parallel.Options, considerAll, maxima bool) (*volume.Grid, error) {
	if err := volume.CheckSameShape(g.Shape, filtered.Shape); err != nil {
		return nil, err
	}
	if err := volume.CheckMask(g.Shape, mask); err != nil {
		return nil, err
	}

	if maxima {
		opts.Sink().ReportStatus("Finding regional maxima...")
	} else {
		opts.Sink().ReportStatus("Finding regional minima...")
	}

	out := volume.NewGridLike(g.Shape)
	for i := range out.Data {
		if mask.At(i) {
			out.Data[i] = 1
		}
	}

	f := &flooder{g: g, mask: mask, out: out}
	slabs := parallel.Partition(g.Depth, opts.NumWorkers())
	err := parallel.Run(g.Depth, opts, func(s models.Slab) error {
		f.floodSlab(filtered, s, considerAll)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// plateaus straddling slab boundaries were only cleared on one side
	if len(slabs) > 1 {
		f.stitch(slabs)
	}
	return out, nil
}

type flooder struct {
	g    *volume.Grid
	mask *volume.Mask
	out  *volume.Grid
}

// floodSlab clears every non-minimum plateau reachable inside s.
func (f *flooder) floodSlab(filtered *volume.Grid, s models.Slab, considerAll bool) {
	g := f.g
	var queue []int
	for z := s.Start; z < s.End; z++ {
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				i := g.Index(x, y, z)
				v := g.Data[i]
				if f.out.Data[i] == 0 || !f.mask.At(i) || v == filtered.Data[i] {
					continue
				}
				if v <= 0 && !considerAll {
					continue
				}
				f.out.Data[i] = 0
				queue = f.flood(append(queue[:0], i), &s)
			}
		}
	}
}

// stitch continues the flood across slab boundaries from every cleared
// voxel lying on a boundary plane.
func (f *flooder) stitch(slabs []models.Slab) {
	g := f.g
	var queue []int
	for _, s := range slabs[1:] {
		for _, z := range []int{s.Start - 1, s.Start} {
			for y := 0; y < g.Height; y++ {
				for x := 0; x < g.Width; x++ {
					i := g.Index(x, y, z)
					if f.out.Data[i] == 0 && f.mask.At(i) {
						queue = append(queue, i)
					}
				}
			}
		}
	}
	f.flood(queue, nil)
}

// flood clears every marked voxel 26-connected to the queued voxels through
// equal intensities. A non-nil slab confines writes to its planes.
func (f *flooder) flood(queue []int, s *models.Slab) []int {
	g := f.g
	for head := 0; head < len(queue); head++ {
		p := queue[head]
		value := g.Data[p]
		x, y, z := g.Coords(p)
		for _, o := range volume.Neighbors26 {
			if s != nil && !s.Contains(z+o.DZ) {
				continue
			}
			n, ok := g.Neighbor(x, y, z, o)
			if !ok || f.out.Data[n] == 0 || !f.mask.At(n) || g.Data[n] != value {
				continue
			}
			f.out.Data[n] = 0
			queue = append(queue, n)
		}
	}
	return queue
}
