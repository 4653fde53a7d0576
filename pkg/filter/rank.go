// Package filter implements 3x3x3 rank filters over dense volumes.
package filter

import (
	"watershed3d/internal/models"
	"watershed3d/pkg/parallel"
	"watershed3d/pkg/volume"
)

// MinFilter3D replaces every voxel by the minimum over itself and its 26
// neighbors, clipped at the volume border. With a non-nil mask only pairs
// where both the center and the neighbor are in the mask contribute; an
// out-of-mask voxel keeps its own value.
func MinFilter3D(g *volume.Grid, mask *volume.Mask, opts parallel.Options) (*volume.Grid, error) {
	return rankFilter(g, mask, opts, "Minimum filter 3x3x3...", func(a, b float64) bool { return a < b })
}

// MinFilter3DMasked is MinFilter3D with a mandatory mask.
func MinFilter3DMasked(g *volume.Grid, mask *volume.Mask, opts parallel.Options) (*volume.Grid, error) {
	if err := volume.RequireMask(g.Shape, mask); err != nil {
		return nil, err
	}
	return MinFilter3D(g, mask, opts)
}

// MaxFilter3D is the dual of MinFilter3D.
func MaxFilter3D(g *volume.Grid, mask *volume.Mask, opts parallel.Options) (*volume.Grid, error) {
	return rankFilter(g, mask, opts, "Maximum filter 3x3x3...", func(a, b float64) bool { return a > b })
}

func rankFilter(g *volume.Grid, mask *volume.Mask, opts parallel.Options, status string, better func(a, b float64) bool) (*volume.Grid, error) {
	if err := volume.CheckMask(g.Shape, mask); err != nil {
		return nil, err
	}
	opts.Sink().ReportStatus(status)

	out := volume.NewGridLike(g.Shape)
	err := parallel.Run(g.Depth, opts, func(s models.Slab) error {
		filterSlab(g, mask, out, s, better)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// filterSlab writes only planes inside s; reads reach one plane beyond it.
func filterSlab(g *volume.Grid, mask *volume.Mask, out *volume.Grid, s models.Slab, better func(a, b float64) bool) {
	for z := s.Start; z < s.End; z++ {
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				i := g.Index(x, y, z)
				best := g.Data[i]
				if mask.At(i) {
					for _, o := range volume.Neighbors26 {
						n, ok := g.Neighbor(x, y, z, o)
						if !ok || !mask.At(n) {
							continue
						}
						if better(g.Data[n], best) {
							best = g.Data[n]
						}
					}
				}
				out.Data[i] = best
			}
		}
	}
}
