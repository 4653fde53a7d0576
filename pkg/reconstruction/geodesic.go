// Package reconstruction implements geodesic reconstruction of a marker
// volume under a mask volume, the fixpoint of constrained 26-neighborhood
// dilation (or erosion).
package reconstruction

import (
	"math"
	"slices"

	"github.com/pkg/errors"

	"watershed3d/pkg/minima"
	"watershed3d/pkg/parallel"
	"watershed3d/pkg/progress"
	"watershed3d/pkg/volume"
)

// Method selects how the fixpoint is reached.
type Method int

const (
	// MethodHybrid runs a forward and a backward raster pass, then finishes
	// with a FIFO propagation seeded by the backward pass.
	MethodHybrid Method = iota
	// MethodQueue skips the raster passes and seeds the FIFO with every voxel
	// near a non-maximal voxel of the marker.
	MethodQueue
)

// String returns the config name of the method.
func (m Method) String() string {
	switch m {
	case MethodHybrid:
		return "hybrid"
	case MethodQueue:
		return "queue"
	}
	return "unknown"
}

// ParseMethod maps a config name back to a Method.
func ParseMethod(name string) (Method, error) {
	switch name {
	case "", "hybrid":
		return MethodHybrid, nil
	case "queue":
		return MethodQueue, nil
	}
	return 0, errors.Errorf("reconstruction: unknown method %q", name)
}

// Options configures a reconstruction.
type Options struct {
	parallel.Options

	Method Method

	// MaxPops caps the number of queue pops; 0 derives the cap from the
	// input (see popLimit)
	MaxPops int
}

// popLimit bounds the propagation. Every raise lifts a voxel strictly, to a
// value taken from marker or mask, so no voxel is queued more than once per
// distinct value and the bound holds for any NaN-free input.
func popLimit(marker, mask *volume.Grid, queued int) int {
	values := make([]float64, 0, len(marker.Data)+len(mask.Data))
	values = append(values, marker.Data...)
	values = append(values, mask.Data...)
	slices.Sort(values)
	distinct := len(slices.Compact(values))

	voxels := len(marker.Data)
	if distinct > (math.MaxInt-queued)/voxels {
		return math.MaxInt
	}
	return queued + voxels*distinct
}

// ReconstructByDilation returns the reconstruction by dilation of marker
// under mask. The result satisfies marker <= out <= mask wherever
// marker <= mask holds; that precondition is not checked.
func ReconstructByDilation(marker, mask *volume.Grid, opts Options) (*volume.Grid, error) {
	if err := volume.CheckSameShape(marker.Shape, mask.Shape); err != nil {
		return nil, err
	}
	if err := marker.CheckNaN(); err != nil {
		return nil, errors.Wrap(err, "marker")
	}
	if err := mask.CheckNaN(); err != nil {
		return nil, errors.Wrap(err, "mask")
	}

	r := &reconstructor{
		out:  marker.Clone(),
		mask: mask,
		sink: opts.Sink(),
	}

	switch opts.Method {
	case MethodHybrid:
		r.forwardPass()
		r.backwardPass()
	case MethodQueue:
		if err := r.seedFromMaxima(marker, opts.Options); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("reconstruction: unknown method %d", opts.Method)
	}

	r.limit = opts.MaxPops
	if r.limit <= 0 {
		r.limit = popLimit(marker, mask, len(r.queue))
	}
	if err := r.propagate(); err != nil {
		return nil, err
	}
	r.sink.ReportStatus("Done")
	return r.out, nil
}

// ReconstructByErosion is the dual of ReconstructByDilation: marker >= out >= mask.
func ReconstructByErosion(marker, mask *volume.Grid, opts Options) (*volume.Grid, error) {
	out, err := ReconstructByDilation(marker.Negate(), mask.Negate(), opts)
	if err != nil {
		return nil, err
	}
	return out.Negate(), nil
}

type reconstructor struct {
	out   *volume.Grid
	mask  *volume.Grid
	sink  progress.Sink
	limit int

	queue []int
	head  int
}

func (r *reconstructor) forwardPass() {
	r.sink.ReportStatus("Forward pass...")
	out, mask := r.out, r.mask
	i := 0
	for z := 0; z < out.Depth; z++ {
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				m := out.Data[i]
				for _, o := range volume.Backward13 {
					if n, ok := out.Neighbor(x, y, z, o); ok && out.Data[n] > m {
						m = out.Data[n]
					}
				}
				out.Data[i] = min(m, mask.Data[i])
				i++
			}
		}
	}
}

// backwardPass mirrors forwardPass and queues every voxel that can still
// raise a forward neighbor.
func (r *reconstructor) backwardPass() {
	r.sink.ReportStatus("Backward pass...")
	out, mask := r.out, r.mask
	i := len(out.Data) - 1
	for z := out.Depth - 1; z >= 0; z-- {
		for y := out.Height - 1; y >= 0; y-- {
			for x := out.Width - 1; x >= 0; x-- {
				m := out.Data[i]
				for _, o := range volume.Forward13 {
					if n, ok := out.Neighbor(x, y, z, o); ok && out.Data[n] > m {
						m = out.Data[n]
					}
				}
				out.Data[i] = min(m, mask.Data[i])

				for _, o := range volume.Forward13 {
					n, ok := out.Neighbor(x, y, z, o)
					if ok && out.Data[n] < out.Data[i] && out.Data[n] < mask.Data[n] {
						r.queue = append(r.queue, i)
						break
					}
				}
				i--
			}
		}
	}
}

// seedFromMaxima clamps the marker under the mask and queues every voxel
// whose neighborhood holds a voxel outside the marker's regional maxima.
func (r *reconstructor) seedFromMaxima(marker *volume.Grid, popts parallel.Options) error {
	maxima, err := minima.DetectRegionalMaxima(marker, nil, popts)
	if err != nil {
		return errors.Wrap(err, "regional maxima")
	}
	r.sink.ReportStatus("Initialization...")

	out, mask := r.out, r.mask
	for i := range out.Data {
		out.Data[i] = min(out.Data[i], mask.Data[i])
	}

	i := 0
	for z := 0; z < out.Depth; z++ {
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				if maxima.Data[i] < 1 {
					r.queue = append(r.queue, i)
				} else {
					for _, o := range volume.Neighbors26 {
						if n, ok := out.Neighbor(x, y, z, o); ok && maxima.Data[n] < 1 {
							r.queue = append(r.queue, i)
							break
						}
					}
				}
				i++
			}
		}
	}
	return nil
}

// propagate drains the FIFO, raising every lower neighbor that has not yet
// reached its mask value.
func (r *reconstructor) propagate() error {
	r.sink.ReportStatus("Propagating...")
	out, mask := r.out, r.mask
	pops := 0
	for r.head < len(r.queue) {
		if pops >= r.limit {
			return errors.Wrapf(volume.ErrNotConverged, "reconstruction: %d queue pops", pops)
		}
		pops++
		p := r.pop()
		x, y, z := out.Coords(p)
		for _, o := range volume.Neighbors26 {
			n, ok := out.Neighbor(x, y, z, o)
			if !ok {
				continue
			}
			if out.Data[n] < out.Data[p] && out.Data[n] != mask.Data[n] {
				out.Data[n] = min(out.Data[p], mask.Data[n])
				r.queue = append(r.queue, n)
			}
		}
	}
	return nil
}

func (r *reconstructor) pop() int {
	p := r.queue[r.head]
	r.head++
	// reclaim the consumed prefix once it dominates the buffer
	if r.head > 4096 && r.head*2 > len(r.queue) {
		n := copy(r.queue, r.queue[r.head:])
		r.queue = r.queue[:n]
		r.head = 0
	}
	return p
}
