package pipeline

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"watershed3d/pkg/volume"
)

// RegionStats summarises one labeled basin.
type RegionStats struct {
	// Label is the basin id
	Label uint32

	// Count is the number of voxels carrying Label
	Count int

	// Bounds is the inclusive voxel bounding box
	Bounds r3.Box

	// Centroid is the mean voxel position
	Centroid r3.Vec

	// Mean, StdDev, Min and Max describe the intensities inside the basin
	Mean, StdDev, Min, Max float64

	// AxisVariances holds the variances of the voxel positions along the
	// principal axes, largest first. Zero for single-voxel basins.
	AxisVariances [3]float64
}

// Extent returns the bounding box size in voxels along each axis.
func (r RegionStats) Extent() r3.Vec {
	return r3.Add(r.Bounds.Size(), r3.Vec{X: 1, Y: 1, Z: 1})
}

// ComputeRegionStats returns one RegionStats per label present in labels,
// ordered by label. Background voxels are ignored.
func ComputeRegionStats(labels *volume.LabelGrid, intensity *volume.Grid) ([]RegionStats, error) {
	if err := volume.CheckSameShape(labels.Shape, intensity.Shape); err != nil {
		return nil, err
	}

	// bucket voxel indices by label
	counts := labels.Counts()
	start := make([]int, len(counts)+1)
	for l := 1; l < len(counts); l++ {
		start[l+1] = start[l] + counts[l]
	}
	members := make([]int, start[len(counts)])
	fill := append([]int(nil), start...)
	for i, l := range labels.Data {
		if l != 0 {
			members[fill[l]] = i
			fill[l]++
		}
	}

	var regions []RegionStats
	for l := 1; l < len(counts); l++ {
		if counts[l] == 0 {
			continue
		}
		rs, err := regionStats(uint32(l), members[start[l]:start[l+1]], labels.Shape, intensity)
		if err != nil {
			return nil, errors.Wrapf(err, "region %d", l)
		}
		regions = append(regions, rs)
	}
	return regions, nil
}

func regionStats(label uint32, idx []int, s volume.Shape, intensity *volume.Grid) (RegionStats, error) {
	n := len(idx)
	values := make([]float64, n)
	coords := mat.NewDense(n, 3, nil)
	rs := RegionStats{Label: label, Count: n}

	for k, i := range idx {
		x, y, z := s.Coords(i)
		p := r3.Vec{X: float64(x), Y: float64(y), Z: float64(z)}
		if k == 0 {
			rs.Bounds = r3.Box{Min: p, Max: p}
		} else {
			rs.Bounds = extend(rs.Bounds, p)
		}
		rs.Centroid = r3.Add(rs.Centroid, p)
		coords.SetRow(k, []float64{p.X, p.Y, p.Z})
		values[k] = intensity.Data[i]
	}
	rs.Centroid = r3.Scale(1/float64(n), rs.Centroid)
	rs.Min = floats.Min(values)
	rs.Max = floats.Max(values)

	if n < 2 {
		rs.Mean = values[0]
		return rs, nil
	}
	rs.Mean, rs.StdDev = stat.MeanStdDev(values, nil)

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, coords, nil)
	var eig mat.EigenSym
	if !eig.Factorize(&cov, false) {
		return rs, errors.New("eigen decomposition of the position covariance failed")
	}
	ev := eig.Values(nil)
	sort.Sort(sort.Reverse(sort.Float64Slice(ev)))
	for k := range rs.AxisVariances {
		// round-off can push a zero eigenvalue slightly negative
		rs.AxisVariances[k] = max(ev[k], 0)
	}
	return rs, nil
}

// extend grows b to include p. Unlike r3.Box.Union it keeps degenerate
// (flat) boxes.
func extend(b r3.Box, p r3.Vec) r3.Box {
	return r3.Box{
		Min: r3.Vec{X: min(b.Min.X, p.X), Y: min(b.Min.Y, p.Y), Z: min(b.Min.Z, p.Z)},
		Max: r3.Vec{X: max(b.Max.X, p.X), Y: max(b.Max.Y, p.Y), Z: max(b.Max.Z, p.Z)},
	}
}
