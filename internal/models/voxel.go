package models

// VoxelRecord is a single voxel with its coordinates and intensity.
// Records order by value first and flattened index second, which pins the
// processing order of equal-intensity voxels.
type VoxelRecord struct {
	// X, Y, Z are the voxel coordinates
	X, Y, Z int

	// Index is the flattened position z*W*H + y*W + x
	Index int

	// Value is the voxel intensity
	Value float64
}

// Less reports whether r sorts before o.
func (r VoxelRecord) Less(o VoxelRecord) bool {
	if r.Value != o.Value {
		return r.Value < o.Value
	}
	return r.Index < o.Index
}

// Slab is a contiguous range of z planes owned by a single worker
// during a parallel phase.
type Slab struct {
	// Index is the position of this slab in the partition
	Index int

	// Start is the first z plane of the slab (inclusive)
	Start int

	// End is one past the last z plane of the slab
	End int
}

// Planes returns the number of z planes in the slab.
func (s Slab) Planes() int {
	return s.End - s.Start
}

// Contains reports whether plane z belongs to the slab.
func (s Slab) Contains(z int) bool {
	return z >= s.Start && z < s.End
}
