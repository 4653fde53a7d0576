package volume

// Offset is a relative voxel displacement.
type Offset struct {
	DX, DY, DZ int
}

var (
	// Neighbors26 lists every voxel sharing a face, edge or corner, in raster order.
	Neighbors26 = buildNeighbors(func(o Offset) bool { return true })

	// Backward13 lists the 26-neighbors already visited by a forward raster scan
	// (z outermost, then y, then x).
	Backward13 = buildNeighbors(func(o Offset) bool { return rasterBefore(o) })

	// Forward13 lists the 26-neighbors visited after the center by a forward raster scan.
	Forward13 = buildNeighbors(func(o Offset) bool { return !rasterBefore(o) })

	// Neighbors6 lists the face neighbors.
	Neighbors6 = buildNeighbors(func(o Offset) bool { return abs(o.DX)+abs(o.DY)+abs(o.DZ) == 1 })

	// Backward3 lists the face neighbors already visited by a forward raster scan.
	Backward3 = []Offset{{DX: 0, DY: 0, DZ: -1}, {DX: 0, DY: -1, DZ: 0}, {DX: -1, DY: 0, DZ: 0}}
)

func rasterBefore(o Offset) bool {
	if o.DZ != 0 {
		return o.DZ < 0
	}
	if o.DY != 0 {
		return o.DY < 0
	}
	return o.DX < 0
}

func buildNeighbors(keep func(Offset) bool) []Offset {
	var out []Offset
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				o := Offset{DX: dx, DY: dy, DZ: dz}
				if o == (Offset{}) || !keep(o) {
					continue
				}
				out = append(out, o)
			}
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Neighbor returns the flattened index of (x, y, z) displaced by o and
// whether it lies inside the volume.
func (s Shape) Neighbor(x, y, z int, o Offset) (int, bool) {
	nx, ny, nz := x+o.DX, y+o.DY, z+o.DZ
	if !s.In(nx, ny, nz) {
		return 0, false
	}
	return s.Index(nx, ny, nz), true
}
