package volume

// Mask restricts an operation to a sub-domain of a grid. A nil *Mask is
// treated as all-true by every method below.
type Mask struct {
	Shape

	// Data is true for in-domain voxels
	Data []bool
}

// NewMask allocates a mask with every voxel set to fill.
func NewMask(s Shape, fill bool) *Mask {
	m := &Mask{Shape: s, Data: make([]bool, s.Len())}
	if fill {
		for i := range m.Data {
			m.Data[i] = true
		}
	}
	return m
}

// MaskFromGrid builds a mask that is true wherever g is strictly positive.
func MaskFromGrid(g *Grid) *Mask {
	m := &Mask{Shape: g.Shape, Data: make([]bool, len(g.Data))}
	for i, v := range g.Data {
		m.Data[i] = v > 0
	}
	return m
}

// At reports whether flattened voxel i is in the domain.
func (m *Mask) At(i int) bool {
	return m == nil || m.Data[i]
}

// Get reports whether (x, y, z) is in the domain. It panics if the voxel is
// out of range of a non-nil mask.
func (m *Mask) Get(x, y, z int) bool {
	if m == nil {
		return true
	}
	return m.Data[m.mustIndex(x, y, z)]
}

// Set marks (x, y, z) in or out of the domain.
func (m *Mask) Set(x, y, z int, v bool) {
	m.Data[m.mustIndex(x, y, z)] = v
}

// Count returns the number of in-domain voxels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v {
			n++
		}
	}
	return n
}

// CheckMask validates an optional mask against shape s.
func CheckMask(s Shape, m *Mask) error {
	if m == nil {
		return nil
	}
	return CheckSameShape(s, m.Shape)
}

// RequireMask validates a mandatory mask against shape s.
func RequireMask(s Shape, m *Mask) error {
	if m == nil {
		return ErrMissingMask
	}
	return CheckSameShape(s, m.Shape)
}
