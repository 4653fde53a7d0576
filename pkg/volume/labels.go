package volume

import (
	"math"

	"github.com/pkg/errors"
)

// LabelGrid holds one label per voxel. Zero is background.
type LabelGrid struct {
	Shape

	// Data holds the labels in z-major order
	Data []uint32
}

// NewLabelGrid allocates an all-background label grid.
func NewLabelGrid(s Shape) *LabelGrid {
	return &LabelGrid{Shape: s, Data: make([]uint32, s.Len())}
}

// LabelsFromGrid converts integer-valued samples into labels. Negative,
// fractional or oversized samples yield ErrInvalidLabel.
func LabelsFromGrid(g *Grid) (*LabelGrid, error) {
	l := NewLabelGrid(g.Shape)
	for i, v := range g.Data {
		if v < 0 || v > math.MaxUint32 || v != math.Trunc(v) {
			x, y, z := g.Coords(i)
			return nil, errors.Wrapf(ErrInvalidLabel, "%v at (%d,%d,%d)", v, x, y, z)
		}
		l.Data[i] = uint32(v)
	}
	return l, nil
}

// Get returns the label at (x, y, z).
func (l *LabelGrid) Get(x, y, z int) uint32 {
	return l.Data[l.mustIndex(x, y, z)]
}

// Set stores a label at (x, y, z).
func (l *LabelGrid) Set(x, y, z int, v uint32) {
	l.Data[l.mustIndex(x, y, z)] = v
}

// Clone returns a deep copy.
func (l *LabelGrid) Clone() *LabelGrid {
	data := make([]uint32, len(l.Data))
	copy(data, l.Data)
	return &LabelGrid{Shape: l.Shape, Data: data}
}

// ToGrid converts the labels to a real-valued grid.
func (l *LabelGrid) ToGrid() *Grid {
	g := NewGridLike(l.Shape)
	for i, v := range l.Data {
		g.Data[i] = float64(v)
	}
	return g
}

// MaxLabel returns the largest label present.
func (l *LabelGrid) MaxLabel() uint32 {
	var max uint32
	for _, v := range l.Data {
		if v > max {
			max = v
		}
	}
	return max
}

// Counts returns the number of voxels per label, indexed by label id.
func (l *LabelGrid) Counts() []int {
	counts := make([]int, int(l.MaxLabel())+1)
	for _, v := range l.Data {
		counts[v]++
	}
	return counts
}
