// Package volume provides the dense 3D grids shared by the segmentation
// packages: real-valued intensity grids, boolean masks and label grids, all
// stored as a single flattened arena.
package volume

import (
	"math"

	"github.com/pkg/errors"
)

// Grid is a dense 3D volume of real-valued samples.
type Grid struct {
	Shape

	// Data holds the samples in z-major order (see Shape.Index)
	Data []float64
}

// NewGrid allocates a zero-filled grid.
func NewGrid(width, height, depth int) (*Grid, error) {
	s, err := NewShape(width, height, depth)
	if err != nil {
		return nil, err
	}
	return &Grid{Shape: s, Data: make([]float64, s.Len())}, nil
}

// NewGridLike allocates a zero-filled grid with the dimensions of s.
func NewGridLike(s Shape) *Grid {
	return &Grid{Shape: s, Data: make([]float64, s.Len())}
}

// FromData wraps an existing z-major sample slice. The slice is not copied.
func FromData(data []float64, width, height, depth int) (*Grid, error) {
	s, err := NewShape(width, height, depth)
	if err != nil {
		return nil, err
	}
	if len(data) != s.Len() {
		return nil, errors.Wrapf(ErrDimensionMismatch, "%d samples for a %v grid", len(data), s)
	}
	return &Grid{Shape: s, Data: data}, nil
}

// Get returns the sample at (x, y, z). It panics if the voxel is out of range.
func (g *Grid) Get(x, y, z int) float64 {
	return g.Data[g.mustIndex(x, y, z)]
}

// Set stores v at (x, y, z). It panics if the voxel is out of range.
func (g *Grid) Set(x, y, z int, v float64) {
	g.Data[g.mustIndex(x, y, z)] = v
}

// Fill sets every sample to v.
func (g *Grid) Fill(v float64) {
	for i := range g.Data {
		g.Data[i] = v
	}
}

// Clone returns a deep copy of g.
func (g *Grid) Clone() *Grid {
	data := make([]float64, len(g.Data))
	copy(data, g.Data)
	return &Grid{Shape: g.Shape, Data: data}
}

// Negate returns a new grid holding -v for every sample.
func (g *Grid) Negate() *Grid {
	out := NewGridLike(g.Shape)
	for i, v := range g.Data {
		out.Data[i] = -v
	}
	return out
}

// CheckNaN returns ErrNaN if any sample is NaN. Infinities are ordered and
// accepted.
func (g *Grid) CheckNaN() error {
	for i, v := range g.Data {
		if math.IsNaN(v) {
			x, y, z := g.Coords(i)
			return errors.Wrapf(ErrNaN, "NaN at (%d,%d,%d)", x, y, z)
		}
	}
	return nil
}

// Equal reports whether both grids have the same shape and identical samples.
func (g *Grid) Equal(o *Grid) bool {
	if g.Shape != o.Shape {
		return false
	}
	for i, v := range g.Data {
		if o.Data[i] != v {
			return false
		}
	}
	return true
}
