package volume

import (
	"fmt"

	"github.com/pkg/errors"
)

// Shape holds the dimensions of a dense 3D volume and the index arithmetic
// shared by every grid type. Voxels are stored z-major: z*W*H + y*W + x.
type Shape struct {
	Width  int
	Height int
	Depth  int
}

// NewShape validates and returns a shape.
func NewShape(width, height, depth int) (Shape, error) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return Shape{}, errors.Wrapf(ErrEmptyGrid, "%dx%dx%d", width, height, depth)
	}
	return Shape{Width: width, Height: height, Depth: depth}, nil
}

// Dims returns (W, H, D).
func (s Shape) Dims() (int, int, int) {
	return s.Width, s.Height, s.Depth
}

// Len is the number of voxels.
func (s Shape) Len() int {
	return s.Width * s.Height * s.Depth
}

// PlaneLen is the number of voxels in one z plane.
func (s Shape) PlaneLen() int {
	return s.Width * s.Height
}

// Index flattens (x, y, z). It does not check bounds.
func (s Shape) Index(x, y, z int) int {
	return z*s.Width*s.Height + y*s.Width + x
}

// Coords is the inverse of Index.
func (s Shape) Coords(i int) (x, y, z int) {
	plane := s.Width * s.Height
	z = i / plane
	rem := i - z*plane
	y = rem / s.Width
	x = rem - y*s.Width
	return x, y, z
}

// In reports whether (x, y, z) lies inside the volume.
func (s Shape) In(x, y, z int) bool {
	return x >= 0 && x < s.Width && y >= 0 && y < s.Height && z >= 0 && z < s.Depth
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Width, s.Height, s.Depth)
}

func (s Shape) mustIndex(x, y, z int) int {
	if !s.In(x, y, z) {
		panic(fmt.Sprintf("volume: voxel (%d,%d,%d) out of range for %v", x, y, z, s))
	}
	return s.Index(x, y, z)
}
