package volume

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

var (
	// ErrDimensionMismatch indicates two grids passed to one operation differ in size.
	ErrDimensionMismatch = stderrors.New("volume: grid dimensions do not match")
	// ErrMissingMask indicates a masked operation was invoked without a mask.
	ErrMissingMask = stderrors.New("volume: masked operation requires a mask")
	// ErrEmptyGrid indicates a grid with a zero or negative dimension.
	ErrEmptyGrid = stderrors.New("volume: grid must have positive width, height and depth")
	// ErrNaN indicates a NaN sample where the algorithm requires ordered values.
	ErrNaN = stderrors.New("volume: grid contains NaN values")
	// ErrNotConverged indicates an iterative operation hit its iteration guard.
	ErrNotConverged = stderrors.New("volume: iteration limit reached before convergence")
	// ErrInvalidLabel indicates a sample that cannot be used as a label id.
	ErrInvalidLabel = stderrors.New("volume: value is not a valid label")
)

// CheckSameShape returns ErrDimensionMismatch, annotated with both shapes,
// unless a and b have identical dimensions.
func CheckSameShape(a, b Shape) error {
	if a == b {
		return nil
	}
	return errors.Wrapf(ErrDimensionMismatch, "%v vs %v", a, b)
}
