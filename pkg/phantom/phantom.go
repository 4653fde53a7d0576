// Package phantom generates synthetic gradient volumes for exercising the
// segmentation: every voxel holds its distance to the nearest blob center,
// optionally perturbed by seeded noise.
package phantom

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"watershed3d/pkg/volume"
)

// Params describes a phantom.
type Params struct {
	Width, Height, Depth int

	// Blobs is the number of randomly placed centers
	Blobs int

	// Noise is the amplitude of uniform noise added to every voxel
	Noise float64

	// Seed makes generation reproducible
	Seed uint64

	// Scale, when positive, rescales the result so its maximum equals Scale
	Scale float64
}

// Phantom is a generated volume and the centers it was built from.
type Phantom struct {
	Grid    *volume.Grid
	Centers []r3.Vec
}

// Generate builds a phantom from p. Centers are placed on voxel positions so
// every center voxel holds the value 0 before noise is added.
func Generate(p Params) (*Phantom, error) {
	s, err := volume.NewShape(p.Width, p.Height, p.Depth)
	if err != nil {
		return nil, err
	}
	if p.Blobs < 1 {
		return nil, errors.Errorf("phantom: need at least one blob, got %d", p.Blobs)
	}
	if p.Noise < 0 || math.IsNaN(p.Noise) {
		return nil, errors.Errorf("phantom: invalid noise amplitude %v", p.Noise)
	}

	rng := rand.New(rand.NewSource(p.Seed))
	centers := make([]r3.Vec, p.Blobs)
	for i := range centers {
		centers[i] = r3.Vec{
			X: float64(rng.Intn(s.Width)),
			Y: float64(rng.Intn(s.Height)),
			Z: float64(rng.Intn(s.Depth)),
		}
	}

	g := FromCenters(s, centers)
	if p.Noise > 0 {
		for i := range g.Data {
			g.Data[i] += p.Noise * rng.Float64()
		}
	}
	if p.Scale > 0 {
		if m := floats.Max(g.Data); m > 0 {
			floats.Scale(p.Scale/m, g.Data)
		}
	}
	return &Phantom{Grid: g, Centers: centers}, nil
}

// FromCenters returns the Euclidean distance from every voxel of s to the
// nearest of centers. With no centers the grid is all zero.
func FromCenters(s volume.Shape, centers []r3.Vec) *volume.Grid {
	g := volume.NewGridLike(s)
	if len(centers) == 0 {
		return g
	}
	i := 0
	for z := 0; z < s.Depth; z++ {
		for y := 0; y < s.Height; y++ {
			for x := 0; x < s.Width; x++ {
				p := r3.Vec{X: float64(x), Y: float64(y), Z: float64(z)}
				best := math.Inf(1)
				for _, c := range centers {
					best = math.Min(best, r3.Norm(r3.Sub(p, c)))
				}
				g.Data[i] = best
				i++
			}
		}
	}
	return g
}
