package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"watershed3d/pkg/parallel"
	"watershed3d/pkg/volume"
)

func randomGrid(t *testing.T, w, h, d int, seed uint64) *volume.Grid {
	t.Helper()
	g, err := volume.NewGrid(w, h, d)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(seed))
	for i := range g.Data {
		g.Data[i] = float64(rng.Intn(20))
	}
	return g
}

// bruteMin is a direct transcription of the filter definition.
func bruteMin(g *volume.Grid, mask *volume.Mask, x, y, z int) float64 {
	best := g.Get(x, y, z)
	if !mask.Get(x, y, z) {
		return best
	}
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny, nz := x+dx, y+dy, z+dz
				if !g.In(nx, ny, nz) || !mask.Get(nx, ny, nz) {
					continue
				}
				if v := g.Get(nx, ny, nz); v < best {
					best = v
				}
			}
		}
	}
	return best
}

func TestMinFilterMatchesDefinition(t *testing.T) {
	g := randomGrid(t, 7, 5, 6, 1)
	out, err := MinFilter3D(g, nil, parallel.Options{Workers: 3})
	require.NoError(t, err)

	for z := 0; z < g.Depth; z++ {
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				assert.Equal(t, bruteMin(g, nil, x, y, z), out.Get(x, y, z), "(%d,%d,%d)", x, y, z)
			}
		}
	}
}

func TestMinFilterMonotone(t *testing.T) {
	g := randomGrid(t, 9, 8, 7, 2)
	once, err := MinFilter3D(g, nil, parallel.Options{Workers: 4})
	require.NoError(t, err)
	twice, err := MinFilter3D(once, nil, parallel.Options{Workers: 4})
	require.NoError(t, err)

	for i := range g.Data {
		assert.LessOrEqual(t, once.Data[i], g.Data[i])
		assert.LessOrEqual(t, twice.Data[i], once.Data[i])
	}
	// the input is never modified
	assert.True(t, g.Equal(randomGrid(t, 9, 8, 7, 2)))
}

func TestMinFilterMasked(t *testing.T) {
	g := randomGrid(t, 6, 6, 4, 3)
	mask := volume.NewMask(g.Shape, false)
	for i := range mask.Data {
		mask.Data[i] = i%3 != 0
	}

	out, err := MinFilter3DMasked(g, mask, parallel.Options{Workers: 2})
	require.NoError(t, err)
	for z := 0; z < g.Depth; z++ {
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				assert.Equal(t, bruteMin(g, mask, x, y, z), out.Get(x, y, z))
			}
		}
	}
}

func TestMinFilterMaskErrors(t *testing.T) {
	g := randomGrid(t, 3, 3, 3, 4)

	_, err := MinFilter3DMasked(g, nil, parallel.Options{})
	assert.ErrorIs(t, err, volume.ErrMissingMask)

	wrong := volume.NewMask(volume.Shape{Width: 3, Height: 3, Depth: 2}, true)
	_, err = MinFilter3D(g, wrong, parallel.Options{})
	assert.ErrorIs(t, err, volume.ErrDimensionMismatch)
}

func TestMinFilterWorkerCountInvariant(t *testing.T) {
	g := randomGrid(t, 5, 5, 11, 5)
	ref, err := MinFilter3D(g, nil, parallel.Options{Workers: 1})
	require.NoError(t, err)
	for _, w := range []int{2, 3, 7, 16} {
		out, err := MinFilter3D(g, nil, parallel.Options{Workers: w})
		require.NoError(t, err)
		assert.True(t, ref.Equal(out), "workers=%d", w)
	}
}

func TestMaxFilterDualOfMin(t *testing.T) {
	g := randomGrid(t, 5, 4, 3, 6)
	maxed, err := MaxFilter3D(g, nil, parallel.Options{Workers: 2})
	require.NoError(t, err)
	minNeg, err := MinFilter3D(g.Negate(), nil, parallel.Options{Workers: 2})
	require.NoError(t, err)
	assert.True(t, maxed.Equal(minNeg.Negate()))
}
