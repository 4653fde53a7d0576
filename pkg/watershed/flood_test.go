package watershed

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"watershed3d/pkg/parallel"
	"watershed3d/pkg/volume"
)

var strategies = []Strategy{StrategyPriorityQueue, StrategySweep}

func lineGrid(t *testing.T, values ...float64) *volume.Grid {
	t.Helper()
	g, err := volume.FromData(values, len(values), 1, 1)
	require.NoError(t, err)
	return g
}

func seedsAt(s volume.Shape, labels map[int]uint32) *volume.LabelGrid {
	l := volume.NewLabelGrid(s)
	for i, v := range labels {
		l.Data[i] = v
	}
	return l
}

// ringPlane is a 5x5x1 plane: 0 at the center, a ring of 1s, a border of 2s.
func ringPlane(t *testing.T) *volume.Grid {
	t.Helper()
	g, err := volume.NewGrid(5, 5, 1)
	require.NoError(t, err)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			d := max(abs(x-2), abs(y-2))
			g.Set(x, y, 0, float64(d))
		}
	}
	return g
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestFloodRingPlane(t *testing.T) {
	g := ringPlane(t)
	seeds := seedsAt(g.Shape, map[int]uint32{g.Index(2, 2, 0): 1})

	for _, s := range strategies {
		t.Run(s.String(), func(t *testing.T) {
			out, err := Flood(g, seeds, nil, Options{Strategy: s})
			require.NoError(t, err)
			for i, l := range out.Data {
				assert.Equal(t, uint32(1), l, "voxel %d", i)
			}
		})
	}
}

func TestFloodTwoBasins(t *testing.T) {
	g := lineGrid(t, 0, 1, 2, 5, 2, 1, 0)
	seeds := seedsAt(g.Shape, map[int]uint32{0: 1, 6: 2})

	// the ridge voxel ties between indices 2 and 4 and goes to the lower one
	want := []uint32{1, 1, 1, 1, 2, 2, 2}
	for _, s := range strategies {
		t.Run(s.String(), func(t *testing.T) {
			out, err := Flood(g, seeds, nil, Options{Strategy: s})
			require.NoError(t, err)
			if diff := cmp.Diff(want, out.Data); diff != "" {
				t.Errorf("labels mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFloodUnreachable(t *testing.T) {
	g := lineGrid(t, 0, 5, 1)
	seeds := seedsAt(g.Shape, map[int]uint32{0: 7})

	for _, s := range strategies {
		t.Run(s.String(), func(t *testing.T) {
			out, err := Flood(g, seeds, nil, Options{Strategy: s})
			require.NoError(t, err)
			assert.Equal(t, []uint32{7, 7, 0}, out.Data)
		})
	}
}

func TestFloodMask(t *testing.T) {
	g := lineGrid(t, 0, 1, 2, 3, 4)
	mask := volume.NewMask(g.Shape, true)
	mask.Data[2] = false

	t.Run("blocks", func(t *testing.T) {
		seeds := seedsAt(g.Shape, map[int]uint32{0: 1})
		for _, s := range strategies {
			out, err := Flood(g, seeds, mask, Options{Strategy: s})
			require.NoError(t, err)
			assert.Equal(t, []uint32{1, 1, 0, 0, 0}, out.Data, s.String())
		}
	})

	t.Run("drops seeds outside", func(t *testing.T) {
		seeds := seedsAt(g.Shape, map[int]uint32{2: 4})
		for _, s := range strategies {
			out, err := Flood(g, seeds, mask, Options{Strategy: s})
			require.NoError(t, err)
			assert.Equal(t, []uint32{0, 0, 0, 0, 0}, out.Data, s.String())
		}
	})
}

func TestFloodDoesNotModifyInputs(t *testing.T) {
	g := lineGrid(t, 0, 1, 2)
	seeds := seedsAt(g.Shape, map[int]uint32{0: 1})
	_, err := Flood(g, seeds, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, g.Data)
	assert.Equal(t, []uint32{1, 0, 0}, seeds.Data)
}

// reachable marks every voxel with a non-decreasing 26-path from a seed.
func reachable(g *volume.Grid, seeds *volume.LabelGrid) []bool {
	seen := make([]bool, len(g.Data))
	var queue []int
	for i, l := range seeds.Data {
		if l != 0 {
			seen[i] = true
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		x, y, z := g.Coords(p)
		for _, o := range volume.Neighbors26 {
			n, ok := g.Neighbor(x, y, z, o)
			if ok && !seen[n] && g.Data[n] >= g.Data[p] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return seen
}

func randomVolume(t *testing.T, seed uint64) (*volume.Grid, *volume.LabelGrid) {
	t.Helper()
	return randomLevels(t, seed, 8, 4)
}

// randomLevels fills a 9x7x6 grid with integers in [0, levels) and drops
// labels 1..basins on random voxels.
func randomLevels(t *testing.T, seed uint64, levels int, basins uint32) (*volume.Grid, *volume.LabelGrid) {
	t.Helper()
	g, err := volume.NewGrid(9, 7, 6)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(seed))
	for i := range g.Data {
		g.Data[i] = float64(rng.Intn(levels))
	}
	seeds := volume.NewLabelGrid(g.Shape)
	for l := uint32(1); l <= basins; l++ {
		seeds.Data[rng.Intn(len(seeds.Data))] = l
	}
	return g, seeds
}

func TestFloodReachability(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		g, seeds := randomVolume(t, seed)
		want := reachable(g, seeds)

		for _, s := range strategies {
			out, err := Flood(g, seeds, nil, Options{Strategy: s})
			require.NoError(t, err)
			for i, l := range out.Data {
				assert.Equal(t, want[i], l != 0, "%v seed %d voxel %d", s, seed, i)
				if seeds.Data[i] != 0 {
					assert.Equal(t, seeds.Data[i], l)
				}
			}
		}
	}
}

func TestFloodDeterministic(t *testing.T) {
	g, seeds := randomVolume(t, 42)
	for _, s := range strategies {
		ref, err := Flood(g, seeds, nil, Options{Strategy: s, Options: parallel.Options{Workers: 1}})
		require.NoError(t, err)
		for _, workers := range []int{2, 3, 8} {
			for run := 0; run < 2; run++ {
				out, err := Flood(g, seeds, nil, Options{Strategy: s, Options: parallel.Options{Workers: workers}})
				require.NoError(t, err)
				assert.Equal(t, ref.Data, out.Data, "%v with %d workers", s, workers)
			}
		}
	}
}

func TestFloodCompetingBasins(t *testing.T) {
	// label 1 reaches voxel 2 through 3 and 4 only after the first sweep has
	// passed it, so label 2 wins it from voxel 1
	g := lineGrid(t, 0, 2, 3, 1, 1, 0)
	seeds := seedsAt(g.Shape, map[int]uint32{0: 2, 5: 1})

	want := []uint32{2, 2, 2, 1, 1, 1}
	for _, s := range strategies {
		t.Run(s.String(), func(t *testing.T) {
			out, err := Flood(g, seeds, nil, Options{Strategy: s})
			require.NoError(t, err)
			if diff := cmp.Diff(want, out.Data); diff != "" {
				t.Errorf("labels mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFloodCompetingPlateaus(t *testing.T) {
	// two basins meet across a wide plateau that both reach in the first sweep
	g := lineGrid(t, 0, 1, 1, 1, 1, 1, 0)
	seeds := seedsAt(g.Shape, map[int]uint32{0: 1, 6: 2})

	sweep, err := Flood(g, seeds, nil, Options{Strategy: StrategySweep})
	require.NoError(t, err)
	queue, err := Flood(g, seeds, nil, Options{Strategy: StrategyPriorityQueue})
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 1, 1, 1, 1, 2, 2}, sweep.Data)
	assert.Equal(t, sweep.Data, queue.Data)
}

func TestFloodLongChains(t *testing.T) {
	const n = 64
	ramp := make([]float64, n)
	plateau := make([]float64, n)
	for i := range ramp {
		ramp[i] = float64(i)
		plateau[i] = 1
	}
	plateau[n-1] = 0

	cases := []struct {
		name   string
		values []float64
		seed   int
	}{
		{"ramp", ramp, 0},
		// the sorted order meets the plateau away from the seed, so every
		// sweep resolves a single voxel
		{"plateau", plateau, n - 1},
	}
	for _, tc := range cases {
		g := lineGrid(t, tc.values...)
		seeds := seedsAt(g.Shape, map[int]uint32{tc.seed: 3})
		for _, s := range strategies {
			out, err := Flood(g, seeds, nil, Options{Strategy: s})
			require.NoError(t, err)
			for i, l := range out.Data {
				assert.Equal(t, uint32(3), l, "%s %v voxel %d", tc.name, s, i)
			}
		}
	}
}

func TestFloodStrategiesAgree(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		for _, levels := range []int{2, 3, 8} {
			g, seeds := randomLevels(t, seed, levels, 6)
			mask := volume.NewMask(g.Shape, true)
			mask.Data[int(seed)%len(mask.Data)] = false

			sweep, err := Flood(g, seeds, mask, Options{Strategy: StrategySweep})
			require.NoError(t, err)
			queue, err := Flood(g, seeds, mask, Options{Strategy: StrategyPriorityQueue})
			require.NoError(t, err)
			if diff := cmp.Diff(sweep.Data, queue.Data); diff != "" {
				t.Fatalf("seed %d levels %d: queue differs from sweep (-sweep +queue):\n%s", seed, levels, diff)
			}
		}
	}
}

type recordingSink struct {
	mu   sync.Mutex
	last [2]int
}

func (r *recordingSink) ReportProgress(current, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = [2]int{current, total}
}

func (r *recordingSink) ReportStatus(string) {}

func TestFloodProgressCompletes(t *testing.T) {
	g, seeds := randomVolume(t, 7)
	for _, s := range strategies {
		sink := &recordingSink{}
		_, err := Flood(g, seeds, nil, Options{Strategy: s, Options: parallel.Options{Progress: sink}})
		require.NoError(t, err)
		assert.NotZero(t, sink.last[1], s.String())
		assert.Equal(t, sink.last[1], sink.last[0], s.String())
	}
}

func TestFloodSweepGuard(t *testing.T) {
	// the sorted order visits the far plateau voxels before their path is
	// labeled, so every sweep resolves exactly one voxel
	g := lineGrid(t, 2, 2, 2, 0)
	seeds := seedsAt(g.Shape, map[int]uint32{3: 1})

	_, err := Flood(g, seeds, nil, Options{Strategy: StrategySweep, MaxSweeps: 2})
	require.ErrorIs(t, err, volume.ErrNotConverged)

	out, err := Flood(g, seeds, nil, Options{Strategy: StrategySweep, MaxSweeps: 3})
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 1, 1, 1}, out.Data)
}

func TestFloodErrors(t *testing.T) {
	g := lineGrid(t, 0, 1, 2)

	other, err := volume.NewGrid(2, 1, 1)
	require.NoError(t, err)
	_, err = Flood(g, volume.NewLabelGrid(other.Shape), nil, Options{})
	assert.ErrorIs(t, err, volume.ErrDimensionMismatch)

	_, err = Flood(g, volume.NewLabelGrid(g.Shape), volume.NewMask(other.Shape, true), Options{})
	assert.ErrorIs(t, err, volume.ErrDimensionMismatch)

	_, err = Flood(g, volume.NewLabelGrid(g.Shape), nil, Options{Strategy: Strategy(9)})
	assert.Error(t, err)
}

func TestParseStrategy(t *testing.T) {
	for _, s := range strategies {
		got, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseStrategy("flood")
	assert.Error(t, err)
}
