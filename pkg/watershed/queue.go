package watershed

// entry is a voxel waiting in the flooding queue.
type entry struct {
	value float64
	index int
}

// voxelHeap is a min-heap of voxels keyed by (value, index).
type voxelHeap []entry

func (h voxelHeap) Len() int { return len(h) }

// before reports whether e sorts ahead of o.
func (e entry) before(o entry) bool {
	if e.value != o.value {
		return e.value < o.value
	}
	return e.index < o.index
}

func (h voxelHeap) Less(i, j int) bool { return h[i].before(h[j]) }

func (h voxelHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *voxelHeap) Push(x any) { *h = append(*h, x.(entry)) }

func (h *voxelHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
