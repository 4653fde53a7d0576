package labeling

// DisjointSet is the equivalence table of the labeler. Ids start at 1; id 0
// is reserved for background and is its own root. Every parent pointer
// refers to an id lower than or equal to the element, so chasing parents
// always terminates at a self-mapped root, which is the smallest id of its set.
type DisjointSet struct {
	parent []uint32
}

// NewDisjointSet returns an empty table with room for capacity ids.
func NewDisjointSet(capacity int) *DisjointSet {
	parent := make([]uint32, 1, capacity+1)
	return &DisjointSet{parent: parent}
}

// Len returns the number of ids created so far.
func (d *DisjointSet) Len() int {
	return len(d.parent) - 1
}

// MakeSet creates a new singleton set and returns its id.
func (d *DisjointSet) MakeSet() uint32 {
	id := uint32(len(d.parent))
	d.parent = append(d.parent, id)
	return id
}

// Find returns the root of v, compressing the path behind it.
func (d *DisjointSet) Find(v uint32) uint32 {
	root := v
	for d.parent[root] != root {
		root = d.parent[root]
	}
	for d.parent[v] != root {
		next := d.parent[v]
		d.parent[v] = root
		v = next
	}
	return root
}

// Union merges the sets of a and b and returns the surviving root, which
// is the smaller of the two roots.
func (d *DisjointSet) Union(a, b uint32) uint32 {
	ra, rb := d.Find(a), d.Find(b)
	switch {
	case ra < rb:
		d.parent[rb] = ra
		return ra
	case rb < ra:
		d.parent[ra] = rb
		return rb
	}
	return ra
}

// Equivalence merges a group of roots in one step: the smallest wins and
// every other root is rewritten to point at it. Callers pass roots, not
// arbitrary members.
func (d *DisjointSet) Equivalence(roots ...uint32) uint32 {
	winner := roots[0]
	for _, r := range roots[1:] {
		if r < winner {
			winner = r
		}
	}
	for _, r := range roots {
		d.parent[r] = winner
	}
	return winner
}

// Merge appends every id of other, shifted by the current Len, and returns
// that shift. Parent pointers keep pointing at lower ids.
func (d *DisjointSet) Merge(other *DisjointSet) uint32 {
	offset := uint32(d.Len())
	for _, p := range other.parent[1:] {
		d.parent = append(d.parent, p+offset)
	}
	return offset
}

// Compact maps every id onto a dense range 1..n, numbering roots in
// ascending order. table[0] is 0.
func (d *DisjointSet) Compact() (table []uint32, n int) {
	table = make([]uint32, len(d.parent))
	for v := 1; v < len(d.parent); v++ {
		root := d.Find(uint32(v))
		if root == uint32(v) {
			n++
			table[v] = uint32(n)
		} else {
			table[v] = table[root]
		}
	}
	return table, n
}
