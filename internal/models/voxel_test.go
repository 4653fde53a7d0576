package models

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVoxelRecordOrder(t *testing.T) {
	recs := []VoxelRecord{
		{Index: 7, Value: 2},
		{Index: 3, Value: 2},
		{Index: 9, Value: 1},
		{Index: 1, Value: 5},
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Less(recs[j]) })

	var got []int
	for _, r := range recs {
		got = append(got, r.Index)
	}
	assert.Equal(t, []int{9, 3, 7, 1}, got)
}

func TestSlab(t *testing.T) {
	s := Slab{Index: 1, Start: 4, End: 8}
	assert.Equal(t, 4, s.Planes())
	assert.True(t, s.Contains(4))
	assert.True(t, s.Contains(7))
	assert.False(t, s.Contains(8))
	assert.False(t, s.Contains(3))
}
