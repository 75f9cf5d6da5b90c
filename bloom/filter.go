// Package bloom provides ad ID deduplication using Bloom filters.
package bloom

import (
	"encoding/binary"

	"github.com/bits-and-blooms/bloom/v3"
)

// Filter wraps a Bloom filter keyed by ad ID.
type Filter struct {
	f *bloom.BloomFilter
}

// NewFilter creates a new Bloom filter sized for n expected ads
// with the given false positive rate.
func NewFilter(n uint, fpRate float64) *Filter {
	return &Filter{
		f: bloom.NewWithEstimates(n, fpRate),
	}
}

func key(id int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:]
}

// Add adds an ad ID to the filter.
func (f *Filter) Add(id int64) {
	f.f.Add(key(id))
}

// Test returns true if the ad ID might be in the filter.
// False positives are possible; false negatives are not.
func (f *Filter) Test(id int64) bool {
	return f.f.Test(key(id))
}

// TestAndAdd reports whether the ID might already be present and adds it.
func (f *Filter) TestAndAdd(id int64) bool {
	return f.f.TestAndAdd(key(id))
}

// EstimatedCount returns the approximate number of ads in the filter.
func (f *Filter) EstimatedCount() uint {
	return uint(f.f.ApproximatedSize())
}

// Set is an exact set of ad IDs fronted by a Filter. Most new IDs are
// answered by the filter alone; filter hits are confirmed against the
// exact set, so a new ID is never reported as a duplicate.
type Set struct {
	filter *Filter
	ids    map[int64]struct{}
}

// NewSet creates a Set sized for n expected ads.
func NewSet(n uint, fpRate float64) *Set {
	return &Set{
		filter: NewFilter(n, fpRate),
		ids:    make(map[int64]struct{}, n),
	}
}

// Add records id and reports whether it was not already present.
func (s *Set) Add(id int64) bool {
	if s.filter.TestAndAdd(id) {
		if _, ok := s.ids[id]; ok {
			return false
		}
	}
	s.ids[id] = struct{}{}
	return true
}

// Len returns the exact number of IDs in the set.
func (s *Set) Len() int {
	return len(s.ids)
}
