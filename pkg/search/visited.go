package search

import (
	"github.com/cespare/xxhash/v2"
)

// VisitedSet records the titles already scheduled in a run.
//
// Membership depends on the title alone, never on the node that found it.
// Titles are keyed by their 64-bit xxhash; the rare title whose hash is
// already held by a different title goes to a small spill map, so a hash
// collision can never make two distinct titles look the same.
//
// A VisitedSet is not safe for concurrent use; each search run owns one.
type VisitedSet struct {
	primary map[uint64]string
	spill   map[string]struct{}
}

// NewVisitedSet creates a set sized for about hint titles.
func NewVisitedSet(hint int) *VisitedSet {
	return &VisitedSet{
		primary: make(map[uint64]string, hint),
	}
}

// Insert adds title and reports whether it was absent. It is the single
// check-and-set used when scheduling a title.
func (v *VisitedSet) Insert(title string) bool {
	h := xxhash.Sum64String(title)
	held, ok := v.primary[h]
	if !ok {
		v.primary[h] = title
		return true
	}
	if held == title {
		return false
	}

	if v.spill == nil {
		v.spill = make(map[string]struct{})
	}
	if _, ok := v.spill[title]; ok {
		return false
	}
	v.spill[title] = struct{}{}
	return true
}

// Contains reports whether title has been inserted.
func (v *VisitedSet) Contains(title string) bool {
	held, ok := v.primary[xxhash.Sum64String(title)]
	if !ok {
		return false
	}
	if held == title {
		return true
	}
	_, ok = v.spill[title]
	return ok
}

// Len returns the number of distinct titles inserted.
func (v *VisitedSet) Len() int {
	return len(v.primary) + len(v.spill)
}
