package lesson

import "sort"

// StringSet is an unordered, deduplicated collection of display names.
type StringSet map[string]struct{}

func NewStringSet(vals ...string) StringSet {
	s := make(StringSet, len(vals))
	for _, v := range vals {
		s[v] = struct{}{}
	}
	return s
}

func (s StringSet) Add(v string) {
	s[v] = struct{}{}
}

func (s StringSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Merge adds every member of other into s.
func (s StringSet) Merge(other StringSet) {
	for v := range other {
		s[v] = struct{}{}
	}
}

// Equal reports set equality, independent of iteration order.
func (s StringSet) Equal(other StringSet) bool {
	if len(s) != len(other) {
		return false
	}
	for v := range s {
		if _, ok := other[v]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the members alphabetically. Deterministic ordering belongs
// to the render boundary; merge logic never depends on it.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
