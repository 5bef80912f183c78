// Package filterexpr implements the compact "offset:bits" grammar used to
// select a subset of change-log indices for replay.
package filterexpr

import (
	"fmt"
	"strconv"
	"strings"
)

// Filter is a selection of change-log indices: index i is selected iff
// i >= Offset and bits[i-Offset] == '1'. Indices outside [Offset,
// Offset+len(bits)) are deselected.
type Filter struct {
	offset int
	bits   string
}

// None selects nothing. It is the filter spelled "0".
var None = Filter{}

// Parse decodes a filter string per the grammar
// FILTER := "0" | OFFSET ":" BITS, BITS in {0,1}+.
func Parse(s string) (Filter, error) {
	if s == "0" {
		return None, nil
	}

	idx := strings.IndexByte(s, ':')
	if idx < 0 {
		return Filter{}, fmt.Errorf("filterexpr: %q is missing ':' (expected OFFSET:BITS or \"0\")", s)
	}

	offsetStr, bits := s[:idx], s[idx+1:]
	offset, err := strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		return Filter{}, fmt.Errorf("filterexpr: %q has an invalid non-negative offset", s)
	}
	if bits == "" {
		return Filter{}, fmt.Errorf("filterexpr: %q has an empty bit string", s)
	}
	for _, c := range bits {
		if c != '0' && c != '1' {
			return Filter{}, fmt.Errorf("filterexpr: %q contains a non-{0,1} character %q", s, c)
		}
	}

	return Filter{offset: offset, bits: bits}, nil
}

// All returns a filter that selects every index in [0, n).
func All(n int) Filter {
	if n <= 0 {
		return None
	}
	bits := strings.Repeat("1", n)
	return Filter{offset: 0, bits: bits}
}

// Select reports whether index i is selected by f.
func (f Filter) Select(i int) bool {
	if i < f.offset {
		return false
	}
	j := i - f.offset
	if j >= len(f.bits) {
		return false
	}
	return f.bits[j] == '1'
}

// String renders f back into the "offset:bits" grammar. It is not
// guaranteed to reproduce the original input string byte-for-byte (e.g.
// leading zero offsets or a trailing run of zero bits are normalized away),
// but it reproduces the same selected-index set.
func (f Filter) String() string {
	if f.bits == "" {
		return "0"
	}

	// Find the first differing-from-default (i.e. selected) bit, to choose
	// the canonical offset, and trim to the last '1'.
	first := -1
	last := -1
	for i, c := range f.bits {
		if c == '1' {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return "0"
	}

	return fmt.Sprintf("%d:%s", f.offset+first, f.bits[first:last+1])
}

// FromSet builds the canonical Filter selecting exactly the given set of
// indices.
func FromSet(selected map[int]bool) Filter {
	if len(selected) == 0 {
		return None
	}
	max := -1
	for i, v := range selected {
		if v && i > max {
			max = i
		}
	}
	if max < 0 {
		return None
	}
	bits := make([]byte, max+1)
	for i := range bits {
		if selected[i] {
			bits[i] = '1'
		} else {
			bits[i] = '0'
		}
	}
	return Filter{offset: 0, bits: string(bits)}
}
