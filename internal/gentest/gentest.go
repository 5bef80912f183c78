// Package gentest enumerates a bounded, crash-consistent subset of filters
// from a change log under the sync-barrier model: a selected Sync forces
// every write since the previous selected Sync to also be selected.
package gentest

import (
	"github.com/crashfs/crashfs/internal/changelog"
	"github.com/crashfs/crashfs/internal/filterexpr"
)

// DefaultCap is the default bound on the number of write subsets enumerated
// within the crashing segment.
const DefaultCap = 16

// segment is a maximal run of entries bounded by a Sync. writeIdx holds the
// entry indices (into the original log) of the Write entries in the segment,
// in order. syncIdx is the entry index of the segment's terminating Sync, or
// -1 if the segment is the trailing, unsynced remainder of the log.
type segment struct {
	writeIdx []int
	syncIdx  int
}

func segments(entries []changelog.Entry) []segment {
	var segs []segment
	var cur segment
	cur.syncIdx = -1

	for i, e := range entries {
		switch e.Kind {
		case changelog.KindWrite:
			cur.writeIdx = append(cur.writeIdx, i)
		case changelog.KindSync:
			cur.syncIdx = i
			segs = append(segs, cur)
			cur = segment{syncIdx: -1}
		}
	}
	// Trailing segment, possibly empty, always present so that "segment
	// after the last sync" is well defined even when the log ends on a
	// Sync.
	segs = append(segs, cur)
	return segs
}

// Generate emits a bounded set of filter strings, one per distinct crash
// state under the sync-barrier model. cap bounds how many write subsets are
// sampled within the "crashing" segment (the one immediately after the last
// honored sync); cap <= 0 uses DefaultCap.
func Generate(log *changelog.Log, cap int) []string {
	if cap <= 0 {
		cap = DefaultCap
	}

	entries := log.Entries()
	segs := segments(entries)
	// Sync-bearing segments are all but the always-present trailing one.
	k := len(segs) - 1

	seen := make(map[string]bool)
	var out []string
	emit := func(selected map[int]bool) {
		s := filterexpr.FromSet(selected).String()
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	// j ranges over "last honored sync index", from -1 (no sync honored) to
	// k-1 (every sync-bearing segment honored). The crashing segment is the
	// one immediately after Sj.
	for j := -1; j <= k-1; j++ {
		crashing := segs[j+1]

		for _, subset := range writeSubsets(crashing.writeIdx, cap) {
			selected := make(map[int]bool)

			// Segments S0..Sj are entirely selected, syncs included.
			for s := 0; s <= j; s++ {
				for _, idx := range segs[s].writeIdx {
					selected[idx] = true
				}
				if segs[s].syncIdx >= 0 {
					selected[segs[s].syncIdx] = true
				}
			}

			// The crashing segment contributes the sampled write subset;
			// its own Sync, if any, is never honored (it is strictly after
			// the last honored sync by construction).
			for _, idx := range subset {
				selected[idx] = true
			}

			// Segments strictly after the crashing segment contribute
			// nothing: the model treats their writes as causally after a
			// crash that has already happened.
			emit(selected)
		}
	}

	// Guarantee the two degenerate filters regardless of sampling, in case
	// a cap below 2 kept subset sampling from reaching the full subset (for
	// an empty log both are the same filter, "0").
	emit(map[int]bool{})
	all := make(map[int]bool, len(entries))
	for i := range entries {
		all[i] = true
	}
	emit(all)

	return out
}

// writeSubsets samples at most cap subsets of idx (entry indices of writes
// within a single segment): the empty subset first, the full subset second
// (cap permitting), then prefix
// subsets growing from the front, then single-bit-flipped variants of the
// full subset, until the cap is reached or every subset has been produced.
func writeSubsets(idx []int, cap int) [][]int {
	if len(idx) == 0 {
		return [][]int{{}}
	}

	var subsets [][]int
	add := func(s []int) {
		if len(subsets) >= cap {
			return
		}
		subsets = append(subsets, append([]int(nil), s...))
	}

	add(nil)
	add(idx)

	for n := 1; n < len(idx) && len(subsets) < cap; n++ {
		add(idx[:n])
	}

	for drop := 0; drop < len(idx) && len(subsets) < cap; drop++ {
		flipped := make([]int, 0, len(idx)-1)
		for i, v := range idx {
			if i != drop {
				flipped = append(flipped, v)
			}
		}
		add(flipped)
	}

	return dedupeSubsets(subsets)
}

func dedupeSubsets(subsets [][]int) [][]int {
	seen := make(map[string]bool)
	out := make([][]int, 0, len(subsets))
	for _, s := range subsets {
		key := keyOf(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func keyOf(s []int) string {
	b := make([]byte, 0, len(s)*4)
	for _, v := range s {
		b = append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	return string(b)
}
