// Package replay materializes a disk image from a base image, a change log,
// and a filter selecting which recorded writes survived.
package replay

import (
	"fmt"

	"github.com/crashfs/crashfs/internal/changelog"
	"github.com/crashfs/crashfs/internal/filterexpr"
)

// Materialize copies base and then, for each Write entry in log selected by
// f (in log order), overwrites the target byte range. Sync entries never
// affect the output; they only matter to the test generator's enumeration.
//
// The returned slice is a fresh copy; base is never mutated.
func Materialize(base []byte, log *changelog.Log, f filterexpr.Filter) ([]byte, error) {
	if uint64(len(base)) != log.BaseLen {
		return nil, fmt.Errorf("replay: base image is %d bytes but log was recorded against %d bytes", len(base), log.BaseLen)
	}

	out := make([]byte, len(base))
	copy(out, base)

	for i, e := range log.Entries() {
		if e.Kind != changelog.KindWrite {
			continue
		}
		if !f.Select(i) {
			continue
		}
		end := e.Offset + uint64(len(e.Data))
		if end > uint64(len(out)) {
			return nil, fmt.Errorf("replay: entry %d write [%d,%d) exceeds image length %d", i, e.Offset, end, len(out))
		}
		copy(out[e.Offset:end], e.Data)
	}

	return out, nil
}
