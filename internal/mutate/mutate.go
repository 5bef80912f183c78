// Package mutate implements pure, total transformations over a change log:
// splitting writes, zeroing their payloads, and dropping sync barriers.
package mutate

import "github.com/crashfs/crashfs/internal/changelog"

// Options selects which mutations Apply performs. When multiple are set they
// compose in the order SplitWrite, ZeroFill, DropSync.
type Options struct {
	SplitWrite bool
	ZeroFill   bool
	DropSync   bool
}

// Apply returns a new log with opts applied to log. log is never modified.
func Apply(log *changelog.Log, opts Options) *changelog.Log {
	entries := append([]changelog.Entry(nil), log.Entries()...)

	if opts.SplitWrite {
		entries = splitWrites(entries)
	}
	if opts.ZeroFill {
		entries = zeroFill(entries)
	}
	if opts.DropSync {
		entries = dropSync(entries)
	}

	out := changelog.New(log.BaseLen)
	for _, e := range entries {
		switch e.Kind {
		case changelog.KindWrite:
			// Entries already passed AppendWrite's validation when they were
			// first recorded; splitting only shrinks ranges, so this cannot
			// fail.
			_ = out.AppendWrite(e.Offset, e.Data)
		case changelog.KindSync:
			out.AppendSync()
		}
	}
	return out
}

// splitWrites replaces each Write with two Writes covering the same range at
// a midpoint, one pass. A one-byte write cannot be split further and is left
// alone.
func splitWrites(entries []changelog.Entry) []changelog.Entry {
	out := make([]changelog.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Kind != changelog.KindWrite || len(e.Data) < 2 {
			out = append(out, e)
			continue
		}
		mid := len(e.Data) / 2
		out = append(out,
			changelog.Write(e.Offset, e.Data[:mid]),
			changelog.Write(e.Offset+uint64(mid), e.Data[mid:]),
		)
	}
	return out
}

// zeroFill replaces the data of each Write with zeros of the same length,
// preserving the byte range footprint of the log.
func zeroFill(entries []changelog.Entry) []changelog.Entry {
	out := make([]changelog.Entry, len(entries))
	for i, e := range entries {
		if e.Kind != changelog.KindWrite {
			out[i] = e
			continue
		}
		out[i] = changelog.Write(e.Offset, make([]byte, len(e.Data)))
	}
	return out
}

// dropSync removes every Sync entry.
func dropSync(entries []changelog.Entry) []changelog.Entry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.Kind == changelog.KindSync {
			continue
		}
		out = append(out, e)
	}
	return out
}
