package blockfs

import "github.com/crashfs/crashfs/internal/changelog"

// Policy is invoked by FS on every write and fsync upcall. Recorder and
// replayer share one FUSE filesystem implementation parameterised by a
// Policy rather than being two separate types: RecordingPolicy appends,
// ReplayPolicy is a no-op.
type Policy interface {
	OnWrite(offset uint64, data []byte) error
	OnSync() error
}

// RecordingPolicy appends every write and fsync to Log before (write) or
// instead of (this layer never drops) applying it to the in-memory image.
type RecordingPolicy struct {
	Log *changelog.Log
}

func (p *RecordingPolicy) OnWrite(offset uint64, data []byte) error {
	return p.Log.AppendWrite(offset, data)
}

func (p *RecordingPolicy) OnSync() error {
	p.Log.AppendSync()
	return nil
}

// ReplayPolicy observes writes and syncs without recording them; used when
// mounting a previously-materialized image for the guest to read.
type ReplayPolicy struct{}

func (ReplayPolicy) OnWrite(uint64, []byte) error { return nil }
func (ReplayPolicy) OnSync() error                { return nil }
