package changelog

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Log is an ordered sequence of change entries. Insertion order is issue
// order as observed by the recorder and is semantically significant:
// replay applies writes left-to-right.
//
// INVARIANT: For every KindWrite entry e, e.Offset+len(e.Data) <= BaseLen.
// INVARIANT: len(e.Data) > 0 for every KindWrite entry e.
type Log struct {
	// BaseLen is the length of the base image this log was recorded against.
	// It is persisted in the changes file header so that Load can refuse to
	// replay a log against a base image of a different size rather than
	// silently misbehaving (see spec's Open Question on base-size changes).
	BaseLen uint64

	entries []Entry
}

// New returns an empty log recorded against a base image of the given length.
func New(baseLen uint64) *Log {
	return &Log{BaseLen: baseLen}
}

// AppendWrite appends a Write entry, rejecting any write outside
// [0, BaseLen) or a zero-length-extend write (offset == BaseLen).
func (l *Log) AppendWrite(offset uint64, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("changelog: empty write at offset %d", offset)
	}
	if offset >= l.BaseLen {
		return fmt.Errorf("changelog: write at offset %d is at or beyond base image length %d (zero-length extends are rejected)", offset, l.BaseLen)
	}
	end := offset + uint64(len(data))
	if end > l.BaseLen {
		return fmt.Errorf("changelog: write [%d,%d) exceeds base image length %d", offset, end, l.BaseLen)
	}
	l.entries = append(l.entries, Write(offset, data))
	return nil
}

// AppendSync appends a Sync entry.
func (l *Log) AppendSync() {
	l.entries = append(l.entries, SyncEntry())
}

// Entries returns the entries in issue order. The caller must not mutate the
// returned slice's backing entries.
func (l *Log) Entries() []Entry {
	return l.entries
}

// Len returns the number of entries in the log.
func (l *Log) Len() int {
	return len(l.entries)
}

const magic = "CFL1"

const (
	tagWrite byte = 0
	tagSync  byte = 1
)

// Store serializes the log to <dir>/changes, writing to a temporary file
// and renaming over the destination so that a crash mid-write never leaves a
// torn changes file behind.
func (l *Log) Store(dir string) error {
	dest := filepath.Join(dir, "changes")
	tmp, err := os.CreateTemp(dir, ".changes.tmp-*")
	if err != nil {
		return fmt.Errorf("changelog: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	w := bufio.NewWriter(tmp)
	if _, err := w.WriteString(magic); err != nil {
		return fmt.Errorf("changelog: write header: %w", err)
	}
	if err := writeUvarint(w, l.BaseLen); err != nil {
		return fmt.Errorf("changelog: write header: %w", err)
	}
	for _, e := range l.entries {
		if err := writeEntry(w, e); err != nil {
			return fmt.Errorf("changelog: write entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("changelog: flush: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("changelog: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("changelog: close: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("changelog: rename into place: %w", err)
	}
	return nil
}

// Load reads <dir>/changes and returns the decoded log. baseLen is the
// length of the base image the caller intends to replay against; if it
// disagrees with the length recorded in the changes file, Load fails rather
// than guessing which one is authoritative.
func Load(dir string, baseLen uint64) (*Log, error) {
	path := filepath.Join(dir, "changes")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("changelog: open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	hdr := make([]byte, len(magic))
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, fmt.Errorf("changelog: read header of %s: %w", path, err)
	}
	if string(hdr) != magic {
		return nil, fmt.Errorf("changelog: %s is not a crashfs change log (bad magic)", path)
	}
	storedBaseLen, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("changelog: read base length of %s: %w", path, err)
	}
	if storedBaseLen != baseLen {
		return nil, fmt.Errorf("changelog: %s was recorded against a %d-byte base image but the supplied base image is %d bytes", path, storedBaseLen, baseLen)
	}

	l := New(baseLen)
	idx := 0
	for {
		tag, err := r.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("changelog: read tag at entry %d: %w", idx, err)
		}

		switch tag {
		case tagWrite:
			offset, err := binary.ReadUvarint(r)
			if err != nil {
				return nil, fmt.Errorf("changelog: read offset at entry %d: %w", idx, err)
			}
			length, err := binary.ReadUvarint(r)
			if err != nil {
				return nil, fmt.Errorf("changelog: read length at entry %d: %w", idx, err)
			}
			data := make([]byte, length)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, fmt.Errorf("changelog: read data at entry %d (offset %d, want %d bytes): %w", idx, offset, length, err)
			}
			if offset >= baseLen || offset+length > baseLen {
				return nil, fmt.Errorf("changelog: entry %d write [%d,%d) is out of range for a %d-byte base image", idx, offset, offset+length, baseLen)
			}
			l.entries = append(l.entries, Write(offset, data))
		case tagSync:
			l.entries = append(l.entries, SyncEntry())
		default:
			return nil, fmt.Errorf("changelog: entry %d has unknown tag %d", idx, tag)
		}
		idx++
	}

	return l, nil
}

func writeEntry(w *bufio.Writer, e Entry) error {
	switch e.Kind {
	case KindWrite:
		if err := w.WriteByte(tagWrite); err != nil {
			return err
		}
		if err := writeUvarint(w, e.Offset); err != nil {
			return err
		}
		if err := writeUvarint(w, uint64(len(e.Data))); err != nil {
			return err
		}
		_, err := w.Write(e.Data)
		return err
	case KindSync:
		return w.WriteByte(tagSync)
	default:
		return fmt.Errorf("changelog: cannot serialize entry of unknown kind %d", e.Kind)
	}
}

func writeUvarint(w *bufio.Writer, v uint64) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	_, err := w.Write(buf[:n])
	return err
}
