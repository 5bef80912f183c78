// Package blockfs is the recorder/replayer: a single FUSE filesystem
// surface exposing one synthetic regular file backed by an in-memory byte
// image, parameterised by a Policy so the same code records writes during a
// guest session and replays a materialized image without recording.
//
// The operation set is deliberately the minimal one needed to back a
// loop-mounted block device: lookup, getattr, open, read, write, fsync,
// flush, release, statfs. Everything else falls through to
// fuseutil.NotImplementedFileSystem's ENOSYS.
package blockfs

import (
	"os"
	"syscall"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/jacobsa/syncutil"
)

// fileInodeID is the (fixed) inode number of the one synthetic file; the
// root directory is fuseops.RootInodeID.
const fileInodeID = fuseops.RootInodeID + 1

// FS implements fuseutil.FileSystem over a single named regular file whose
// contents are an in-memory byte slice of fixed length: writes may not grow
// or shrink it, matching the fixed-size block device this backs.
type FS struct {
	fuseutil.NotImplementedFileSystem

	name string
	uid  uint32
	gid  uint32

	policy Policy

	mu         syncutil.InvariantMutex
	image      []byte                        // GUARDED_BY(mu)
	nextHandle fuseops.HandleID              // GUARDED_BY(mu)
	handles    map[fuseops.HandleID]struct{} // GUARDED_BY(mu)
}

// New returns a filesystem exposing a single file named name, backed by a
// copy of image, reporting ownership as uid/gid, and routing every write
// and fsync through policy.
func New(name string, image []byte, uid, gid uint32, policy Policy) *FS {
	fs := &FS{
		name:       name,
		uid:        uid,
		gid:        gid,
		policy:     policy,
		image:      append([]byte(nil), image...),
		nextHandle: 1,
		handles:    make(map[fuseops.HandleID]struct{}),
	}

	fs.mu = syncutil.NewInvariantMutex(fs.checkInvariants)

	return fs
}

func (fs *FS) checkInvariants() {
	for h := range fs.handles {
		if h == 0 {
			panic("handle 0 is reserved")
		}
	}
}

// Image returns a copy of the current in-memory contents, for inspection
// after a session ends.
func (fs *FS) Image() []byte {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]byte(nil), fs.image...)
}

func (fs *FS) Init(op *fuseops.InitOp) error {
	return nil
}

func (fs *FS) LookUpInode(op *fuseops.LookUpInodeOp) error {
	if op.Parent != fuseops.RootInodeID || op.Name != fs.name {
		return fuse.ENOENT
	}

	op.Entry.Child = fileInodeID
	op.Entry.Attributes = fs.fileAttributes()
	return nil
}

func (fs *FS) GetInodeAttributes(op *fuseops.GetInodeAttributesOp) error {
	switch op.Inode {
	case fuseops.RootInodeID:
		op.Attributes = fs.dirAttributes()
	case fileInodeID:
		op.Attributes = fs.fileAttributes()
	default:
		return fuse.ENOENT
	}
	return nil
}

func (fs *FS) fileAttributes() fuseops.InodeAttributes {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fuseops.InodeAttributes{
		Size:  uint64(len(fs.image)),
		Nlink: 1,
		Mode:  0644,
		Uid:   fs.uid,
		Gid:   fs.gid,
	}
}

func (fs *FS) dirAttributes() fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Nlink: 2,
		Mode:  os.ModeDir | 0755,
		Uid:   fs.uid,
		Gid:   fs.gid,
	}
}

func (fs *FS) OpenFile(op *fuseops.OpenFileOp) error {
	if op.Inode != fileInodeID {
		return fuse.ENOENT
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	h := fs.nextHandle
	fs.nextHandle++
	fs.handles[h] = struct{}{}
	op.Handle = h

	return nil
}

func (fs *FS) ReadFile(op *fuseops.ReadFileOp) error {
	if op.Inode != fileInodeID {
		return fuse.ENOENT
	}
	if op.Offset < 0 {
		return syscall.EINVAL
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.handles[op.Handle]; !ok {
		return syscall.EIO
	}

	offset := op.Offset
	if offset > int64(len(fs.image)) {
		offset = int64(len(fs.image))
	}
	end := offset + int64(op.Size)
	if end > int64(len(fs.image)) {
		end = int64(len(fs.image))
	}

	op.Data = append([]byte(nil), fs.image[offset:end]...)
	return nil
}

// WriteFile applies a write to the in-memory image. The image has fixed
// length: a write that would extend past the end is rejected rather than
// growing it, since the block device it backs has a fixed size.
func (fs *FS) WriteFile(op *fuseops.WriteFileOp) error {
	if op.Inode != fileInodeID {
		return fuse.ENOENT
	}
	if op.Offset < 0 {
		return syscall.EINVAL
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.handles[op.Handle]; !ok {
		return syscall.EIO
	}

	end := op.Offset + int64(len(op.Data))
	if end > int64(len(fs.image)) {
		return syscall.EINVAL
	}

	if err := fs.policy.OnWrite(uint64(op.Offset), op.Data); err != nil {
		return syscall.EIO
	}

	copy(fs.image[op.Offset:end], op.Data)
	return nil
}

// SyncFile implements fsync(2): in recording mode this is the one place a
// Sync entry gets appended to the log. Flush (close(2)) is a separate,
// no-op upcall below; only an explicit fsync marks a durability point.
func (fs *FS) SyncFile(op *fuseops.SyncFileOp) error {
	if op.Inode != fileInodeID {
		return fuse.ENOENT
	}
	return fs.policy.OnSync()
}

func (fs *FS) FlushFile(op *fuseops.FlushFileOp) error {
	if op.Inode != fileInodeID {
		return fuse.ENOENT
	}
	return nil
}

func (fs *FS) ReleaseFileHandle(op *fuseops.ReleaseFileHandleOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.handles, op.Handle)
	return nil
}

func (fs *FS) StatFS(op *fuseops.StatFSOp) error {
	fs.mu.Lock()
	blocks := uint64(len(fs.image))/4096 + 1
	fs.mu.Unlock()

	op.BlockSize = 4096
	op.Blocks = blocks
	op.BlocksFree = 0
	op.BlocksAvailable = 0
	op.IoSize = 4096
	return nil
}

// Server wraps fs in a fuse.Server ready to pass to fuse.Mount.
func Server(fs *FS) fuse.Server {
	return fuseutil.NewFileSystemServer(fs)
}
