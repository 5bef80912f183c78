package blockfs

import (
	"syscall"
	"testing"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crashfs/crashfs/internal/changelog"
)

func openHandle(t *testing.T, fs *FS) fuseops.HandleID {
	t.Helper()
	op := &fuseops.OpenFileOp{Inode: fileInodeID}
	require.NoError(t, fs.OpenFile(op))
	return op.Handle
}

func TestLookUpInodeFindsTheSyntheticFile(t *testing.T) {
	fs := New("disk.img", make([]byte, 16), 1000, 1000, ReplayPolicy{})

	op := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "disk.img"}
	require.NoError(t, fs.LookUpInode(op))
	assert.Equal(t, fuseops.InodeID(fileInodeID), op.Entry.Child)
	assert.EqualValues(t, 16, op.Entry.Attributes.Size)
}

func TestLookUpInodeRejectsWrongNameOrParent(t *testing.T) {
	fs := New("disk.img", make([]byte, 16), 1000, 1000, ReplayPolicy{})

	err := fs.LookUpInode(&fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "wrong"})
	assert.Equal(t, fuse.ENOENT, err)

	err = fs.LookUpInode(&fuseops.LookUpInodeOp{Parent: fileInodeID, Name: "disk.img"})
	assert.Equal(t, fuse.ENOENT, err)
}

func TestReadFileReturnsClampedSlice(t *testing.T) {
	image := []byte("hello world")
	fs := New("disk.img", image, 0, 0, ReplayPolicy{})
	h := openHandle(t, fs)

	op := &fuseops.ReadFileOp{Inode: fileInodeID, Handle: h, Offset: 6, Size: 1000}
	require.NoError(t, fs.ReadFile(op))
	assert.Equal(t, []byte("world"), op.Data)
}

func TestReadFileUnknownHandleFails(t *testing.T) {
	fs := New("disk.img", []byte("hi"), 0, 0, ReplayPolicy{})

	err := fs.ReadFile(&fuseops.ReadFileOp{Inode: fileInodeID, Handle: 999, Size: 2})
	assert.Equal(t, syscall.EIO, err)
}

func TestWriteFileAppliesInPlaceAndRecords(t *testing.T) {
	log := changelog.New(4)
	fs := New("disk.img", make([]byte, 4), 0, 0, &RecordingPolicy{Log: log})
	h := openHandle(t, fs)

	err := fs.WriteFile(&fuseops.WriteFileOp{Inode: fileInodeID, Handle: h, Offset: 1, Data: []byte{9, 9}})
	require.NoError(t, err)

	assert.Equal(t, []byte{0, 9, 9, 0}, fs.Image())
	require.Len(t, log.Entries(), 1)
	assert.Equal(t, changelog.KindWrite, log.Entries()[0].Kind)
}

func TestWriteFilePastEndOfImageIsRejected(t *testing.T) {
	fs := New("disk.img", make([]byte, 4), 0, 0, ReplayPolicy{})
	h := openHandle(t, fs)

	err := fs.WriteFile(&fuseops.WriteFileOp{Inode: fileInodeID, Handle: h, Offset: 3, Data: []byte{1, 2}})
	assert.Equal(t, syscall.EINVAL, err)
}

func TestSyncFileAppendsSyncUnderRecordingOnly(t *testing.T) {
	log := changelog.New(4)
	fs := New("disk.img", make([]byte, 4), 0, 0, &RecordingPolicy{Log: log})

	require.NoError(t, fs.SyncFile(&fuseops.SyncFileOp{Inode: fileInodeID}))
	require.Len(t, log.Entries(), 1)
	assert.Equal(t, changelog.KindSync, log.Entries()[0].Kind)
}

func TestFlushFileNeverRecords(t *testing.T) {
	log := changelog.New(4)
	fs := New("disk.img", make([]byte, 4), 0, 0, &RecordingPolicy{Log: log})

	require.NoError(t, fs.FlushFile(&fuseops.FlushFileOp{Inode: fileInodeID}))
	assert.Empty(t, log.Entries())
}

func TestReleaseFileHandleForgetsHandle(t *testing.T) {
	fs := New("disk.img", make([]byte, 4), 0, 0, ReplayPolicy{})
	h := openHandle(t, fs)

	require.NoError(t, fs.ReleaseFileHandle(&fuseops.ReleaseFileHandleOp{Handle: h}))

	err := fs.ReadFile(&fuseops.ReadFileOp{Inode: fileInodeID, Handle: h, Size: 1})
	assert.Equal(t, syscall.EIO, err)
}

func TestGetInodeAttributesCoversRootAndFile(t *testing.T) {
	fs := New("disk.img", make([]byte, 8), 42, 7, ReplayPolicy{})

	var op fuseops.GetInodeAttributesOp
	op.Inode = fuseops.RootInodeID
	require.NoError(t, fs.GetInodeAttributes(&op))
	assert.True(t, op.Attributes.Mode.IsDir())

	op = fuseops.GetInodeAttributesOp{Inode: fileInodeID}
	require.NoError(t, fs.GetInodeAttributes(&op))
	assert.EqualValues(t, 8, op.Attributes.Size)
	assert.EqualValues(t, 42, op.Attributes.Uid)

	op = fuseops.GetInodeAttributesOp{Inode: fileInodeID + 50}
	assert.Equal(t, fuse.ENOENT, fs.GetInodeAttributes(&op))
}

func TestStatFSReportsBlockCounts(t *testing.T) {
	fs := New("disk.img", make([]byte, 8192), 0, 0, ReplayPolicy{})

	var op fuseops.StatFSOp
	require.NoError(t, fs.StatFS(&op))
	assert.EqualValues(t, 4096, op.BlockSize)
	assert.EqualValues(t, 3, op.Blocks)
}
