package mutate

import (
	"testing"

	"github.com/crashfs/crashfs/internal/changelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitWrite(t *testing.T) {
	l := changelog.New(16)
	require.NoError(t, l.AppendWrite(0, []byte("XY")))

	out := Apply(l, Options{SplitWrite: true})

	require.Equal(t, 2, out.Len())
	e0, e1 := out.Entries()[0], out.Entries()[1]
	assert.Equal(t, changelog.Write(0, []byte("X")), e0)
	assert.Equal(t, changelog.Write(1, []byte("Y")), e1)
}

func TestZeroFillAndDropSync(t *testing.T) {
	l := changelog.New(16)
	require.NoError(t, l.AppendWrite(0, []byte("ABCD")))
	l.AppendSync()

	out := Apply(l, Options{ZeroFill: true, DropSync: true})

	require.Equal(t, 1, out.Len())
	assert.Equal(t, changelog.Write(0, []byte{0, 0, 0, 0}), out.Entries()[0])
}

func TestDropSyncRemovesAllSyncs(t *testing.T) {
	l := changelog.New(16)
	require.NoError(t, l.AppendWrite(0, []byte("AB")))
	l.AppendSync()
	require.NoError(t, l.AppendWrite(4, []byte("CD")))
	l.AppendSync()

	out := Apply(l, Options{DropSync: true})

	for _, e := range out.Entries() {
		assert.NotEqual(t, changelog.KindSync, e.Kind)
	}
	assert.Equal(t, 2, out.Len())
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	l := changelog.New(16)
	require.NoError(t, l.AppendWrite(0, []byte("ABCD")))

	_ = Apply(l, Options{ZeroFill: true})

	assert.Equal(t, []byte("ABCD"), l.Entries()[0].Data)
}

func TestSplitWriteLeavesSingleByteWrites(t *testing.T) {
	l := changelog.New(16)
	require.NoError(t, l.AppendWrite(0, []byte("A")))

	out := Apply(l, Options{SplitWrite: true})
	require.Equal(t, 1, out.Len())
	assert.Equal(t, changelog.Write(0, []byte("A")), out.Entries()[0])
}

func TestComposedOptionsApplyInOrder(t *testing.T) {
	l := changelog.New(16)
	require.NoError(t, l.AppendWrite(0, []byte("ABCD")))
	l.AppendSync()

	out := Apply(l, Options{SplitWrite: true, ZeroFill: true, DropSync: true})

	require.Equal(t, 2, out.Len())
	for _, e := range out.Entries() {
		assert.Equal(t, changelog.KindWrite, e.Kind)
		for _, b := range e.Data {
			assert.Equal(t, byte(0), b)
		}
	}
}
