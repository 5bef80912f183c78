package replay

import (
	"bytes"
	"testing"

	"github.com/crashfs/crashfs/internal/changelog"
	"github.com/crashfs/crashfs/internal/filterexpr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildLog(t *testing.T) *changelog.Log {
	t.Helper()
	l := changelog.New(16)
	require.NoError(t, l.AppendWrite(0, []byte("AB")))
	l.AppendSync()
	require.NoError(t, l.AppendWrite(4, []byte("CD")))
	return l
}

func TestMaterializeAllOnes(t *testing.T) {
	base := make([]byte, 16)
	l := buildLog(t)

	out, err := Materialize(base, l, filterexpr.All(l.Len()))
	require.NoError(t, err)

	want := append([]byte("AB\x00\x00CD"), make([]byte, 10)...)
	assert.True(t, bytes.Equal(out, want), "got %x want %x", out, want)
}

func TestMaterializeZeroFilter(t *testing.T) {
	base := make([]byte, 16)
	l := buildLog(t)

	f, err := filterexpr.Parse("0")
	require.NoError(t, err)

	out, err := Materialize(base, l, f)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(out, base), "empty filter must reproduce the base image unchanged")
}

func TestMaterializeSelectingFirstWriteOnly(t *testing.T) {
	base := make([]byte, 16)
	l := buildLog(t)

	f, err := filterexpr.Parse("0:1")
	require.NoError(t, err)

	out, err := Materialize(base, l, f)
	require.NoError(t, err)
	want := append([]byte("AB"), make([]byte, 14)...)
	assert.True(t, bytes.Equal(out, want))
}

func TestMaterializeSelectingSecondWriteOnly(t *testing.T) {
	base := make([]byte, 16)
	l := buildLog(t)

	f, err := filterexpr.Parse("2:1")
	require.NoError(t, err)

	out, err := Materialize(base, l, f)
	require.NoError(t, err)
	want := make([]byte, 16)
	copy(want[4:], "CD")
	assert.True(t, bytes.Equal(out, want))
}

func TestMaterializeDoesNotMutateBase(t *testing.T) {
	base := make([]byte, 16)
	l := buildLog(t)

	_, err := Materialize(base, l, filterexpr.All(l.Len()))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(base, make([]byte, 16)), "base must not be mutated")
}

func TestMaterializeIsDeterministic(t *testing.T) {
	base := make([]byte, 16)
	l := buildLog(t)

	f, err := filterexpr.Parse("0:11")
	require.NoError(t, err)

	out1, err := Materialize(base, l, f)
	require.NoError(t, err)
	out2, err := Materialize(base, l, f)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}

func TestMaterializeRejectsBaseLengthMismatch(t *testing.T) {
	l := buildLog(t)
	_, err := Materialize(make([]byte, 8), l, filterexpr.All(l.Len()))
	assert.Error(t, err)
}
