package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemProviderGetSetHasDelete(t *testing.T) {
	root := t.TempDir()
	p := NewFilesystemProvider("0", root, true, true, false)

	_, err := p.Get(CategoryObj, "fp1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, p.Has(CategoryObj, "fp1"))

	require.NoError(t, p.Set(CategoryObj, "fp1", []byte("hello")))
	assert.True(t, p.Has(CategoryObj, "fp1"))

	got, err := p.Get(CategoryObj, "fp1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	assert.FileExists(t, filepath.Join(root, "obj", "fp1"))

	require.NoError(t, p.Delete(CategoryObj, "fp1"))
	assert.False(t, p.Has(CategoryObj, "fp1"))
	require.NoError(t, p.Delete(CategoryObj, "fp1")) // idempotent
}

func TestFilesystemProviderCategoryNoneUsesFlatLayout(t *testing.T) {
	root := t.TempDir()
	p := NewFilesystemProvider("0", root, true, true, false)

	require.NoError(t, p.Set(CategoryNone, "somekey", []byte("x")))
	assert.FileExists(t, filepath.Join(root, "somekey"))
}

func TestFilesystemProviderObjCategoryExemptFromMismatchPanic(t *testing.T) {
	root := t.TempDir()
	p := NewFilesystemProvider("0", root, true, true, true)

	require.NoError(t, p.Set(CategoryObj, "fp1", []byte("first")))
	require.NotPanics(t, func() {
		require.NoError(t, p.Set(CategoryObj, "fp1", []byte("second")))
	})

	got, err := p.Get(CategoryObj, "fp1")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestFilesystemProviderMismatchPanicsForNonObjCategory(t *testing.T) {
	root := t.TempDir()
	p := NewFilesystemProvider("0", root, true, true, true)

	require.NoError(t, p.Set(CategoryDep, "fp1", []byte("first")))
	assert.Panics(t, func() {
		_ = p.Set(CategoryDep, "fp1", []byte("different"))
	})

	// original bytes preserved
	got, err := os.ReadFile(filepath.Join(root, "dep", "fp1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

func TestFilesystemProviderMismatchWithIdenticalBytesDoesNotPanic(t *testing.T) {
	root := t.TempDir()
	p := NewFilesystemProvider("0", root, true, true, true)

	require.NoError(t, p.Set(CategoryDep, "fp1", []byte("same")))
	assert.NotPanics(t, func() {
		require.NoError(t, p.Set(CategoryDep, "fp1", []byte("same")))
	})
}

func TestFilesystemProviderUpdateFlags(t *testing.T) {
	p := NewFilesystemProvider("2", t.TempDir(), false, false, false)
	assert.False(t, p.Update())
	assert.False(t, p.TestIfUpdateIsRequired())
	assert.Equal(t, "2", p.ID())
}
