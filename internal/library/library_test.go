package library

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/glefebvre/animedl/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
}

func TestDiff(t *testing.T) {
	catalog := []string{"ep-01", "ep-02", "ep-03", "ep-04"}

	tests := []struct {
		name  string
		local LocalState
		want  []string
	}{
		{"empty local state", LocalState{}, catalog},
		{"everything present", LocalState{"ep-01": {}, "ep-02": {}, "ep-03": {}, "ep-04": {}}, []string{}},
		{"order preserved", LocalState{"ep-02": {}, "ep-04": {}}, []string{"ep-01", "ep-03"}},
		{"unrelated local entries", LocalState{"notes.txt": {}}, catalog},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Diff(catalog, tt.local))
		})
	}
}

func TestDiff_SubsequenceProperty(t *testing.T) {
	catalog := []string{"a", "b", "a", "c", "d", "e"}
	local := LocalState{"a": {}, "d": {}}

	pending := Diff(catalog, local)

	assert.Equal(t, []string{"b", "c", "e"}, pending)
	for _, id := range pending {
		assert.False(t, local.Has(id))
	}
}

func TestPending(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "ep-01.mp4", "ep-03")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "ep-04"), 0755))

	pending, err := Pending(dir, []string{"ep-01", "ep-02", "ep-03", "ep-04", "ep-05"})

	require.NoError(t, err)
	assert.Equal(t, []string{"ep-02", "ep-05"}, pending)
}

func TestPending_AllPresentAndNonePresent(t *testing.T) {
	catalog := []string{"x-1", "x-2"}

	empty := t.TempDir()
	pending, err := Pending(empty, catalog)
	require.NoError(t, err)
	assert.Equal(t, catalog, pending)

	full := t.TempDir()
	touch(t, full, catalog...)
	pending, err = Pending(full, catalog)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPending_OnlyKnownExtensionsAreStripped(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "ep-1.5", "ep-2.part")

	pending, err := Pending(dir, []string{"ep-1", "ep-1.5", "ep-2"})

	require.NoError(t, err)
	assert.Equal(t, []string{"ep-1", "ep-2"}, pending)
}

func TestPending_MissingDirectory(t *testing.T) {
	_, err := Pending(filepath.Join(t.TempDir(), "missing"), []string{"a"})

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeFilesystem, apperrors.GetErrorCode(err))
}

func TestEnsureCatalogDir(t *testing.T) {
	target := t.TempDir()

	dir, err := EnsureCatalogDir(target, "one-piece")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(target, "one-piece"), dir)
	assert.DirExists(t, dir)

	touch(t, dir, "ep-01.mp4")
	again, err := EnsureCatalogDir(target, "one-piece")
	require.NoError(t, err)
	assert.Equal(t, dir, again)
	assert.FileExists(t, filepath.Join(dir, "ep-01.mp4"))
}

func TestEnsureCatalogDir_CreatesMissingTarget(t *testing.T) {
	target := filepath.Join(t.TempDir(), "media", "anime")

	dir, err := EnsureCatalogDir(target, "bleach")

	require.NoError(t, err)
	assert.DirExists(t, dir)
}

func TestEnsureCatalogDir_Errors(t *testing.T) {
	target := t.TempDir()
	touch(t, target, "naruto")

	_, err := EnsureCatalogDir(target, "naruto")
	assert.Equal(t, apperrors.CodeFilesystem, apperrors.GetErrorCode(err))

	for _, name := range []string{"", "..", "a/b"} {
		_, err := EnsureCatalogDir(target, name)
		assert.True(t, apperrors.IsValidationError(err), "name %q", name)
	}
}
