package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shared "histedit/shared/types"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	dir, err := os.MkdirTemp("", "histedit-session-test")
	require.NoError(t, err)

	store, err := Open(filepath.Join(dir, "db"))
	require.NoError(t, err)

	cleanup := func() {
		store.Close()
		os.RemoveAll(dir)
	}
	return store, cleanup
}

func sampleExport() shared.ExportStack {
	return shared.ExportStack{{
		Node: "c0",
		Text: "initial",
		Files: map[string]shared.ExportFile{
			"a.txt": {Data: "hello\n"},
		},
	}}
}

func TestSaveAndLoad(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	id, err := store.Save("before-fold", sampleExport(), 1000)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	cp, err := store.Load(id)
	require.NoError(t, err)
	assert.Equal(t, "before-fold", cp.Label)
	assert.Equal(t, int64(1000), cp.CreatedAt)
	assert.Equal(t, sampleExport(), cp.Export)
}

func TestLast_ReturnsMostRecent(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.Save("first", sampleExport(), 100)
	require.NoError(t, err)
	_, err = store.Save("second", sampleExport(), 200)
	require.NoError(t, err)

	last, err := store.Last()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "second", last.Label)
}

func TestLast_NilWhenEmpty(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	last, err := store.Last()
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestDelete(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	id, err := store.Save("temp", sampleExport(), 1)
	require.NoError(t, err)

	require.NoError(t, store.Delete(id))
	_, err = store.Load(id)
	assert.Error(t, err)
}

func TestList_MostRecentFirst(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.Save("a", sampleExport(), 1)
	require.NoError(t, err)
	_, err = store.Save("b", sampleExport(), 2)
	require.NoError(t, err)

	all, err := store.List()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].Label)
	assert.Equal(t, "a", all[1].Label)
}
