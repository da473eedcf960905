package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/caselink/internal/casestore"
	"github.com/fyrsmithlabs/caselink/internal/matcher"
)

const exportJSON = `{"emails": [{
	"entryId": "msg-1",
	"subject": "Bestandsübertragung",
	"body": "Kunde: Anna Schneider\nVS-Nr: ERG-123456",
	"from": "makler@pool.de"
}]}`

func newTestWatcher(t *testing.T, dir string, debounce time.Duration) (*Watcher, *casestore.InMemoryStore) {
	t.Helper()
	store := casestore.NewInMemoryStore()
	m, err := matcher.New(store, store, matcher.DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	w, err := New(dir, debounce, m, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(w.Stop)
	return w, store
}

func TestNewValidation(t *testing.T) {
	_, err := New("", time.Second, nil, nil)
	assert.Error(t, err)
}

func TestImportsExistingFilesOnStart(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "export.json"), []byte(exportJSON), 0o644))

	w, store := newTestWatcher(t, dir, 50*time.Millisecond)
	require.NoError(t, w.Start(context.Background()))

	cases, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, casestore.StatusToValidate, cases[0].Status)

	// Handled file moved aside under a timestamped name.
	_, err = os.Stat(filepath.Join(dir, "export.json"))
	assert.True(t, os.IsNotExist(err))

	entries, err := os.ReadDir(filepath.Join(dir, processedDirName))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "export.json")
}

func TestImportsDroppedFileAfterDebounce(t *testing.T) {
	dir := t.TempDir()
	w, store := newTestWatcher(t, dir, 50*time.Millisecond)
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "drop.json"), []byte(exportJSON), 0o644))

	require.Eventually(t, func() bool {
		cases, err := store.List(context.Background())
		return err == nil && len(cases) == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestIgnoresNonExportFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not an export"), 0o644))

	w, store := newTestWatcher(t, dir, 50*time.Millisecond)
	require.NoError(t, w.Start(context.Background()))

	cases, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cases)

	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err, "non-export files stay put")
}

func TestMalformedFileStaysInPlace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644))

	w, store := newTestWatcher(t, dir, 50*time.Millisecond)
	require.NoError(t, w.Start(context.Background()))

	cases, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cases)

	_, err = os.Stat(filepath.Join(dir, "broken.json"))
	assert.NoError(t, err, "failed files are left for retry")
}

func TestIsExportFile(t *testing.T) {
	assert.True(t, isExportFile("export.json"))
	assert.True(t, isExportFile("Export.JSON"))
	assert.False(t, isExportFile("export.csv"))
	assert.False(t, isExportFile("json"))
}
