package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanFolder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.JPG", "c.gif", "notes.txt", "d.webp"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0755))

	paths, err := ScanFolder(dir)
	require.NoError(t, err)
	assert.Len(t, paths, 4)
	for _, p := range paths {
		assert.NotContains(t, p, "notes.txt")
	}

	_, err = ScanFolder(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestImportFolder(t *testing.T) {
	c := newTestCatalog(t, nil, Options{})
	ctx := context.Background()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "first.png"), pngBytes(t, 2), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "second.png"), pngBytes(t, 3), 0644))
	// Same bytes as first: counted as a duplicate.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "copy.png"), pngBytes(t, 2), 0644))
	// Not an image extension: skipped entirely.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("skip"), 0644))

	stats, err := c.ImportFolder(ctx, dir, false)
	require.NoError(t, err)
	// Which of the two identical files wins the race is undefined; one
	// imports, one is a duplicate.
	assert.Equal(t, 2, stats.Imported)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Zero(t, stats.Failed)

	count, err := c.Store().CountImages(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// File names without extension become the initial image names.
	images, err := c.List(ctx, Filter{})
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, img := range images {
		names[img.Name] = true
	}
	assert.True(t, names["second"])
}

func TestImportFolderCountsFailures(t *testing.T) {
	c := newTestCatalog(t, nil, Options{})

	dir := t.TempDir()
	// Zero-byte files are rejected by ingest and counted as failures.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.png"), nil, 0644))

	stats, err := c.ImportFolder(context.Background(), dir, false)
	require.NoError(t, err)
	assert.Zero(t, stats.Imported)
	assert.Equal(t, 1, stats.Failed)
}

func TestWatcherImportsDroppedFiles(t *testing.T) {
	c := newTestCatalog(t, nil, Options{})
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "inbox")

	w := NewWatcher(c, dir, false)
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	path := filepath.Join(dir, "dropped.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 2), 0644))

	require.Eventually(t, func() bool {
		count, err := c.Store().CountImages(ctx)
		return err == nil && count == 1
	}, 10*time.Second, 100*time.Millisecond)

	// Imported files are consumed from the watch folder.
	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, 5*time.Second, 100*time.Millisecond)

	img, err := c.Get(ctx, "dropped")
	require.NoError(t, err)
	assert.Equal(t, "dropped", img.Name)
}

func TestWatcherImportsExistingFilesOnStart(t *testing.T) {
	c := newTestCatalog(t, nil, Options{})
	ctx := context.Background()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "already-there.png"), pngBytes(t, 2), 0644))

	w := NewWatcher(c, dir, false)
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	count, err := c.Store().CountImages(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
