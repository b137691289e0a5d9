package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitBatch(t *testing.T, w *Watcher) []string {
	t.Helper()
	select {
	case b, ok := <-w.Batches():
		require.True(t, ok, "watcher stopped")
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("no batch within 5s")
		return nil
	}
}

func TestWatcherBatchesXMLChanges(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))

	w, err := New(dir, Options{Debounce: 50 * time.Millisecond, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	items := filepath.Join(dir, "items.xml")
	require.NoError(t, os.WriteFile(items, []byte("<Items/>"), 0o644))
	require.NoError(t, os.WriteFile(items, []byte("<Items><Item id=\"a\"/></Items>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "HEAD.xml"), []byte("x"), 0o644))

	assert.Equal(t, []string{items}, waitBatch(t, w))
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, Options{Debounce: 50 * time.Millisecond, Extensions: []string{"XML"}, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// give the watcher a moment to install the new watch
	time.Sleep(200 * time.Millisecond)
	p := filepath.Join(sub, "skills.xml")
	require.NoError(t, os.WriteFile(p, []byte("<Skills/>"), 0o644))

	assert.Equal(t, []string{p}, waitBatch(t, w))
}

func TestWatcherClosesOnCancel(t *testing.T) {
	w, err := New(t.TempDir(), Options{Debounce: 10 * time.Millisecond})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()
	select {
	case _, ok := <-w.Batches():
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("batches not closed")
	}
	_ = w.Stop()
}
