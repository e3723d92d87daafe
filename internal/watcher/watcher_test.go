package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, path string) <-chan struct{} {
	t.Helper()
	w, err := New(Config{Path: path, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)
	ch, err := w.Start()
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	return ch
}

func TestWatcher_SignalsOnMetadataWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	ch := startWatcher(t, path)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("m: {}\n"), 0o644))
	}

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no change signal")
	}

	select {
	case <-ch:
		t.Fatal("burst of writes should debounce into one signal")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_SignalsOnRenameIntoPlace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	ch := startWatcher(t, path)

	tmp := filepath.Join(dir, ".registry.yaml.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("m: {}\n"), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no change signal")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	ch := startWatcher(t, filepath.Join(dir, "registry.yaml"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case <-ch:
		t.Fatal("unrelated file triggered a signal")
	case <-time.After(200 * time.Millisecond):
	}
}
