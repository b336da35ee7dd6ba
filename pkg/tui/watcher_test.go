package tui

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitChange(t *testing.T, w *CacheWatcher) {
	t.Helper()
	select {
	case <-w.Changes():
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
}

func drain(w *CacheWatcher) {
	for {
		select {
		case <-w.Changes():
		case <-time.After(50 * time.Millisecond):
			return
		}
	}
}

func TestCacheWatcherFollowsNewDirectories(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repos")
	w, err := NewCacheWatcher(context.Background(), root)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	require.DirExists(t, root)

	host := filepath.Join(root, "github.com")
	require.NoError(t, os.Mkdir(host, 0o755))
	waitChange(t, w)

	owner := filepath.Join(host, "acme")
	require.NoError(t, os.Mkdir(owner, 0o755))
	waitChange(t, w)

	require.NoError(t, os.Mkdir(filepath.Join(owner, "toolkit"), 0o755))
	waitChange(t, w)
}

func TestCacheWatcherWatchesExistingTree(t *testing.T) {
	root := t.TempDir()
	owner := filepath.Join(root, "github.com", "acme")
	require.NoError(t, os.MkdirAll(owner, 0o755))

	w, err := NewCacheWatcher(context.Background(), root)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	require.NoError(t, os.Mkdir(filepath.Join(owner, "toolkit"), 0o755))
	waitChange(t, w)
}

func TestCacheWatcherIgnoresLockDirectory(t *testing.T) {
	root := t.TempDir()
	w, err := NewCacheWatcher(context.Background(), root)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	locks := filepath.Join(root, ".locks")
	require.NoError(t, os.Mkdir(locks, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(locks, "a.lock"), nil, 0o644))
	drain(w)

	select {
	case <-w.Changes():
		t.Fatal("unexpected change for lock directory")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCacheWatcherCloseClosesChanges(t *testing.T) {
	w, err := NewCacheWatcher(context.Background(), t.TempDir())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, ok := <-w.Changes()
	require.False(t, ok)
}
