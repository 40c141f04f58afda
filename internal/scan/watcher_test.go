package scan

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/atom/pkg/atom"
)

func newTestWatcher(t *testing.T, root string) (*Watcher, chan FileResult, chan string) {
	t.Helper()
	cfg := testConfig(t, root)
	cfg.Watch.Enabled = true
	cfg.Watch.DebounceMs = 20

	w, err := NewWatcher(cfg, New(cfg))
	require.NoError(t, err)

	updates := make(chan FileResult, 16)
	removes := make(chan string, 16)
	// Never block the watcher goroutine, or Stop would hang
	w.SetCallbacks(
		func(path string, res FileResult) {
			select {
			case updates <- res:
			default:
			}
		},
		func(path string) {
			select {
			case removes <- path:
			default:
			}
		},
	)
	return w, updates, removes
}

func TestWatcher_InternsChangedFiles(t *testing.T) {
	root := writeTree(t, map[string]string{"existing.txt": "old"})
	w, updates, _ := newTestWatcher(t, root)
	require.NoError(t, w.Start(root))
	defer w.Stop()

	word := "watched_token_" + filepath.Base(root)
	path := filepath.Join(root, "new.txt")
	require.NoError(t, os.WriteFile(path, []byte(word+" "+word+" other"), 0o644))

	// The create may settle before the write lands; wait for the full content
	timeout := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case res := <-updates:
			assert.Equal(t, path, res.Path)
			if res.Tokens == 3 {
				assert.Equal(t, 2, res.Distinct)
				done = true
			}
		case <-timeout:
			t.Fatal("timed out waiting for watcher update")
		}
	}

	_, ok := atom.Lookup(word)
	assert.True(t, ok, "watched tokens are interned")

	stats := w.GetStats()
	assert.True(t, stats.IsActive)
	assert.GreaterOrEqual(t, stats.EventsProcessed, int64(1))
}

func TestWatcher_NewDirectoriesAreWatched(t *testing.T) {
	root := writeTree(t, map[string]string{})
	w, updates, _ := newTestWatcher(t, root)
	require.NoError(t, w.Start(root))
	defer w.Stop()

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	// Give the watcher a moment to register the new directory
	deadline := time.Now().Add(5 * time.Second)
	path := filepath.Join(sub, "inner.txt")
	for {
		require.NoError(t, os.WriteFile(path, []byte("inner"), 0o644))
		select {
		case res := <-updates:
			assert.Equal(t, path, res.Path)
			return
		case <-time.After(200 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for update from new directory")
		}
	}
}

func TestWatcher_Remove(t *testing.T) {
	root := writeTree(t, map[string]string{"gone.txt": "bye"})
	w, _, removes := newTestWatcher(t, root)
	require.NoError(t, w.Start(root))
	defer w.Stop()

	path := filepath.Join(root, "gone.txt")
	require.NoError(t, os.Remove(path))

	select {
	case got := <-removes:
		assert.Equal(t, path, got)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for remove callback")
	}
}

func TestWatcher_IgnoresExcludedFiles(t *testing.T) {
	root := writeTree(t, map[string]string{})
	w, updates, _ := newTestWatcher(t, root)
	require.NoError(t, w.Start(root))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "skip.swp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "keep.txt"), []byte("y"), 0o644))

	select {
	case res := <-updates:
		assert.Equal(t, filepath.Join(root, "keep.txt"), res.Path)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher update")
	}

	quiet := time.After(100 * time.Millisecond)
	for {
		select {
		case res := <-updates:
			assert.NotEqual(t, filepath.Join(root, "skip.swp"), res.Path)
		case <-quiet:
			return
		}
	}
}

func TestWatcher_DisabledStartIsNoop(t *testing.T) {
	root := writeTree(t, map[string]string{})
	cfg := testConfig(t, root)

	w, err := NewWatcher(cfg, New(cfg))
	require.NoError(t, err)
	assert.False(t, w.GetStats().IsActive, "not started")

	require.NoError(t, w.Start(root))
	assert.False(t, w.GetStats().IsActive, "disabled watching never becomes active")

	require.NoError(t, w.Stop())
	assert.False(t, w.GetStats().IsActive)
	assert.NoError(t, w.Stop(), "second Stop is a no-op")
}

func TestWatcher_ActiveUntilStopped(t *testing.T) {
	root := writeTree(t, map[string]string{})
	w, _, _ := newTestWatcher(t, root)
	assert.False(t, w.GetStats().IsActive)

	require.NoError(t, w.Start(root))
	assert.True(t, w.GetStats().IsActive)

	require.NoError(t, w.Stop())
	assert.False(t, w.GetStats().IsActive)
}

func TestEventDebouncer(t *testing.T) {
	d := newEventDebouncer(10 * time.Millisecond)
	assert.Nil(t, d.C(), "idle debouncer has no channel")

	d.add("a", FileEventCreate)
	d.add("a", FileEventWrite)
	d.add("b", FileEventWrite)
	d.add("c", FileEventWrite)
	d.add("c", FileEventRemove)

	select {
	case <-d.C():
	case <-time.After(time.Second):
		t.Fatal("debouncer never fired")
	}

	events := d.drain()
	assert.Equal(t, map[string]FileEventType{
		"a": FileEventCreate,
		"b": FileEventWrite,
		"c": FileEventRemove,
	}, events)
	assert.Nil(t, d.C())
	d.stop()
}

func TestFileEventType_String(t *testing.T) {
	assert.Equal(t, "create", FileEventCreate.String())
	assert.Equal(t, "remove", FileEventRemove.String())
	assert.Equal(t, "FileEventType(9)", FileEventType(9).String())
}
