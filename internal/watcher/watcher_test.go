package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "printer_mac_registry.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	var calls atomic.Int32
	w := New(path, func() { calls.Add(1) }, zerolog.Nop()).WithDebounce(200 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"AA:BB:CC:DD:EE:01":{}}`), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644))

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing", "registry.json"), func() {}, zerolog.Nop())
	assert.Error(t, w.Watch(context.Background()))
}

func TestFollowMovesToNewPath(t *testing.T) {
	root := t.TempDir()
	first := filepath.Join(root, "etc", "printer_mac_registry.json")
	second := filepath.Join(root, "home", "printer_mac_registry.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(first), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Dir(second), 0o755))

	var calls atomic.Int32
	w := New(first, func() { calls.Add(1) }, zerolog.Nop()).WithDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	moves := make(chan string)
	done := make(chan error, 1)
	go func() { done <- w.Follow(ctx, moves) }()

	moves <- second
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(second, []byte("{}"), 0o644))
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Follow did not return after cancel")
	}
}

func TestFollowRecoversFromMissingDirectory(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "home", "printer_mac_registry.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))

	var calls atomic.Int32
	w := New(filepath.Join(root, "missing", "printer_mac_registry.json"), func() { calls.Add(1) }, zerolog.Nop()).
		WithDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	moves := make(chan string)
	go func() { _ = w.Follow(ctx, moves) }()

	moves <- target
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(target, []byte("{}"), 0o644))
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 3*time.Second, 10*time.Millisecond)
}
