// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package watch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkudo/slideview/internal/logging"
	"github.com/jkudo/slideview/internal/pipeline"
	"github.com/jkudo/slideview/pkg/types"
)

var exts = []string{".pptx", ".ppt"}

type countingRunner struct {
	mu    sync.Mutex
	count int
	err   error
}

func (r *countingRunner) Run(context.Context) (types.PassSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return types.PassSummary{ID: fmt.Sprintf("pass-%d", r.count)}, r.err
}

func (r *countingRunner) passes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// syncBuffer guards a log buffer written by the watcher goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func start(t *testing.T, w *Watcher) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	return cancel, done
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestWatcher_InitialPass(t *testing.T) {
	runner := &countingRunner{}
	start(t, &Watcher{Runner: runner, Dir: t.TempDir(), Extensions: exts, Debounce: 20 * time.Millisecond})

	require.Eventually(t, func() bool { return runner.passes() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_PassAfterChangesSettle(t *testing.T) {
	dir := t.TempDir()
	runner := &countingRunner{}
	start(t, &Watcher{Runner: runner, Dir: dir, Extensions: exts, Debounce: 200 * time.Millisecond})
	require.Eventually(t, func() bool { return runner.passes() == 1 }, 2*time.Second, 10*time.Millisecond)

	for i := 0; i < 5; i++ {
		touch(t, filepath.Join(dir, fmt.Sprintf("deck-%d.pptx", i)))
	}

	require.Eventually(t, func() bool { return runner.passes() == 2 }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 2, runner.passes(), "a burst of events triggers one pass")
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	runner := &countingRunner{}
	start(t, &Watcher{Runner: runner, Dir: dir, Extensions: exts, Debounce: 20 * time.Millisecond})
	require.Eventually(t, func() bool { return runner.passes() == 1 }, 2*time.Second, 10*time.Millisecond)

	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "~$deck.pptx"))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, runner.passes())
}

func TestWatcher_Removal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old.ppt")
	touch(t, path)

	runner := &countingRunner{}
	start(t, &Watcher{Runner: runner, Dir: dir, Extensions: exts, Debounce: 20 * time.Millisecond})
	require.Eventually(t, func() bool { return runner.passes() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool { return runner.passes() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_Interval(t *testing.T) {
	runner := &countingRunner{}
	start(t, &Watcher{Runner: runner, Dir: t.TempDir(), Extensions: exts, Interval: 30 * time.Millisecond})

	require.Eventually(t, func() bool { return runner.passes() >= 3 }, 3*time.Second, 10*time.Millisecond)
}

func TestWatcher_PassErrorsDoNotStop(t *testing.T) {
	var logs syncBuffer
	logger, err := logging.New(logging.Options{Output: &logs})
	require.NoError(t, err)

	runner := &countingRunner{err: fmt.Errorf("wrapped: %w", pipeline.ErrPassInProgress)}
	_, done := start(t, &Watcher{
		Runner:     runner,
		Dir:        t.TempDir(),
		Extensions: exts,
		Interval:   30 * time.Millisecond,
		Logger:     logger,
	})

	require.Eventually(t, func() bool { return runner.passes() >= 2 }, 3*time.Second, 10*time.Millisecond)
	assert.Contains(t, logs.String(), "pass already running, skipped")
	select {
	case err := <-done:
		t.Fatalf("watcher stopped early: %v", err)
	default:
	}
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	runner := &countingRunner{}
	cancel, done := start(t, &Watcher{Runner: runner, Dir: t.TempDir(), Extensions: exts})
	require.Eventually(t, func() bool { return runner.passes() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := &Watcher{Runner: &countingRunner{}, Dir: filepath.Join(t.TempDir(), "missing"), Extensions: exts}
	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestRelevant(t *testing.T) {
	w := &Watcher{Extensions: exts}
	tests := []struct {
		ev   fsnotify.Event
		want bool
	}{
		{fsnotify.Event{Name: "slides/a.pptx", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "slides/a.pptx", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "slides/a.PPT", Op: fsnotify.Remove}, true},
		{fsnotify.Event{Name: "slides/a.pptx", Op: fsnotify.Rename}, true},
		{fsnotify.Event{Name: "slides/a.pptx", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "slides/a.key", Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: "slides/.~lock.a.pptx#", Op: fsnotify.Create}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, w.relevant(tt.ev), "%s %s", tt.ev.Op, tt.ev.Name)
	}
}
