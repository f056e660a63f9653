package vault

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

func newTestWatcher(t *testing.T, debounce time.Duration) (*Manager, *Watcher) {
	t.Helper()
	m := newTestVault(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w, err := NewWatcher(m, logger, debounce)
	require.NoError(t, err)
	return m, w
}

func TestWatcherReportsDebouncedChanges(t *testing.T) {
	m, w := newTestWatcher(t, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	rel := filepath.Join("decisions", "ad-01-test.md")
	require.NoError(t, os.WriteFile(m.Abs(rel), []byte("draft\n"), 0644))

	select {
	case ev, ok := <-w.Events():
		require.True(t, ok)
		assert.Contains(t, ev.Paths, rel)
	case <-time.After(3 * time.Second):
		t.Fatal("no change event within deadline")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcherShutdownMidDebounce(t *testing.T) {
	m, w := newTestWatcher(t, 150*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	rel := filepath.Join("risks", "r-01-test.md")
	require.NoError(t, os.WriteFile(m.Abs(rel), []byte("draft\n"), 0644))

	// Cancel while the debounce timer is still pending
	time.Sleep(50 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	// Outlive the debounce window: the stopped timer must not fire
	// into the closed channel
	time.Sleep(300 * time.Millisecond)
	_, ok := <-w.Events()
	assert.False(t, ok, "events channel should close without a late delivery")
}

func TestWatcherIgnoresBookkeepingWrites(t *testing.T) {
	m, w := newTestWatcher(t, 80*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(m.Abs(DecisionLogFile), []byte("# Decision Log\n"), 0644))

	select {
	case ev, ok := <-w.Events():
		if ok {
			t.Fatalf("unexpected change event for %v", ev.Paths)
		}
	case <-time.After(400 * time.Millisecond):
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
