package file

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Watch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan Settings, 1)
	go func() {
		_ = store.Watch(ctx, func(s Settings) {
			select {
			case reloaded <- s:
			default:
			}
		})
	}()

	// Let the watcher register before writing.
	time.Sleep(100 * time.Millisecond)

	content := `
region = "na"

[daemon]
enabled = true

[[daemon.steps]]
at = "23:31"
percent = 100
`
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0600))

	select {
	case s := <-reloaded:
		assert.Equal(t, "na", s.Region)
		require.Len(t, s.Daemon.Steps, 1)
		assert.Equal(t, "23:31", s.Daemon.Steps[0].At)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the config change")
	}
}

func TestStore_Watch_StopsOnContextCancel(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func(Settings) {})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}
