package config_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/aicleaner/internal/config"
)

const watchedConfig = `
providers:
  - name: home
    type: ollama
server:
  listen: "%s"
`

func startWatcher(t *testing.T, path string) (*config.Watcher, *atomic.Pointer[config.Config]) {
	t.Helper()

	w, err := config.NewWatcher(path, config.WithDebounceDelay(20*time.Millisecond))
	require.NoError(t, err)

	var got atomic.Pointer[config.Config]
	w.OnReload(func(cfg *config.Config) error {
		got.Store(cfg)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, w.Watch(ctx))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = w.Close()
	})
	return w, &got
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(watchedConfig, "127.0.0.1:1000")), 0o600))

	_, got := startWatcher(t, path)

	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(watchedConfig, "127.0.0.1:2000")), 0o600))

	require.Eventually(t, func() bool {
		cfg := got.Load()
		return cfg != nil && cfg.Server.Listen == "127.0.0.1:2000"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherSkipsInvalidConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(watchedConfig, "127.0.0.1:1000")), 0o600))

	_, got := startWatcher(t, path)

	require.NoError(t, os.WriteFile(path, []byte("providers:\n  - name: x\n    type: bogus\n"), 0o600))
	time.Sleep(200 * time.Millisecond)
	assert.Nil(t, got.Load())

	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(watchedConfig, "127.0.0.1:3000")), 0o600))
	require.Eventually(t, func() bool {
		cfg := got.Load()
		return cfg != nil && cfg.Server.Listen == "127.0.0.1:3000"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherCloseTwice(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(watchedConfig, ":1")), 0o600))

	w, err := config.NewWatcher(path)
	require.NoError(t, err)
	assert.Equal(t, path, w.Path())

	require.NoError(t, w.Close())
	require.ErrorIs(t, w.Close(), config.ErrWatcherClosed)
}

func TestNewWatcherRejectsUnsupportedFormat(t *testing.T) {
	t.Parallel()

	_, err := config.NewWatcher(filepath.Join(t.TempDir(), "config.json"))
	require.ErrorIs(t, err, config.ErrUnsupportedFormat)
}
