package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	t.Setenv(RancherURLEnvVar, "")
	t.Setenv(RancherTokenEnvVar, "")

	dir := t.TempDir()
	path := writeConfigFile(t, dir, "monitor:\n  interval: 1m\n")

	changes := make(chan UpscoutConfig, 4)
	w := NewWatcher(path, 20*time.Millisecond, func(cfg UpscoutConfig) {
		changes <- cfg
	})
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("monitor:\n  interval: 5m\n"), 0o644))

	select {
	case cfg := <-changes:
		assert.Equal(t, 5*time.Minute, cfg.Monitor.Interval)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for configuration reload")
	}
}

func TestWatcher_IgnoresInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "monitor:\n  interval: 1m\n")

	changes := make(chan UpscoutConfig, 4)
	w := NewWatcher(path, 20*time.Millisecond, func(cfg UpscoutConfig) {
		changes <- cfg
	})
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("discovery:\n  port: -1\n"), 0o644))

	select {
	case cfg := <-changes:
		t.Fatalf("unexpected reload with invalid config: %+v", cfg)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "monitor:\n  interval: 1m\n")

	changes := make(chan UpscoutConfig, 4)
	w := NewWatcher(path, 20*time.Millisecond, func(cfg UpscoutConfig) {
		changes <- cfg
	})
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o644))

	select {
	case <-changes:
		t.Fatal("reload triggered by unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_StartStopIdempotent(t *testing.T) {
	path := writeConfigFile(t, t.TempDir(), "")
	w := NewWatcher(path, 0, nil)

	require.NoError(t, w.Start())
	require.NoError(t, w.Start())
	w.Stop()
	w.Stop()
}
