package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_Overrides(t *testing.T) {
	input := `
version "1.1"

controller {
    poll-interval 3
    request-timeout 30
    reconnect-attempts 8
    disable-provision true
}

agent {
    channel "team-a"
    max-batch-per-tick 4
    send-interval-ms 8
}
`
	cfg := DefaultConfig()
	require.NoError(t, Merge(cfg, input))

	assert.Equal(t, "1.1", cfg.Version)
	assert.Equal(t, 3*time.Second, cfg.Controller.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Controller.RequestTimeout)
	assert.Equal(t, 8, cfg.Controller.ReconnectAttempts)
	assert.False(t, cfg.Controller.AutoProvision)

	// Untouched values keep their defaults.
	assert.Equal(t, 2*time.Second, cfg.Controller.ReconnectDelay)
	assert.Equal(t, 60*time.Second, cfg.Controller.StaleAfter)

	assert.Equal(t, "team-a", cfg.Agent.Channel)
	assert.Equal(t, 4, cfg.Agent.MaxBatchPerTick)
	assert.Equal(t, 8*time.Millisecond, cfg.Agent.SendInterval)
	assert.Equal(t, 256, cfg.Agent.InboundQueueSize)
}

func TestMerge_EmptyKeepsDefaults(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Merge(cfg, ""))
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestMerge_Malformed(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, Merge(cfg, `controller { poll-interval `))
}

func TestLoad_ProjectOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	// Isolate from any real global config.
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	project := `controller { request-timeout 42 }`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigFile), []byte(project), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 42*time.Second, cfg.Controller.RequestTimeout)
	assert.Equal(t, 5*time.Second, cfg.Controller.PollInterval)
}

func TestLoad_MissingFilesUseDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestWriteDefaultConfig_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenebridge", GlobalConfigFile)
	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	cfg := DefaultConfig()
	require.NoError(t, Merge(cfg, string(data)))
	assert.Equal(t, 5*time.Second, cfg.Controller.PollInterval)
	assert.Equal(t, 10, cfg.Agent.MaxBatchPerTick)
	assert.Equal(t, 16*time.Millisecond, cfg.Agent.SendInterval)
}
