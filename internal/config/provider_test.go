// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ContainerEnginePodman, cfg.ContainerEngine)
	assert.Equal(t, 8000, cfg.InspectorPort)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 1000, cfg.HistoryLimit)
	assert.Equal(t, 1000, cfg.InspectorBufferLimit)
	assert.Equal(t, 128, cfg.Isolation.MemoryMiB)
	assert.True(t, cfg.Isolation.ReadOnlyRootfs)
	assert.Equal(t, 512, cfg.Development.MemoryMiB)
	assert.False(t, cfg.Development.ReadOnlyRootfs)
}

func TestLoad_NoConfigFileFallsBackToDefaults(t *testing.T) {
	p := NewProvider()
	cfg, err := p.Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, ContainerEnginePodman, cfg.ContainerEngine)
	assert.Equal(t, 8000, cfg.InspectorPort)
	assert.Equal(t, 30, cfg.Isolation.TimeoutSeconds)
}

func TestLoad_ReadsExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	toml := `
container_engine = "docker"
inspector_port = 9001
debug = true

[isolation]
memory_mib = 256
`
	require.NoError(t, os.WriteFile(path, []byte(toml), 0o644))

	p := NewProvider()
	cfg, err := p.Load(context.Background(), LoadOptions{ConfigFilePath: path})
	require.NoError(t, err)

	assert.Equal(t, ContainerEngineDocker, cfg.ContainerEngine)
	assert.Equal(t, 9001, cfg.InspectorPort)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 256, cfg.Isolation.MemoryMiB)
	// Untouched tiers still carry defaults.
	assert.Equal(t, 128, cfg.Persistent.MemoryMiB)
}

func TestLoad_EnvVarsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`inspector_port = 9001`), 0o644))

	t.Setenv("INSPECTOR_PORT", "9500")
	t.Setenv("DEBUG", "true")

	p := NewProvider()
	cfg, err := p.Load(context.Background(), LoadOptions{ConfigFilePath: path})
	require.NoError(t, err)

	assert.Equal(t, 9500, cfg.InspectorPort)
	assert.True(t, cfg.Debug)
}

func TestConfigDir_ReturnsAppNameSuffixedPath(t *testing.T) {
	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, AppName, filepath.Base(dir))
}
