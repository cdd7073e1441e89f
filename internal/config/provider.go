// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name, used to derive the config directory.
	AppName = "codeexec-server"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
)

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
}

// Provider loads configuration from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
}

type fileProvider struct{}

// NewProvider creates a configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested source. Precedence (highest
// first): environment variables (INSPECTOR_PORT, DEBUG), the TOML config
// file, then DefaultConfig.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	_ = ctx

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType(ConfigFileExt)

	if opts.ConfigFilePath != "" {
		v.SetConfigFile(opts.ConfigFilePath)
	} else {
		dir := opts.ConfigDirPath
		if dir == "" {
			var err error
			dir, err = ConfigDir()
			if err != nil {
				return nil, err
			}
		}
		v.AddConfigPath(dir)
		v.AddConfigPath(".")
	}

	defaults := DefaultConfig()
	v.SetDefault("container_engine", defaults.ContainerEngine)
	v.SetDefault("inspector_port", defaults.InspectorPort)
	v.SetDefault("debug", defaults.Debug)
	v.SetDefault("history_limit", defaults.HistoryLimit)
	v.SetDefault("inspector_buffer_limit", defaults.InspectorBufferLimit)
	setTierDefaults(v, "isolation", defaults.Isolation)
	setTierDefaults(v, "persistent", defaults.Persistent)
	setTierDefaults(v, "development", defaults.Development)

	v.SetEnvPrefix("")
	_ = v.BindEnv("inspector_port", "INSPECTOR_PORT")
	_ = v.BindEnv("debug", "DEBUG")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				_ = notFound
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

func setTierDefaults(v *viper.Viper, key string, t TierConfig) {
	v.SetDefault(key+".memory_mib", t.MemoryMiB)
	v.SetDefault(key+".cpus", t.CPUs)
	v.SetDefault(key+".tmpfs_mib", t.TmpfsMiB)
	v.SetDefault(key+".timeout_seconds", t.TimeoutSeconds)
	v.SetDefault(key+".network_disabled", t.NetworkDisabled)
	v.SetDefault(key+".read_only_rootfs", t.ReadOnlyRootfs)
}

// ConfigDir returns the codeexec-server configuration directory.
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}
