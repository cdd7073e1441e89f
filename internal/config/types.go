// SPDX-License-Identifier: MPL-2.0

package config

const (
	// ContainerEnginePodman uses Podman as the container runtime.
	ContainerEnginePodman ContainerEngine = "podman"
	// ContainerEngineDocker uses Docker as the container runtime.
	ContainerEngineDocker ContainerEngine = "docker"
)

type (
	// ContainerEngine specifies which container runtime to use.
	ContainerEngine string

	// Config holds the application configuration.
	Config struct {
		// ContainerEngine specifies whether to use "podman" or "docker".
		ContainerEngine ContainerEngine `json:"container_engine" mapstructure:"container_engine"`
		// InspectorPort is the loopback HTTP/websocket dashboard port.
		InspectorPort int `json:"inspector_port" mapstructure:"inspector_port"`
		// Debug enables verbose (debug-level) logging.
		Debug bool `json:"debug" mapstructure:"debug"`
		// Isolation configures the ephemeral-max-isolation tier.
		Isolation TierConfig `json:"isolation" mapstructure:"isolation"`
		// Persistent configures the session-persistent tier.
		Persistent TierConfig `json:"persistent" mapstructure:"persistent"`
		// Development configures the development-permissive tier.
		Development TierConfig `json:"development" mapstructure:"development"`
		// HistoryLimit is loaded from configuration but not read by the Command
		// Router, whose command history cap is fixed at 1000 entries.
		HistoryLimit int `json:"history_limit" mapstructure:"history_limit"`
		// InspectorBufferLimit caps the Inspector's RPC event ring buffer.
		InspectorBufferLimit int `json:"inspector_buffer_limit" mapstructure:"inspector_buffer_limit"`
	}

	// TierConfig holds resource limits and timeout for one isolation tier.
	TierConfig struct {
		// MemoryMiB is the container memory cap in mebibytes.
		MemoryMiB int `json:"memory_mib" mapstructure:"memory_mib"`
		// CPUs is the container CPU cap (fractional cores allowed).
		CPUs float64 `json:"cpus" mapstructure:"cpus"`
		// TmpfsMiB is the size of the /tmp tmpfs mount in mebibytes.
		TmpfsMiB int `json:"tmpfs_mib" mapstructure:"tmpfs_mib"`
		// TimeoutSeconds bounds wall-clock execution time.
		TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds"`
		// NetworkDisabled disables container networking when true.
		NetworkDisabled bool `json:"network_disabled" mapstructure:"network_disabled"`
		// ReadOnlyRootfs mounts the container root filesystem read-only.
		ReadOnlyRootfs bool `json:"read_only_rootfs" mapstructure:"read_only_rootfs"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ContainerEngine: ContainerEnginePodman,
		InspectorPort:   8000,
		Debug:           false,
		Isolation: TierConfig{
			MemoryMiB:       128,
			CPUs:            0.5,
			TmpfsMiB:        64,
			TimeoutSeconds:  30,
			NetworkDisabled: true,
			ReadOnlyRootfs:  true,
		},
		Persistent: TierConfig{
			MemoryMiB:       128,
			CPUs:            0.5,
			TmpfsMiB:        64,
			TimeoutSeconds:  30,
			NetworkDisabled: true,
			ReadOnlyRootfs:  true,
		},
		Development: TierConfig{
			MemoryMiB:       512,
			CPUs:            1.0,
			TmpfsMiB:        256,
			TimeoutSeconds:  60,
			NetworkDisabled: false,
			ReadOnlyRootfs:  false,
		},
		HistoryLimit:         1000,
		InspectorBufferLimit: 1000,
	}
}
