// Package config builds the tool configuration once at startup: built-in
// defaults, then an optional YAML file, then environment overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/northcutted/pkgextract/pkg/types"
)

// MountBackend selects how an image filesystem is exposed locally.
type MountBackend string

const (
	// MountBackendAtomic mounts the image with 'atomic mount'.
	MountBackendAtomic MountBackend = "atomic"
	// MountBackendArchive saves the image with the container runtime and
	// unpacks its layers into a temporary directory.
	MountBackendArchive MountBackend = "archive"
)

// Defaults used when neither the config file nor the environment sets a value.
const (
	DefaultContainerDiffBin = "container-diff"
	DefaultMercatorBin      = "mercator"
	DefaultMercatorHandlers = "/usr/share/mercator/handlers.yml"
	DefaultAtomicBin        = "atomic"
	DefaultTimeout          = 10 * time.Minute
)

// Environment variables read by Load.
const (
	EnvContainerDiffBin = "CONTAINER_DIFF_BIN"
	EnvMercatorBin      = "MERCATOR_BIN"
	EnvMercatorHandlers = "MERCATOR_HANDLERS_YAML"
	EnvAtomicBin        = "ATOMIC_BIN"
	EnvMountBackend     = "PKGEXTRACT_MOUNT_BACKEND"
	EnvContainerRuntime = "PKGEXTRACT_CONTAINER_RUNTIME"
	EnvTimeout          = "PKGEXTRACT_TIMEOUT"
)

// Config holds the external tool locations and run settings.
type Config struct {
	ContainerDiffBin string `yaml:"container_diff_bin"`
	MercatorBin      string `yaml:"mercator_bin"`
	MercatorHandlers string `yaml:"mercator_handlers"`
	AtomicBin        string `yaml:"atomic_bin"`

	// ContainerRuntime is the docker-compatible CLI used by the archive
	// backend. Empty means docker, then podman, whichever is on PATH.
	ContainerRuntime string `yaml:"container_runtime"`

	MountBackend MountBackend `yaml:"mount_backend"`

	// Timeout bounds every single external command.
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		ContainerDiffBin: DefaultContainerDiffBin,
		MercatorBin:      DefaultMercatorBin,
		MercatorHandlers: DefaultMercatorHandlers,
		AtomicBin:        DefaultAtomicBin,
		MountBackend:     MountBackendAtomic,
		Timeout:          DefaultTimeout,
	}
}

// Load reads the YAML file at path (if path is not empty) over the defaults
// and then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: failed to parse config file %s: %v", types.ErrInvalidInput, path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	for env, field := range map[string]*string{
		EnvContainerDiffBin: &c.ContainerDiffBin,
		EnvMercatorBin:      &c.MercatorBin,
		EnvMercatorHandlers: &c.MercatorHandlers,
		EnvAtomicBin:        &c.AtomicBin,
		EnvContainerRuntime: &c.ContainerRuntime,
	} {
		if v := os.Getenv(env); v != "" {
			*field = v
		}
	}

	if v := os.Getenv(EnvMountBackend); v != "" {
		c.MountBackend = MountBackend(v)
	}

	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", types.ErrInvalidInput, EnvTimeout, err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate checks that the configuration can be used for a run.
func (c *Config) Validate() error {
	switch c.MountBackend {
	case MountBackendAtomic, MountBackendArchive:
	default:
		return fmt.Errorf("%w: unknown mount backend %q (want %q or %q)",
			types.ErrInvalidInput, c.MountBackend, MountBackendAtomic, MountBackendArchive)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %s", types.ErrInvalidInput, c.Timeout)
	}

	for name, v := range map[string]string{
		"container_diff_bin": c.ContainerDiffBin,
		"mercator_bin":       c.MercatorBin,
		"mercator_handlers":  c.MercatorHandlers,
		"atomic_bin":         c.AtomicBin,
	} {
		if v == "" {
			return fmt.Errorf("%w: %s must not be empty", types.ErrInvalidInput, name)
		}
	}
	return nil
}

// LogValue implements slog.LogValuer so a Config logs as a group.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("container_diff_bin", c.ContainerDiffBin),
		slog.String("mercator_bin", c.MercatorBin),
		slog.String("mercator_handlers", c.MercatorHandlers),
		slog.String("atomic_bin", c.AtomicBin),
		slog.String("container_runtime", c.ContainerRuntime),
		slog.String("mount_backend", string(c.MountBackend)),
		slog.Duration("timeout", c.Timeout),
	)
}
