// Package config loads the engine supervisor's configuration from defaults,
// an optional TOML file, and ENGINESUP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dmora/enginesup"
	"github.com/dmora/enginesup/capability"
)

// Config holds application configuration.
type Config struct {
	Engine EngineConfig
	Status StatusConfig
}

// EngineConfig describes how to launch the engine.
type EngineConfig struct {
	// ExecutablePath is the engine binary; a bare name is resolved via PATH.
	ExecutablePath string `mapstructure:"executable_path"`

	// ExtraOptions are passed to the engine before capability-gated flags.
	ExtraOptions []string `mapstructure:"extra_options"`

	// MemoryLimit is the engine memory limit in megabytes.
	MemoryLimit int `mapstructure:"memory_limit"`

	// TimeLimit is the engine's deterministic timeout; 0 disables it.
	TimeLimit int `mapstructure:"time_limit"`

	// WorkingDir is the workspace root the engine runs in.
	WorkingDir string `mapstructure:"working_dir"`
}

// StatusConfig tunes the public status stream.
type StatusConfig struct {
	// Window is the minimum interval between non-urgent status changes.
	Window time.Duration `mapstructure:"window"`
}

// Default values.
const (
	DefaultExecutablePath = "lean"
	DefaultMemoryLimit    = 4096
	DefaultTimeLimit      = 100000
	DefaultWindow         = 300 * time.Millisecond
)

// EnvPrefix prefixes environment overrides, e.g. ENGINESUP_ENGINE_MEMORY_LIMIT.
const EnvPrefix = "ENGINESUP"

// New returns a viper instance with defaults, config file search paths and
// environment overrides set up. Callers may bind flags to it before Load.
// path selects an explicit config file; empty falls back to $ENGINESUP_CONFIG
// and then ~/.config/enginesup/config.toml.
func New(path string) *viper.Viper {
	v := viper.New()

	v.SetDefault("engine.executable_path", DefaultExecutablePath)
	v.SetDefault("engine.extra_options", []string{})
	v.SetDefault("engine.memory_limit", DefaultMemoryLimit)
	v.SetDefault("engine.time_limit", DefaultTimeLimit)
	v.SetDefault("engine.working_dir", "")
	v.SetDefault("status.window", DefaultWindow)

	v.SetConfigType("toml")

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "enginesup"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// Load reads the config file, if present, and unmarshals the result.
// A missing file in the default search path is not an error; a missing or
// unreadable explicit file is.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if c.Engine.WorkingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("config: working dir: %w", err)
		}
		c.Engine.WorkingDir = wd
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Engine.ExecutablePath) == "" {
		return errors.New("config: engine.executable_path must not be empty")
	}
	if c.Engine.MemoryLimit <= 0 {
		return fmt.Errorf("config: engine.memory_limit: %d must be a positive integer", c.Engine.MemoryLimit)
	}
	if c.Engine.TimeLimit < 0 {
		return fmt.Errorf("config: engine.time_limit: %d must not be negative", c.Engine.TimeLimit)
	}
	if c.Status.Window < 0 {
		return fmt.Errorf("config: status.window: %v must not be negative", c.Status.Window)
	}
	return nil
}

// BaseOptions returns the connection options before capability gating.
func (c Config) BaseOptions() enginesup.ConnectionOptions {
	return enginesup.ConnectionOptions{
		Executable: c.Engine.ExecutablePath,
		WorkingDir: c.Engine.WorkingDir,
		Args:       append([]string(nil), c.Engine.ExtraOptions...),
	}
}

// Limits returns the resource limits for engines that support them.
func (c Config) Limits() capability.Limits {
	return capability.Limits{
		MemoryMB: c.Engine.MemoryLimit,
		Time:     c.Engine.TimeLimit,
	}
}
