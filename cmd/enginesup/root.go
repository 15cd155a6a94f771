//go:build !windows

package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmora/enginesup"
	"github.com/dmora/enginesup/config"
	"github.com/dmora/enginesup/engine/lean"
	"github.com/dmora/enginesup/supervisor"
)

// newEngine builds the engine the commands drive. Tests replace it.
var newEngine = func(logger *slog.Logger) enginesup.Engine {
	return lean.NewEngine(lean.WithLogger(logger))
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "enginesup",
		Short:         "Supervise a Lean 3 server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "config file (default $ENGINESUP_CONFIG or ~/.config/enginesup/config.toml)")
	root.PersistentFlags().String("executable", "", "server executable, overrides engine.executable_path")
	root.PersistentFlags().Bool("debug", false, "enable debug logging")

	root.AddCommand(newRunCmd(), newCheckCmd(), newVersionCmd())
	return root
}

// loadConfig reads configuration for cmd. Flags override file and
// environment values.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	v := config.New(path)
	if f := cmd.Flags().Lookup("executable"); f != nil {
		if err := v.BindPFlag("engine.executable_path", f); err != nil {
			return config.Config{}, err
		}
	}
	return config.Load(v)
}

// settingsFunc re-reads configuration on every connection attempt so edits
// take effect on the next restart.
func settingsFunc(cmd *cobra.Command) supervisor.SettingsFunc {
	return func() (supervisor.Settings, error) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return supervisor.Settings{}, err
		}
		return supervisor.Settings{Base: cfg.BaseOptions(), Limits: cfg.Limits()}, nil
	}
}

func newLogger(cmd *cobra.Command, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
