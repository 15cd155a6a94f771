//go:build !windows

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmora/enginesup/capability"
	"github.com/dmora/enginesup/internal/display"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version and negotiated capabilities",
		Args:  cobra.NoArgs,
		RunE:  runVersion,
	}
}

func runVersion(cmd *cobra.Command, _ []string) error {
	logger := newLogger(cmd, cmd.ErrOrStderr())
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	engine := newEngine(logger)
	defer engine.Close()

	raw, err := engine.Version(cmd.Context(), cfg.Engine.ExecutablePath)
	if err != nil {
		return fmt.Errorf("version: %w", err)
	}
	set, err := capability.Negotiate(raw)
	if err != nil {
		return fmt.Errorf("version: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, display.Capabilities(set))
	fmt.Fprintln(out, display.Args(capability.Options(cfg.BaseOptions(), cfg.Limits(), set)))
	return nil
}
