//go:build !windows

// Command enginesup runs a supervised Lean 3 server from the terminal.
//
//	enginesup run [file...]    supervise the server and stream its status
//	enginesup check <file>     check one file and print its diagnostics
//	enginesup version          print the server version and capabilities
//
// Configuration is read from --config, $ENGINESUP_CONFIG or
// ~/.config/enginesup/config.toml, with ENGINESUP_* environment overrides.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
