package enginesup

import (
	"fmt"
	"slices"
	"strings"
)

// ConnectionOptions describes how one connection attempt launches the
// engine. It is built once per attempt and never mutated afterwards.
type ConnectionOptions struct {
	// Executable is the engine binary name or path.
	Executable string

	// WorkingDir is the directory the subprocess runs in.
	// Empty means the current process directory.
	WorkingDir string

	// Args are extra command-line arguments, in order.
	Args []string
}

// Clone returns a deep copy of o.
func (o ConnectionOptions) Clone() ConnectionOptions {
	o.Args = slices.Clone(o.Args)
	return o
}

// Validate rejects options that cannot be passed to a subprocess.
func (o ConnectionOptions) Validate() error {
	if o.Executable == "" {
		return fmt.Errorf("%w: no executable configured", ErrUnavailable)
	}
	if strings.Contains(o.Executable, "\x00") {
		return fmt.Errorf("%w: executable contains null bytes", ErrUnavailable)
	}
	for i, a := range o.Args {
		if strings.Contains(a, "\x00") {
			return fmt.Errorf("option arg %d: value contains null bytes", i)
		}
	}
	return nil
}
