//go:build !windows

package lean

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/dmora/enginesup"
	"github.com/dmora/enginesup/engine/internal/errfmt"
)

// versionFlag asks the executable for its version banner.
const versionFlag = "--version"

// versionPattern extracts the semantic version from a banner such as
// "Lean (version 3.4.2, commit cbd2b6686ddb, Release)".
var versionPattern = regexp.MustCompile(`version (\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?)`)

// ParseVersion extracts the version from `--version` output.
func ParseVersion(output string) (string, error) {
	m := versionPattern.FindStringSubmatch(output)
	if m == nil {
		banner, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
		return "", fmt.Errorf("%w: %q", enginesup.ErrMalformedVersion, errfmt.Summary(banner))
	}
	return m[1], nil
}

// Version runs `<executable> --version` and returns the reported version.
func (e *Engine) Version(ctx context.Context, executable string) (string, error) {
	resolved, err := resolveExecutable(executable)
	if err != nil {
		return "", err
	}
	if e.opts.VersionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.VersionTimeout)
		defer cancel()
	}

	out, err := exec.CommandContext(ctx, resolved, versionFlag).Output()
	if err != nil {
		if exitErr := wrapExitError(err); exitErr != nil {
			return "", fmt.Errorf("lean: version: %w", exitErr)
		}
	}
	return ParseVersion(string(out))
}

// resolveExecutable checks for a configured executable and resolves it via
// PATH.
func resolveExecutable(executable string) (string, error) {
	if executable == "" {
		return "", fmt.Errorf("%w: no executable configured", enginesup.ErrUnavailable)
	}
	resolved, err := exec.LookPath(executable)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", enginesup.ErrUnavailable, executable, err)
	}
	return resolved, nil
}
