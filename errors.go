package enginesup

import (
	"errors"
	"strconv"
)

// Sentinel errors for engine and supervisor operations.
var (
	// ErrUnavailable indicates the engine cannot start
	// (executable not found, not executable, etc.).
	ErrUnavailable = errors.New("enginesup: engine unavailable")

	// ErrTerminated indicates the engine subprocess was terminated
	// (stopped, killed, or exited) while a request was outstanding.
	ErrTerminated = errors.New("enginesup: engine terminated")

	// ErrNotConnected indicates an operation that needs a live engine
	// was attempted while disconnected.
	ErrNotConnected = errors.New("enginesup: engine not connected")

	// ErrNotSupported indicates the connected engine version lacks the
	// capability an operation needs.
	ErrNotSupported = errors.New("enginesup: not supported by engine version")

	// ErrMalformedVersion indicates the engine reported a version string
	// that is not a semantic version.
	ErrMalformedVersion = errors.New("enginesup: malformed engine version")
)

// ExitError represents an engine subprocess that exited with a non-zero
// status. Wraps the underlying error to preserve the error chain; consumers
// can errors.As to *exec.ExitError for OS-level detail.
//
// Code semantics: positive = exit status, negative (-1) = signal-killed.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "enginesup: exit status " + strconv.Itoa(e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode extracts the exit code from an error chain containing *ExitError.
// Returns (0, false) if the error does not contain an ExitError.
func ExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}
