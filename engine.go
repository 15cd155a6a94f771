package enginesup

import "context"

// Engine is a connection to a subprocess-hosted protocol engine.
//
// An Engine owns at most one live subprocess at a time. Its event channels
// are created once and stay open across Connect and Restart calls, so a
// consumer subscribes exactly once for the lifetime of the Engine. They are
// never closed; consumers stop reading on their own signal.
type Engine interface {
	// Version runs the executable in version mode and returns its
	// semantic version string. It does not require a live connection.
	Version(ctx context.Context, executable string) (string, error)

	// Connect launches the engine subprocess with opts.
	// Any previously running subprocess is torn down first.
	Connect(ctx context.Context, opts ConnectionOptions) error

	// Restart tears down the current subprocess, if any, and connects
	// again with opts.
	Restart(ctx context.Context, opts ConnectionOptions) error

	// Alive reports whether the engine subprocess is running.
	Alive() bool

	// Errors delivers error notifications (stderr output, connection
	// failures, responses to unknown requests).
	Errors() <-chan ErrorNotification

	// Messages delivers full diagnostic message lists. Each list replaces
	// the previous one.
	Messages() <-chan MessageList

	// Tasks delivers snapshots of the engine's in-flight work.
	Tasks() <-chan TaskSnapshot

	// Close stops the subprocess. Later Connect and Restart calls fail
	// with ErrTerminated. Safe to call multiple times.
	Close() error
}

// Syncer is implemented by engines that accept file contents for checking.
type Syncer interface {
	Sync(ctx context.Context, fileName, content string) error
}

// RegionSetter is implemented by engines that can restrict analysis to a
// region of interest. Callers must only use it when the engine version
// supports regions of interest.
type RegionSetter interface {
	SetRegionOfInterest(ctx context.Context, roi RegionOfInterest) error
}
