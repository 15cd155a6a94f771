package lean

import (
	"log/slog"
	"time"
)

// Default engine configuration values.
const (
	defaultEventBuffer    = 256
	defaultGracePeriod    = 5 * time.Second
	defaultRequestTimeout = 30 * time.Second
	defaultVersionTimeout = 10 * time.Second
	defaultMaxMessageSize = 64 << 20 // all_messages can be large on big projects
	stderrChunkSize       = 4096
)

// EngineOptions holds resolved construction-time configuration for a Lean
// engine.
type EngineOptions struct {
	// EventBuffer is the buffer size of each event channel.
	EventBuffer int

	// GracePeriod is the duration to wait after SIGTERM before sending SIGKILL.
	GracePeriod time.Duration

	// RequestTimeout bounds requests whose context has no deadline.
	RequestTimeout time.Duration

	// VersionTimeout bounds the `--version` query.
	VersionTimeout time.Duration

	// MaxMessageSize is the maximum response line size in bytes.
	MaxMessageSize int

	// Logger receives subprocess lifecycle logs.
	Logger *slog.Logger
}

// EngineOption configures an Engine at construction time.
type EngineOption func(*EngineOptions)

// WithEventBuffer sets the buffer size of each event channel.
// Values <= 0 are ignored.
func WithEventBuffer(size int) EngineOption {
	return func(o *EngineOptions) {
		if size > 0 {
			o.EventBuffer = size
		}
	}
}

// WithGracePeriod sets the duration to wait after SIGTERM before sending SIGKILL.
// Values <= 0 are ignored.
func WithGracePeriod(d time.Duration) EngineOption {
	return func(o *EngineOptions) {
		if d > 0 {
			o.GracePeriod = d
		}
	}
}

// WithRequestTimeout sets the deadline applied to requests whose context
// has none. Values <= 0 are ignored.
func WithRequestTimeout(d time.Duration) EngineOption {
	return func(o *EngineOptions) {
		if d > 0 {
			o.RequestTimeout = d
		}
	}
}

// WithVersionTimeout sets the deadline for the version query.
// Values <= 0 are ignored.
func WithVersionTimeout(d time.Duration) EngineOption {
	return func(o *EngineOptions) {
		if d > 0 {
			o.VersionTimeout = d
		}
	}
}

// WithMaxMessageSize sets the maximum response line size in bytes.
// Values <= 0 are ignored.
func WithMaxMessageSize(n int) EngineOption {
	return func(o *EngineOptions) {
		if n > 0 {
			o.MaxMessageSize = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(o *EngineOptions) {
		if l != nil {
			o.Logger = l
		}
	}
}

func resolveEngineOptions(opts ...EngineOption) EngineOptions {
	o := EngineOptions{
		EventBuffer:    defaultEventBuffer,
		GracePeriod:    defaultGracePeriod,
		RequestTimeout: defaultRequestTimeout,
		VersionTimeout: defaultVersionTimeout,
		MaxMessageSize: defaultMaxMessageSize,
		Logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
