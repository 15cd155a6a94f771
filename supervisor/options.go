package supervisor

import (
	"log/slog"
	"time"

	"github.com/dmora/enginesup"
	"github.com/dmora/enginesup/capability"
	"github.com/dmora/enginesup/filter"
	"github.com/dmora/enginesup/logsink"
)

// Default supervisor configuration values.
const (
	defaultName        = "Lean"
	defaultExecutable  = "lean"
	defaultMemoryLimit = 4096
	defaultTimeLimit   = 100000
)

// Settings is the configuration snapshot one connection attempt is built
// from.
type Settings struct {
	Base   enginesup.ConnectionOptions
	Limits capability.Limits
}

// SettingsFunc returns the current settings. It is called once per
// connection attempt so configuration changes apply on the next restart.
type SettingsFunc func() (Settings, error)

// StaticSettings returns a SettingsFunc that always yields s.
func StaticSettings(s Settings) SettingsFunc {
	return func() (Settings, error) { return s, nil }
}

// Options holds resolved construction-time configuration for a Supervisor.
type Options struct {
	// Name labels user-facing messages, e.g. "Lean: <error>".
	Name string

	// Window is the minimum interval between non-urgent status changes.
	Window time.Duration

	// Settings supplies executable, arguments and limits per attempt.
	Settings SettingsFunc

	// Prompter presents restart prompts. nil dismisses every prompt.
	Prompter Prompter

	// Notifier shows transient warnings. nil logs them.
	Notifier Notifier

	// Log receives engine stderr output and restart separators.
	Log logsink.Sink

	// Logger receives structured operational logs.
	Logger *slog.Logger
}

// Option configures a Supervisor at construction time.
type Option func(*Options)

// WithName sets the label used in user-facing messages.
// Empty names are ignored.
func WithName(name string) Option {
	return func(o *Options) {
		if name != "" {
			o.Name = name
		}
	}
}

// WithWindow sets the minimum interval between non-urgent status changes.
// Values <= 0 are ignored.
func WithWindow(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.Window = d
		}
	}
}

// WithSettings sets the per-attempt settings source.
func WithSettings(fn SettingsFunc) Option {
	return func(o *Options) {
		if fn != nil {
			o.Settings = fn
		}
	}
}

// WithPrompter sets the restart prompt presenter.
func WithPrompter(p Prompter) Option {
	return func(o *Options) {
		o.Prompter = p
	}
}

// WithNotifier sets the transient warning presenter.
func WithNotifier(n Notifier) Option {
	return func(o *Options) {
		o.Notifier = n
	}
}

// WithLog sets the diagnostic log sink.
func WithLog(sink logsink.Sink) Option {
	return func(o *Options) {
		if sink != nil {
			o.Log = sink
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

func resolveOptions(opts ...Option) Options {
	o := Options{
		Name:   defaultName,
		Window: filter.DefaultWindow,
		Settings: StaticSettings(Settings{
			Base:   enginesup.ConnectionOptions{Executable: defaultExecutable},
			Limits: capability.Limits{MemoryMB: defaultMemoryLimit, Time: defaultTimeLimit},
		}),
		Log:    logsink.Discard,
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.Prompter == nil {
		o.Prompter = dismissPrompter{}
	}
	if o.Notifier == nil {
		logger := o.Logger
		o.Notifier = NotifierFunc(func(msg string) { logger.Warn("engine warning", "message", msg) })
	}
	return o
}
