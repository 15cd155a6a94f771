package supervisor

import (
	"context"
	"fmt"
)

// RestartAction is the single affirmative action offered by restart prompts.
const RestartAction = "Restart server"

// Severity selects how a prompt is presented.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Prompt is a user-facing confirm/dismiss request.
type Prompt struct {
	Message  string
	Severity Severity
	Actions  []string
}

// Prompter presents prompts to the user.
//
// Prompt blocks until the user picks one of p.Actions (returned as-is) or
// dismisses the prompt (returns ""). It must return promptly with ctx.Err()
// when ctx is cancelled. Prompt is called from its own goroutine; several
// prompts may be outstanding at once.
type Prompter interface {
	Prompt(ctx context.Context, p Prompt) (string, error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(ctx context.Context, p Prompt) (string, error)

func (f PrompterFunc) Prompt(ctx context.Context, p Prompt) (string, error) { return f(ctx, p) }

// Notifier shows transient warnings. Warn runs on the event loop and must
// not block.
type Notifier interface {
	Warn(message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(message string)

func (f NotifierFunc) Warn(message string) { f(message) }

// Decision is the outcome of a restart prompt.
type Decision struct {
	// Restart is true when the user chose RestartAction; the restart has
	// completed by the time the Decision is delivered.
	Restart bool

	// Err is set when the prompt could not be shown or was cancelled.
	Err error
}

// dismissPrompter declines every prompt. Used when no Prompter is configured.
type dismissPrompter struct{}

func (dismissPrompter) Prompt(context.Context, Prompt) (string, error) { return "", nil }

// safePrompt calls p with panic recovery.
func safePrompt(ctx context.Context, p Prompter, pr Prompt) (choice string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("supervisor: prompter panic: %v", r)
		}
	}()
	return p.Prompt(ctx, pr)
}
