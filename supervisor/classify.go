package supervisor

import (
	"fmt"

	"github.com/dmora/enginesup"
)

// ActionKind is the handling policy for an engine error.
type ActionKind int

const (
	// ActionAppendAndShowLog appends the payload to the diagnostic log and
	// surfaces the log. The connection continues.
	ActionAppendAndShowLog ActionKind = iota + 1

	// ActionOfferRestart asks the user whether to restart the engine.
	ActionOfferRestart

	// ActionWarnTransient shows a transient warning. No state changes.
	ActionWarnTransient
)

func (k ActionKind) String() string {
	switch k {
	case ActionAppendAndShowLog:
		return "append-and-show-log"
	case ActionOfferRestart:
		return "offer-restart"
	case ActionWarnTransient:
		return "warn-transient"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

// Action is what the supervisor does in response to an error notification.
type Action struct {
	Kind ActionKind

	// Message is the raw log text for ActionAppendAndShowLog and the
	// user-facing text otherwise.
	Message string
}

// Classify maps an engine error notification to its handling policy.
// name labels user-facing messages (e.g. "Lean"); executable is the path the
// current connection was launched with. Unknown kinds are treated as
// unrelated warnings. The mapping is fixed.
func Classify(n enginesup.ErrorNotification, name, executable string) Action {
	switch n.Kind {
	case enginesup.ErrorStderr:
		return Action{Kind: ActionAppendAndShowLog, Message: n.Payload}
	case enginesup.ErrorConnect:
		return Action{
			Kind: ActionOfferRestart,
			Message: fmt.Sprintf("%s: %s\nThe executable path %q may be incorrect, make sure it is a valid %s executable",
				name, n.Payload, executable, name),
		}
	default:
		return Action{Kind: ActionWarnTransient, Message: name + ": " + n.Payload}
	}
}
