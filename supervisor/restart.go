package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmora/enginesup"
	"github.com/dmora/enginesup/capability"
	"github.com/dmora/enginesup/event"
)

// restartSeparator marks a user-triggered restart in the diagnostic log.
const restartSeparator = "----- user triggered restart -----"

// State is the connection state of the restart controller.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// RestartEvent is published after every restart.
type RestartEvent struct {
	// ConnectionID identifies the connection attempt made by the restart.
	ConnectionID uuid.UUID

	// At is when the restart completed.
	At time.Time

	// Err is the connect failure, if the restart did not reach
	// StateConnected. The failure has already been offered as a prompt.
	Err error
}

// connection is the per-attempt state rebuilt on every connect.
type connection struct {
	id   uuid.UUID
	caps capability.Set
	opts enginesup.ConnectionOptions
}

// restartController drives connection attempts and restart prompts.
//
// Connect and Restart are serialized. Restart prompts run in their own
// goroutines and are the only suspension point; a newer prompt does not
// cancel an outstanding one. There is no backoff or attempt cap: every
// failed attempt asks the user again.
type restartController struct {
	engine    enginesup.Engine
	opts      Options
	restarted *event.Emitter[RestartEvent]
	logger    *slog.Logger

	// onAttempt runs at the start of every connection attempt, before the
	// version query.
	onAttempt func()

	mu    sync.Mutex // serializes connect and restart
	state atomic.Int32
	conn  atomic.Pointer[connection]

	ctx     context.Context // cancelled by close; parent of prompt contexts
	cancel  context.CancelFunc
	pmu     sync.Mutex // guards closed and prompts.Add against close
	closed  bool
	prompts sync.WaitGroup
}

func newRestartController(engine enginesup.Engine, opts Options, restarted *event.Emitter[RestartEvent], onAttempt func()) *restartController {
	ctx, cancel := context.WithCancel(context.Background())
	c := &restartController{
		engine:    engine,
		opts:      opts,
		restarted: restarted,
		logger:    opts.Logger,
		onAttempt: onAttempt,
		ctx:       ctx,
		cancel:    cancel,
	}
	c.conn.Store(&connection{})
	return c
}

// State returns the current connection state.
func (c *restartController) State() State {
	return State(c.state.Load())
}

func (c *restartController) setState(s State) {
	if prev := State(c.state.Swap(int32(s))); prev != s {
		c.logger.Debug("connection state", "from", prev, "to", s, "connection_id", c.current().id)
	}
}

// current returns the latest connection attempt.
func (c *restartController) current() *connection {
	return c.conn.Load()
}

// lost records that the engine died underneath a connected session.
func (c *restartController) lost() {
	if c.state.CompareAndSwap(int32(StateConnected), int32(StateDisconnected)) {
		c.logger.Info("engine connection lost", "connection_id", c.current().id)
	}
}

// Connect builds connection options and opens the engine. Failures are
// routed to RequestRestart and also returned for callers that want them;
// they never panic out of Connect.
func (c *restartController) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt(ctx, c.engine.Connect)
}

// Restart tears the engine down and reconnects, then publishes a
// RestartEvent, then appends the restart separator to the log.
func (c *restartController) Restart(ctx context.Context) RestartEvent {
	c.mu.Lock()
	c.setState(StateDisconnected)
	err := c.attempt(ctx, c.engine.Restart)
	ev := RestartEvent{ConnectionID: c.current().id, At: time.Now(), Err: err}
	c.mu.Unlock()

	c.restarted.Fire(ev)
	c.opts.Log.AppendLine(restartSeparator)
	return ev
}

// attempt runs one connection attempt with open. Caller must hold c.mu.
func (c *restartController) attempt(ctx context.Context, open func(context.Context, enginesup.ConnectionOptions) error) error {
	conn := &connection{id: uuid.New()}
	c.conn.Store(conn)
	c.setState(StateConnecting)
	if c.onAttempt != nil {
		c.onAttempt()
	}

	err := c.safeOpen(ctx, conn, open)
	if err != nil {
		c.setState(StateDisconnected)
		c.logger.Warn("engine connect failed", "connection_id", conn.id, "error", err)
		c.RequestRestart(fmt.Sprintf("%s: %v", c.opts.Name, err), false)
		return err
	}

	c.setState(StateConnected)
	c.logger.Info("engine connected",
		"connection_id", conn.id,
		"version", conn.caps.Version,
		"executable", conn.opts.Executable,
		"args", conn.opts.Args,
	)
	return nil
}

// safeOpen queries the version, negotiates capabilities, builds options
// and opens the engine, converting panics into errors.
func (c *restartController) safeOpen(ctx context.Context, conn *connection, open func(context.Context, enginesup.ConnectionOptions) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("supervisor: connect panicked: %v", r)
		}
	}()

	settings, err := c.opts.Settings()
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	conn.opts = settings.Base.Clone()

	raw, err := c.engine.Version(ctx, settings.Base.Executable)
	if err != nil {
		return err
	}
	caps, err := capability.Negotiate(raw)
	if err != nil {
		return err
	}
	conn.caps = caps
	conn.opts = capability.Options(settings.Base, settings.Limits, caps)
	if err := conn.opts.Validate(); err != nil {
		return err
	}
	return open(ctx, conn.opts)
}

// RequestRestart asks the user whether to restart, without blocking the
// caller. If the user picks RestartAction, Restart runs before the Decision
// is delivered. The returned channel yields exactly one Decision and is then
// closed.
func (c *restartController) RequestRestart(message string, warningOnly bool) <-chan Decision {
	out := make(chan Decision, 1)
	c.pmu.Lock()
	if c.closed {
		c.pmu.Unlock()
		out <- Decision{Err: context.Canceled}
		close(out)
		return out
	}
	c.prompts.Add(1)
	c.pmu.Unlock()

	p := Prompt{Message: message, Severity: SeverityError, Actions: []string{RestartAction}}
	if warningOnly {
		p.Severity = SeverityWarning
	}

	go func() {
		defer c.prompts.Done()
		defer close(out)

		choice, err := safePrompt(c.ctx, c.opts.Prompter, p)
		d := Decision{Err: err}
		if err == nil && choice == RestartAction && c.ctx.Err() == nil {
			c.logger.Info("restart requested by user")
			c.Restart(c.ctx)
			d.Restart = true
		}
		out <- d
	}()
	return out
}

// close cancels outstanding prompts and waits for their goroutines.
func (c *restartController) close() {
	c.pmu.Lock()
	c.closed = true
	c.pmu.Unlock()
	c.cancel()
	c.prompts.Wait()
}
