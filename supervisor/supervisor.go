// Package supervisor is the composition root of the engine client.
//
// A [Supervisor] owns one engine handle. It negotiates capabilities by
// engine version on every connection attempt, turns raw task snapshots into
// a rate-limited [enginesup.ServerStatus] stream, classifies engine errors
// into log/warn/restart actions, and asks the user before every restart.
//
// Engine events are consumed by a single goroutine: each handler runs to
// completion before the next event is processed. The only suspension point
// is the restart prompt, which runs in its own goroutine. A connect error
// from an engine that still reports alive starts a watch whose result is
// handed back to the event loop.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmora/enginesup"
	"github.com/dmora/enginesup/capability"
	"github.com/dmora/enginesup/event"
	"github.com/dmora/enginesup/filter"
	"github.com/dmora/enginesup/logsink"
)

// alivePollInterval is how often a connection that reported a connect
// error while still alive is checked for exit.
const alivePollInterval = 20 * time.Millisecond

// ErrStarted is returned by Start when the supervisor was already started.
var ErrStarted = errors.New("supervisor: already started")

// Supervisor wires an engine to the status filter, the failure classifier
// and the restart controller.
type Supervisor struct {
	engine enginesup.Engine
	opts   Options
	logger *slog.Logger

	status    *event.Emitter[enginesup.ServerStatus]
	restarted *event.Emitter[RestartEvent]
	filter    *filter.LowPass[enginesup.ServerStatus]
	ctrl      *restartController

	mu       sync.Mutex
	messages []enginesup.Message

	// stoppedReported is set once the terminal status has been fed to the
	// filter for the current connection loss; a live snapshot or a new
	// connection attempt clears it.
	stoppedReported atomic.Bool

	// dead receives connections found not alive by watchAlive.
	dead chan *connection

	watchMu sync.Mutex
	watched *connection

	started   atomic.Bool
	closeOnce sync.Once
	loopCtx   context.Context
	stopLoop  context.CancelFunc
	loopDone  chan struct{}
}

// New creates a Supervisor for engine. Call Start to subscribe to the
// engine's events and make the first connection attempt.
func New(engine enginesup.Engine, opts ...Option) *Supervisor {
	o := resolveOptions(opts...)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	s := &Supervisor{
		engine:    engine,
		opts:      o,
		logger:    o.Logger,
		status:    event.New[enginesup.ServerStatus](),
		restarted: event.New[RestartEvent](),
		loopCtx:   loopCtx,
		stopLoop:  stopLoop,
		loopDone:  make(chan struct{}),
		dead:      make(chan *connection),
	}
	s.filter = filter.NewLowPass(o.Window, s.status.Fire)
	s.ctrl = newRestartController(engine, o, s.restarted, s.resetConnection)
	return s
}

// Start clears the diagnostic log, subscribes to the engine's event streams
// exactly once, and makes the first connection attempt.
//
// A failed attempt has already been offered to the user as a restart prompt
// when Start returns; the error is returned for information only.
func (s *Supervisor) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrStarted
	}
	s.opts.Log.Clear()
	go s.run()
	return s.ctrl.Connect(ctx)
}

// Close cancels outstanding prompts, stops the status filter, closes the
// engine and waits for the event loop to exit. Safe to call multiple times.
// Close must not be called from a status or restart handler.
func (s *Supervisor) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.ctrl.close()
		s.filter.Close()
		err = s.engine.Close()
		s.stopLoop()
		if s.started.Load() {
			<-s.loopDone
		}
	})
	return err
}

// SubscribeStatus registers fn for every status change. Handlers run on the
// goroutine that decided the emission and must not block.
func (s *Supervisor) SubscribeStatus(fn func(enginesup.ServerStatus)) (unsubscribe func()) {
	return s.status.Subscribe(fn)
}

// SubscribeRestarted registers fn for restart-completed events.
func (s *Supervisor) SubscribeRestarted(fn func(RestartEvent)) (unsubscribe func()) {
	return s.restarted.Subscribe(fn)
}

// Messages returns a copy of the latest diagnostic message list.
func (s *Supervisor) Messages() []enginesup.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// Restart restarts the engine immediately, without asking.
func (s *Supervisor) Restart(ctx context.Context) RestartEvent {
	return s.ctrl.Restart(ctx)
}

// RequestRestart shows message with a single RestartAction and restarts if
// the user accepts. It never blocks; the Decision is delivered on the
// returned channel.
func (s *Supervisor) RequestRestart(message string, warningOnly bool) <-chan Decision {
	return s.ctrl.RequestRestart(message, warningOnly)
}

// State returns the connection state.
func (s *Supervisor) State() State {
	return s.ctrl.State()
}

// Capabilities returns the capability set negotiated by the latest
// connection attempt.
func (s *Supervisor) Capabilities() capability.Set {
	return s.ctrl.current().caps
}

// ConnectionOptions returns the options of the latest connection attempt.
func (s *Supervisor) ConnectionOptions() enginesup.ConnectionOptions {
	return s.ctrl.current().opts.Clone()
}

// Log returns the diagnostic log sink.
func (s *Supervisor) Log() logsink.Sink {
	return s.opts.Log
}

// Sync sends file contents to engines that accept them.
func (s *Supervisor) Sync(ctx context.Context, fileName, content string) error {
	syncer, ok := s.engine.(enginesup.Syncer)
	if !ok {
		return fmt.Errorf("%w: engine does not accept file contents", enginesup.ErrNotSupported)
	}
	if s.State() != StateConnected {
		return enginesup.ErrNotConnected
	}
	return syncer.Sync(ctx, fileName, content)
}

// SetRegionOfInterest restricts engine analysis to roi when the connected
// engine version supports it.
func (s *Supervisor) SetRegionOfInterest(ctx context.Context, roi enginesup.RegionOfInterest) error {
	setter, ok := s.engine.(enginesup.RegionSetter)
	if !ok || !s.Capabilities().RegionOfInterest {
		return fmt.Errorf("%w: region of interest", enginesup.ErrNotSupported)
	}
	if s.State() != StateConnected {
		return enginesup.ErrNotConnected
	}
	return setter.SetRegionOfInterest(ctx, roi)
}

// resetConnection runs at the start of every connection attempt.
func (s *Supervisor) resetConnection() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
	s.stoppedReported.Store(false)
}

// run consumes the engine's event streams until they close or the
// supervisor is closed.
func (s *Supervisor) run() {
	defer close(s.loopDone)

	errs, msgs, tasks := s.engine.Errors(), s.engine.Messages(), s.engine.Tasks()
	for errs != nil || msgs != nil || tasks != nil {
		select {
		case n, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.handleError(n)
		case l, ok := <-msgs:
			if !ok {
				msgs = nil
				continue
			}
			s.handleMessages(l)
		case snap, ok := <-tasks:
			if !ok {
				tasks = nil
				continue
			}
			s.drainMessages(msgs)
			s.handleTasks(snap)
		case conn := <-s.dead:
			if conn == s.ctrl.current() && !s.engine.Alive() {
				s.markLost()
			}
		case <-s.loopCtx.Done():
			return
		}
	}
}

// drainMessages applies message lists that are already queued, so a status
// never overtakes diagnostics the engine sent before the snapshot.
func (s *Supervisor) drainMessages(msgs <-chan enginesup.MessageList) {
	for {
		select {
		case l, ok := <-msgs:
			if !ok {
				return
			}
			s.handleMessages(l)
		default:
			return
		}
	}
}

func (s *Supervisor) handleTasks(snap enginesup.TaskSnapshot) {
	st := enginesup.StatusFromSnapshot(snap)
	s.stoppedReported.Store(false)
	s.filter.Input(st, st.Idle())
}

func (s *Supervisor) handleMessages(l enginesup.MessageList) {
	msgs := slices.Clone(l.Msgs)
	s.mu.Lock()
	s.messages = msgs
	s.mu.Unlock()
}

func (s *Supervisor) handleError(n enginesup.ErrorNotification) {
	action := Classify(n, s.opts.Name, s.ctrl.current().opts.Executable)
	s.logger.Debug("engine error", "kind", n.Kind, "action", action.Kind)

	switch action.Kind {
	case ActionAppendAndShowLog:
		s.opts.Log.Append(action.Message)
		s.opts.Log.Show()
	case ActionOfferRestart:
		s.ctrl.RequestRestart(action.Message, false)
	case ActionWarnTransient:
		s.opts.Notifier.Warn(action.Message)
	}

	if !s.engine.Alive() {
		s.markLost()
		return
	}
	if action.Kind == ActionOfferRestart {
		s.watchAlive(s.ctrl.current())
	}
}

// markLost moves the controller to disconnected and reports the stopped
// status once per connection loss.
func (s *Supervisor) markLost() {
	s.ctrl.lost()
	if !s.stoppedReported.Swap(true) {
		s.filter.Input(enginesup.StoppedStatus(), true)
	}
}

// watchAlive polls the engine after a connect error reported by a process
// that is still alive, and hands conn back to the event loop once the
// engine is no longer alive. It gives up when a new connection attempt
// replaces conn or the supervisor closes. One watcher runs per connection.
func (s *Supervisor) watchAlive(conn *connection) {
	s.watchMu.Lock()
	if s.watched == conn {
		s.watchMu.Unlock()
		return
	}
	s.watched = conn
	s.watchMu.Unlock()

	go func() {
		ticker := time.NewTicker(alivePollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.loopCtx.Done():
				return
			case <-ticker.C:
			}
			if s.ctrl.current() != conn {
				return
			}
			if !s.engine.Alive() {
				select {
				case s.dead <- conn:
				case <-s.loopCtx.Done():
				}
				return
			}
		}
	}()
}
