// Package enginetest provides test tooling for [enginesup.Engine]
// implementations and their consumers.
//
// [Engine] is a scriptable in-memory engine for testing supervisors without
// a subprocess. [RunEngineTests] is a compliance suite that any Engine
// implementation can run against itself:
//
//	func TestCompliance(t *testing.T) {
//	    enginetest.RunEngineTests(t, func(t *testing.T) enginesup.Engine {
//	        return myengine.New()
//	    })
//	}
package enginetest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmora/enginesup"
)

// DefaultVersion is the version the fake engine reports unless VersionFn is
// set.
const DefaultVersion = "3.4.2"

// Call records one invocation of an Engine method.
type Call struct {
	Method string
	Opts   enginesup.ConnectionOptions
	Arg    any
}

// Engine is a scriptable fake engine.
//
// Connect and Restart validate their options and mark the engine alive
// unless the corresponding Fn field says otherwise. Events are injected
// with EmitError, EmitMessages and EmitTasks. Fn fields must be set before
// the engine is shared with other goroutines.
type Engine struct {
	// VersionFn overrides Version. Default: DefaultVersion.
	VersionFn func(ctx context.Context, executable string) (string, error)

	// ConnectFn overrides the connect outcome. Default: succeed.
	ConnectFn func(ctx context.Context, opts enginesup.ConnectionOptions) error

	// RestartFn overrides the restart outcome. Default: succeed.
	RestartFn func(ctx context.Context, opts enginesup.ConnectionOptions) error

	// OnCall observes every recorded call, in order, synchronously.
	OnCall func(Call)

	mu    sync.Mutex
	alive bool
	calls []Call

	errs   chan enginesup.ErrorNotification
	msgs   chan enginesup.MessageList
	tasks  chan enginesup.TaskSnapshot
	done   chan struct{}
	closed sync.Once
}

var (
	_ enginesup.Engine       = (*Engine)(nil)
	_ enginesup.Syncer       = (*Engine)(nil)
	_ enginesup.RegionSetter = (*Engine)(nil)
)

// New returns a disconnected fake engine.
func New() *Engine {
	return &Engine{
		errs:  make(chan enginesup.ErrorNotification, 64),
		msgs:  make(chan enginesup.MessageList, 64),
		tasks: make(chan enginesup.TaskSnapshot, 64),
		done:  make(chan struct{}),
	}
}

func (e *Engine) record(c Call) {
	e.mu.Lock()
	e.calls = append(e.calls, c)
	onCall := e.OnCall
	e.mu.Unlock()
	if onCall != nil {
		onCall(c)
	}
}

// Calls returns the recorded calls in order.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.calls)
}

// CallCount returns how many times method was called.
func (e *Engine) CallCount(method string) int {
	n := 0
	for _, c := range e.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Version implements enginesup.Engine.
func (e *Engine) Version(ctx context.Context, executable string) (string, error) {
	e.record(Call{Method: "Version", Arg: executable})
	if e.VersionFn != nil {
		return e.VersionFn(ctx, executable)
	}
	if executable == "" {
		return "", fmt.Errorf("%w: no executable", enginesup.ErrUnavailable)
	}
	return DefaultVersion, nil
}

// Connect implements enginesup.Engine.
func (e *Engine) Connect(ctx context.Context, opts enginesup.ConnectionOptions) error {
	e.record(Call{Method: "Connect", Opts: opts.Clone()})
	return e.open(ctx, opts, e.ConnectFn)
}

// Restart implements enginesup.Engine.
func (e *Engine) Restart(ctx context.Context, opts enginesup.ConnectionOptions) error {
	e.record(Call{Method: "Restart", Opts: opts.Clone()})
	e.SetAlive(false)
	return e.open(ctx, opts, e.RestartFn)
}

func (e *Engine) open(ctx context.Context, opts enginesup.ConnectionOptions, fn func(context.Context, enginesup.ConnectionOptions) error) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	if fn != nil {
		if err := fn(ctx, opts); err != nil {
			return err
		}
	}
	e.SetAlive(true)
	return nil
}

func (e *Engine) checkOpen() error {
	select {
	case <-e.done:
		return enginesup.ErrTerminated
	default:
		return nil
	}
}

// Alive implements enginesup.Engine.
func (e *Engine) Alive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alive
}

// SetAlive sets what Alive reports.
func (e *Engine) SetAlive(alive bool) {
	e.mu.Lock()
	e.alive = alive
	e.mu.Unlock()
}

// Errors implements enginesup.Engine.
func (e *Engine) Errors() <-chan enginesup.ErrorNotification { return e.errs }

// Messages implements enginesup.Engine.
func (e *Engine) Messages() <-chan enginesup.MessageList { return e.msgs }

// Tasks implements enginesup.Engine.
func (e *Engine) Tasks() <-chan enginesup.TaskSnapshot { return e.tasks }

// EmitError delivers n to the Errors channel. No-op after Close.
func (e *Engine) EmitError(n enginesup.ErrorNotification) {
	select {
	case <-e.done:
	case e.errs <- n:
	}
}

// EmitMessages delivers l to the Messages channel. No-op after Close.
func (e *Engine) EmitMessages(l enginesup.MessageList) {
	select {
	case <-e.done:
	case e.msgs <- l:
	}
}

// EmitTasks delivers s to the Tasks channel. No-op after Close.
func (e *Engine) EmitTasks(s enginesup.TaskSnapshot) {
	select {
	case <-e.done:
	case e.tasks <- s:
	}
}

// Sync implements enginesup.Syncer.
func (e *Engine) Sync(_ context.Context, fileName, content string) error {
	e.record(Call{Method: "Sync", Arg: [2]string{fileName, content}})
	if !e.Alive() {
		return enginesup.ErrNotConnected
	}
	return nil
}

// SetRegionOfInterest implements enginesup.RegionSetter.
func (e *Engine) SetRegionOfInterest(_ context.Context, roi enginesup.RegionOfInterest) error {
	e.record(Call{Method: "SetRegionOfInterest", Arg: roi})
	if !e.Alive() {
		return enginesup.ErrNotConnected
	}
	return nil
}

// Close implements enginesup.Engine. The event channels are not closed so
// that concurrent Emit calls cannot panic; consumers observe Close through
// their own shutdown path.
func (e *Engine) Close() error {
	e.closed.Do(func() {
		e.record(Call{Method: "Close"})
		e.SetAlive(false)
		close(e.done)
	})
	return nil
}

// Done is closed by Close.
func (e *Engine) Done() <-chan struct{} { return e.done }
