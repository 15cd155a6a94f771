//go:build !windows

package lean

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/dmora/enginesup"
	"github.com/dmora/enginesup/engine/internal/errfmt"
)

// Engine drives one Lean server subprocess at a time.
//
// Connect and Restart replace the running subprocess. Events from a
// replaced subprocess are dropped once it is stopped. The event channels
// live as long as the Engine and are never closed.
type Engine struct {
	opts   EngineOptions
	logger *slog.Logger

	errs  chan enginesup.ErrorNotification
	msgs  chan enginesup.MessageList
	tasks chan enginesup.TaskSnapshot

	mu   sync.Mutex // serializes Connect, Restart and Close
	proc atomic.Pointer[process]

	closed    chan struct{}
	closeOnce sync.Once
}

var (
	_ enginesup.Engine       = (*Engine)(nil)
	_ enginesup.Syncer       = (*Engine)(nil)
	_ enginesup.RegionSetter = (*Engine)(nil)
)

// NewEngine creates a disconnected Lean engine.
func NewEngine(opts ...EngineOption) *Engine {
	o := resolveEngineOptions(opts...)
	return &Engine{
		opts:   o,
		logger: o.Logger,
		errs:   make(chan enginesup.ErrorNotification, o.EventBuffer),
		msgs:   make(chan enginesup.MessageList, o.EventBuffer),
		tasks:  make(chan enginesup.TaskSnapshot, o.EventBuffer),
		closed: make(chan struct{}),
	}
}

// Errors implements enginesup.Engine.
func (e *Engine) Errors() <-chan enginesup.ErrorNotification { return e.errs }

// Messages implements enginesup.Engine.
func (e *Engine) Messages() <-chan enginesup.MessageList { return e.msgs }

// Tasks implements enginesup.Engine.
func (e *Engine) Tasks() <-chan enginesup.TaskSnapshot { return e.tasks }

// Alive reports whether a server subprocess is running.
func (e *Engine) Alive() bool {
	p := e.proc.Load()
	return p != nil && p.alive()
}

// Connect spawns `<opts.Executable> --server <opts.Args...>` in
// opts.WorkingDir, replacing any running subprocess. Spawn failures are
// returned; a later unexpected exit is reported on Errors.
func (e *Engine) Connect(ctx context.Context, opts enginesup.ConnectionOptions) error {
	return e.open(ctx, opts, "connect")
}

// Restart stops the running subprocess, if any, and spawns a new one.
func (e *Engine) Restart(ctx context.Context, opts enginesup.ConnectionOptions) error {
	return e.open(ctx, opts, "restart")
}

func (e *Engine) open(ctx context.Context, opts enginesup.ConnectionOptions, op string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	select {
	case <-e.closed:
		return enginesup.ErrTerminated
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	if old := e.proc.Swap(nil); old != nil {
		_ = old.stop(e.opts.GracePeriod)
		e.logger.Debug("lean server stopped", "process_id", old.id, "reason", op)
	}

	p, err := e.spawn(opts)
	if err != nil {
		return fmt.Errorf("lean: %s: %w", op, err)
	}
	e.proc.Store(p)
	e.logger.Info("lean server started",
		"process_id", p.id,
		"pid", p.cmd.Process.Pid,
		"executable", opts.Executable,
		"args", opts.Args,
	)
	return nil
}

// spawn starts the subprocess and its reader goroutines.
func (e *Engine) spawn(opts enginesup.ConnectionOptions) (*process, error) {
	resolved, err := resolveExecutable(opts.Executable)
	if err != nil {
		return nil, err
	}

	args := append([]string{serverFlag}, opts.Args...)
	cmd := exec.Command(resolved, args...)
	cmd.Dir = opts.WorkingDir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", enginesup.ErrUnavailable, opts.Executable, err)
	}

	p := newProcess(cmd, stdin)
	p.conn = newConn(stdout, stdin, e.opts.MaxMessageSize, connHandlers{
		onMessages: func(l enginesup.MessageList) { forward(p, e.msgs, l) },
		onTasks:    func(s enginesup.TaskSnapshot) { forward(p, e.tasks, s) },
		onUnrelated: func(msg string) {
			e.emitError(p, enginesup.ErrorUnrelated, msg)
		},
		onParseError: func(_ []byte, err error) {
			e.emitError(p, enginesup.ErrorUnrelated, fmt.Sprintf("malformed server output: %v", err))
		},
	})

	var stderrDone sync.WaitGroup
	stderrDone.Add(1)
	go func() {
		defer stderrDone.Done()
		e.pumpStderr(p, stderr)
	}()

	go func() {
		p.conn.ReadLoop()
		stderrDone.Wait() // Wait must follow all pipe reads
		err := wrapExitError(cmd.Wait())
		if err == nil {
			err = p.conn.Err()
		}
		if p.finish(err) {
			return
		}
		e.logger.Warn("lean server exited", "process_id", p.id, "error", err)
		// A replacement may have begun stopping p since it exited.
		if p.stopping.Load() {
			return
		}
		e.emitError(nil, enginesup.ErrorConnect, exitMessage(err))
	}()

	return p, nil
}

// pumpStderr forwards stderr chunks as stderr notifications until EOF.
func (e *Engine) pumpStderr(p *process, r io.Reader) {
	buf := make([]byte, stderrChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			e.emitError(p, enginesup.ErrorStderr, string(buf[:n]))
		}
		if err != nil {
			return
		}
	}
}

func exitMessage(err error) string {
	if code, ok := enginesup.ExitCode(err); ok {
		return fmt.Sprintf("server process exited with code %d", code)
	}
	if err != nil {
		return "server process exited: " + err.Error()
	}
	return "server process exited"
}

// emitError delivers an error notification. A nil p delivers even after the
// subprocess finished; only Close drops it.
func (e *Engine) emitError(p *process, kind enginesup.ErrorKind, payload string) {
	n := enginesup.ErrorNotification{Kind: kind, Payload: errfmt.Truncate(payload)}
	if p == nil {
		select {
		case e.errs <- n:
		case <-e.closed:
		}
		return
	}
	forward(p, e.errs, n)
}

// forward sends v on ch unless the subprocess is being stopped.
func forward[T any](p *process, ch chan<- T, v T) {
	select {
	case ch <- v:
	case <-p.ctx.Done():
	}
}

// Close stops the subprocess. Safe to call multiple times.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		close(e.closed)
		if p := e.proc.Swap(nil); p != nil {
			err = p.stop(e.opts.GracePeriod)
			if errors.Is(err, enginesup.ErrTerminated) {
				err = nil
			}
		}
	})
	return err
}

// --- Requests ---

// current returns the live subprocess or ErrNotConnected.
func (e *Engine) current() (*process, error) {
	p := e.proc.Load()
	if p == nil || !p.alive() {
		return nil, enginesup.ErrNotConnected
	}
	return p, nil
}

func (e *Engine) call(ctx context.Context, req request, result any) error {
	p, err := e.current()
	if err != nil {
		return err
	}
	if _, ok := ctx.Deadline(); !ok && e.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.RequestTimeout)
		defer cancel()
	}
	return p.conn.Call(ctx, req, result)
}

// Sync sends the current contents of fileName to the server.
func (e *Engine) Sync(ctx context.Context, fileName, content string) error {
	return e.call(ctx, &syncRequest{
		commandHeader: commandHeader{Command: CommandSync},
		FileName:      fileName,
		Content:       content,
	}, nil)
}

// SetRegionOfInterest restricts server checking to roi.
func (e *Engine) SetRegionOfInterest(ctx context.Context, roi enginesup.RegionOfInterest) error {
	files := roi.Files
	if files == nil {
		files = []enginesup.FileRegion{}
	}
	return e.call(ctx, &roiRequest{
		commandHeader: commandHeader{Command: CommandROI},
		Mode:          roi.Mode,
		Files:         files,
	}, nil)
}

// Info returns information about the identifier at a position.
// line is 1-based, column 0-based. A nil record means nothing was found.
func (e *Engine) Info(ctx context.Context, fileName string, line, column int) (*InfoRecord, error) {
	var resp infoResponse
	err := e.call(ctx, &infoRequest{
		commandHeader: commandHeader{Command: CommandInfo},
		FileName:      fileName,
		Line:          line,
		Column:        column,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Record, nil
}

// Complete returns completion candidates at a position.
func (e *Engine) Complete(ctx context.Context, fileName string, line, column int) (CompleteResult, error) {
	var resp CompleteResult
	err := e.call(ctx, &completeRequest{
		commandHeader: commandHeader{Command: CommandComplete},
		FileName:      fileName,
		Line:          line,
		Column:        column,
	}, &resp)
	return resp, err
}
