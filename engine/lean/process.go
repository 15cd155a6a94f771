//go:build !windows

package lean

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dmora/enginesup"
)

// process is one running server subprocess.
type process struct {
	id    uuid.UUID
	cmd   *exec.Cmd
	stdin io.WriteCloser
	conn  *Conn

	done       chan struct{}
	termErr    error
	stopped    bool // set once by finish
	stopping   atomic.Bool
	stopOnce   sync.Once
	finishOnce sync.Once

	// ctx is cancelled on stop so event delivery never blocks shutdown.
	ctx    context.Context
	cancel context.CancelFunc
}

func newProcess(cmd *exec.Cmd, stdin io.WriteCloser) *process {
	ctx, cancel := context.WithCancel(context.Background())
	return &process{
		id:     uuid.New(),
		cmd:    cmd,
		stdin:  stdin,
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// alive reports whether the subprocess is running and not being stopped.
func (p *process) alive() bool {
	if p.stopping.Load() {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// stop closes stdin, sends SIGTERM and escalates to SIGKILL after grace.
// Safe to call multiple times.
func (p *process) stop(grace time.Duration) error {
	p.stopOnce.Do(func() {
		p.stopping.Store(true)
		p.cancel()
		_ = p.stdin.Close()
		_ = signalProcess(p.cmd.Process, syscall.SIGTERM)

		select {
		case <-p.done:
		case <-time.After(grace):
			_ = signalProcess(p.cmd.Process, os.Kill)
			<-p.done
		}
	})
	<-p.done
	return p.termErr
}

// finish records the terminal error and closes done. It reports whether
// the exit was requested by stop; the answer is fixed by the first call.
func (p *process) finish(err error) (stopped bool) {
	p.finishOnce.Do(func() {
		p.stopped = p.stopping.Load()
		if p.stopped {
			err = enginesup.ErrTerminated
		}
		p.termErr = err
		p.cancel()
		_ = p.stdin.Close()
		close(p.done)
	})
	return p.stopped
}

// signalProcess sends sig to a process, returning nil if the process
// has already exited (os.ErrProcessDone).
func signalProcess(proc *os.Process, sig os.Signal) error {
	err := proc.Signal(sig)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// wrapExitError converts a non-zero *exec.ExitError to *enginesup.ExitError.
// nil and clean exits map to nil; other errors pass through.
func wrapExitError(err error) error {
	if err == nil {
		return nil
	}
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return err
	}
	code := ee.ExitCode()
	if code == 0 {
		return nil
	}
	return &enginesup.ExitError{Code: code, Err: err}
}
