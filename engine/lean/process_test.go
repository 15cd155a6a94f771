//go:build !windows

package lean

import (
	"errors"
	"os/exec"
	"testing"

	"github.com/dmora/enginesup"
)

type nopWriteCloser struct{}

func (nopWriteCloser) Write(b []byte) (int, error) { return len(b), nil }
func (nopWriteCloser) Close() error                { return nil }

func TestProcessFinish(t *testing.T) {
	exitErr := &enginesup.ExitError{Code: 2, Err: errors.New("exit status 2")}

	tests := []struct {
		name        string
		stopping    bool
		wantStopped bool
		wantErr     error
	}{
		{"natural exit", false, false, exitErr},
		{"requested stop", true, true, enginesup.ErrTerminated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProcess(exec.Command("true"), nopWriteCloser{})
			p.stopping.Store(tt.stopping)

			if got := p.finish(exitErr); got != tt.wantStopped {
				t.Errorf("finish() = %t, want %t", got, tt.wantStopped)
			}
			if !errors.Is(p.termErr, tt.wantErr) {
				t.Errorf("termErr = %v, want %v", p.termErr, tt.wantErr)
			}
			if p.alive() {
				t.Error("alive() = true after finish")
			}
			if p.ctx.Err() == nil {
				t.Error("process context not cancelled")
			}
		})
	}
}

func TestProcessFinish_FirstCallDecides(t *testing.T) {
	p := newProcess(exec.Command("true"), nopWriteCloser{})
	if p.finish(nil) {
		t.Fatal("finish() = true without stop")
	}

	// A stop that begins after the exit was recorded does not rewrite it.
	p.stopping.Store(true)
	if p.finish(nil) {
		t.Error("second finish() = true, want first answer")
	}
	if p.termErr != nil {
		t.Errorf("termErr = %v, want nil", p.termErr)
	}
}
