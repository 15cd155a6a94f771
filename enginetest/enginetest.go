package enginetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmora/enginesup"
)

// RunEngineTests runs the engine compliance suite. factory must return a
// fresh, unconnected engine for every call; the suite closes it.
func RunEngineTests(t *testing.T, factory func(t *testing.T) enginesup.Engine) {
	t.Helper()

	fresh := func(t *testing.T) enginesup.Engine {
		t.Helper()
		e := factory(t)
		t.Cleanup(func() { _ = e.Close() })
		return e
	}

	t.Run("Channels", func(t *testing.T) {
		e := fresh(t)
		if e.Errors() == nil || e.Messages() == nil || e.Tasks() == nil {
			t.Fatal("event channels must be non-nil before Connect")
		}
		if e.Errors() != e.Errors() || e.Messages() != e.Messages() || e.Tasks() != e.Tasks() {
			t.Error("event channels must be stable across calls")
		}
	})

	t.Run("NotAliveBeforeConnect", func(t *testing.T) {
		e := fresh(t)
		if e.Alive() {
			t.Error("Alive() = true before Connect")
		}
	})

	t.Run("ConnectEmptyExecutable", func(t *testing.T) {
		e := fresh(t)
		err := e.Connect(context.Background(), enginesup.ConnectionOptions{})
		if !errors.Is(err, enginesup.ErrUnavailable) {
			t.Errorf("Connect(empty) error = %v, want ErrUnavailable", err)
		}
		if e.Alive() {
			t.Error("Alive() = true after failed Connect")
		}
	})

	t.Run("ConnectNullByte", func(t *testing.T) {
		e := fresh(t)
		err := e.Connect(context.Background(), enginesup.ConnectionOptions{Executable: "le\x00an"})
		if err == nil {
			t.Error("Connect with null byte in executable should fail")
		}
	})

	t.Run("VersionEmptyExecutable", func(t *testing.T) {
		e := fresh(t)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := e.Version(ctx, ""); err == nil {
			t.Error("Version(\"\") should fail")
		}
	})

	t.Run("CloseIdempotent", func(t *testing.T) {
		e := factory(t)
		if err := e.Close(); err != nil {
			t.Fatalf("first Close: %v", err)
		}
		if err := e.Close(); err != nil {
			t.Errorf("second Close: %v", err)
		}
		if e.Alive() {
			t.Error("Alive() = true after Close")
		}
	})

	t.Run("ConnectAfterClose", func(t *testing.T) {
		e := factory(t)
		_ = e.Close()
		err := e.Connect(context.Background(), enginesup.ConnectionOptions{Executable: "lean"})
		if !errors.Is(err, enginesup.ErrTerminated) {
			t.Errorf("Connect after Close error = %v, want ErrTerminated", err)
		}
	})
}
