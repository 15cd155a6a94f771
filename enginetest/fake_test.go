package enginetest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dmora/enginesup"
	"github.com/dmora/enginesup/enginetest"
)

func TestFakeCompliance(t *testing.T) {
	enginetest.RunEngineTests(t, func(t *testing.T) enginesup.Engine {
		return enginetest.New()
	})
}

func TestFakeRecordsCalls(t *testing.T) {
	e := enginetest.New()
	defer e.Close()

	var seen []string
	e.OnCall = func(c enginetest.Call) { seen = append(seen, c.Method) }

	ctx := context.Background()
	opts := enginesup.ConnectionOptions{Executable: "lean", Args: []string{"-M", "1"}}
	if _, err := e.Version(ctx, "lean"); err != nil {
		t.Fatal(err)
	}
	if err := e.Connect(ctx, opts); err != nil {
		t.Fatal(err)
	}
	opts.Args[1] = "2"
	if err := e.Restart(ctx, opts); err != nil {
		t.Fatal(err)
	}

	calls := e.Calls()
	if len(calls) != 3 {
		t.Fatalf("got %d calls, want 3", len(calls))
	}
	if calls[1].Opts.Args[1] != "1" {
		t.Errorf("recorded Connect args were mutated: %v", calls[1].Opts.Args)
	}
	if len(seen) != 3 || seen[2] != "Restart" {
		t.Errorf("OnCall saw %v", seen)
	}
	if !e.Alive() {
		t.Error("engine should be alive after Restart")
	}
}

func TestFakeConnectFn(t *testing.T) {
	e := enginetest.New()
	defer e.Close()
	boom := errors.New("boom")
	e.ConnectFn = func(context.Context, enginesup.ConnectionOptions) error { return boom }

	err := e.Connect(context.Background(), enginesup.ConnectionOptions{Executable: "lean"})
	if !errors.Is(err, boom) {
		t.Fatalf("Connect error = %v, want boom", err)
	}
	if e.Alive() {
		t.Error("Alive() = true after failed Connect")
	}
}

func TestFakeEmitAfterClose(t *testing.T) {
	e := enginetest.New()
	_ = e.Close()
	// Must not block or panic.
	e.EmitError(enginesup.ErrorNotification{Kind: enginesup.ErrorStderr, Payload: "x"})
	e.EmitTasks(enginesup.TaskSnapshot{})
	e.EmitMessages(enginesup.MessageList{})
}

func TestFakeSyncRequiresAlive(t *testing.T) {
	e := enginetest.New()
	defer e.Close()
	if err := e.Sync(context.Background(), "a.lean", ""); !errors.Is(err, enginesup.ErrNotConnected) {
		t.Errorf("Sync before connect = %v, want ErrNotConnected", err)
	}
	e.SetAlive(true)
	if err := e.Sync(context.Background(), "a.lean", "def x := 1"); err != nil {
		t.Errorf("Sync: %v", err)
	}
	if e.CallCount("Sync") != 2 {
		t.Errorf("CallCount(Sync) = %d, want 2", e.CallCount("Sync"))
	}
}
