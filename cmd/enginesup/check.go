//go:build !windows

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmora/enginesup"
	"github.com/dmora/enginesup/internal/display"
	"github.com/dmora/enginesup/logsink"
	"github.com/dmora/enginesup/supervisor"
)

const (
	defaultCheckTimeout = 2 * time.Minute

	// settleDelay bounds the wait for a busy status after a sync. Files
	// the server checks instantly may never report one.
	settleDelay = time.Second
)

// errDiagnostics is returned by check when the server reported errors.
var errDiagnostics = errors.New("check: server reported errors")

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Check one file and print its diagnostics",
		Long: `Start the server, send it the file and wait until checking finishes.
Exits non-zero when any diagnostic has error severity.`,
		Args: cobra.ExactArgs(1),
		RunE: runCheck,
	}
	cmd.Flags().Duration("timeout", defaultCheckTimeout, "maximum time to wait for checking to finish")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger := newLogger(cmd, cmd.ErrOrStderr())
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	files, err := absPaths(args)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(files[0])
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}

	out := &printer{w: cmd.OutOrStdout()}
	sup := supervisor.New(newEngine(logger),
		supervisor.WithWindow(cfg.Status.Window),
		supervisor.WithSettings(settingsFunc(cmd)),
		supervisor.WithNotifier(out),
		supervisor.WithLog(logsink.NewWriter(cmd.ErrOrStderr(), nil)),
		supervisor.WithLogger(logger),
	)
	defer sup.Close()

	msgs, err := checkFile(ctx, sup, files[0], string(content))
	if err != nil {
		return err
	}
	failed := false
	for _, m := range msgs {
		out.println(display.Message(m))
		failed = failed || m.Severity == enginesup.SeverityError
	}
	if failed {
		return errDiagnostics
	}
	return nil
}

// checkFile starts sup, syncs one file and returns the diagnostics once the
// server reports idle again.
func checkFile(ctx context.Context, sup *supervisor.Supervisor, name, content string) ([]enginesup.Message, error) {
	finished := make(chan enginesup.ServerStatus, 1)
	var busy atomic.Bool
	unsubscribe := sup.SubscribeStatus(func(s enginesup.ServerStatus) {
		switch {
		case s.Stopped:
			notify(finished, s)
		case !s.Idle():
			busy.Store(true)
		case busy.Load():
			notify(finished, s)
		}
	})
	defer unsubscribe()

	if err := sup.Start(ctx); err != nil {
		return nil, fmt.Errorf("check: start: %w", err)
	}
	if err := sup.Sync(ctx, name, content); err != nil {
		return nil, fmt.Errorf("check: sync %s: %w", name, err)
	}

	settle := time.NewTimer(settleDelay)
	defer settle.Stop()
	for {
		select {
		case s := <-finished:
			if s.Stopped {
				return nil, errors.New("check: server stopped before checking finished")
			}
			return sup.Messages(), nil
		case <-settle.C:
			if !busy.Load() {
				return sup.Messages(), nil
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("check: %w", ctx.Err())
		}
	}
}

func notify(ch chan<- enginesup.ServerStatus, s enginesup.ServerStatus) {
	select {
	case ch <- s:
	default:
	}
}
