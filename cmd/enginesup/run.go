//go:build !windows

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmora/enginesup"
	"github.com/dmora/enginesup/filter"
	"github.com/dmora/enginesup/internal/display"
	"github.com/dmora/enginesup/logsink"
	"github.com/dmora/enginesup/supervisor"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [file...]",
		Short: "Supervise the server and stream its status",
		Long: `Start the server and keep it running until interrupted.

Status changes and diagnostics are printed as they arrive. Server stderr
goes to stderr. When the server fails, a restart prompt is shown; answer
1 or y to restart. The given files are sent to the server after every
successful connection.

--refresh limits how often busy statuses are redrawn; idle and stopped
statuses are always printed at once.`,
		RunE: runRun,
	}
	cmd.Flags().Duration("refresh", 0, "minimum interval between busy status lines (0 prints every status)")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cmd, cmd.ErrOrStderr())
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger.Info("loaded configuration",
		"executable", cfg.Engine.ExecutablePath,
		"working_dir", cfg.Engine.WorkingDir,
	)

	files, err := absPaths(args)
	if err != nil {
		return err
	}
	refresh, err := cmd.Flags().GetDuration("refresh")
	if err != nil {
		return err
	}

	out := &printer{w: cmd.OutOrStdout()}
	sup := supervisor.New(newEngine(logger),
		supervisor.WithWindow(cfg.Status.Window),
		supervisor.WithSettings(settingsFunc(cmd)),
		supervisor.WithPrompter(newTerminalPrompter(cmd.InOrStdin(), out)),
		supervisor.WithNotifier(out),
		supervisor.WithLog(logsink.NewWriter(cmd.ErrOrStderr(), nil)),
		supervisor.WithLogger(logger),
	)
	defer sup.Close()

	publish, wait := statusTap(ctx, refresh, func(s enginesup.ServerStatus) {
		out.println(display.Status(s))
		if s.Idle() && !s.Stopped {
			for _, m := range sup.Messages() {
				out.println(display.Message(m))
			}
		}
	})
	defer wait()
	unsubStatus := sup.SubscribeStatus(publish)
	defer unsubStatus()

	unsubRestart := sup.SubscribeRestarted(func(ev supervisor.RestartEvent) {
		out.println(display.Restart(ev))
		if ev.Err == nil {
			out.println(display.Capabilities(sup.Capabilities()))
			go syncFiles(ctx, sup, files, logger)
		}
	})
	defer unsubRestart()

	if err := sup.Start(ctx); err != nil {
		logger.Warn("initial connection failed", "error", err)
	} else {
		out.println(display.Capabilities(sup.Capabilities()))
		syncFiles(ctx, sup, files, logger)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// statusTap returns the status handler for run. A positive refresh routes
// statuses through a throttle so the terminal redraws busy states at most
// once per refresh; idle and stopped statuses pass at once. wait blocks
// until rendering has stopped, which happens once ctx is done.
func statusTap(ctx context.Context, refresh time.Duration, render func(enginesup.ServerStatus)) (publish func(enginesup.ServerStatus), wait func()) {
	if refresh <= 0 {
		return render, func() {}
	}

	tap := make(chan enginesup.ServerStatus)
	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		for s := range filter.Throttle(ctx, tap, refresh, urgentStatus) {
			render(s)
		}
	}()
	publish = func(s enginesup.ServerStatus) {
		select {
		case tap <- s:
		case <-ctx.Done():
		}
	}
	return publish, func() { <-rendered }
}

func urgentStatus(s enginesup.ServerStatus) bool {
	return s.Stopped || s.Idle()
}

// syncFiles sends the current contents of files and, when the server
// supports it, restricts checking to them.
func syncFiles(ctx context.Context, sup *supervisor.Supervisor, files []string, logger *slog.Logger) {
	if len(files) == 0 {
		return
	}
	regions := make([]enginesup.FileRegion, 0, len(files))
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			logger.Error("read file", "file", f, "error", err)
			continue
		}
		if err := sup.Sync(ctx, f, string(content)); err != nil {
			logger.Error("sync file", "file", f, "error", err)
			continue
		}
		regions = append(regions, enginesup.FileRegion{FileName: f, Ranges: []enginesup.LineRange{}})
	}

	if !sup.Capabilities().RegionOfInterest {
		return
	}
	roi := enginesup.RegionOfInterest{Mode: enginesup.RegionOpenFiles, Files: regions}
	if err := sup.SetRegionOfInterest(ctx, roi); err != nil {
		logger.Warn("set region of interest", "error", err)
	}
}

func absPaths(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		out = append(out, abs)
	}
	return out, nil
}
