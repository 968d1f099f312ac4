package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"logowatch/internal/daemon"
	"logowatch/internal/logging"
	"logowatch/internal/notifications"
	"logowatch/internal/report"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the monitoring daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(cmd.Context(), ctx)
		},
	}
}

// runDaemonProcess wires up the full daemon: logger, store, monitor,
// dashboard server, and scheduler. It blocks until SIGINT or SIGTERM.
func runDaemonProcess(cmdCtx context.Context, ctx *commandContext) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "logowatch*.log"},
	)

	st, err := ctx.openStoreWithLogger(logger)
	if err != nil {
		return err
	}

	mon, err := ctx.buildMonitor(st, logger)
	if err != nil {
		_ = st.Close()
		return err
	}

	reporter, err := report.New(st, cfg, logger)
	if err != nil {
		_ = st.Close()
		return err
	}

	notifier := notifications.NewService(cfg)
	d, err := daemon.New(cfg, st, mon, reporter, notifier, logger)
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	server := daemon.NewServer(cfg, d, logger)
	if server != nil {
		if err := server.Start(signalCtx); err != nil {
			return err
		}
		defer server.Stop()
	}

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("logowatch daemon shutting down")
	return nil
}
