package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"logowatch/internal/logging"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one detection pass over the configured streamers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			st, err := ctx.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			mon, err := ctx.buildMonitor(st, logger)
			if err != nil {
				return err
			}

			start := time.Now()
			summary, err := mon.RunCheck(cmd.Context(), cfg.Monitor.Streamers, start.UTC())
			if err != nil {
				return fmt.Errorf("check pass: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Checked %d streamer(s): %d live, %d analyzed in %s\n",
				summary.Checked, summary.Live, summary.Analyzed, time.Since(start).Round(time.Millisecond))
			fmt.Fprintf(out, "Logo detected on %d stream(s)\n", summary.Detected)
			if summary.Skipped > 0 {
				fmt.Fprintf(out, "Skipped %d stream(s) due to errors\n", summary.Skipped)
			}
			return nil
		},
	}
}
