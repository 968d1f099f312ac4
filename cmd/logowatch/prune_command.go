package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newPruneCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove detection records older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if days <= 0 {
				days = cfg.Retention.Days
			}

			st, err := ctx.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			result, err := st.Prune(cmd.Context(), days, time.Now().UTC())
			if err != nil {
				return err
			}
			removedShots := 0
			for _, path := range result.Screenshots {
				if err := os.Remove(path); err == nil {
					removedShots++
				} else if !os.IsNotExist(err) {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: remove %s: %v\n", path, err)
				}
			}
			if err := st.Flush(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d record(s) and %d screenshot(s) older than %d days\n",
				result.Removed, removedShots, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Override the configured retention period")
	return cmd
}
