package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"logowatch/internal/report"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Generate the HTML dashboard from the detection history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := ctx.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			gen, err := report.New(st, cfg, nil)
			if err != nil {
				return err
			}
			path, err := gen.Generate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dashboard written to %s\n", path)
			return nil
		},
	}
}
