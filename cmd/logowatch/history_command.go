package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"logowatch/internal/store"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var streamer string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent detection checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if streamer != "" {
				filtered := records[:0]
				for _, record := range records {
					if record.Streamer == streamer {
						filtered = append(filtered, record)
					}
				}
				records = filtered
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No checks recorded")
				return nil
			}

			headers := []string{"Time", "Streamer", "Game", "Viewers", "Detected", "Confidence", "Screenshot"}
			rows := make([][]string, 0, len(records))
			for _, record := range records {
				rows = append(rows, historyRow(record))
			}
			fmt.Fprintln(out, renderTable(headers, rows, 3, 5))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of rows")
	cmd.Flags().StringVar(&streamer, "streamer", "", "Only show checks for this login")
	return cmd
}

func historyRow(record store.Record) []string {
	name := record.DisplayName
	if name == "" {
		name = record.Streamer
	}
	screenshot := ""
	if record.Screenshot != "" {
		screenshot = filepath.Base(record.Screenshot)
	}
	return []string{
		record.CheckedAt.UTC().Format("2006-01-02 15:04"),
		name,
		record.Game,
		strconv.Itoa(record.Viewers),
		yesNo(record.Detected),
		fmt.Sprintf("%.1f%%", record.Confidence*100),
		screenshot,
	}
}
