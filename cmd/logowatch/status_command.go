package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show history statistics and configuration summary",
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

			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}
			byStreamer, err := st.ByStreamer(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Streamers", statusInfo, strings.Join(cfg.Monitor.Streamers, ", "), colorize))
			fmt.Fprintln(out, renderStatusLine("Check interval", statusInfo, fmt.Sprintf("%dh", cfg.Monitor.CheckIntervalHours), colorize))
			fmt.Fprintln(out, renderStatusLine("Threshold", statusInfo, fmt.Sprintf("%.2f", cfg.Detection.Threshold), colorize))
			fmt.Fprintln(out, renderStatusLine("Multi-scale", statusInfo, yesNo(cfg.Detection.MultiScale), colorize))
			fmt.Fprintln(out, renderStatusLine("Retention", statusInfo, fmt.Sprintf("%d days", cfg.Retention.Days), colorize))
			fmt.Fprintln(out, renderStatusLine("Database", statusInfo, cfg.DatabasePath(), colorize))
			notificationsState := statusWarn
			notificationsMsg := "disabled"
			if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
				notificationsState = statusOK
				notificationsMsg = "ntfy"
			}
			fmt.Fprintln(out, renderStatusLine("Notifications", notificationsState, notificationsMsg, colorize))

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("History", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Total checks", statusInfo, fmt.Sprintf("%d", stats.Total), colorize))
			detectedKind := statusInfo
			if stats.Detected > 0 {
				detectedKind = statusOK
			}
			fmt.Fprintln(out, renderStatusLine("Logo detected", detectedKind, fmt.Sprintf("%d", stats.Detected), colorize))
			fmt.Fprintln(out, renderStatusLine("Streamers seen", statusInfo, fmt.Sprintf("%d", stats.Streamers), colorize))
			if !stats.LastSeen.IsZero() {
				fmt.Fprintln(out, renderStatusLine("Last check", statusInfo, stats.LastSeen.UTC().Format("2006-01-02 15:04:05 UTC"), colorize))
			}

			if len(byStreamer) > 0 {
				fmt.Fprintln(out)
				headers := []string{"Streamer", "Checks", "Detected", "Avg Confidence", "Last Check"}
				rows := make([][]string, 0, len(byStreamer))
				for _, entry := range byStreamer {
					name := entry.DisplayName
					if name == "" {
						name = entry.Streamer
					}
					rows = append(rows, []string{
						name,
						fmt.Sprintf("%d", entry.Total),
						fmt.Sprintf("%d", entry.Detected),
						fmt.Sprintf("%.1f%%", entry.AvgConfidence*100),
						entry.LastChecked.UTC().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(out, renderTable(headers, rows, 1, 2, 3))
			}
			return nil
		},
	}
}
