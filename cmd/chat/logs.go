package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ai-pdfchat-client/internal/pkg/logger"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	logsLevel  string
	logsModule string
	logsLimit  int
	logsJSON   bool
	logsSince  time.Duration
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the client log, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := logger.LogFilter{
			Level:  strings.ToUpper(logsLevel),
			Module: logsModule,
			Limit:  logsLimit,
		}
		if logsSince > 0 {
			filter.Since = time.Now().Add(-logsSince)
		}
		entries, err := logger.ReadLogs(cfg.App.LogFilePath, filter)
		if err != nil {
			return fmt.Errorf("read %s: %w", cfg.App.LogFilePath, err)
		}

		out := cmd.OutOrStdout()
		if logsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "No log entries.")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(out, "%s %s %s %s\n",
				phaseStyle.Render(e.Timestamp),
				levelColor(e.Level).Sprintf("%-5s", e.Level),
				sessionStyle.Render(e.Module),
				e.Message,
			)
		}
		return nil
	},
}

func levelColor(level string) *color.Color {
	switch level {
	case "ERROR":
		return color.New(color.FgRed)
	case "WARN":
		return color.New(color.FgYellow)
	case "DEBUG":
		return color.New(color.FgHiBlack)
	default:
		return color.New(color.FgCyan)
	}
}

func init() {
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Only entries of this level (debug, info, warn, error)")
	logsCmd.Flags().StringVar(&logsModule, "module", "", "Only entries of this module, e.g. ChatService")
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 50, "Maximum number of entries")
	logsCmd.Flags().DurationVar(&logsSince, "since", 0, "Only entries newer than this, e.g. 30m")
	logsCmd.Flags().BoolVar(&logsJSON, "json", false, "Print entries as JSON")
}
