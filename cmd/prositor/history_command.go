package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"prositor/internal/api"
	"prositor/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			dtos := api.FromHistoryRuns(runs)
			if jsonOut {
				return writeJSON(cmd, api.HistoryResponse{Runs: dtos})
			}
			if len(dtos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet")
				return nil
			}
			table := renderTable(
				[]string{"Run", "Topic", "Mode", "Status", "Docs", "Started", "Duration"},
				buildHistoryRows(dtos),
				5,
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output history as JSON")
	return cmd
}

func buildHistoryRows(runs []api.HistoryRun) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		status := run.Status
		if run.FailureKind != "" {
			status = fmt.Sprintf("%s (%s)", run.Status, run.FailureKind)
		}
		rows = append(rows, []string{
			shortRunID(run.RunID),
			truncateTopic(run.Topic, 40),
			run.Mode,
			status,
			strconv.Itoa(len(run.Files)),
			formatStartedAt(run.StartedAt),
			run.Duration,
		})
	}
	return rows
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncateTopic(topic string, max int) string {
	runes := []rune(topic)
	if len(runes) <= max {
		return topic
	}
	return string(runes[:max-1]) + "…"
}

func formatStartedAt(value string) string {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return parsed.Local().Format("2006-01-02 15:04")
}
