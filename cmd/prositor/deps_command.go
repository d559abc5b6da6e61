package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"prositor/internal/api"
	"prositor/internal/preflight"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check external dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := preflight.SystemDeps(cmd.Context(), cfg)
			if jsonOut {
				if err := writeJSON(cmd, map[string]any{
					"dependencies": api.FromDependencyStatuses(statuses),
				}); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(statuses))
				for _, status := range statuses {
					state := "OK"
					if !status.Available {
						state = "MISSING"
					}
					rows = append(rows, []string{status.Name, status.Command, state, status.Detail})
				}
				fmt.Fprintln(cmd.OutOrStdout(),
					renderTable([]string{"Dependency", "Command", "Status", "Detail"}, rows))
			}
			for _, status := range statuses {
				if !status.Available && !status.Optional {
					return errors.New("required dependencies are missing")
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output dependency status as JSON")
	return cmd
}
