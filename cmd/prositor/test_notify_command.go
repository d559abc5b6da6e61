package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"prositor/internal/api"
	"prositor/internal/logging"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			res, err := api.TestNotification(cmd.Context(), api.TestNotificationRequest{
				Config: cfg,
				Logger: logging.NewNop(),
			})
			if res.Message != "" {
				fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			}
			return err
		},
	}
}
