package cmd

import (
	"fmt"

	"github.com/brk3/routines/internal/config"
	"github.com/brk3/routines/internal/nudge"
	"github.com/brk3/routines/internal/nudge/resend"

	"github.com/spf13/cobra"
)

var nudgeCfg *config.Config

var nudgeCmd = &cobra.Command{
	Use:   "nudge",
	Short: "Send a reminder listing today's open habits",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		nudgeCfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("error loading config file: %w", err)
		}
		if nudgeCfg.Nudge.ResendAPIKey == "" {
			return fmt.Errorf("nudge.resend_api_key is not set in config")
		}
		if nudgeCfg.Nudge.NotifyEmail == "" {
			return fmt.Errorf("nudge.notify_email is not set in config")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		n := resend.ResendNotifier{
			ApiKey: nudgeCfg.Nudge.ResendAPIKey,
			From:   nudgeCfg.Nudge.FromAddress,
			Email:  nudgeCfg.Nudge.NotifyEmail,
		}
		return nudge.Nudge(cmd.Context(), newClient(nudgeCfg), &n)
	},
}

func init() {
	rootCmd.AddCommand(nudgeCmd)
}
