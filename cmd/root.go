package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "routines",
	Short: "Track daily habits and routines",
	Long: `
	Routines is a CLI tool for tracking daily habits, either standalone or grouped
	into ordered routines. It records completions with timing, supports excusing
	skipped habits, and reports daily progress.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
