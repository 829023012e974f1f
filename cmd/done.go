package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/brk3/routines/internal/config"
	"github.com/spf13/cobra"
)

var doneNotes string

var doneCmd = &cobra.Command{
	Use:   "done <habit-id>",
	Short: "Mark a habit done for today",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("habit id must be a number: %v", err)
		}
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("error loading config file: %w", err)
		}

		// A one-shot completion: the timer starts and resolves in the same
		// invocation, so the recorded duration is effectively zero.
		c := newClient(cfg)
		if _, err := c.StartHabit(cmd.Context(), id); err != nil {
			return err
		}
		hc, err := c.CompleteHabit(cmd.Context(), id, doneNotes)
		if err != nil {
			return err
		}
		cmd.Printf("Habit %d completed at %s\n", id,
			time.UnixMilli(*hc.CompletedAt).Format(time.Kitchen))
		return nil
	},
}

func init() {
	doneCmd.Flags().StringVar(&doneNotes, "notes", "", "notes to attach to the completion")
	rootCmd.AddCommand(doneCmd)
}
