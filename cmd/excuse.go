package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/brk3/routines/internal/config"
	"github.com/brk3/routines/pkg/habit"
	"github.com/spf13/cobra"
)

var excuseCmd = &cobra.Command{
	Use:   "excuse <habit-id> <reason>",
	Short: "Excuse a habit for today",
	Long: `The "excuse" command marks a habit as excused for today instead of done.
Valid reasons: ` + strings.Join(habit.ExcuseReasons, ", ") + `.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("habit id must be a number: %v", err)
		}
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("error loading config file: %w", err)
		}
		if _, err := newClient(cfg).ExcuseHabit(cmd.Context(), id, args[1]); err != nil {
			return err
		}
		cmd.Printf("Habit %d excused: %s\n", id, args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(excuseCmd)
}
