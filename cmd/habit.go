package cmd

import (
	"fmt"

	"github.com/brk3/routines/internal/config"
	"github.com/brk3/routines/pkg/habit"
	"github.com/spf13/cobra"
)

var (
	habitTracking  string
	habitExcusable bool
	habitDuration  int64
)

var habitCmd = &cobra.Command{
	Use:   "habit",
	Short: "Manage tracked habits",
}

var habitAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("error loading config file: %w", err)
		}
		h := habit.Habit{
			Name:      args[0],
			Tracking:  habit.TrackingType(habitTracking),
			Excusable: habitExcusable,
			Duration:  habitDuration,
		}
		created, err := newClient(cfg).CreateHabit(cmd.Context(), h)
		if err != nil {
			return err
		}
		cmd.Printf("Added habit %d: %s\n", created.ID, created.Name)
		return nil
	},
}

var habitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List habits",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("error loading config file: %w", err)
		}
		habits, err := newClient(cfg).ListHabits(cmd.Context())
		if err != nil {
			return err
		}
		for _, h := range habits {
			cmd.Printf("%d\t%s\t(%s, %d completions)\n", h.ID, h.Name, h.Tracking, h.CompletionCount)
		}
		return nil
	},
}

func init() {
	habitAddCmd.Flags().StringVar(&habitTracking, "tracking", string(habit.TrackingSimple), "tracking type: simple, timer or duration")
	habitAddCmd.Flags().BoolVar(&habitExcusable, "excusable", false, "allow excusing this habit")
	habitAddCmd.Flags().Int64Var(&habitDuration, "duration", 0, "expected duration in milliseconds")

	habitCmd.AddCommand(habitAddCmd)
	habitCmd.AddCommand(habitListCmd)
	rootCmd.AddCommand(habitCmd)
}
