package cmd

import (
	"fmt"
	"time"

	"github.com/brk3/routines/internal/config"
	"github.com/brk3/routines/pkg/habit"
	"github.com/spf13/cobra"
)

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("error loading config file: %w", err)
		}
		c := newClient(cfg)
		date := habit.DateKey(time.Now())

		p, err := c.DayProgress(cmd.Context(), date)
		if err != nil {
			return err
		}
		cmd.Printf("%s: %d/%d habits done (%.0f%%)\n", date, p.Completed, p.Total, p.Percentage)

		rec, err := c.Day(cmd.Context(), date)
		if err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
		habits, err := c.ListHabits(cmd.Context())
		if err != nil {
			return err
		}
		for _, h := range habits {
			hc, ok := rec.HabitCompletions[h.ID]
			switch {
			case ok && hc.Completed:
				cmd.Printf("  [x] %s\n", h.Name)
			case ok && hc.Excused:
				cmd.Printf("  [-] %s (%s)\n", h.Name, hc.ExcuseReason)
			default:
				cmd.Printf("  [ ] %s\n", h.Name)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(todayCmd)
}
