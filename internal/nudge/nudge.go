package nudge

import (
	"context"
	"time"

	"github.com/brk3/routines/pkg/habit"
)

type Notifier interface {
	SendNudge(openHabits []string) error
}

// GetOpenHabits returns the names of habits with no completed or excused
// entry on the given day.
func GetOpenHabits(ctx context.Context, q Querier, day time.Time) ([]string, error) {
	habits, err := q.ListHabits(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := q.Day(ctx, habit.DateKey(day))
	if err != nil {
		return nil, err
	}

	var open []string
	for _, h := range habits {
		if rec != nil {
			if hc, ok := rec.HabitCompletions[h.ID]; ok && (hc.Completed || hc.Excused) {
				continue
			}
		}
		open = append(open, h.Name)
	}
	return open, nil
}

// Nudge sends a reminder listing today's open habits. No email is sent when
// everything is already resolved.
func Nudge(ctx context.Context, q Querier, n Notifier) error {
	open, err := GetOpenHabits(ctx, q, time.Now())
	if err != nil {
		return err
	}
	if len(open) == 0 {
		return nil
	}
	return n.SendNudge(open)
}
