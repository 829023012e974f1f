package nudge

import (
	"context"

	"github.com/brk3/routines/pkg/habit"
)

type Querier interface {
	ListHabits(ctx context.Context) ([]habit.Habit, error)
	Day(ctx context.Context, date string) (*habit.DailyRecord, error)
}
