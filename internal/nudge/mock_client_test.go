package nudge

import (
	"context"

	"github.com/brk3/routines/pkg/habit"
)

type mockClient struct {
	habits []habit.Habit
	days   map[string]*habit.DailyRecord
	err    error
}

func (f *mockClient) ListHabits(ctx context.Context) ([]habit.Habit, error) {
	return f.habits, f.err
}

func (f *mockClient) Day(ctx context.Context, date string) (*habit.DailyRecord, error) {
	return f.days[date], f.err
}
