package nudge

import (
	"context"
	"testing"
	"time"

	"github.com/brk3/routines/pkg/habit"
)

func TestGetOpenHabits(t *testing.T) {
	now := time.Now()
	f := &mockClient{
		habits: []habit.Habit{
			{ID: 1, Name: "guitar"},
			{ID: 2, Name: "coding"},
			{ID: 3, Name: "running"},
		},
		days: map[string]*habit.DailyRecord{
			habit.DateKey(now): {
				HabitCompletions: map[int]habit.HabitCompletion{
					1: {Completed: true},
					3: {Excused: true, ExcuseReason: "Sick Day"},
				},
			},
		},
	}
	got, err := GetOpenHabits(context.Background(), f, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "coding" {
		t.Fatalf("got %v, want [coding]", got)
	}
}

func TestGetOpenHabits_NoRecordYet(t *testing.T) {
	f := &mockClient{
		habits: []habit.Habit{{ID: 1, Name: "guitar"}},
		days:   map[string]*habit.DailyRecord{},
	}
	got, err := GetOpenHabits(context.Background(), f, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %v, want all habits open on an untouched day", got)
	}
}

func TestNudge_SkipsWhenNothingOpen(t *testing.T) {
	now := time.Now()
	f := &mockClient{
		habits: []habit.Habit{{ID: 1, Name: "guitar"}},
		days: map[string]*habit.DailyRecord{
			habit.DateKey(now): {
				HabitCompletions: map[int]habit.HabitCompletion{1: {Completed: true}},
			},
		},
	}
	n := &mockNotifier{}
	if err := Nudge(context.Background(), f, n); err != nil {
		t.Fatal(err)
	}
	if n.called {
		t.Error("notifier should not fire when every habit is resolved")
	}
}

func TestNudge_SendsOpenHabits(t *testing.T) {
	f := &mockClient{
		habits: []habit.Habit{{ID: 1, Name: "guitar"}, {ID: 2, Name: "coding"}},
		days:   map[string]*habit.DailyRecord{},
	}
	n := &mockNotifier{}
	if err := Nudge(context.Background(), f, n); err != nil {
		t.Fatal(err)
	}
	if !n.called || len(n.habits) != 2 {
		t.Fatalf("called=%v habits=%v", n.called, n.habits)
	}
}
