package view

import (
	"testing"
	"time"

	"github.com/brk3/routines/pkg/habit"
)

func threeHabits() []habit.Habit {
	return []habit.Habit{
		{ID: 1, Name: "meditate"},
		{ID: 2, Name: "run"},
		{ID: 3, Name: "read"},
	}
}

func TestDailyProgress_ExcusedNotCompleted(t *testing.T) {
	rec := habit.NewDailyRecord()
	rec.HabitCompletions[1] = habit.HabitCompletion{Completed: true}
	rec.HabitCompletions[2] = habit.HabitCompletion{Excused: true, ExcuseReason: "Travel"}

	p := DailyProgress(threeHabits(), rec)
	if p.Completed != 1 {
		t.Fatalf("completed=%d want 1 (excused must not count)", p.Completed)
	}
	if p.Total != 3 {
		t.Fatalf("total=%d want 3 (all defined habits, interacted or not)", p.Total)
	}
	if p.Percentage < 33.3 || p.Percentage > 33.4 {
		t.Fatalf("percentage=%f", p.Percentage)
	}
}

func TestDailyProgress_NoRecord(t *testing.T) {
	p := DailyProgress(threeHabits(), nil)
	if p.Completed != 0 || p.Total != 3 || p.Percentage != 0 {
		t.Fatalf("got %+v", p)
	}
}

func TestDailyProgress_NoHabits(t *testing.T) {
	p := DailyProgress(nil, habit.NewDailyRecord())
	if p.Total != 0 || p.Percentage != 0 {
		t.Fatalf("got %+v", p)
	}
}

func TestRoutineComposition(t *testing.T) {
	r := habit.Routine{ID: 1, Habits: []int{10, 11, 12}}
	rc := habit.RoutineCompletion{
		Completed:     true,
		TotalDuration: 1000,
		HabitTimes: map[int]habit.HabitTime{
			10: {Duration: 600},
			11: {Duration: 200},
		},
	}

	segs := RoutineComposition(r, rc)
	if len(segs) != 3 {
		t.Fatalf("got %d segments want 3", len(segs))
	}
	if segs[0].Share != 60 || segs[1].Share != 20 {
		t.Fatalf("shares %f %f want 60 20", segs[0].Share, segs[1].Share)
	}
	// Member with no recorded time renders as a zero-width segment.
	if segs[2].Duration != 0 || segs[2].Share != 0 {
		t.Fatalf("got %+v want zero segment", segs[2])
	}
}

func TestRoutineComposition_ZeroTotal(t *testing.T) {
	r := habit.Routine{ID: 1, Habits: []int{10}}
	segs := RoutineComposition(r, habit.RoutineCompletion{})
	if segs[0].Share != 0 {
		t.Fatalf("share=%f want 0", segs[0].Share)
	}
}

func TestRangeRollup_PerfectDays(t *testing.T) {
	habits := threeHabits()
	perfect := habit.NewDailyRecord()
	perfect.HabitCompletions[1] = habit.HabitCompletion{Completed: true}
	perfect.HabitCompletions[2] = habit.HabitCompletion{Completed: true}
	perfect.HabitCompletions[3] = habit.HabitCompletion{Completed: true}

	spoiled := habit.NewDailyRecord()
	spoiled.HabitCompletions[1] = habit.HabitCompletion{Completed: true}
	spoiled.HabitCompletions[2] = habit.HabitCompletion{Excused: true, ExcuseReason: "Weather"}

	days := map[string]*habit.DailyRecord{
		"2026-08-31": perfect,
		"2026-09-01": spoiled,
	}

	from := time.Date(2026, 8, 31, 0, 0, 0, 0, time.Local)
	to := time.Date(2026, 9, 2, 0, 0, 0, 0, time.Local)
	rollup := RangeRollup(habits, days, from, to)

	if len(rollup) != 3 {
		t.Fatalf("got %d days want 3", len(rollup))
	}
	if !rollup[0].Perfect {
		t.Fatal("2026-08-31 should be perfect")
	}
	if rollup[1].Perfect {
		t.Fatal("a day with an excused entry is not perfect")
	}
	if rollup[2].Perfect {
		t.Fatal("a day with no entries is not perfect")
	}
	if rollup[1].Progress.Completed != 1 || rollup[1].Progress.Total != 3 {
		t.Fatalf("got %+v", rollup[1].Progress)
	}
}
