package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/brk3/routines/internal/record"
	"github.com/brk3/routines/pkg/habit"
)

// RoutineRun is one traversal of a routine's member habits, with an
// enclosing timer from routine start to routine end. Members each follow the
// habit state machine independently; the cursor just tracks which one the
// user is looking at and may move freely, so habits can be completed out of
// order.
type RoutineRun struct {
	RoutineID int
	Date      string
	StartedAt time.Time
	Members   []int

	cursor int
}

// Current returns the habit under the cursor.
func (r *RoutineRun) Current() (int, bool) {
	if len(r.Members) == 0 {
		return 0, false
	}
	return r.Members[r.cursor], true
}

// Select moves the cursor directly to a member habit.
func (r *RoutineRun) Select(habitID int) bool {
	for i, id := range r.Members {
		if id == habitID {
			r.cursor = i
			return true
		}
	}
	return false
}

func (r *RoutineRun) MoveNext() {
	if r.cursor < len(r.Members)-1 {
		r.cursor++
	}
}

func (r *RoutineRun) MovePrev() {
	if r.cursor > 0 {
		r.cursor--
	}
}

func resolved(rec *habit.DailyRecord, habitID int) bool {
	if rec == nil {
		return false
	}
	entry, ok := rec.HabitCompletions[habitID]
	return ok && (entry.Completed || entry.Excused)
}

// StartRoutine begins (or resumes) today's run for routineID, capturing the
// routine start time on first call. A routine already completed today is
// refused, matching the habit side: a second run would overwrite the day's
// RoutineCompletion and re-apply the aggregate with no reversal path.
func (t *Tracker) StartRoutine(ctx context.Context, routineID int) (*RoutineRun, error) {
	date := t.today()

	t.mu.Lock()
	if run, ok := t.runs[routineID]; ok && run.Date == date {
		t.mu.Unlock()
		return run, nil
	}
	t.mu.Unlock()

	rec, err := t.records.LoadDay(ctx, date)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		if rc, ok := rec.RoutineCompletions[routineID]; ok && rc.Completed {
			return nil, fmt.Errorf("routine %d: %w", routineID, ErrAlreadyResolved)
		}
	}

	r, err := t.records.GetRoutine(ctx, routineID)
	if err != nil {
		return nil, err
	}

	run := &RoutineRun{
		RoutineID: routineID,
		Date:      date,
		StartedAt: t.clock(),
		Members:   append([]int(nil), r.Habits...),
	}
	t.mu.Lock()
	t.runs[routineID] = run
	t.mu.Unlock()
	return run, nil
}

// AdvanceRun moves the cursor to the next unresolved member in sequence
// after the current habit is completed or excused. When no unresolved member
// remains the routine auto-completes. A routine with zero members never
// auto-completes; EndRoutine is the only way to finish it.
func (t *Tracker) AdvanceRun(ctx context.Context, run *RoutineRun) (next int, finished bool, err error) {
	if len(run.Members) == 0 {
		return 0, false, nil
	}

	rec, err := t.records.LoadDay(ctx, run.Date)
	if err != nil {
		return 0, false, err
	}

	for i, id := range run.Members {
		if !resolved(rec, id) {
			run.cursor = i
			return id, false, nil
		}
	}

	if _, err := t.finishRoutine(ctx, run); err != nil {
		return 0, false, err
	}
	return 0, true, nil
}

// EndRoutine finishes the run immediately, however many members are
// resolved. This always succeeds.
func (t *Tracker) EndRoutine(ctx context.Context, run *RoutineRun) (habit.RoutineCompletion, error) {
	return t.finishRoutine(ctx, run)
}

// finishRoutine writes the RoutineCompletion and applies the run's total
// elapsed time to the routine's aggregates. The per-habit breakdown is built
// from the members' persisted completions; members without a completed entry
// are omitted.
func (t *Tracker) finishRoutine(ctx context.Context, run *RoutineRun) (habit.RoutineCompletion, error) {
	now := t.clock()
	total := now.Sub(run.StartedAt).Milliseconds()

	rec, err := t.records.LoadDay(ctx, run.Date)
	if err != nil {
		return habit.RoutineCompletion{}, err
	}

	habitTimes := map[int]habit.HabitTime{}
	for _, id := range run.Members {
		if rec == nil {
			break
		}
		entry, ok := rec.HabitCompletions[id]
		if !ok || !entry.Completed || entry.Duration == nil {
			continue
		}
		habitTimes[id] = habit.HabitTime{
			StartTime: entry.StartTime,
			EndTime:   entry.EndTime,
			Duration:  *entry.Duration,
		}
	}

	completedAt := now.UnixMilli()
	rc := habit.RoutineCompletion{
		Completed:     true,
		CompletedAt:   &completedAt,
		TotalDuration: total,
		StartTime:     run.StartedAt.UnixMilli(),
		EndTime:       now.UnixMilli(),
		HabitTimes:    habitTimes,
	}

	err = t.records.MergeDay(ctx, run.Date, record.DayPatch{
		RoutineCompletions: map[int]habit.RoutineCompletion{run.RoutineID: rc},
	})
	if err != nil {
		return habit.RoutineCompletion{}, err
	}

	// Run is over: drop it and cancel any member still ticking.
	t.mu.Lock()
	delete(t.runs, run.RoutineID)
	t.mu.Unlock()
	for _, id := range run.Members {
		t.dropSession(sessionKey{id, run.Date})
	}

	r, err := t.records.GetRoutine(ctx, run.RoutineID)
	if err != nil {
		return rc, err
	}
	agg := habit.ApplyCompletion(r.Aggregates, total)
	if _, err := t.records.UpdateRoutine(ctx, run.RoutineID, record.RoutinePatch{Aggregates: &agg}); err != nil {
		return rc, err
	}
	return rc, nil
}
