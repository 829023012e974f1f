// Package tracker is the completion state machine for habits and routines:
// NotStarted -> InProgress -> {Completed, Excused} -> (Restart) -> InProgress.
// It computes completion records and aggregate updates and hands both to the
// record client for persistence; it never touches storage directly.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/brk3/routines/internal/record"
	"github.com/brk3/routines/pkg/habit"
)

type sessionKey struct {
	habitID int
	date    string
}

type Tracker struct {
	records *record.Client
	clock   func() time.Time

	mu       sync.Mutex
	sessions map[sessionKey]*session
	runs     map[int]*RoutineRun
}

type Option func(*Tracker)

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) { t.clock = clock }
}

func New(records *record.Client, opts ...Option) *Tracker {
	t := &Tracker{
		records:  records,
		clock:    time.Now,
		sessions: map[sessionKey]*session{},
		runs:     map[int]*RoutineRun{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) today() string {
	return habit.DateKey(t.clock())
}

// StartHabit captures the start time for habitID today and begins the
// elapsed-seconds callback. Starting an already-started habit returns the
// existing start time, so re-entering a view is harmless.
func (t *Tracker) StartHabit(ctx context.Context, habitID int, onTick TickFunc) (time.Time, error) {
	date := t.today()
	key := sessionKey{habitID, date}

	t.mu.Lock()
	if s, ok := t.sessions[key]; ok {
		t.mu.Unlock()
		return s.startedAt, nil
	}
	t.mu.Unlock()

	rec, err := t.records.LoadDay(ctx, date)
	if err != nil {
		return time.Time{}, err
	}
	if rec != nil {
		if entry, ok := rec.HabitCompletions[habitID]; ok && (entry.Completed || entry.Excused) {
			return time.Time{}, fmt.Errorf("habit %d: %w", habitID, ErrAlreadyResolved)
		}
	}

	s := newSession(habitID, date, t.clock(), onTick)
	t.mu.Lock()
	// Re-check: a concurrent start may have won while the lock was released
	// for LoadDay. Keep the winner so its ticker is never orphaned.
	if existing, ok := t.sessions[key]; ok {
		t.mu.Unlock()
		s.cancel()
		return existing.startedAt, nil
	}
	t.sessions[key] = s
	t.mu.Unlock()
	return s.startedAt, nil
}

// Elapsed reports how long habitID has been in progress today.
func (t *Tracker) Elapsed(habitID int) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[sessionKey{habitID, t.today()}]
	if !ok {
		return 0, false
	}
	return t.clock().Sub(s.startedAt), true
}

// CancelHabit backs out of an in-progress habit. Nothing is written; the
// start time is discarded and re-captured on the next StartHabit.
func (t *Tracker) CancelHabit(habitID int) {
	t.dropSession(sessionKey{habitID, t.today()})
}

func (t *Tracker) dropSession(key sessionKey) {
	t.mu.Lock()
	s, ok := t.sessions[key]
	if ok {
		delete(t.sessions, key)
	}
	t.mu.Unlock()
	if ok {
		s.cancel()
	}
}

// CompleteHabit transitions habitID to Completed: it writes the completion
// record and then folds the duration into the habit's aggregates. The two
// writes are sequential and dependent; if the second fails the persisted
// completion stands without its aggregate update and the error is surfaced.
func (t *Tracker) CompleteHabit(ctx context.Context, habitID int, notes string) (habit.HabitCompletion, error) {
	date := t.today()
	key := sessionKey{habitID, date}

	t.mu.Lock()
	s, ok := t.sessions[key]
	t.mu.Unlock()
	if !ok {
		return habit.HabitCompletion{}, fmt.Errorf("complete habit %d: %w", habitID, ErrNoSession)
	}

	now := t.clock()
	duration := now.Sub(s.startedAt).Milliseconds()
	completedAt := now.UnixMilli()
	hc := habit.HabitCompletion{
		Completed:   true,
		CompletedAt: &completedAt,
		Duration:    &duration,
		StartTime:   s.startedAt.UnixMilli(),
		EndTime:     now.UnixMilli(),
		Notes:       notes,
	}

	err := t.records.MergeDay(ctx, date, record.DayPatch{
		HabitCompletions: map[int]habit.HabitCompletion{habitID: hc},
	})
	if err != nil {
		// Session survives so the caller can retry the completion.
		return habit.HabitCompletion{}, err
	}
	t.dropSession(key)

	if err := t.applyHabitAggregate(ctx, habitID, duration); err != nil {
		return hc, fmt.Errorf("completion recorded but aggregate update failed: %w", err)
	}
	return hc, nil
}

func (t *Tracker) applyHabitAggregate(ctx context.Context, habitID int, durationMs int64) error {
	h, err := t.records.GetHabit(ctx, habitID)
	if err != nil {
		return err
	}
	agg := habit.ApplyCompletion(h.Aggregates, durationMs)
	_, err = t.records.UpdateHabit(ctx, habitID, record.HabitPatch{Aggregates: &agg})
	return err
}

// ExcuseHabit records a reasoned skip. Requires the habit to be excusable,
// a reason from the closed set, and no existing entry for today. Aggregates
// are not touched.
func (t *Tracker) ExcuseHabit(ctx context.Context, habitID int, reason string) (habit.HabitCompletion, error) {
	if !habit.ValidExcuseReason(reason) {
		return habit.HabitCompletion{}, fmt.Errorf("excuse habit %d with %q: %w", habitID, reason, ErrBadExcuseReason)
	}

	h, err := t.records.GetHabit(ctx, habitID)
	if err != nil {
		return habit.HabitCompletion{}, err
	}
	if !h.Excusable {
		return habit.HabitCompletion{}, fmt.Errorf("excuse habit %d: %w", habitID, ErrNotExcusable)
	}

	date := t.today()
	rec, err := t.records.LoadDay(ctx, date)
	if err != nil {
		return habit.HabitCompletion{}, err
	}
	if rec != nil {
		if entry, ok := rec.HabitCompletions[habitID]; ok && (entry.Completed || entry.Excused) {
			return habit.HabitCompletion{}, fmt.Errorf("excuse habit %d: %w", habitID, ErrAlreadyResolved)
		}
	}

	hc := habit.HabitCompletion{Excused: true, ExcuseReason: reason}
	err = t.records.MergeDay(ctx, date, record.DayPatch{
		HabitCompletions: map[int]habit.HabitCompletion{habitID: hc},
	})
	if err != nil {
		return habit.HabitCompletion{}, err
	}

	t.dropSession(sessionKey{habitID, date})
	return hc, nil
}

// RestartHabit undoes today's completion: the aggregate contribution is
// reversed, the completion entry deleted, and the habit returns to
// InProgress with a fresh start time. Only Completed entries can be
// restarted; Excused entries are refused.
func (t *Tracker) RestartHabit(ctx context.Context, habitID int, onTick TickFunc) (time.Time, error) {
	date := t.today()
	rec, err := t.records.LoadDay(ctx, date)
	if err != nil {
		return time.Time{}, err
	}
	var entry habit.HabitCompletion
	if rec != nil {
		entry = rec.HabitCompletions[habitID]
	}
	if entry.Excused {
		return time.Time{}, fmt.Errorf("restart habit %d: %w", habitID, ErrNotRestartable)
	}
	if !entry.Completed {
		return time.Time{}, fmt.Errorf("restart habit %d: %w", habitID, ErrNotCompleted)
	}

	var duration int64
	if entry.Duration != nil {
		duration = *entry.Duration
	}

	h, err := t.records.GetHabit(ctx, habitID)
	if err != nil {
		return time.Time{}, err
	}
	agg := habit.ReverseCompletion(h.Aggregates, duration)
	if _, err := t.records.UpdateHabit(ctx, habitID, record.HabitPatch{Aggregates: &agg}); err != nil {
		return time.Time{}, err
	}
	if err := t.records.RemoveHabitCompletion(ctx, date, habitID); err != nil {
		return time.Time{}, err
	}

	key := sessionKey{habitID, date}
	s := newSession(habitID, date, t.clock(), onTick)
	t.mu.Lock()
	// Cancel any session that slipped in so its ticker cannot outlive the
	// restart: the fresh start time wins.
	if existing, ok := t.sessions[key]; ok {
		existing.cancel()
	}
	t.sessions[key] = s
	t.mu.Unlock()
	return s.startedAt, nil
}

// Close cancels every live session and run ticker. Call on teardown.
func (t *Tracker) Close() {
	t.mu.Lock()
	sessions := t.sessions
	t.sessions = map[sessionKey]*session{}
	t.runs = map[int]*RoutineRun{}
	t.mu.Unlock()

	for _, s := range sessions {
		s.cancel()
	}
}
