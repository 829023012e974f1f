// Package view derives read-only reporting values from stored records. Pure
// functions, no mutation, no storage access.
package view

import (
	"time"

	"github.com/brk3/routines/pkg/habit"
)

type Progress struct {
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// DailyProgress reports completion for one date against all currently
// defined habits. Habits added after the date count toward the total when
// viewing that date; this is deliberately not a point-in-time snapshot.
// Excused entries do not count as completed.
func DailyProgress(habits []habit.Habit, rec *habit.DailyRecord) Progress {
	p := Progress{Total: len(habits)}
	if rec != nil {
		for _, entry := range rec.HabitCompletions {
			if entry.Completed {
				p.Completed++
			}
		}
	}
	if p.Total > 0 {
		p.Percentage = float64(p.Completed) / float64(p.Total) * 100
	}
	return p
}

// Segment is one habit's share of a routine run, for stacked-bar rendering.
type Segment struct {
	HabitID  int     `json:"habitId"`
	Duration int64   `json:"duration"`
	Share    float64 `json:"share"`
}

// RoutineComposition breaks a completed routine run into per-habit shares of
// its total duration, in member order. Members with no recorded time appear
// as zero-width segments.
func RoutineComposition(r habit.Routine, rc habit.RoutineCompletion) []Segment {
	segments := make([]Segment, 0, len(r.Habits))
	for _, id := range r.Habits {
		seg := Segment{HabitID: id}
		if ht, ok := rc.HabitTimes[id]; ok {
			seg.Duration = ht.Duration
			if rc.TotalDuration > 0 {
				seg.Share = float64(ht.Duration) / float64(rc.TotalDuration) * 100
			}
		}
		segments = append(segments, seg)
	}
	return segments
}

type DayRollup struct {
	Date     string   `json:"date"`
	Progress Progress `json:"progress"`
	Perfect  bool     `json:"perfect"`
}

// RangeRollup computes per-day progress over [from, to] inclusive. A day is
// perfect when habits are defined, the day has entries, and every entry is
// completed.
func RangeRollup(habits []habit.Habit, days map[string]*habit.DailyRecord, from, to time.Time) []DayRollup {
	var out []DayRollup
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := habit.DateKey(d)
		rec := days[key]
		roll := DayRollup{
			Date:     key,
			Progress: DailyProgress(habits, rec),
		}
		roll.Perfect = perfectDay(habits, rec)
		out = append(out, roll)
	}
	return out
}

func perfectDay(habits []habit.Habit, rec *habit.DailyRecord) bool {
	if len(habits) == 0 || rec == nil || len(rec.HabitCompletions) == 0 {
		return false
	}
	for _, entry := range rec.HabitCompletions {
		if !entry.Completed {
			return false
		}
	}
	return true
}
