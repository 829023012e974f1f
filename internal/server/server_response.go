package server

import (
	"github.com/brk3/routines/internal/view"
	"github.com/brk3/routines/pkg/habit"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

type HabitListResponse struct {
	Habits []habit.Habit `json:"habits"`
}

type RoutineListResponse struct {
	Routines []habit.Routine `json:"routines"`
}

type StartResponse struct {
	StartTime        int64 `json:"startTime"`
	ExpectedDuration int64 `json:"expectedDuration,omitempty"`
}

type RoutineStartResponse struct {
	RoutineID      int   `json:"routineId"`
	StartTime      int64 `json:"startTime"`
	CurrentHabitID int   `json:"currentHabitId,omitempty"`
}

type AdvanceResponse struct {
	NextHabitID int  `json:"nextHabitId,omitempty"`
	Finished    bool `json:"finished"`
}

type DayResponse struct {
	Date   string             `json:"date"`
	Record *habit.DailyRecord `json:"record"`
}

type CompositionResponse struct {
	RoutineID int            `json:"routineId"`
	Date      string         `json:"date"`
	Segments  []view.Segment `json:"segments"`
}

type RangeProgressResponse struct {
	Days []view.DayRollup `json:"days"`
}
