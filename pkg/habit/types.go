package habit

import "time"

// TrackingType describes how a habit's completion is measured.
type TrackingType string

const (
	TrackingSimple   TrackingType = "simple"
	TrackingTimer    TrackingType = "timer"
	TrackingDuration TrackingType = "duration"
)

func (t TrackingType) IsValid() bool {
	switch t {
	case TrackingSimple, TrackingTimer, TrackingDuration:
		return true
	default:
		return false
	}
}

// DefaultExpectedDuration is used to scale the visual timer cycle when a
// habit has no expectedDuration of its own.
const DefaultExpectedDuration = int64(10 * time.Minute / time.Millisecond)

// Aggregates is the running completion-count / duration-sum pair kept on
// each habit and routine. The two fields must always be adjusted together.
type Aggregates struct {
	CompletionCount  int   `json:"completionCount"`
	TotalDurationSum int64 `json:"totalDurationSum"`
}

type Habit struct {
	ID               int          `json:"id"`
	Name             string       `json:"name"`
	Description      string       `json:"description,omitempty"`
	RoutineID        *int         `json:"routineId"`
	Tracking         TrackingType `json:"tracking"`
	Duration         int64        `json:"duration,omitempty"`
	ExpectedDuration int64        `json:"expectedDuration,omitempty"`
	Excusable        bool         `json:"excusable"`
	Aggregates
}

// ExpectedDurationMs returns the configured expected duration, falling back
// to the 10 minute default.
func (h Habit) ExpectedDurationMs() int64 {
	if h.ExpectedDuration > 0 {
		return h.ExpectedDuration
	}
	return DefaultExpectedDuration
}

type Routine struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Habits    []int    `json:"habits"`
	Days      []string `json:"days"`
	TimeOfDay string   `json:"timeOfDay,omitempty"`
	Order     int      `json:"order"`
	Aggregates
}

// HabitCompletion records the outcome of one habit on one date. Completed
// and Excused are mutually exclusive; Duration is set iff Completed.
type HabitCompletion struct {
	Completed    bool   `json:"completed"`
	CompletedAt  *int64 `json:"completedAt"`
	Duration     *int64 `json:"duration"`
	StartTime    int64  `json:"startTime,omitempty"`
	EndTime      int64  `json:"endTime,omitempty"`
	Notes        string `json:"notes,omitempty"`
	Excused      bool   `json:"excused,omitempty"`
	ExcuseReason string `json:"excuseReason,omitempty"`
}

// HabitTime is the per-habit slice of a routine run used for reporting.
type HabitTime struct {
	StartTime int64 `json:"startTime"`
	EndTime   int64 `json:"endTime"`
	Duration  int64 `json:"duration"`
}

// RoutineCompletion records one routine run. TotalDuration covers the whole
// run from start to end, independent of the sum of member habit durations.
type RoutineCompletion struct {
	Completed     bool              `json:"completed"`
	CompletedAt   *int64            `json:"completedAt"`
	TotalDuration int64             `json:"totalDuration"`
	StartTime     int64             `json:"startTime,omitempty"`
	EndTime       int64             `json:"endTime,omitempty"`
	HabitTimes    map[int]HabitTime `json:"habitTimes"`
}

type Todo struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

type VirtueCheckIn struct {
	VirtueID string `json:"virtueId"`
	Rating   int    `json:"rating"`
	Notes    string `json:"notes,omitempty"`
}

type DailyChallenge struct {
	Virtue    string `json:"virtue"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type Goal struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Done bool   `json:"done"`
}

// DailyRecord holds everything recorded for one calendar date. Records are
// created lazily on first interaction and never deleted.
type DailyRecord struct {
	HabitCompletions   map[int]HabitCompletion   `json:"habitCompletions"`
	RoutineCompletions map[int]RoutineCompletion `json:"routineCompletions"`
	Todos              []Todo                    `json:"todos"`
	VirtueCheckIns     map[string]VirtueCheckIn  `json:"virtueCheckIns"`
	DailyChallenge     *DailyChallenge           `json:"dailyChallenge,omitempty"`
}

func NewDailyRecord() *DailyRecord {
	return &DailyRecord{
		HabitCompletions:   map[int]HabitCompletion{},
		RoutineCompletions: map[int]RoutineCompletion{},
		Todos:              []Todo{},
		VirtueCheckIns:     map[string]VirtueCheckIn{},
	}
}

type UserInfo struct {
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

type UserData struct {
	Routines       []Routine               `json:"routines"`
	Habits         []Habit                 `json:"habits"`
	Goals          []Goal                  `json:"goals"`
	Todos          []Todo                  `json:"todos"`
	DailyData      map[string]*DailyRecord `json:"dailyData"`
	Settings       map[string]any          `json:"settings"`
	DashboardOrder []string                `json:"dashboardOrder"`
}

// Document is the single per-user persisted structure. Everything the user
// owns lives in here, so every write replaces the whole document.
type Document struct {
	UserInfo UserInfo `json:"userInfo"`
	Data     UserData `json:"data"`
}

func NewDocument() *Document {
	return &Document{
		Data: UserData{
			Routines:       []Routine{},
			Habits:         []Habit{},
			Goals:          []Goal{},
			Todos:          []Todo{},
			DailyData:      map[string]*DailyRecord{},
			Settings:       map[string]any{},
			DashboardOrder: []string{},
		},
	}
}

const dateKeyLayout = "2006-01-02"

// DateKey formats t as the YYYY-MM-DD key daily records are stored under,
// in the device's local time.
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// ParseDateKey validates and parses a YYYY-MM-DD key.
func ParseDateKey(s string) (time.Time, error) {
	return time.ParseInLocation(dateKeyLayout, s, time.Local)
}

// ExcuseReasons is the closed set of reasons an excusable habit may be
// skipped with.
var ExcuseReasons = []string{
	"Sick Day",
	"Travel",
	"Family Emergency",
	"Work Conflict",
	"Weather",
}

func ValidExcuseReason(reason string) bool {
	for _, r := range ExcuseReasons {
		if r == reason {
			return true
		}
	}
	return false
}
