// Package record owns the per-user document: it is the only component that
// reads or writes storage, and every other component hands it in-memory
// copies. All mutations are whole-document read-modify-write, serialized
// through one in-process lock per user so interleaved partial updates cannot
// clobber each other. Concurrent writers on other devices are out of scope:
// this design assumes a single active device per account.
package record

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/brk3/routines/internal/storage"
	"github.com/brk3/routines/pkg/habit"
)

// Identity supplies the stable id of the signed-in user, or ok=false when
// nobody is authenticated.
type Identity interface {
	CurrentUser() (id string, ok bool)
}

// StaticIdentity is an Identity fixed to one user id.
type StaticIdentity string

func (s StaticIdentity) CurrentUser() (string, bool) {
	return string(s), s != ""
}

// Probe reports whether the document store is reachable. It is consulted
// before every mutating operation so writes fail fast while offline.
type Probe interface {
	Online() bool
}

// AlwaysOnline is the Probe for deployments where the store is co-located.
type AlwaysOnline struct{}

func (AlwaysOnline) Online() bool { return true }

// userLocks hands out one mutex per user id. Shared between all Clients
// derived from the same root so ForUser copies stay serialized.
type userLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *userLocks) forUser(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.m[id] == nil {
		l.m[id] = &sync.Mutex{}
	}
	return l.m[id]
}

// Client is the daily-record store adapter. Construct with New; no ambient
// globals are involved.
type Client struct {
	store    storage.Store
	identity Identity
	probe    Probe
	locks    *userLocks
}

func New(store storage.Store, identity Identity, probe Probe) *Client {
	return &Client{
		store:    store,
		identity: identity,
		probe:    probe,
		locks:    &userLocks{m: map[string]*sync.Mutex{}},
	}
}

// ForUser returns a Client bound to a fixed user id. The write locks and
// store are shared with the receiver, so per-user serialization holds across
// all derived clients.
func (c *Client) ForUser(userID string) *Client {
	return &Client{
		store:    c.store,
		identity: StaticIdentity(userID),
		probe:    c.probe,
		locks:    c.locks,
	}
}

func (c *Client) user() (string, error) {
	id, ok := c.identity.CurrentUser()
	if !ok {
		return "", ErrNoUser
	}
	return id, nil
}

func (c *Client) read(ctx context.Context, fn func(doc *habit.Document) error) error {
	uid, err := c.user()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, found, err := c.store.GetDocument(uid)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if !found {
		doc = habit.NewDocument()
	}
	return fn(doc)
}

// mutate runs one read-modify-write cycle under the user's lock. The probe
// is checked before anything touches storage.
func (c *Client) mutate(ctx context.Context, fn func(doc *habit.Document) error) error {
	uid, err := c.user()
	if err != nil {
		return err
	}
	if !c.probe.Online() {
		return ErrOffline
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := c.locks.forUser(uid)
	lock.Lock()
	defer lock.Unlock()

	doc, found, err := c.store.GetDocument(uid)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if !found {
		doc = habit.NewDocument()
	}
	if err := fn(doc); err != nil {
		return err
	}
	if err := c.store.PutDocument(uid, doc); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// Document returns the user's full document, synthesized empty when none has
// been written yet.
func (c *Client) Document(ctx context.Context) (*habit.Document, error) {
	var out *habit.Document
	err := c.read(ctx, func(doc *habit.Document) error {
		out = doc
		return nil
	})
	return out, err
}

// LoadDay returns the daily record for date, or nil when the date has never
// been interacted with.
func (c *Client) LoadDay(ctx context.Context, date string) (*habit.DailyRecord, error) {
	var out *habit.DailyRecord
	err := c.read(ctx, func(doc *habit.Document) error {
		out = doc.Data.DailyData[date]
		return nil
	})
	return out, err
}

// DayPatch is one sub-map worth of changes to a daily record. Exactly one
// field may be set per MergeDay call.
type DayPatch struct {
	HabitCompletions   map[int]habit.HabitCompletion
	RoutineCompletions map[int]habit.RoutineCompletion
	Todos              []habit.Todo
	VirtueCheckIns     map[string]habit.VirtueCheckIn
	DailyChallenge     *habit.DailyChallenge
}

func (p DayPatch) submapCount() int {
	n := 0
	if p.HabitCompletions != nil {
		n++
	}
	if p.RoutineCompletions != nil {
		n++
	}
	if p.Todos != nil {
		n++
	}
	if p.VirtueCheckIns != nil {
		n++
	}
	if p.DailyChallenge != nil {
		n++
	}
	return n
}

// MergeDay shallow-merges one sub-map of patch into the record for date.
// Incoming keys overwrite, untouched keys survive. The record is created
// empty on first interaction with the date.
func (c *Client) MergeDay(ctx context.Context, date string, patch DayPatch) error {
	if patch.submapCount() != 1 {
		return fmt.Errorf("day patch must touch exactly one sub-map, got %d", patch.submapCount())
	}
	return c.mutate(ctx, func(doc *habit.Document) error {
		rec := doc.Data.DailyData[date]
		if rec == nil {
			rec = habit.NewDailyRecord()
			if doc.Data.DailyData == nil {
				doc.Data.DailyData = map[string]*habit.DailyRecord{}
			}
			doc.Data.DailyData[date] = rec
		}
		switch {
		case patch.HabitCompletions != nil:
			if rec.HabitCompletions == nil {
				rec.HabitCompletions = map[int]habit.HabitCompletion{}
			}
			for id, hc := range patch.HabitCompletions {
				rec.HabitCompletions[id] = hc
			}
		case patch.RoutineCompletions != nil:
			if rec.RoutineCompletions == nil {
				rec.RoutineCompletions = map[int]habit.RoutineCompletion{}
			}
			for id, rc := range patch.RoutineCompletions {
				rec.RoutineCompletions[id] = rc
			}
		case patch.Todos != nil:
			rec.Todos = patch.Todos
		case patch.VirtueCheckIns != nil:
			if rec.VirtueCheckIns == nil {
				rec.VirtueCheckIns = map[string]habit.VirtueCheckIn{}
			}
			for id, v := range patch.VirtueCheckIns {
				rec.VirtueCheckIns[id] = v
			}
		case patch.DailyChallenge != nil:
			rec.DailyChallenge = patch.DailyChallenge
		}
		return nil
	})
}

// RemoveHabitCompletion deletes the completion entry for one habit on one
// date, leaving sibling entries untouched. Used by restart.
func (c *Client) RemoveHabitCompletion(ctx context.Context, date string, habitID int) error {
	return c.mutate(ctx, func(doc *habit.Document) error {
		if rec := doc.Data.DailyData[date]; rec != nil {
			delete(rec.HabitCompletions, habitID)
		}
		return nil
	})
}

func findHabit(doc *habit.Document, id int) (int, bool) {
	for i := range doc.Data.Habits {
		if doc.Data.Habits[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

func findRoutine(doc *habit.Document, id int) (int, bool) {
	for i := range doc.Data.Routines {
		if doc.Data.Routines[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

func (c *Client) GetHabit(ctx context.Context, id int) (habit.Habit, error) {
	var out habit.Habit
	err := c.read(ctx, func(doc *habit.Document) error {
		i, ok := findHabit(doc, id)
		if !ok {
			return fmt.Errorf("habit %d: %w", id, ErrHabitNotFound)
		}
		out = doc.Data.Habits[i]
		return nil
	})
	return out, err
}

func (c *Client) GetRoutine(ctx context.Context, id int) (habit.Routine, error) {
	var out habit.Routine
	err := c.read(ctx, func(doc *habit.Document) error {
		i, ok := findRoutine(doc, id)
		if !ok {
			return fmt.Errorf("routine %d: %w", id, ErrRoutineNotFound)
		}
		out = doc.Data.Routines[i]
		return nil
	})
	return out, err
}

// AddHabit stores h under the next free id (max existing + 1) and, when h
// names a routine, appends the habit to that routine's member list.
func (c *Client) AddHabit(ctx context.Context, h habit.Habit) (habit.Habit, error) {
	err := c.mutate(ctx, func(doc *habit.Document) error {
		maxID := 0
		for i := range doc.Data.Habits {
			maxID = max(maxID, doc.Data.Habits[i].ID)
		}
		h.ID = maxID + 1

		if h.RoutineID != nil {
			i, ok := findRoutine(doc, *h.RoutineID)
			if !ok {
				return fmt.Errorf("routine %d: %w", *h.RoutineID, ErrRoutineNotFound)
			}
			doc.Data.Routines[i].Habits = append(doc.Data.Routines[i].Habits, h.ID)
		}

		doc.Data.Habits = append(doc.Data.Habits, h)
		return nil
	})
	return h, err
}

// HabitPatch is a shallow field merge for one habit. Nil fields are left
// untouched.
type HabitPatch struct {
	Name             *string             `json:"name,omitempty"`
	Description      *string             `json:"description,omitempty"`
	RoutineID        *int                `json:"routineId,omitempty"`
	ClearRoutineID   bool                `json:"clearRoutineId,omitempty"`
	Tracking         *habit.TrackingType `json:"tracking,omitempty"`
	Duration         *int64              `json:"duration,omitempty"`
	ExpectedDuration *int64              `json:"expectedDuration,omitempty"`
	Excusable        *bool               `json:"excusable,omitempty"`
	Aggregates       *habit.Aggregates   `json:"aggregates,omitempty"`
}

func removeMember(r *habit.Routine, habitID int) {
	r.Habits = slices.DeleteFunc(r.Habits, func(id int) bool { return id == habitID })
}

// UpdateHabit merges patch into the habit with the given id. Routine
// membership changes keep habit.routineId and routine.habits consistent in
// both directions.
func (c *Client) UpdateHabit(ctx context.Context, id int, patch HabitPatch) (habit.Habit, error) {
	var out habit.Habit
	err := c.mutate(ctx, func(doc *habit.Document) error {
		i, ok := findHabit(doc, id)
		if !ok {
			return fmt.Errorf("habit %d: %w", id, ErrHabitNotFound)
		}
		h := &doc.Data.Habits[i]

		if patch.Name != nil {
			h.Name = *patch.Name
		}
		if patch.Description != nil {
			h.Description = *patch.Description
		}
		if patch.Tracking != nil {
			h.Tracking = *patch.Tracking
		}
		if patch.Duration != nil {
			h.Duration = *patch.Duration
		}
		if patch.ExpectedDuration != nil {
			h.ExpectedDuration = *patch.ExpectedDuration
		}
		if patch.Excusable != nil {
			h.Excusable = *patch.Excusable
		}
		if patch.Aggregates != nil {
			h.Aggregates = *patch.Aggregates
		}

		if patch.ClearRoutineID || patch.RoutineID != nil {
			if h.RoutineID != nil {
				if ri, ok := findRoutine(doc, *h.RoutineID); ok {
					removeMember(&doc.Data.Routines[ri], id)
				}
			}
			h.RoutineID = nil
			if patch.RoutineID != nil {
				ri, ok := findRoutine(doc, *patch.RoutineID)
				if !ok {
					return fmt.Errorf("routine %d: %w", *patch.RoutineID, ErrRoutineNotFound)
				}
				doc.Data.Routines[ri].Habits = append(doc.Data.Routines[ri].Habits, id)
				h.RoutineID = patch.RoutineID
			}
		}

		out = *h
		return nil
	})
	return out, err
}

// DeleteHabit removes the habit definition and its routine membership.
// Historical daily records are never touched.
func (c *Client) DeleteHabit(ctx context.Context, id int) error {
	return c.mutate(ctx, func(doc *habit.Document) error {
		i, ok := findHabit(doc, id)
		if !ok {
			return fmt.Errorf("habit %d: %w", id, ErrHabitNotFound)
		}
		if rid := doc.Data.Habits[i].RoutineID; rid != nil {
			if ri, ok := findRoutine(doc, *rid); ok {
				removeMember(&doc.Data.Routines[ri], id)
			}
		}
		doc.Data.Habits = slices.Delete(doc.Data.Habits, i, i+1)
		return nil
	})
}

// AddRoutine stores r under the next free id. Member habits must already
// exist; their routineId is pointed at the new routine.
func (c *Client) AddRoutine(ctx context.Context, r habit.Routine) (habit.Routine, error) {
	err := c.mutate(ctx, func(doc *habit.Document) error {
		maxID := 0
		for i := range doc.Data.Routines {
			maxID = max(maxID, doc.Data.Routines[i].ID)
		}
		r.ID = maxID + 1

		for _, hid := range r.Habits {
			hi, ok := findHabit(doc, hid)
			if !ok {
				return fmt.Errorf("habit %d: %w", hid, ErrHabitNotFound)
			}
			rid := r.ID
			doc.Data.Habits[hi].RoutineID = &rid
		}

		doc.Data.Routines = append(doc.Data.Routines, r)
		return nil
	})
	return r, err
}

type RoutinePatch struct {
	Name       *string           `json:"name,omitempty"`
	Habits     *[]int            `json:"habits,omitempty"`
	Days       *[]string         `json:"days,omitempty"`
	TimeOfDay  *string           `json:"timeOfDay,omitempty"`
	Order      *int              `json:"order,omitempty"`
	Aggregates *habit.Aggregates `json:"aggregates,omitempty"`
}

// UpdateRoutine merges patch into the routine with the given id. Replacing
// the member list re-points routineId on habits that joined or left.
func (c *Client) UpdateRoutine(ctx context.Context, id int, patch RoutinePatch) (habit.Routine, error) {
	var out habit.Routine
	err := c.mutate(ctx, func(doc *habit.Document) error {
		i, ok := findRoutine(doc, id)
		if !ok {
			return fmt.Errorf("routine %d: %w", id, ErrRoutineNotFound)
		}
		r := &doc.Data.Routines[i]

		if patch.Name != nil {
			r.Name = *patch.Name
		}
		if patch.Days != nil {
			r.Days = *patch.Days
		}
		if patch.TimeOfDay != nil {
			r.TimeOfDay = *patch.TimeOfDay
		}
		if patch.Order != nil {
			r.Order = *patch.Order
		}
		if patch.Aggregates != nil {
			r.Aggregates = *patch.Aggregates
		}

		if patch.Habits != nil {
			incoming := *patch.Habits
			for _, hid := range incoming {
				if _, ok := findHabit(doc, hid); !ok {
					return fmt.Errorf("habit %d: %w", hid, ErrHabitNotFound)
				}
			}
			for _, hid := range r.Habits {
				if !slices.Contains(incoming, hid) {
					if hi, ok := findHabit(doc, hid); ok {
						doc.Data.Habits[hi].RoutineID = nil
					}
				}
			}
			for _, hid := range incoming {
				hi, _ := findHabit(doc, hid)
				rid := id
				doc.Data.Habits[hi].RoutineID = &rid
			}
			r.Habits = incoming
		}

		out = *r
		return nil
	})
	return out, err
}
