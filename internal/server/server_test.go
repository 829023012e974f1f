package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brk3/routines/internal/config"
	"github.com/brk3/routines/internal/storage/memory"
	"github.com/brk3/routines/internal/view"
	"github.com/brk3/routines/pkg/habit"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		Challenges: []config.Challenge{
			{Virtue: "temperance", Order: 1, Text: "no snacks"},
			{Virtue: "temperance", Order: 2, Text: "skip dessert"},
		},
	}
	s, err := New(cfg, memory.New())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	t.Cleanup(s.Close)
	return s.Router()
}

func mockRequest(h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	return rr
}

func createHabit(t *testing.T, h http.Handler, spec habit.Habit) habit.Habit {
	t.Helper()
	rr := mockRequest(h, http.MethodPost, "/habits/", spec)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create habit: got %d want 201, body: %s", rr.Code, rr.Body.String())
	}
	var created habit.Habit
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	return created
}

func TestListHabits_Empty(t *testing.T) {
	h := newTestServer(t)
	rr := mockRequest(h, http.MethodGet, "/habits/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want 200", rr.Code)
	}
	var resp HabitListResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if len(resp.Habits) != 0 {
		t.Fatalf("len=%d want 0", len(resp.Habits))
	}
}

func TestCreateHabit_Validation(t *testing.T) {
	h := newTestServer(t)

	rr := mockRequest(h, http.MethodPost, "/habits/", habit.Habit{Name: ""})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d want 400 for empty name", rr.Code)
	}

	rr = mockRequest(h, http.MethodPost, "/habits/", map[string]any{"name": "x", "tracking": "bogus"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d want 400 for bad tracking type", rr.Code)
	}
}

func TestCreateAndGetHabit(t *testing.T) {
	h := newTestServer(t)
	created := createHabit(t, h, habit.Habit{Name: "meditate", Tracking: habit.TrackingTimer, Excusable: true})
	if created.ID != 1 {
		t.Fatalf("id=%d want 1", created.ID)
	}

	rr := mockRequest(h, http.MethodGet, fmt.Sprintf("/habits/%d", created.ID), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want 200", rr.Code)
	}
	var got habit.Habit
	_ = json.Unmarshal(rr.Body.Bytes(), &got)
	if got.Name != "meditate" || !got.Excusable {
		t.Fatalf("got %+v", got)
	}

	rr = mockRequest(h, http.MethodGet, "/habits/99", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d want 404 for unknown habit", rr.Code)
	}
}

func TestHabitCompletionFlow(t *testing.T) {
	h := newTestServer(t)
	created := createHabit(t, h, habit.Habit{Name: "stretch", Tracking: habit.TrackingTimer})

	rr := mockRequest(h, http.MethodPost, fmt.Sprintf("/habits/%d/start", created.ID), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("start: got %d want 200, body: %s", rr.Code, rr.Body.String())
	}
	var start StartResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &start)
	if start.StartTime == 0 {
		t.Fatal("start time missing")
	}
	if start.ExpectedDuration != habit.DefaultExpectedDuration {
		t.Fatalf("expectedDuration=%d want default", start.ExpectedDuration)
	}

	rr = mockRequest(h, http.MethodPost, fmt.Sprintf("/habits/%d/complete", created.ID), map[string]string{"notes": "quick one"})
	if rr.Code != http.StatusOK {
		t.Fatalf("complete: got %d want 200, body: %s", rr.Code, rr.Body.String())
	}
	var hc habit.HabitCompletion
	_ = json.Unmarshal(rr.Body.Bytes(), &hc)
	if !hc.Completed || hc.Duration == nil {
		t.Fatalf("got %+v", hc)
	}

	rr = mockRequest(h, http.MethodGet, fmt.Sprintf("/habits/%d", created.ID), nil)
	var got habit.Habit
	_ = json.Unmarshal(rr.Body.Bytes(), &got)
	if got.CompletionCount != 1 {
		t.Fatalf("completionCount=%d want 1", got.CompletionCount)
	}
}

func TestCompleteHabit_WithoutStart(t *testing.T) {
	h := newTestServer(t)
	created := createHabit(t, h, habit.Habit{Name: "run", Tracking: habit.TrackingTimer})

	rr := mockRequest(h, http.MethodPost, fmt.Sprintf("/habits/%d/complete", created.ID), nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("got %d want 409, body: %s", rr.Code, rr.Body.String())
	}
}

func TestExcuseHabit_HTTP(t *testing.T) {
	h := newTestServer(t)
	strict := createHabit(t, h, habit.Habit{Name: "meds", Tracking: habit.TrackingSimple})
	excusable := createHabit(t, h, habit.Habit{Name: "run", Tracking: habit.TrackingTimer, Excusable: true})

	rr := mockRequest(h, http.MethodPost, fmt.Sprintf("/habits/%d/excuse", strict.ID), map[string]string{"reason": "Sick Day"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("got %d want 409 for non-excusable habit", rr.Code)
	}

	rr = mockRequest(h, http.MethodPost, fmt.Sprintf("/habits/%d/excuse", excusable.ID), map[string]string{"reason": "Whatever"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d want 400 for bad reason", rr.Code)
	}

	rr = mockRequest(h, http.MethodPost, fmt.Sprintf("/habits/%d/excuse", excusable.ID), map[string]string{"reason": "Sick Day"})
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want 200, body: %s", rr.Code, rr.Body.String())
	}
}

func TestRestartHabit_HTTP(t *testing.T) {
	h := newTestServer(t)
	created := createHabit(t, h, habit.Habit{Name: "piano", Tracking: habit.TrackingTimer})

	mockRequest(h, http.MethodPost, fmt.Sprintf("/habits/%d/start", created.ID), nil)
	mockRequest(h, http.MethodPost, fmt.Sprintf("/habits/%d/complete", created.ID), nil)

	rr := mockRequest(h, http.MethodPost, fmt.Sprintf("/habits/%d/restart", created.ID), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("restart: got %d want 200, body: %s", rr.Code, rr.Body.String())
	}

	rr = mockRequest(h, http.MethodGet, fmt.Sprintf("/habits/%d", created.ID), nil)
	var got habit.Habit
	_ = json.Unmarshal(rr.Body.Bytes(), &got)
	if got.CompletionCount != 0 {
		t.Fatalf("completionCount=%d want 0 after restart", got.CompletionCount)
	}

	mockRequest(h, http.MethodPost, fmt.Sprintf("/habits/%d/complete", created.ID), nil)
	rr = mockRequest(h, http.MethodGet, fmt.Sprintf("/habits/%d", created.ID), nil)
	_ = json.Unmarshal(rr.Body.Bytes(), &got)
	if got.CompletionCount != 1 {
		t.Fatalf("completionCount=%d want 1 net", got.CompletionCount)
	}
}

func TestRoutineManualEnd_HTTP(t *testing.T) {
	h := newTestServer(t)
	h1 := createHabit(t, h, habit.Habit{Name: "shower", Tracking: habit.TrackingTimer})
	h2 := createHabit(t, h, habit.Habit{Name: "journal", Tracking: habit.TrackingTimer})

	rr := mockRequest(h, http.MethodPost, "/routines/", habit.Routine{Name: "morning", Habits: []int{h1.ID, h2.ID}})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create routine: got %d, body: %s", rr.Code, rr.Body.String())
	}
	var rt habit.Routine
	_ = json.Unmarshal(rr.Body.Bytes(), &rt)

	rr = mockRequest(h, http.MethodPost, fmt.Sprintf("/routines/%d/start", rt.ID), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("start routine: got %d", rr.Code)
	}
	var started RoutineStartResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &started)
	if started.CurrentHabitID != h1.ID {
		t.Fatalf("cursor at %d want %d", started.CurrentHabitID, h1.ID)
	}

	mockRequest(h, http.MethodPost, fmt.Sprintf("/habits/%d/start", h1.ID), nil)
	mockRequest(h, http.MethodPost, fmt.Sprintf("/habits/%d/complete", h1.ID), nil)

	rr = mockRequest(h, http.MethodPost, fmt.Sprintf("/routines/%d/end", rt.ID), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("end routine: got %d, body: %s", rr.Code, rr.Body.String())
	}
	var rc habit.RoutineCompletion
	_ = json.Unmarshal(rr.Body.Bytes(), &rc)
	if !rc.Completed {
		t.Fatal("manual end must complete the routine")
	}
	if len(rc.HabitTimes) != 1 {
		t.Fatalf("habitTimes=%v want only the completed member", rc.HabitTimes)
	}
}

func TestRoutineAdvance_AutoCompletes(t *testing.T) {
	h := newTestServer(t)
	h1 := createHabit(t, h, habit.Habit{Name: "a", Tracking: habit.TrackingTimer})

	rr := mockRequest(h, http.MethodPost, "/routines/", habit.Routine{Name: "tiny", Habits: []int{h1.ID}})
	var rt habit.Routine
	_ = json.Unmarshal(rr.Body.Bytes(), &rt)

	mockRequest(h, http.MethodPost, fmt.Sprintf("/routines/%d/start", rt.ID), nil)
	mockRequest(h, http.MethodPost, fmt.Sprintf("/habits/%d/start", h1.ID), nil)
	mockRequest(h, http.MethodPost, fmt.Sprintf("/habits/%d/complete", h1.ID), nil)

	rr = mockRequest(h, http.MethodPost, fmt.Sprintf("/routines/%d/advance", rt.ID), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("advance: got %d, body: %s", rr.Code, rr.Body.String())
	}
	var adv AdvanceResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &adv)
	if !adv.Finished {
		t.Fatal("routine should auto-complete after last member resolves")
	}
}

func TestDayProgress_HTTP(t *testing.T) {
	h := newTestServer(t)
	h1 := createHabit(t, h, habit.Habit{Name: "a", Tracking: habit.TrackingTimer, Excusable: true})
	h2 := createHabit(t, h, habit.Habit{Name: "b", Tracking: habit.TrackingTimer, Excusable: true})
	createHabit(t, h, habit.Habit{Name: "c", Tracking: habit.TrackingTimer})

	mockRequest(h, http.MethodPost, fmt.Sprintf("/habits/%d/start", h1.ID), nil)
	mockRequest(h, http.MethodPost, fmt.Sprintf("/habits/%d/complete", h1.ID), nil)
	mockRequest(h, http.MethodPost, fmt.Sprintf("/habits/%d/excuse", h2.ID), map[string]string{"reason": "Travel"})

	today := habit.DateKey(time.Now())
	rr := mockRequest(h, http.MethodGet, "/days/"+today+"/progress", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, body: %s", rr.Code, rr.Body.String())
	}
	var p view.Progress
	_ = json.Unmarshal(rr.Body.Bytes(), &p)
	if p.Completed != 1 || p.Total != 3 {
		t.Fatalf("got %+v want completed=1 total=3", p)
	}
}

func TestGetDay_UnknownDateReturnsEmpty(t *testing.T) {
	h := newTestServer(t)
	rr := mockRequest(h, http.MethodGet, "/days/2000-01-01", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	var day DayResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &day)
	if day.Record != nil {
		t.Fatal("expected nil record for untouched date")
	}

	rr = mockRequest(h, http.MethodGet, "/days/not-a-date", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d want 400", rr.Code)
	}
}

func TestGetChallenge(t *testing.T) {
	h := newTestServer(t)

	rr := mockRequest(h, http.MethodGet, "/challenge?virtue=temperance", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, body: %s", rr.Code, rr.Body.String())
	}
	var c habit.DailyChallenge
	_ = json.Unmarshal(rr.Body.Bytes(), &c)
	if c.Virtue != "temperance" || c.Text == "" {
		t.Fatalf("got %+v", c)
	}

	rr = mockRequest(h, http.MethodGet, "/challenge?virtue=unknown", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d want 404 for virtue with no content", rr.Code)
	}
}

func TestVersionEndpoint(t *testing.T) {
	h := newTestServer(t)
	rr := mockRequest(h, http.MethodGet, "/version", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want 200", rr.Code)
	}
}
