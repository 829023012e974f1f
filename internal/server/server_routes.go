package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/brk3/routines/internal/challenge"
	"github.com/brk3/routines/internal/logger"
	"github.com/brk3/routines/internal/record"
	"github.com/brk3/routines/internal/storage"
	"github.com/brk3/routines/internal/tracker"
	"github.com/brk3/routines/internal/view"
	"github.com/brk3/routines/pkg/habit"
	"github.com/brk3/routines/pkg/versioninfo"
	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

// writeErr maps the error taxonomy onto HTTP statuses: precondition failures
// are 4xx, transient store failures are 503 with retryable set so clients
// know re-invoking can succeed.
func writeErr(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error(), Retryable: record.Retryable(err)}
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, record.ErrNoUser):
		code = http.StatusUnauthorized
	case errors.Is(err, record.ErrOffline), errors.Is(err, storage.ErrUnavailable):
		code = http.StatusServiceUnavailable
	case errors.Is(err, storage.ErrPermissionDenied):
		code = http.StatusForbidden
	case errors.Is(err, record.ErrHabitNotFound), errors.Is(err, record.ErrRoutineNotFound):
		code = http.StatusNotFound
	case errors.Is(err, tracker.ErrBadExcuseReason):
		code = http.StatusBadRequest
	case errors.Is(err, tracker.ErrNoSession),
		errors.Is(err, tracker.ErrAlreadyResolved),
		errors.Is(err, tracker.ErrNotExcusable),
		errors.Is(err, tracker.ErrNotCompleted),
		errors.Is(err, tracker.ErrNotRestartable):
		code = http.StatusConflict
	}
	_ = writeJSON(w, code, resp)
}

func (s *Server) getVersionInfo(w http.ResponseWriter, _ *http.Request) {
	info := versioninfo.VersionInfo{
		Version:   versioninfo.Version,
		BuildDate: versioninfo.BuildDate,
	}
	if err := writeJSON(w, http.StatusOK, info); err != nil {
		logger.Error("Failed to serialize version info response", "error", err)
	}
}

func urlInt(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

func validateHabit(h habit.Habit) error {
	const maxNameLength = 100
	const maxDescriptionLength = 1024

	if len(h.Name) == 0 || len(h.Name) > maxNameLength {
		return fmt.Errorf("bad habit name: must be 1-%d characters", maxNameLength)
	}
	if len(h.Description) > maxDescriptionLength {
		return fmt.Errorf("bad habit description: must be 0-%d characters", maxDescriptionLength)
	}
	if !h.Tracking.IsValid() {
		return fmt.Errorf("bad tracking type %q", h.Tracking)
	}
	return nil
}

func (s *Server) createHabit(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		writeErr(w, record.ErrNoUser)
		return
	}
	var h habit.Habit
	if err := json.NewDecoder(r.Body).Decode(&h); err != nil {
		logger.Warn("Invalid JSON in create habit request", "error", err)
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if h.Tracking == "" {
		h.Tracking = habit.TrackingSimple
	}
	if err := validateHabit(h); err != nil {
		_ = writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	h.Aggregates = habit.Aggregates{}

	created, err := s.recordsFor(userID).AddHabit(r.Context(), h)
	if err != nil {
		logger.Error("Failed to create habit", "user_id", userID, "error", err)
		writeErr(w, err)
		return
	}
	logger.Info("Habit created", "user_id", userID, "habit_id", created.ID, "name", created.Name)

	s.refreshHabitGauge(r, userID)
	if err := writeJSON(w, http.StatusCreated, created); err != nil {
		logger.Error("Failed to serialize create habit response", "error", err)
	}
}

func (s *Server) refreshHabitGauge(r *http.Request, userID string) {
	doc, err := s.recordsFor(userID).Document(r.Context())
	if err != nil {
		logger.Warn("Failed to refresh habit gauge", "user_id", userID, "error", err)
		return
	}
	UpdateActiveHabitsForUser(userID, len(doc.Data.Habits))
}

func (s *Server) listHabits(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		writeErr(w, record.ErrNoUser)
		return
	}
	doc, err := s.recordsFor(userID).Document(r.Context())
	if err != nil {
		logger.Error("Failed to list habits", "user_id", userID, "error", err)
		writeErr(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, HabitListResponse{Habits: doc.Data.Habits}); err != nil {
		logger.Error("Failed to serialize habit list response", "error", err)
	}
}

func (s *Server) getHabit(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	id, err := urlInt(r, "habit_id")
	if userID == "" || err != nil {
		http.Error(w, `{"error":"user id and habit id are required"}`, http.StatusBadRequest)
		return
	}
	h, err := s.recordsFor(userID).GetHabit(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, h); err != nil {
		logger.Error("Failed to serialize habit response", "error", err)
	}
}

func (s *Server) patchHabit(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	id, err := urlInt(r, "habit_id")
	if userID == "" || err != nil {
		http.Error(w, `{"error":"user id and habit id are required"}`, http.StatusBadRequest)
		return
	}
	var patch record.HabitPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	h, err := s.recordsFor(userID).UpdateHabit(r.Context(), id, patch)
	if err != nil {
		logger.Error("Failed to update habit", "user_id", userID, "habit_id", id, "error", err)
		writeErr(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, h); err != nil {
		logger.Error("Failed to serialize habit response", "error", err)
	}
}

func (s *Server) deleteHabit(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	id, err := urlInt(r, "habit_id")
	if userID == "" || err != nil {
		http.Error(w, `{"error":"user id and habit id are required"}`, http.StatusBadRequest)
		return
	}
	if err := s.recordsFor(userID).DeleteHabit(r.Context(), id); err != nil {
		logger.Error("Failed to delete habit", "user_id", userID, "habit_id", id, "error", err)
		writeErr(w, err)
		return
	}
	logger.Info("Habit deleted", "user_id", userID, "habit_id", id)
	s.refreshHabitGauge(r, userID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) startHabit(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	id, err := urlInt(r, "habit_id")
	if userID == "" || err != nil {
		http.Error(w, `{"error":"user id and habit id are required"}`, http.StatusBadRequest)
		return
	}

	h, err := s.recordsFor(userID).GetHabit(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	start, err := s.trackerFor(userID).StartHabit(r.Context(), id, nil)
	if err != nil {
		writeErr(w, err)
		return
	}
	resp := StartResponse{StartTime: start.UnixMilli(), ExpectedDuration: h.ExpectedDurationMs()}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.Error("Failed to serialize start response", "error", err)
	}
}

func (s *Server) completeHabit(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	id, err := urlInt(r, "habit_id")
	if userID == "" || err != nil {
		http.Error(w, `{"error":"user id and habit id are required"}`, http.StatusBadRequest)
		return
	}
	var body struct {
		Notes string `json:"notes"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
			return
		}
	}

	hc, err := s.trackerFor(userID).CompleteHabit(r.Context(), id, body.Notes)
	if err != nil {
		logger.Error("Failed to complete habit", "user_id", userID, "habit_id", id, "error", err)
		RecordCompletion("habit", "error")
		writeErr(w, err)
		return
	}
	logger.Info("Habit completed", "user_id", userID, "habit_id", id, "duration_ms", *hc.Duration)
	RecordCompletion("habit", "completed")
	if err := writeJSON(w, http.StatusOK, hc); err != nil {
		logger.Error("Failed to serialize completion response", "error", err)
	}
}

func (s *Server) excuseHabit(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	id, err := urlInt(r, "habit_id")
	if userID == "" || err != nil {
		http.Error(w, `{"error":"user id and habit id are required"}`, http.StatusBadRequest)
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	hc, err := s.trackerFor(userID).ExcuseHabit(r.Context(), id, body.Reason)
	if err != nil {
		writeErr(w, err)
		return
	}
	logger.Info("Habit excused", "user_id", userID, "habit_id", id, "reason", body.Reason)
	RecordCompletion("habit", "excused")
	if err := writeJSON(w, http.StatusOK, hc); err != nil {
		logger.Error("Failed to serialize excusal response", "error", err)
	}
}

func (s *Server) restartHabit(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	id, err := urlInt(r, "habit_id")
	if userID == "" || err != nil {
		http.Error(w, `{"error":"user id and habit id are required"}`, http.StatusBadRequest)
		return
	}
	start, err := s.trackerFor(userID).RestartHabit(r.Context(), id, nil)
	if err != nil {
		writeErr(w, err)
		return
	}
	logger.Info("Habit restarted", "user_id", userID, "habit_id", id)
	RecordCompletion("habit", "restarted")
	if err := writeJSON(w, http.StatusOK, StartResponse{StartTime: start.UnixMilli()}); err != nil {
		logger.Error("Failed to serialize restart response", "error", err)
	}
}

func (s *Server) cancelHabit(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	id, err := urlInt(r, "habit_id")
	if userID == "" || err != nil {
		http.Error(w, `{"error":"user id and habit id are required"}`, http.StatusBadRequest)
		return
	}
	s.trackerFor(userID).CancelHabit(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createRoutine(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		writeErr(w, record.ErrNoUser)
		return
	}
	var rt habit.Routine
	if err := json.NewDecoder(r.Body).Decode(&rt); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if rt.Name == "" {
		_ = writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "routine name is required"})
		return
	}
	rt.Aggregates = habit.Aggregates{}

	created, err := s.recordsFor(userID).AddRoutine(r.Context(), rt)
	if err != nil {
		logger.Error("Failed to create routine", "user_id", userID, "error", err)
		writeErr(w, err)
		return
	}
	logger.Info("Routine created", "user_id", userID, "routine_id", created.ID, "name", created.Name)
	if err := writeJSON(w, http.StatusCreated, created); err != nil {
		logger.Error("Failed to serialize create routine response", "error", err)
	}
}

func (s *Server) listRoutines(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		writeErr(w, record.ErrNoUser)
		return
	}
	doc, err := s.recordsFor(userID).Document(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, RoutineListResponse{Routines: doc.Data.Routines}); err != nil {
		logger.Error("Failed to serialize routine list response", "error", err)
	}
}

func (s *Server) getRoutine(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	id, err := urlInt(r, "routine_id")
	if userID == "" || err != nil {
		http.Error(w, `{"error":"user id and routine id are required"}`, http.StatusBadRequest)
		return
	}
	rt, err := s.recordsFor(userID).GetRoutine(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, rt); err != nil {
		logger.Error("Failed to serialize routine response", "error", err)
	}
}

func (s *Server) patchRoutine(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	id, err := urlInt(r, "routine_id")
	if userID == "" || err != nil {
		http.Error(w, `{"error":"user id and routine id are required"}`, http.StatusBadRequest)
		return
	}
	var patch record.RoutinePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	rt, err := s.recordsFor(userID).UpdateRoutine(r.Context(), id, patch)
	if err != nil {
		logger.Error("Failed to update routine", "user_id", userID, "routine_id", id, "error", err)
		writeErr(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, rt); err != nil {
		logger.Error("Failed to serialize routine response", "error", err)
	}
}

func (s *Server) startRoutine(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	id, err := urlInt(r, "routine_id")
	if userID == "" || err != nil {
		http.Error(w, `{"error":"user id and routine id are required"}`, http.StatusBadRequest)
		return
	}
	run, err := s.trackerFor(userID).StartRoutine(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	resp := RoutineStartResponse{RoutineID: id, StartTime: run.StartedAt.UnixMilli()}
	if cur, ok := run.Current(); ok {
		resp.CurrentHabitID = cur
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.Error("Failed to serialize routine start response", "error", err)
	}
}

func (s *Server) advanceRoutine(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	id, err := urlInt(r, "routine_id")
	if userID == "" || err != nil {
		http.Error(w, `{"error":"user id and routine id are required"}`, http.StatusBadRequest)
		return
	}
	tr := s.trackerFor(userID)
	run, err := tr.StartRoutine(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	next, finished, err := tr.AdvanceRun(r.Context(), run)
	if err != nil {
		writeErr(w, err)
		return
	}
	if finished {
		logger.Info("Routine auto-completed", "user_id", userID, "routine_id", id)
		RecordCompletion("routine", "completed")
	}
	if err := writeJSON(w, http.StatusOK, AdvanceResponse{NextHabitID: next, Finished: finished}); err != nil {
		logger.Error("Failed to serialize advance response", "error", err)
	}
}

func (s *Server) endRoutine(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	id, err := urlInt(r, "routine_id")
	if userID == "" || err != nil {
		http.Error(w, `{"error":"user id and routine id are required"}`, http.StatusBadRequest)
		return
	}
	tr := s.trackerFor(userID)
	run, err := tr.StartRoutine(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	rc, err := tr.EndRoutine(r.Context(), run)
	if err != nil {
		logger.Error("Failed to end routine", "user_id", userID, "routine_id", id, "error", err)
		writeErr(w, err)
		return
	}
	logger.Info("Routine ended", "user_id", userID, "routine_id", id, "total_ms", rc.TotalDuration)
	RecordCompletion("routine", "completed")
	if err := writeJSON(w, http.StatusOK, rc); err != nil {
		logger.Error("Failed to serialize routine completion response", "error", err)
	}
}

func (s *Server) routineComposition(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	id, err := urlInt(r, "routine_id")
	if userID == "" || err != nil {
		http.Error(w, `{"error":"user id and routine id are required"}`, http.StatusBadRequest)
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = habit.DateKey(time.Now())
	}

	records := s.recordsFor(userID)
	rt, err := records.GetRoutine(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	rec, err := records.LoadDay(r.Context(), date)
	if err != nil {
		writeErr(w, err)
		return
	}
	if rec == nil {
		http.Error(w, `{"error":"no record for date"}`, http.StatusNotFound)
		return
	}
	rc, ok := rec.RoutineCompletions[id]
	if !ok || !rc.Completed {
		http.Error(w, `{"error":"routine not completed on date"}`, http.StatusNotFound)
		return
	}

	resp := CompositionResponse{RoutineID: id, Date: date, Segments: view.RoutineComposition(rt, rc)}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.Error("Failed to serialize composition response", "error", err)
	}
}

func (s *Server) getDay(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	date := chi.URLParam(r, "date")
	if userID == "" || date == "" {
		http.Error(w, `{"error":"user id and date are required"}`, http.StatusBadRequest)
		return
	}
	if _, err := habit.ParseDateKey(date); err != nil {
		http.Error(w, `{"error":"date must be YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}

	rec, err := s.recordsFor(userID).LoadDay(r.Context(), date)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, DayResponse{Date: date, Record: rec}); err != nil {
		logger.Error("Failed to serialize day response", "error", err)
	}
}

func (s *Server) getDayProgress(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	date := chi.URLParam(r, "date")
	if userID == "" || date == "" {
		http.Error(w, `{"error":"user id and date are required"}`, http.StatusBadRequest)
		return
	}

	doc, err := s.recordsFor(userID).Document(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	p := view.DailyProgress(doc.Data.Habits, doc.Data.DailyData[date])
	if err := writeJSON(w, http.StatusOK, p); err != nil {
		logger.Error("Failed to serialize progress response", "error", err)
	}
}

func (s *Server) getRangeProgress(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		writeErr(w, record.ErrNoUser)
		return
	}
	from, err := habit.ParseDateKey(r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, `{"error":"from must be YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}
	to, err := habit.ParseDateKey(r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, `{"error":"to must be YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}
	if to.Before(from) {
		http.Error(w, `{"error":"to must not precede from"}`, http.StatusBadRequest)
		return
	}

	doc, err := s.recordsFor(userID).Document(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	rollup := view.RangeRollup(doc.Data.Habits, doc.Data.DailyData, from, to)
	if err := writeJSON(w, http.StatusOK, RangeProgressResponse{Days: rollup}); err != nil {
		logger.Error("Failed to serialize rollup response", "error", err)
	}
}

func (s *Server) getChallenge(w http.ResponseWriter, r *http.Request) {
	virtue := r.URL.Query().Get("virtue")
	if virtue == "" {
		http.Error(w, `{"error":"virtue is required"}`, http.StatusBadRequest)
		return
	}
	c := challenge.LoadDaily(r.Context(), s.challenges, virtue, time.Now())
	if c == nil {
		http.Error(w, `{"error":"no challenge available"}`, http.StatusNotFound)
		return
	}
	if err := writeJSON(w, http.StatusOK, c); err != nil {
		logger.Error("Failed to serialize challenge response", "error", err)
	}
}
