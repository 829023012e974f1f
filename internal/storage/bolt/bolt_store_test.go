package bolt

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/brk3/routines/pkg/habit"
	"golang.org/x/oauth2"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "routines.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDocumentRoundTrip(t *testing.T) {
	s := newTestStore(t)

	doc := habit.NewDocument()
	doc.Data.Habits = append(doc.Data.Habits, habit.Habit{ID: 1, Name: "meditate", Tracking: habit.TrackingTimer})
	doc.Data.DailyData["2026-09-01"] = &habit.DailyRecord{
		HabitCompletions: map[int]habit.HabitCompletion{1: {Completed: true}},
	}

	if err := s.PutDocument("alice", doc); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := s.GetDocument("alice")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if len(got.Data.Habits) != 1 || got.Data.Habits[0].Name != "meditate" {
		t.Errorf("habits = %+v", got.Data.Habits)
	}
	if !got.Data.DailyData["2026-09-01"].HabitCompletions[1].Completed {
		t.Error("completion entry lost in round trip")
	}
}

func TestGetDocument_UnknownUser(t *testing.T) {
	s := newTestStore(t)

	doc, ok, err := s.GetDocument("nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || doc != nil {
		t.Fatalf("got ok=%v doc=%v for unknown user", ok, doc)
	}
}

func TestDocuments_UserIsolation(t *testing.T) {
	s := newTestStore(t)

	a := habit.NewDocument()
	a.Data.Habits = append(a.Data.Habits, habit.Habit{ID: 1, Name: "alice-only"})
	b := habit.NewDocument()
	b.Data.Habits = append(b.Data.Habits, habit.Habit{ID: 1, Name: "bob-only"})

	if err := s.PutDocument("alice", a); err != nil {
		t.Fatal(err)
	}
	if err := s.PutDocument("bob", b); err != nil {
		t.Fatal(err)
	}

	got, _, _ := s.GetDocument("alice")
	if got.Data.Habits[0].Name != "alice-only" {
		t.Errorf("alice sees %q", got.Data.Habits[0].Name)
	}
	got, _, _ = s.GetDocument("bob")
	if got.Data.Habits[0].Name != "bob-only" {
		t.Errorf("bob sees %q", got.Data.Habits[0].Name)
	}
}

func TestAPIKeyLifecycle(t *testing.T) {
	s := newTestStore(t)

	if err := s.PutAPIKey("hash1", "alice"); err != nil {
		t.Fatal(err)
	}
	if err := s.PutAPIKey("hash2", "alice"); err != nil {
		t.Fatal(err)
	}
	if err := s.PutAPIKey("hash3", "bob"); err != nil {
		t.Fatal(err)
	}

	user, ok, err := s.GetAPIKey("hash1")
	if err != nil || !ok || user != "alice" {
		t.Fatalf("got user=%q ok=%v err=%v", user, ok, err)
	}

	hashes, err := s.ListAPIKeyHashes("alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(hashes) != 2 {
		t.Fatalf("alice has %d keys, want 2", len(hashes))
	}

	if err := s.DeleteAPIKey("hash1"); err != nil {
		t.Fatal(err)
	}
	_, ok, _ = s.GetAPIKey("hash1")
	if ok {
		t.Error("deleted key still resolves")
	}
	if _, ok, _ := s.GetAPIKey("hash2"); !ok {
		t.Error("sibling key lost on delete")
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	s := newTestStore(t)

	tok := &oauth2.Token{
		AccessToken:  "at",
		RefreshToken: "rt",
		Expiry:       time.Now().Add(time.Hour).Truncate(time.Second),
	}
	if err := s.PutRefreshToken("alice", tok); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.GetRefreshToken("alice")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.RefreshToken != "rt" {
		t.Errorf("refresh token = %q", got.RefreshToken)
	}

	if err := s.DeleteRefreshToken("alice"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.GetRefreshToken("alice"); ok {
		t.Error("deleted token still resolves")
	}
}
