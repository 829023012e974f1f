package challenge

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testSource() *StaticSource {
	return NewStaticSource([]Challenge{
		{Virtue: "temperance", Order: 2, Text: "skip dessert"},
		{Virtue: "temperance", Order: 1, Text: "no coffee after noon"},
		{Virtue: "courage", Order: 1, Text: "cold shower"},
	})
}

func TestForDay_IndexWrapsByCount(t *testing.T) {
	src := testSource()
	ctx := context.Background()

	// Sunday (weekday 0) and Tuesday (weekday 2) land on the same entry for
	// a two-challenge virtue.
	sunday := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	tuesday := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	a, err := ForDay(ctx, src, "temperance", sunday)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ForDay(ctx, src, "temperance", tuesday)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("weekday 0 and 2 mod 2 must select the same entry: %+v vs %+v", a, b)
	}
	// Entries are ordered, so index 0 is the lowest-order challenge.
	if a.Text != "no coffee after noon" {
		t.Fatalf("got %q", a.Text)
	}

	monday := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	c, err := ForDay(ctx, src, "temperance", monday)
	if err != nil {
		t.Fatal(err)
	}
	if c.Text != "skip dessert" {
		t.Fatalf("got %q", c.Text)
	}
}

func TestForDay_UnknownVirtue(t *testing.T) {
	_, err := ForDay(context.Background(), testSource(), "patience", time.Now())
	if err == nil {
		t.Fatal("expected error for virtue with no challenges")
	}
}

type failingSource struct{}

func (failingSource) ChallengesByVirtue(context.Context, string) ([]Challenge, error) {
	return nil, errors.New("content service down")
}

func TestLoadDaily_SkipsOnFailure(t *testing.T) {
	if c := LoadDaily(context.Background(), failingSource{}, "temperance", time.Now()); c != nil {
		t.Fatalf("got %+v, want nil on source failure", c)
	}
	if c := LoadDaily(context.Background(), testSource(), "courage", time.Now()); c == nil {
		t.Fatal("expected a challenge from a healthy source")
	}
}
