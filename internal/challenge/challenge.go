// Package challenge selects the daily challenge for a virtue from read-only
// reference content.
package challenge

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/brk3/routines/internal/logger"
	"github.com/brk3/routines/pkg/habit"
)

type Challenge struct {
	Virtue string `json:"virtue"`
	Order  int    `json:"order"`
	Text   string `json:"text"`
}

// Source is the read-only content collaborator. Entries come back in any
// order; selection sorts by the Order field.
type Source interface {
	ChallengesByVirtue(ctx context.Context, virtue string) ([]Challenge, error)
}

// ForDay picks the challenge for (virtue, day): the weekday index modulo the
// number of challenges defined for the virtue.
func ForDay(ctx context.Context, src Source, virtue string, day time.Time) (Challenge, error) {
	entries, err := src.ChallengesByVirtue(ctx, virtue)
	if err != nil {
		return Challenge{}, fmt.Errorf("load challenges for %s: %w", virtue, err)
	}
	if len(entries) == 0 {
		return Challenge{}, fmt.Errorf("no challenges defined for virtue %q", virtue)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Order < entries[j].Order })
	return entries[int(day.Weekday())%len(entries)], nil
}

// LoadDaily is the dashboard path: failures are logged and the feature is
// skipped rather than blocking the rest of the day view.
func LoadDaily(ctx context.Context, src Source, virtue string, day time.Time) *habit.DailyChallenge {
	c, err := ForDay(ctx, src, virtue, day)
	if err != nil {
		logger.Warn("Skipping daily challenge", "virtue", virtue, "error", err)
		return nil
	}
	return &habit.DailyChallenge{Virtue: c.Virtue, Text: c.Text}
}

// StaticSource serves challenges from an in-memory list, typically loaded
// from config.
type StaticSource struct {
	byVirtue map[string][]Challenge
}

func NewStaticSource(entries []Challenge) *StaticSource {
	s := &StaticSource{byVirtue: map[string][]Challenge{}}
	for _, c := range entries {
		s.byVirtue[c.Virtue] = append(s.byVirtue[c.Virtue], c)
	}
	return s
}

func (s *StaticSource) ChallengesByVirtue(_ context.Context, virtue string) ([]Challenge, error) {
	return append([]Challenge(nil), s.byVirtue[virtue]...), nil
}

var _ Source = (*StaticSource)(nil)
