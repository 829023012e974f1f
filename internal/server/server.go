package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/brk3/routines/internal/challenge"
	"github.com/brk3/routines/internal/config"
	"github.com/brk3/routines/internal/record"
	"github.com/brk3/routines/internal/storage"
	"github.com/brk3/routines/internal/tracker"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	cfg           *config.Config
	store         storage.Store
	records       *record.Client
	challenges    challenge.Source
	authProviders map[string]*AuthProvider
	sessionCookie *securecookie.SecureCookie

	trackerMu sync.Mutex
	trackers  map[string]*tracker.Tracker
}

func New(cfg *config.Config, store storage.Store) (*Server, error) {
	s := &Server{
		cfg:        cfg,
		store:      store,
		records:    record.New(store, record.StaticIdentity(""), record.AlwaysOnline{}),
		challenges: challenge.NewStaticSource(configChallenges(cfg)),
		trackers:   map[string]*tracker.Tracker{},
	}

	if cfg.AuthEnabled {
		providers, cookie, err := ConfigureOIDCProviders(cfg)
		if err != nil {
			return nil, fmt.Errorf("configure auth: %w", err)
		}
		s.authProviders = providers
		s.sessionCookie = cookie
	}

	return s, nil
}

func configChallenges(cfg *config.Config) []challenge.Challenge {
	out := make([]challenge.Challenge, 0, len(cfg.Challenges))
	for _, c := range cfg.Challenges {
		out = append(out, challenge.Challenge{Virtue: c.Virtue, Order: c.Order, Text: c.Text})
	}
	return out
}

// trackerFor returns the user's completion state machine, creating it on
// first use. Sessions persist across requests for the lifetime of the
// server.
func (s *Server) trackerFor(userID string) *tracker.Tracker {
	s.trackerMu.Lock()
	defer s.trackerMu.Unlock()
	t, ok := s.trackers[userID]
	if !ok {
		t = tracker.New(s.records.ForUser(userID))
		s.trackers[userID] = t
	}
	return t
}

// recordsFor returns a record client bound to the user.
func (s *Server) recordsFor(userID string) *record.Client {
	return s.records.ForUser(userID)
}

// Close tears down every user's tracker, cancelling live timers.
func (s *Server) Close() {
	s.trackerMu.Lock()
	defer s.trackerMu.Unlock()
	for _, t := range s.trackers {
		t.Close()
	}
	s.trackers = map[string]*tracker.Tracker{}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/version", s.getVersionInfo)

	if s.cfg.AuthEnabled {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", s.simpleLogin)
			r.Get("/login/{id}", s.login)
			r.Get("/callback/{id}", s.callback)
			r.Post("/logout", s.logout)
			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Post("/api_keys", s.generateAPIKey)
				r.Get("/api_keys", s.listAPIKeys)
				r.Delete("/api_keys/{hash}", s.deleteAPIKey)
			})
		})
	}

	r.Group(func(r chi.Router) {
		if s.cfg.AuthEnabled {
			r.Use(s.authMiddleware)
			r.Use(s.userAwareMetricsMiddleware)
		}

		r.Route("/habits", func(r chi.Router) {
			r.Post("/", s.createHabit)
			r.Get("/", s.listHabits)
			r.Get("/{habit_id}", s.getHabit)
			r.Patch("/{habit_id}", s.patchHabit)
			r.Delete("/{habit_id}", s.deleteHabit)
			r.Post("/{habit_id}/start", s.startHabit)
			r.Post("/{habit_id}/complete", s.completeHabit)
			r.Post("/{habit_id}/excuse", s.excuseHabit)
			r.Post("/{habit_id}/restart", s.restartHabit)
			r.Post("/{habit_id}/cancel", s.cancelHabit)
		})

		r.Route("/routines", func(r chi.Router) {
			r.Post("/", s.createRoutine)
			r.Get("/", s.listRoutines)
			r.Get("/{routine_id}", s.getRoutine)
			r.Patch("/{routine_id}", s.patchRoutine)
			r.Post("/{routine_id}/start", s.startRoutine)
			r.Post("/{routine_id}/advance", s.advanceRoutine)
			r.Post("/{routine_id}/end", s.endRoutine)
			r.Get("/{routine_id}/composition", s.routineComposition)
		})

		r.Get("/days/{date}", s.getDay)
		r.Get("/days/{date}/progress", s.getDayProgress)
		r.Get("/progress", s.getRangeProgress)
		r.Get("/challenge", s.getChallenge)
	})

	return r
}
