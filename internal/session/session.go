package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"storyreel-server/internal/credits"
	"storyreel-server/internal/domain"
	"storyreel-server/internal/jobs"
	"storyreel-server/internal/providers/image"
	"storyreel-server/internal/providers/video"
	"storyreel-server/internal/render"
)

// ErrBusy is returned when a storyboard switch is attempted while generation
// jobs are still outstanding; their results belong to the previous board.
var ErrBusy = errors.New("outstanding jobs must resolve before switching storyboards")

// UpgradeEvent records an unaffordable paid step so the presentation layer
// can surface an upgrade prompt on its next poll.
type UpgradeEvent struct {
	Scene  int
	Needed int
	At     time.Time
}

// Session owns one authenticated user's in-process state: the balance store
// seeded from the profile fetch, the outstanding-job registry, the poller
// goroutine sweeping it, and the currently open storyboard. A session is the
// single owner of its balance; nothing else mutates it.
type Session struct {
	user     domain.User
	store    *credits.Store
	registry *jobs.Registry
	poller   *jobs.Poller
	cancel   context.CancelFunc
	logger   zerolog.Logger

	images        image.Generator
	videos        video.Submitter
	imageModel    string
	videoModel    string
	stopOnNoFunds bool
	region        string

	mu       sync.Mutex
	orch     *render.Orchestrator
	upgrades []UpgradeEvent
}

// User returns the profile the session was established from. The Credits
// field reflects the balance at establishment; Balance() is live.
func (s *Session) User() domain.User {
	return s.user
}

// Balance returns the live local balance.
func (s *Session) Balance() int {
	return s.store.Balance()
}

// Store exposes the balance store for credit purchases and refreshes.
func (s *Session) Store() *credits.Store {
	return s.store
}

// Registry exposes the outstanding-job set, mainly for introspection.
func (s *Session) Registry() *jobs.Registry {
	return s.registry
}

// OpenStoryboard installs sb as the session's active storyboard and returns
// the orchestrator rendering it. Fails with ErrBusy while jobs registered
// against the previous board are still outstanding.
func (s *Session) OpenStoryboard(sb domain.Storyboard, multiplier float64) (*render.Orchestrator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registry.Len() > 0 {
		return nil, ErrBusy
	}
	board := render.NewBoard(sb)
	s.orch = render.NewOrchestrator(render.Config{
		Board:         board,
		Balance:       s.store,
		Registry:      s.registry,
		Images:        s.images,
		Videos:        s.videos,
		OnUpgrade:     s.recordUpgrade,
		Logger:        s.logger,
		ImageModel:    s.imageModel,
		VideoModel:    s.videoModel,
		Multiplier:    multiplier,
		StopOnNoFunds: s.stopOnNoFunds,
		Region:        s.region,
	})
	return s.orch, nil
}

// Orchestrator returns the active storyboard's orchestrator, if any.
func (s *Session) Orchestrator() (*render.Orchestrator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orch == nil {
		return nil, false
	}
	return s.orch, true
}

// TakeUpgrades drains the pending upgrade events.
func (s *Session) TakeUpgrades() []UpgradeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.upgrades
	s.upgrades = nil
	return out
}

func (s *Session) recordUpgrade(scene, needed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upgrades = append(s.upgrades, UpgradeEvent{Scene: scene, Needed: needed, At: time.Now()})
}

// applyResolved forwards a terminal job to whichever board is open. A job
// whose board was already replaced is dropped; the registry entry is gone
// either way, so the spend stands and nothing retries.
func (s *Session) applyResolved(job domain.Job) {
	s.mu.Lock()
	orch := s.orch
	s.mu.Unlock()
	if orch == nil {
		s.logger.Warn().Int("scene", job.Scene).Str("state", string(job.State)).Msg("session: resolved job has no open storyboard")
		return
	}
	orch.Board().ApplyJob(job)
}

// close stops the poller goroutine. Outstanding jobs are abandoned; the
// remote provider finishes them unobserved.
func (s *Session) close() {
	if s.cancel != nil {
		s.cancel()
	}
}
