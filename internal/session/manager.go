package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"storyreel-server/internal/credits"
	"storyreel-server/internal/domain"
	"storyreel-server/internal/infra"
	"storyreel-server/internal/jobs"
	"storyreel-server/internal/middleware"
	"storyreel-server/internal/providers/image"
	"storyreel-server/internal/providers/video"
)

// ProfileFetcher loads the account a session is established for.
type ProfileFetcher interface {
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
}

// VideoProvider combines submission and status polling; real and synthetic
// providers both satisfy it.
type VideoProvider interface {
	video.Submitter
	video.StatusClient
}

// Options configures the shared machinery every session is built from.
type Options struct {
	Profiles ProfileFetcher
	SQL      infra.SQLExecutor
	Images   image.Generator
	Videos   VideoProvider
	Logger   zerolog.Logger

	ImageModel   string
	VideoModel   string
	PollInterval time.Duration
	JobTimeout   time.Duration

	StopOnNoFunds bool
	// Region is the fallback spend-record annotation when the establishing
	// request's context carries no resolved country.
	Region string
}

// Manager establishes and tears down user sessions. One session per user;
// establishing again returns the existing one so a reconnect never spawns a
// second poller or a second balance owner for the same account.
type Manager struct {
	opts Options

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(opts Options) *Manager {
	if opts.PollInterval <= 0 {
		opts.PollInterval = jobs.DefaultPollInterval
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = jobs.DefaultJobTimeout
	}
	return &Manager{opts: opts, sessions: make(map[string]*Session)}
}

// Establish returns the user's session, creating it from a fresh profile
// fetch when none exists. The balance store is seeded once, at creation;
// later remote changes are only picked up through Refresh.
func (m *Manager) Establish(ctx context.Context, userID string) (*Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[userID]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	user, err := m.opts.Profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Lost the race against a concurrent Establish for the same user.
	if s, ok := m.sessions[userID]; ok {
		return s, nil
	}

	logger := m.opts.Logger.With().Str("user_id", user.ID).Logger()

	region := middleware.CountryFromContext(ctx)
	if region == "" {
		region = m.opts.Region
	}

	var syncer credits.Syncer
	if m.opts.SQL != nil {
		syncer = credits.NewLedgerSync(m.opts.SQL, user.ID, logger)
	}

	s := &Session{
		user:          *user,
		store:         credits.NewStore(user.Credits, user.Unlimited(), syncer, logger),
		registry:      jobs.NewRegistry(),
		logger:        logger,
		images:        m.opts.Images,
		videos:        m.opts.Videos,
		imageModel:    m.opts.ImageModel,
		videoModel:    m.opts.VideoModel,
		stopOnNoFunds: m.opts.StopOnNoFunds,
		region:        region,
	}
	s.poller = jobs.NewPoller(s.registry, m.opts.Videos, m.opts.PollInterval, m.opts.JobTimeout, s.applyResolved, logger)

	pollCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.poller.Run(pollCtx)

	m.sessions[user.ID] = s
	logger.Info().Int("credits", user.Credits).Bool("unlimited", user.Unlimited()).Msg("session: established")
	return s, nil
}

// Get returns an existing session without creating one.
func (m *Manager) Get(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// Refresh re-reads the remote profile and overrides the local balance. Used
// after out-of-band grants; any in-flight local spends since the read win.
func (m *Manager) Refresh(ctx context.Context, userID string) (*Session, error) {
	s, ok := m.Get(userID)
	if !ok {
		return m.Establish(ctx, userID)
	}
	user, err := m.opts.Profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.store.SetBalance(user.Credits)
	if user.Unlimited() {
		s.store.SetUnlimited()
	}
	return s, nil
}

// Close tears down the user's session, stopping its poller.
func (m *Manager) Close(userID string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()
	if ok {
		s.close()
		s.logger.Info().Msg("session: closed")
	}
}

// CloseAll tears down every session, for server shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.close()
	}
}
