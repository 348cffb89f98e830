package credits

import (
	"sync"

	"github.com/rs/zerolog"

	"storyreel-server/internal/domain"
	"storyreel-server/internal/telemetry"
)

// Syncer receives local balance mutations for best-effort remote
// reconciliation. Implementations must never block the caller's decision
// path; the Store invokes them on their own goroutine.
type Syncer interface {
	Apply(delta int, balance int, rec *domain.SpendRecord)
}

// Store holds the authoritative-for-this-process credit balance.
//
// CheckAndDeduct is the sole gate preventing overspend when several paid
// operations are issued back-to-back: the decrement happens under the lock,
// before any network call is started, so the second caller always observes
// the post-first-deduction balance. Remote persistence is decoupled and
// never rolls the local mutation back.
type Store struct {
	mu        sync.Mutex
	balance   int
	unlimited bool
	syncer    Syncer
	logger    zerolog.Logger
}

// NewStore seeds a store from the remote profile fetch performed at session
// establishment. syncer may be nil for accounts that are never persisted.
func NewStore(initial int, unlimited bool, syncer Syncer, logger zerolog.Logger) *Store {
	if initial < 0 {
		initial = 0
	}
	return &Store{balance: initial, unlimited: unlimited, syncer: syncer, logger: logger}
}

// CheckAndDeduct atomically verifies affordability and deducts amount.
// Unlimited accounts always succeed and record no deduction.
func (s *Store) CheckAndDeduct(amount int, rec *domain.SpendRecord) bool {
	if amount < 0 {
		return false
	}
	s.mu.Lock()
	if s.unlimited {
		s.mu.Unlock()
		return true
	}
	if s.balance < amount {
		s.mu.Unlock()
		telemetry.SpendRejected.Inc()
		s.logger.Debug().Int("amount", amount).Msg("credits: deduction rejected")
		return false
	}
	s.balance -= amount
	balance := s.balance
	s.mu.Unlock()

	telemetry.SpendAccepted.Inc()
	s.logger.Info().Int("amount", amount).Int("balance", balance).Msg("credits: deducted")
	if s.syncer != nil && amount > 0 {
		go s.syncer.Apply(-amount, balance, rec)
	}
	return true
}

// Credit increases the balance (purchase, upgrade, refund).
func (s *Store) Credit(amount int) {
	if amount <= 0 {
		return
	}
	s.mu.Lock()
	if s.unlimited {
		s.mu.Unlock()
		return
	}
	s.balance += amount
	balance := s.balance
	s.mu.Unlock()

	s.logger.Info().Int("amount", amount).Int("balance", balance).Msg("credits: credited")
	if s.syncer != nil {
		go s.syncer.Apply(amount, balance, nil)
	}
}

// SetBalance overrides the local balance, e.g. after a full profile refresh.
func (s *Store) SetBalance(n int) {
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	s.balance = n
	s.mu.Unlock()
}

// SetUnlimited marks the account as bypassing credit metering.
func (s *Store) SetUnlimited() {
	s.mu.Lock()
	s.unlimited = true
	s.mu.Unlock()
}

// Balance returns the current spendable balance.
func (s *Store) Balance() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// Unlimited reports whether metering is bypassed.
func (s *Store) Unlimited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlimited
}
