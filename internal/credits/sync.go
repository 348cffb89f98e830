package credits

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"storyreel-server/internal/domain"
	"storyreel-server/internal/infra"
	"storyreel-server/internal/sqlinline"
	"storyreel-server/internal/telemetry"
)

const defaultSyncTimeout = 10 * time.Second

// LedgerSync reconciles local balance mutations against the remote ledger.
// The primary path is a server-side atomic adjustment; when that fails the
// already-locally-computed balance is written directly. The overwrite is
// racy against other sessions for the same account and accepted as such.
// Failures are logged, never surfaced, and never reverse the local mutation.
type LedgerSync struct {
	sql     infra.SQLExecutor
	userID  string
	timeout time.Duration
	logger  zerolog.Logger
}

func NewLedgerSync(sql infra.SQLExecutor, userID string, logger zerolog.Logger) *LedgerSync {
	return &LedgerSync{
		sql:     sql,
		userID:  userID,
		timeout: defaultSyncTimeout,
		logger:  logger.With().Str("user_id", userID).Logger(),
	}
}

// Apply persists a single delta. Called on its own goroutine by the Store.
func (l *LedgerSync) Apply(delta int, balance int, rec *domain.SpendRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	var remote int
	row := l.sql.QueryRow(ctx, sqlinline.QAdjustUserCredits, l.userID, delta)
	if err := row.Scan(&remote); err != nil {
		l.logger.Warn().Err(err).Int("delta", delta).Msg("credits: atomic ledger adjust failed, falling back to overwrite")
		row = l.sql.QueryRow(ctx, sqlinline.QOverwriteUserCredits, l.userID, balance)
		if err := row.Scan(&remote); err != nil {
			telemetry.LedgerSyncFail.Inc()
			l.logger.Error().Err(err).Int("balance", balance).Msg("credits: ledger overwrite failed, local balance remains provisional")
			return
		}
	}

	if rec != nil {
		l.recordSpend(ctx, rec)
	}
}

// recordSpend writes the advisory audit row. Best-effort only.
func (l *LedgerSync) recordSpend(ctx context.Context, rec *domain.SpendRecord) {
	_, err := l.sql.Exec(ctx, sqlinline.QInsertSpendEvent,
		uuid.NewString(),
		l.userID,
		rec.Amount,
		rec.Model,
		rec.BaseCost,
		rec.Multiplier,
		rec.Scene,
		rec.Region,
	)
	if err != nil {
		l.logger.Warn().Err(err).Str("model", rec.Model).Msg("credits: spend event insert failed")
	}
}

var _ Syncer = (*LedgerSync)(nil)
