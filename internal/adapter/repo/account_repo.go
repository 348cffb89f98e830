package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"storyreel-server/internal/domain"
	"storyreel-server/internal/infra"
	"storyreel-server/internal/sqlinline"
)

// AccountRepositoryPG reads and mutates user accounts in PostgreSQL. All
// statements go through the marker-tagged SQL runner so failures can be
// correlated with logs.
type AccountRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewAccountRepository(sql infra.SQLExecutor) *AccountRepositoryPG {
	return &AccountRepositoryPG{sql: sql}
}

// GetProfile fetches the account a session is being established for.
func (r *AccountRepositoryPG) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectUserProfile, userID)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Locale, &u.Role, &u.Plan, &u.Credits, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GrantSummary echoes the account state after an administrative mutation.
type GrantSummary struct {
	ID      string
	Email   string
	Plan    string
	Credits int
}

// GrantCredits adds amount to the account matched by id or email.
func (r *AccountRepositoryPG) GrantCredits(ctx context.Context, userID, email string, amount int) (*GrantSummary, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QGrantUserCredits, userID, amount, email)
	var g GrantSummary
	if err := row.Scan(&g.ID, &g.Email, &g.Plan, &g.Credits); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// RoleSummary echoes the account state after a role change.
type RoleSummary struct {
	ID      string
	Email   string
	Role    string
	Credits int
}

// SetRole changes the role of the account matched by id or email.
func (r *AccountRepositoryPG) SetRole(ctx context.Context, userID, email string, role domain.UserRole) (*RoleSummary, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSetUserRole, userID, string(role), email)
	var s RoleSummary
	if err := row.Scan(&s.ID, &s.Email, &s.Role, &s.Credits); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// SpendSummary aggregates ledger activity for a user.
type SpendSummary struct {
	SpentTotal int
	Spent24h   int
	Events24h  int
}

// GetSpendSummary reports lifetime and trailing-24h spend for the user.
func (r *AccountRepositoryPG) GetSpendSummary(ctx context.Context, userID string) (*SpendSummary, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSpendSummary, userID)
	var s SpendSummary
	if err := row.Scan(&s.SpentTotal, &s.Spent24h, &s.Events24h); err != nil {
		return nil, err
	}
	return &s, nil
}
