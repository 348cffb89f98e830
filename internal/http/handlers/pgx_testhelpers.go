package handlers

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"storyreel-server/internal/domain"
)

// SimpleRow adapts a scan func to pgx.Row for handler tests.
type SimpleRow struct {
	scan func(dest ...any) error
}

func NewSimpleRow(scanner func(dest ...any) error) SimpleRow {
	return SimpleRow{scan: scanner}
}

func (r SimpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

// stubSQL answers the account queries handlers issue, keyed off recognizable
// SQL fragments the way the inline statements are written.
type stubSQL struct {
	mu       sync.Mutex
	users    map[string]domain.User
	spends   map[string][3]int
	grantErr error
}

func newStubSQL() *stubSQL {
	return &stubSQL{users: map[string]domain.User{}, spends: map[string][3]int{}}
}

func (s *stubSQL) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (s *stubSQL) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (s *stubSQL) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case strings.Contains(query, "from users"):
		id, _ := args[0].(string)
		u, ok := s.users[id]
		if !ok {
			return SimpleRow{}
		}
		return NewSimpleRow(func(dest ...any) error {
			*dest[0].(*string) = u.ID
			*dest[1].(*string) = u.Email
			*dest[2].(*string) = u.Name
			*dest[3].(*string) = u.Locale
			*dest[4].(*domain.UserRole) = u.Role
			*dest[5].(*domain.UserPlan) = u.Plan
			*dest[6].(*int) = u.Credits
			*dest[7].(*time.Time) = u.CreatedAt
			*dest[8].(*time.Time) = u.UpdatedAt
			return nil
		})
	case strings.Contains(query, "set credits = credits +") && strings.Contains(query, "or email"):
		if s.grantErr != nil {
			return NewSimpleRow(func(...any) error { return s.grantErr })
		}
		id, _ := args[0].(string)
		amount, _ := args[1].(int)
		u, ok := s.users[id]
		if !ok {
			return SimpleRow{}
		}
		u.Credits += amount
		s.users[id] = u
		return NewSimpleRow(func(dest ...any) error {
			*dest[0].(*string) = u.ID
			*dest[1].(*string) = u.Email
			*dest[2].(*string) = string(u.Plan)
			*dest[3].(*int) = u.Credits
			return nil
		})
	case strings.Contains(query, "from spend_events"):
		id, _ := args[0].(string)
		totals := s.spends[id]
		return NewSimpleRow(func(dest ...any) error {
			*dest[0].(*int) = totals[0]
			*dest[1].(*int) = totals[1]
			*dest[2].(*int) = totals[2]
			return nil
		})
	}
	return SimpleRow{}
}
