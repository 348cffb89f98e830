package domain

import "time"

// UserRole enumerates supported roles.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// UserPlan enumerates billing plans.
type UserPlan string

const (
	UserPlanFree    UserPlan = "free"
	UserPlanCreator UserPlan = "creator"
	UserPlanStudio  UserPlan = "studio"
)

// User represents an authenticated account within the platform.
type User struct {
	ID        string
	Email     string
	Name      string
	Locale    string
	Role      UserRole
	Plan      UserPlan
	Credits   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Unlimited reports whether the account bypasses credit metering entirely.
// Admin accounts never spend credits, regardless of the stored balance.
func (u User) Unlimited() bool {
	return u.Role == UserRoleAdmin
}

// IsFree reports whether the user is on the free plan.
func (u User) IsFree() bool {
	return u.Plan == UserPlanFree
}
