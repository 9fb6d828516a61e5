package models

import "time"

type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Level orders roles: user < manager < admin. Unknown roles rank below user.
func (r Role) Level() int {
	switch r {
	case RoleUser:
		return 1
	case RoleManager:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

func (r Role) Valid() bool {
	return r.Level() > 0
}

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return r.Level() >= min.Level()
}

type User struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  []byte
	Role          Role
	IsActive      bool
	LoginAttempts int
	LockUntil     *time.Time
	LastLogin     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Locked reports whether the account is locked out at now.
func (u User) Locked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// UserPatch carries optional admin edits to a user.
type UserPatch struct {
	Name     *string
	Email    *string
	Role     *Role
	IsActive *bool
	Password *string
}

type UserFilter struct {
	Search   string
	Role     Role
	IsActive *bool
	Page     Page
}

type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash []byte
	IPAddress        string
	UserAgent        string
	CreatedAt        time.Time
	LastSeenAt       time.Time
	ExpiresAt        time.Time
}
