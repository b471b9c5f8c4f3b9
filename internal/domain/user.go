// internal/domain/user.go
package domain

import "time"

// Role defines a user's role in the system.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User represents an account in the card system.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// NewUser creates a new active User instance with the USER role.
func NewUser(username, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         RoleUser,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Actor describes the identity performing a core operation. It replaces any
// ambient session lookup: every service method that needs authorization takes
// an explicit Actor.
type Actor struct {
	UserID     int64
	Username   string
	Privileged bool
}

// ActorFor builds the Actor descriptor for a user.
func ActorFor(u *User) Actor {
	return Actor{
		UserID:     u.ID,
		Username:   u.Username,
		Privileged: u.Role == RoleAdmin,
	}
}
