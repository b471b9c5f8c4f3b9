// internal/repository/user_repo.go
package repository

import (
	"context"

	"cardvault/internal/domain"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	// CreateUser adds a new user and fills in its generated ID.
	CreateUser(ctx context.Context, q DBExecutor, user *domain.User) error
	// GetUserByID retrieves a user by their ID.
	GetUserByID(ctx context.Context, q DBExecutor, id int64) (*domain.User, error)
	// GetUserByUsername retrieves a user by their username.
	GetUserByUsername(ctx context.Context, q DBExecutor, username string) (*domain.User, error)
	// ListUsers returns a paginated user list plus the total count.
	ListUsers(ctx context.Context, q DBExecutor, limit, offset int) ([]domain.User, int64, error)
	// SetActive toggles the user's active flag.
	SetActive(ctx context.Context, q DBExecutor, id int64, active bool) error
	// DeleteUser removes a user.
	DeleteUser(ctx context.Context, q DBExecutor, id int64) error
}
