// internal/service/user_service.go
package service

import (
	"context"
	"log/slog"

	"cardvault/internal/domain"
	"cardvault/internal/repository"
)

// UserService handles account administration around the ledger: profile
// lookup plus admin-only listing, deactivation and deletion.
type UserService interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]domain.User, int64, error)
	SetActive(ctx context.Context, id int64, active bool) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
}

type userService struct {
	dbExecutor repository.DBExecutor
	userRepo   repository.UserRepository
	logger     *slog.Logger
}

// NewUserService creates a new instance of UserService.
func NewUserService(dbExecutor repository.DBExecutor, userRepo repository.UserRepository, logger *slog.Logger) UserService {
	return &userService{dbExecutor: dbExecutor, userRepo: userRepo, logger: logger}
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.userRepo.GetUserByID(ctx, s.dbExecutor, id)
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.userRepo.GetUserByUsername(ctx, s.dbExecutor, username)
}

func (s *userService) List(ctx context.Context, limit, offset int) ([]domain.User, int64, error) {
	return s.userRepo.ListUsers(ctx, s.dbExecutor, limit, offset)
}

func (s *userService) SetActive(ctx context.Context, id int64, active bool) (*domain.User, error) {
	if err := s.userRepo.SetActive(ctx, s.dbExecutor, id, active); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetUserByID(ctx, s.dbExecutor, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user active flag updated", "user_id", id, "active", active)
	return user, nil
}

func (s *userService) Delete(ctx context.Context, id int64) error {
	if err := s.userRepo.DeleteUser(ctx, s.dbExecutor, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}
