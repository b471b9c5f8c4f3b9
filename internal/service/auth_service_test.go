// internal/service/auth_service_test.go
package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"cardvault/internal/domain"
	"cardvault/internal/util"
)

const testJWTSecret = "unit-test-jwt-secret-unit-test-jwt-secret"

func newAuthFixture() (*MockUserRepository, *MockDBExecutor, AuthService) {
	userRepo := new(MockUserRepository)
	dbExecutor := new(MockDBExecutor)
	service := NewAuthService(dbExecutor, userRepo, []byte(testJWTSecret), time.Hour, util.GetLogger())
	return userRepo, dbExecutor, service
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestLogin(t *testing.T) {
	t.Run("SuccessfulLogin", func(t *testing.T) {
		ctx := context.Background()
		userRepo, _, service := newAuthFixture()

		user := &domain.User{
			ID:           1,
			Username:     "alice",
			PasswordHash: hashPassword(t, "secret-password"),
			Role:         domain.RoleUser,
			Active:       true,
		}
		userRepo.On("GetUserByUsername", ctx, mock.Anything, "alice").Return(user, nil).Once()

		token, err := service.Login(ctx, "alice", "secret-password")

		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		mock.AssertExpectationsForObjects(t, userRepo)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		ctx := context.Background()
		userRepo, _, service := newAuthFixture()

		user := &domain.User{
			ID:           1,
			Username:     "alice",
			PasswordHash: hashPassword(t, "secret-password"),
			Active:       true,
		}
		userRepo.On("GetUserByUsername", ctx, mock.Anything, "alice").Return(user, nil).Once()

		token, err := service.Login(ctx, "alice", "wrong")

		assert.ErrorIs(t, err, util.ErrInvalidCredentials)
		assert.Empty(t, token)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		ctx := context.Background()
		userRepo, _, service := newAuthFixture()

		userRepo.On("GetUserByUsername", ctx, mock.Anything, "ghost").Return(nil, util.ErrUserNotFound).Once()

		token, err := service.Login(ctx, "ghost", "whatever")

		// Same error as a wrong password, no user enumeration.
		assert.ErrorIs(t, err, util.ErrInvalidCredentials)
		assert.Empty(t, token)
	})

	t.Run("InactiveUser", func(t *testing.T) {
		ctx := context.Background()
		userRepo, _, service := newAuthFixture()

		user := &domain.User{
			ID:           1,
			Username:     "alice",
			PasswordHash: hashPassword(t, "secret-password"),
			Active:       false,
		}
		userRepo.On("GetUserByUsername", ctx, mock.Anything, "alice").Return(user, nil).Once()

		token, err := service.Login(ctx, "alice", "secret-password")

		assert.ErrorIs(t, err, util.ErrInvalidCredentials)
		assert.Empty(t, token)
	})
}

func TestResolveActor(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		ctx := context.Background()
		userRepo, _, service := newAuthFixture()

		user := &domain.User{
			ID:           1,
			Username:     "alice",
			PasswordHash: hashPassword(t, "secret-password"),
			Role:         domain.RoleAdmin,
			Active:       true,
		}
		userRepo.On("GetUserByUsername", ctx, mock.Anything, "alice").Return(user, nil)

		token, err := service.Login(ctx, "alice", "secret-password")
		require.NoError(t, err)

		actor, err := service.ResolveActor(ctx, token)

		assert.NoError(t, err)
		assert.Equal(t, int64(1), actor.UserID)
		assert.Equal(t, "alice", actor.Username)
		assert.True(t, actor.Privileged)
	})

	t.Run("GarbageToken", func(t *testing.T) {
		ctx := context.Background()
		userRepo, _, service := newAuthFixture()

		_, err := service.ResolveActor(ctx, "not-a-token")

		assert.ErrorIs(t, err, util.ErrUnauthorized)
		userRepo.AssertNotCalled(t, "GetUserByUsername", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("DeactivatedAfterIssuance", func(t *testing.T) {
		ctx := context.Background()
		userRepo, _, service := newAuthFixture()

		active := &domain.User{
			ID:           1,
			Username:     "alice",
			PasswordHash: hashPassword(t, "secret-password"),
			Role:         domain.RoleUser,
			Active:       true,
		}
		userRepo.On("GetUserByUsername", ctx, mock.Anything, "alice").Return(active, nil).Once()

		token, err := service.Login(ctx, "alice", "secret-password")
		require.NoError(t, err)

		deactivated := *active
		deactivated.Active = false
		userRepo.On("GetUserByUsername", ctx, mock.Anything, "alice").Return(&deactivated, nil).Once()

		_, err = service.ResolveActor(ctx, token)

		assert.ErrorIs(t, err, util.ErrUnauthorized)
	})
}
