// internal/service/auth_service.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"cardvault/internal/domain"
	"cardvault/internal/repository"
	"cardvault/internal/util"
)

// Claims is the JWT claims structure carried by access tokens.
type Claims struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthService handles registration, login and token validation.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	ResolveActor(ctx context.Context, tokenString string) (domain.Actor, error)
}

type authService struct {
	dbExecutor repository.DBExecutor
	userRepo   repository.UserRepository
	jwtSecret  []byte
	tokenTTL   time.Duration
	logger     *slog.Logger
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(dbExecutor repository.DBExecutor, userRepo repository.UserRepository, jwtSecret []byte, tokenTTL time.Duration, logger *slog.Logger) AuthService {
	return &authService{
		dbExecutor: dbExecutor,
		userRepo:   userRepo,
		jwtSecret:  jwtSecret,
		tokenTTL:   tokenTTL,
		logger:     logger,
	}
}

// Register creates a new user with a bcrypt-hashed password.
func (s *authService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := domain.NewUser(username, email, string(hashedPassword))
	if err := s.userRepo.CreateUser(ctx, s.dbExecutor, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "username", username)
	return user, nil
}

// Login authenticates a user and returns a signed JWT. Lookup and password
// failures are indistinguishable to the caller.
func (s *authService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, s.dbExecutor, username)
	if err != nil {
		return "", util.ErrInvalidCredentials
	}
	if !user.Active {
		return "", util.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", util.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	claims := Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	s.logger.Info("user logged in", "username", username)
	return tokenString, nil
}

// ResolveActor validates a token and resolves the acting identity against
// the user directory, so a deactivated or deleted user cannot keep acting on
// an old token.
func (s *authService) ResolveActor(ctx context.Context, tokenString string) (domain.Actor, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return domain.Actor{}, util.ErrUnauthorized
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return domain.Actor{}, util.ErrUnauthorized
	}

	user, err := s.userRepo.GetUserByUsername(ctx, s.dbExecutor, claims.Username)
	if err != nil || !user.Active {
		return domain.Actor{}, util.ErrUnauthorized
	}

	return domain.ActorFor(user), nil
}
