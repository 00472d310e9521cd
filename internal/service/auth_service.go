package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/feedx-service/internal/auth"
	"github.com/spec-kit/feedx-service/internal/config"
	"github.com/spec-kit/feedx-service/internal/domain"
	"github.com/spec-kit/feedx-service/internal/repository"
	"github.com/spec-kit/feedx-service/internal/validation"
	apperrors "github.com/spec-kit/feedx-service/pkg/util/errorutil"
)

// AuthService coordinates registration, login and account administration.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	validate   *validation.Validator
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo  repository.UserRepository
	Validator *validation.Validator
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	validate := deps.Validator
	if validate == nil {
		validate = validation.New()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		validate:   validate,
		bcryptCost: cfg.BcryptCost,
	}
}

// NewAccount describes an account to create.
type NewAccount struct {
	Name       string      `json:"name" validate:"notblank"`
	Email      string      `json:"email" validate:"required,email"`
	Password   string      `json:"password" validate:"required,min=8"`
	Role       domain.Role `json:"role" validate:"required,oneof=student faculty admin"`
	Department string      `json:"department"`
	Pin        string      `json:"pin"`
}

// AuthResult is a signed-in account with its bearer token.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// CreateUser creates an account with any role.
func (s *AuthService) CreateUser(ctx context.Context, input NewAccount) (*domain.User, error) {
	input.Email = normalizeEmail(input.Email)
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}

	hash, err := hashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
		Department:   strings.TrimSpace(input.Department),
		Pin:          strings.TrimSpace(input.Pin),
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": input.Email})
		}
		return nil, storeError(err, "user")
	}
	return user, nil
}

// Register creates a student account and signs it in.
func (s *AuthService) Register(ctx context.Context, input NewAccount) (*AuthResult, error) {
	input.Role = domain.RoleStudent
	user, err := s.CreateUser(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Login authenticates an account by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, storeError(err, "user")
	}
	if !auth.PasswordMatches(user.PasswordHash, password) {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if user.Status != domain.UserStatusActive {
		return nil, apperrors.NewForbidden("account suspended")
	}
	return s.issue(user)
}

// ResetPassword replaces the password of the account with email.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return storeError(err, "user")
	}
	hash, err := hashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return storeError(s.users.Update(ctx, user), "user")
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func hashPassword(password string, cost int) (string, error) {
	hash, err := auth.HashPassword(password, cost)
	switch {
	case errors.Is(err, auth.ErrPasswordTooShort):
		return "", apperrors.NewValidationError("invalid payload", map[string]any{"password": err.Error()})
	case err != nil:
		return "", apperrors.NewInternalError(err)
	}
	return hash, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
