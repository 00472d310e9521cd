package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/feedx-service/internal/config"
	"github.com/spec-kit/feedx-service/internal/domain"
	"github.com/spec-kit/feedx-service/internal/persistence"
	"github.com/spec-kit/feedx-service/internal/repository"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	users := repository.NewSQLiteUserRepository(persistence.NewTestSQLite(t))
	return NewAuthService(
		config.AuthConfig{JWTSecret: "secret", AccessTokenTTLMinutes: 5, BcryptCost: bcrypt.MinCost},
		AuthDependencies{UserRepo: users},
	)
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, NewAccount{
		Name:     "Meera",
		Email:    "  Meera@Example.edu ",
		Password: "correct-horse",
		Role:     domain.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStudent, registered.User.Role, "self-registration is always a student")
	assert.Equal(t, "meera@example.edu", registered.User.Email)
	assert.NotEmpty(t, registered.Token)

	claims, err := svc.TokenManager().ParseToken(registered.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, claims.Subject)

	loggedIn, err := svc.Login(ctx, "meera@example.edu", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)

	_, err = svc.Login(ctx, "meera@example.edu", "wrong-password")
	code, _ := domainCode(t, err)
	assert.Equal(t, "UNAUTHORIZED", code)

	_, err = svc.Login(ctx, "nobody@example.edu", "whatever1")
	code, _ = domainCode(t, err)
	assert.Equal(t, "UNAUTHORIZED", code)

	_, err = svc.Register(ctx, NewAccount{Name: "Again", Email: "meera@example.edu", Password: "another-pass"})
	code, _ = domainCode(t, err)
	assert.Equal(t, "CONFLICT", code)
}

func TestAuthService_CreateUserAndReset(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, NewAccount{Name: "Dr. Rao", Email: "rao@example.edu", Password: "initial-pass", Role: domain.RoleFaculty})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleFaculty, user.Role)

	_, err = svc.CreateUser(ctx, NewAccount{Name: "x", Email: "not-an-email", Password: "short", Role: "dean"})
	code, _ := domainCode(t, err)
	assert.Equal(t, "VALIDATION_FAILED", code)

	require.NoError(t, svc.ResetPassword(ctx, "rao@example.edu", "brand-new-pass"))
	_, err = svc.Login(ctx, "rao@example.edu", "initial-pass")
	assert.Error(t, err)
	_, err = svc.Login(ctx, "rao@example.edu", "brand-new-pass")
	assert.NoError(t, err)

	err = svc.ResetPassword(ctx, "rao@example.edu", "short")
	code, _ = domainCode(t, err)
	assert.Equal(t, "VALIDATION_FAILED", code)

	err = svc.ResetPassword(ctx, "ghost@example.edu", "long-enough-pass")
	code, _ = domainCode(t, err)
	assert.Equal(t, "NOT_FOUND", code)
}
