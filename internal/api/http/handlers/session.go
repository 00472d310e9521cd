package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedx-service/internal/auth"
	"github.com/spec-kit/feedx-service/internal/domain"
	apperrors "github.com/spec-kit/feedx-service/pkg/util/errorutil"
)

func currentSession(c *fiber.Ctx) (domain.Session, error) {
	session, ok := auth.SessionFromContext(c)
	if !ok || session == nil {
		return domain.Session{}, apperrors.NewUnauthorized("authentication required")
	}
	return *session, nil
}
