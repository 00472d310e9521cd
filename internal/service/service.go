package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/feedx-service/internal/domain"
	"github.com/spec-kit/feedx-service/internal/events"
	"github.com/spec-kit/feedx-service/internal/repository"
	apperrors "github.com/spec-kit/feedx-service/pkg/util/errorutil"
)

// Clock returns the current time. Services take one so time-gated behavior can
// be tested without sleeping.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

func requireSession(session domain.Session) error {
	if session.UserID == "" {
		return apperrors.NewUnauthorized("authentication required")
	}
	return nil
}

// storeError maps repository sentinels onto DomainErrors. Anything else is a
// persistence failure whose message reaches the caller unchanged.
func storeError(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrConflict):
		return apperrors.NewConflict(resource+" was modified concurrently", nil)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", nil)
	default:
		return apperrors.NewPersistenceError(err)
	}
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, clock Clock, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = clock.now()
	}
	_ = dispatcher.Publish(ctx, event)
}

func sessionActor(session domain.Session) events.Actor {
	return events.Actor{UserID: session.UserID, Role: session.Role}
}
