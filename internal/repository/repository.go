package repository

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/feedx-service/internal/domain"
)

var (
	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a guarded update matched no row because the
	// record is no longer in the expected state.
	ErrConflict = errors.New("record changed concurrently")
	// ErrDuplicate is returned on unique constraint violations.
	ErrDuplicate = errors.New("record already exists")
)

// IssueOrder selects the sort order of issue listings.
type IssueOrder int

const (
	OrderCreatedDesc IssueOrder = iota
	OrderResolvedDesc
)

// IssueFilter captures listing parameters. Zero Limit means no limit.
type IssueFilter struct {
	UserID    *string
	Statuses  []domain.IssueStatus
	Escalated *bool
	Type      *domain.IssueType
	Order     IssueOrder
	Limit     int
	Offset    int
}

// EscalationRecord is written atomically when an issue is escalated.
type EscalationRecord struct {
	Reason      string
	EscalatedTo string
	At          time.Time
}

// StatusChange moves an issue from one status to another. The update only applies
// while the persisted status still equals From.
type StatusChange struct {
	From       domain.IssueStatus
	To         domain.IssueStatus
	Message    *string
	ResolvedAt *time.Time
	At         time.Time
}

// IssueRepository encapsulates issue persistence.
type IssueRepository interface {
	// Create inserts the issue and fills ID, Status, CreatedAt and UpdatedAt
	// from the store.
	Create(ctx context.Context, issue *domain.Issue) error
	GetByID(ctx context.Context, id string) (*domain.Issue, error)
	ListByUser(ctx context.Context, userID string, statuses []domain.IssueStatus) ([]domain.Issue, error)
	List(ctx context.Context, filter IssueFilter) ([]domain.Issue, error)
	// Escalate flips escalated to true only when it is still false and the
	// status is active; otherwise it returns ErrConflict.
	Escalate(ctx context.Context, id string, record EscalationRecord) error
	UpdateStatus(ctx context.Context, id string, change StatusChange) error
}

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

func activeStatusArgs() []any {
	args := make([]any, 0, len(domain.ActiveStatuses))
	for _, s := range domain.ActiveStatuses {
		args = append(args, string(s))
	}
	return args
}
