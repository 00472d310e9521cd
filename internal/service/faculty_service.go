package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/feedx-service/internal/domain"
	"github.com/spec-kit/feedx-service/internal/events"
	"github.com/spec-kit/feedx-service/internal/repository"
	"github.com/spec-kit/feedx-service/internal/validation"
	apperrors "github.com/spec-kit/feedx-service/pkg/util/errorutil"
)

var allowedTransitions = map[domain.IssueStatus][]domain.IssueStatus{
	domain.IssueStatusOpen:       {domain.IssueStatusInProgress, domain.IssueStatusResolved, domain.IssueStatusRejected},
	domain.IssueStatusSubmitted:  {domain.IssueStatusInProgress, domain.IssueStatusResolved, domain.IssueStatusRejected},
	domain.IssueStatusInProgress: {domain.IssueStatusResolved, domain.IssueStatusRejected},
	domain.IssueStatusResolved:   {},
	domain.IssueStatusRejected:   {},
}

func isValidTransition(current, next domain.IssueStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// FacultyService lets faculty and admins review issues and respond to them.
type FacultyService struct {
	issues     repository.IssueRepository
	users      repository.UserRepository
	validate   *validation.Validator
	dispatcher events.Dispatcher
	logger     *zap.Logger
	clock      Clock
}

// FacultyDependencies bundles collaborators for the faculty service.
type FacultyDependencies struct {
	IssueRepo  repository.IssueRepository
	UserRepo   repository.UserRepository
	Validator  *validation.Validator
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      Clock
}

// NewFacultyService constructs the service.
func NewFacultyService(deps FacultyDependencies) *FacultyService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := deps.Validator
	if validate == nil {
		validate = validation.New()
	}
	return &FacultyService{
		issues:     deps.IssueRepo,
		users:      deps.UserRepo,
		validate:   validate,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		clock:      deps.Clock,
	}
}

// FacultyFilter narrows the faculty issue list.
type FacultyFilter struct {
	Status    *domain.IssueStatus
	Escalated *bool
	Type      *domain.IssueType
	Limit     int
	Offset    int
}

// Submitter is the visible identity of whoever filed an issue.
type Submitter struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department,omitempty"`
}

// ReviewedIssue is an issue as faculty see it. Submitter is nil for
// anonymous issues.
type ReviewedIssue struct {
	Issue     *domain.Issue
	Submitter *Submitter
}

// ListIssues returns issues newest first.
func (s *FacultyService) ListIssues(ctx context.Context, session domain.Session, filter FacultyFilter) ([]ReviewedIssue, error) {
	if !session.IsStaff() {
		return nil, apperrors.NewForbidden("faculty role required")
	}
	repoFilter := repository.IssueFilter{
		Escalated: filter.Escalated,
		Type:      filter.Type,
		Order:     repository.OrderCreatedDesc,
		Limit:     filter.Limit,
		Offset:    filter.Offset,
	}
	if filter.Status != nil {
		repoFilter.Statuses = []domain.IssueStatus{*filter.Status}
	}
	issues, err := s.issues.List(ctx, repoFilter)
	if err != nil {
		return nil, storeError(err, "issue")
	}

	submitters := make(map[string]*Submitter)
	reviewed := make([]ReviewedIssue, 0, len(issues))
	for i := range issues {
		issue := &issues[i]
		item := ReviewedIssue{Issue: issue}
		if !issue.Anonymous {
			item.Submitter = s.lookupSubmitter(ctx, issue.UserID, submitters)
		}
		reviewed = append(reviewed, item)
	}
	return reviewed, nil
}

func (s *FacultyService) lookupSubmitter(ctx context.Context, userID string, cache map[string]*Submitter) *Submitter {
	if sub, ok := cache[userID]; ok {
		return sub
	}
	var sub *Submitter
	user, err := s.users.GetByID(ctx, userID)
	switch {
	case err == nil:
		sub = &Submitter{ID: user.ID, Name: user.Name, Email: user.Email, Department: user.Department}
	case !errors.Is(err, repository.ErrNotFound):
		s.logger.Warn("submitter lookup failed", zap.String("user_id", userID), zap.Error(err))
	}
	cache[userID] = sub
	return sub
}

// RespondInput is a faculty reply with an optional status change.
type RespondInput struct {
	Message string             `json:"message" validate:"notblank"`
	Status  domain.IssueStatus `json:"status" validate:"omitempty,oneof=open submitted in_progress resolved rejected"`
}

// Respond records a reply and, when Status differs from the current one,
// moves the issue along the status machine.
func (s *FacultyService) Respond(ctx context.Context, session domain.Session, issueID string, input RespondInput) (*domain.Issue, error) {
	if !session.IsStaff() {
		return nil, apperrors.NewForbidden("faculty role required")
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}

	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		return nil, storeError(err, "issue")
	}

	next := input.Status
	if next == "" {
		next = issue.Status
	}
	if next != issue.Status && !isValidTransition(issue.Status, next) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": issue.Status,
			"to":   next,
		})
	}

	now := s.clock.now()
	message := strings.TrimSpace(input.Message)
	change := repository.StatusChange{
		From:    issue.Status,
		To:      next,
		Message: &message,
		At:      now,
	}
	if next == domain.IssueStatusResolved && issue.Status != domain.IssueStatusResolved {
		change.ResolvedAt = &now
	}
	if err := s.issues.UpdateStatus(ctx, issue.ID, change); err != nil {
		return nil, storeError(err, "issue")
	}

	updated, err := s.issues.GetByID(ctx, issue.ID)
	if err != nil {
		return nil, storeError(err, "issue")
	}

	if next != issue.Status {
		publishEvent(ctx, s.dispatcher, s.clock, events.Event{
			Type:    events.EventIssueStatusChanged,
			IssueID: issue.ID,
			Actor:   sessionActor(session),
			Payload: events.IssueStatusChangedPayload{
				OldStatus: issue.Status,
				NewStatus: next,
				Message:   message,
			},
		})
	}
	return updated, nil
}
