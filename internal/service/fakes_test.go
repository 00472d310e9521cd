package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/feedx-service/internal/domain"
	"github.com/spec-kit/feedx-service/internal/repository"
	"github.com/spec-kit/feedx-service/internal/storage"
)

type escalateCall struct {
	IssueID string
	Record  repository.EscalationRecord
}

// memIssues is an in-memory IssueRepository that records calls.
type memIssues struct {
	mu            sync.Mutex
	items         map[string]*domain.Issue
	seq           int
	createErr     error
	escalateErr   error
	escalateCalls []escalateCall
	now           func() time.Time

	// getErr is returned by GetByID once getCalls exceeds failGetAfter.
	getErr       error
	failGetAfter int
	getCalls     int
}

func newMemIssues(now func() time.Time) *memIssues {
	return &memIssues{items: map[string]*domain.Issue{}, now: now}
}

func (m *memIssues) put(issue domain.Issue) *domain.Issue {
	m.mu.Lock()
	defer m.mu.Unlock()
	if issue.ID == "" {
		m.seq++
		issue.ID = fmt.Sprintf("issue-%d", m.seq)
	}
	stored := issue
	m.items[stored.ID] = &stored
	return &stored
}

func (m *memIssues) Create(_ context.Context, issue *domain.Issue) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	m.seq++
	issue.ID = fmt.Sprintf("issue-%d", m.seq)
	m.mu.Unlock()
	issue.Status = domain.IssueStatusOpen
	issue.Escalated = false
	issue.CreatedAt = m.now()
	issue.UpdatedAt = issue.CreatedAt
	m.put(*issue)
	return nil
}

func (m *memIssues) GetByID(_ context.Context, id string) (*domain.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil && m.getCalls > m.failGetAfter {
		return nil, m.getErr
	}
	issue, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *issue
	return &copied, nil
}

func (m *memIssues) ListByUser(ctx context.Context, userID string, statuses []domain.IssueStatus) ([]domain.Issue, error) {
	return m.List(ctx, repository.IssueFilter{UserID: &userID, Statuses: statuses})
}

func (m *memIssues) List(_ context.Context, filter repository.IssueFilter) ([]domain.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Issue
	for _, issue := range m.items {
		if filter.UserID != nil && issue.UserID != *filter.UserID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, issue.Status) {
			continue
		}
		if filter.Escalated != nil && issue.Escalated != *filter.Escalated {
			continue
		}
		out = append(out, *issue)
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.Order == repository.OrderResolvedDesc && out[i].ResolvedAt != nil && out[j].ResolvedAt != nil {
			return out[i].ResolvedAt.After(*out[j].ResolvedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memIssues) Escalate(_ context.Context, id string, record repository.EscalationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.escalateCalls = append(m.escalateCalls, escalateCall{IssueID: id, Record: record})
	if m.escalateErr != nil {
		return m.escalateErr
	}
	issue, ok := m.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	if issue.Escalated || !issue.Status.Active() {
		return repository.ErrConflict
	}
	issue.Escalated = true
	issue.EscalationReason = &record.Reason
	to := record.EscalatedTo
	issue.EscalatedTo = &to
	at := record.At
	issue.EscalatedAt = &at
	return nil
}

func (m *memIssues) UpdateStatus(_ context.Context, id string, change repository.StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	issue, ok := m.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	if issue.Status != change.From {
		return repository.ErrConflict
	}
	issue.Status = change.To
	if change.Message != nil {
		issue.ResolutionMessage = change.Message
	}
	if change.ResolvedAt != nil {
		issue.ResolvedAt = change.ResolvedAt
	}
	issue.UpdatedAt = change.At
	return nil
}

func containsStatus(statuses []domain.IssueStatus, s domain.IssueStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// scriptedUploader fails for the listed filenames and records call order.
type scriptedUploader struct {
	failFor map[string]bool
	calls   []string
	tokens  []string
}

func (u *scriptedUploader) Upload(_ context.Context, session domain.Session, file storage.File) (string, error) {
	u.calls = append(u.calls, file.Name)
	u.tokens = append(u.tokens, session.AccessToken)
	if u.failFor[file.Name] {
		return "", errors.New("network down")
	}
	return "uploads/" + file.Name, nil
}

type fixedReferences string

func (f fixedReferences) Next() string { return string(f) }

type stubObjects struct{}

func (stubObjects) PublicURL(bucket, key string) string {
	return "https://objects.test/" + bucket + "/" + key
}

// testClock is a settable clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
