package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/feedx-service/internal/domain"
	"github.com/spec-kit/feedx-service/internal/events"
	"github.com/spec-kit/feedx-service/internal/storage"
	apperrors "github.com/spec-kit/feedx-service/pkg/util/errorutil"
)

type issueFixture struct {
	svc      *IssueService
	repo     *memIssues
	uploader *scriptedUploader
	clock    *testClock
	events   []events.Event
}

func newIssueFixture(t *testing.T) *issueFixture {
	t.Helper()
	f := &issueFixture{
		clock:    &testClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)},
		uploader: &scriptedUploader{failFor: map[string]bool{}},
	}
	f.repo = newMemIssues(f.clock.Now)

	dispatcher := events.NewInMemoryDispatcher(nil)
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			f.events = append(f.events, e)
			return nil
		})
	}

	f.svc = NewIssueService(IssueDependencies{
		IssueRepo:  f.repo,
		Uploader:   f.uploader,
		Resolver:   storage.NewResolver(stubObjects{}, ""),
		References: fixedReferences("ISS-TEST1"),
		Dispatcher: dispatcher,
		Clock:      f.clock.Now,
		Limits:     ProofLimits{MaxFiles: 3, MaxBytes: 5 * mb},
	})
	return f
}

var student = domain.Session{UserID: "student-1", Role: domain.RoleStudent, AccessToken: "tok"}

func validIssueInput() SubmitInput {
	return SubmitInput{
		Type:        domain.IssueTypeIssue,
		Category:    "Hostel",
		Description: "No hot water on floor 3",
		SentTo:      "Warden",
	}
}

func domainCode(t *testing.T, err error) (string, int) {
	t.Helper()
	require.Error(t, err)
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de), "expected DomainError, got %T", err)
	return de.Code, de.HTTPStatus
}

func TestIssueService_SubmitValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SubmitInput)
		field  string
	}{
		{name: "unknown type", mutate: func(in *SubmitInput) { in.Type = "complaint" }, field: "type"},
		{name: "blank description", mutate: func(in *SubmitInput) { in.Description = "  " }, field: "description"},
		{name: "missing category", mutate: func(in *SubmitInput) { in.Category = "" }, field: "category"},
		{name: "category from another type", mutate: func(in *SubmitInput) { in.Category = "Teaching" }, field: "category"},
		{name: "other without specify", mutate: func(in *SubmitInput) { in.Category = domain.CategoryOther }, field: "specify_category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIssueFixture(t)
			input := validIssueInput()
			input.Files = []storage.File{storage.BytesFile("a.png", storage.MimePNG, []byte("x"))}
			tt.mutate(&input)

			_, err := f.svc.Submit(context.Background(), student, input)
			code, status := domainCode(t, err)
			assert.Equal(t, "VALIDATION_FAILED", code)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Contains(t, apperrors.ToDomainError(err).Details, tt.field)
			assert.Empty(t, f.uploader.calls, "validation must precede uploads")
			assert.Empty(t, f.repo.items, "validation must precede create")
		})
	}
}

func TestIssueService_SubmitPartialAcceptance(t *testing.T) {
	f := newIssueFixture(t)
	f.uploader.failFor["b.jpg"] = true

	input := validIssueInput()
	input.Files = []storage.File{
		sizedFile("a.png", storage.MimePNG, mb),
		sizedFile("essay.docx", "application/msword", 10),
		sizedFile("b.jpg", storage.MimeJPEG, mb),
		sizedFile("c.pdf", storage.MimePDF, mb),
	}

	result, err := f.svc.Submit(context.Background(), student, input)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.png", "b.jpg", "c.pdf"}, f.uploader.calls)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, "essay.docx", result.Rejected[0].Filename)
	require.Len(t, result.Uploads, 3)
	assert.False(t, result.Uploads[1].Succeeded())

	issue := result.Issue
	assert.Equal(t, []string{"uploads/a.png", "uploads/c.pdf"}, issue.ProofFiles)
	assert.Equal(t, domain.IssueStatusOpen, issue.Status)
	assert.False(t, issue.Escalated)
	assert.Equal(t, "ISS-TEST1", issue.Reference())
	assert.Equal(t, student.UserID, issue.UserID)

	require.Len(t, f.events, 1)
	assert.Equal(t, events.EventIssueCreated, f.events[0].Type)
}

func TestIssueService_SubmitAllUploadsFail(t *testing.T) {
	f := newIssueFixture(t)
	f.uploader.failFor["a.png"] = true

	input := validIssueInput()
	input.Files = []storage.File{sizedFile("a.png", storage.MimePNG, mb)}

	result, err := f.svc.Submit(context.Background(), student, input)
	require.NoError(t, err)
	assert.Nil(t, result.Issue.ProofFiles)
	assert.Len(t, f.repo.items, 1)
}

func TestIssueService_SubmitWithoutUploaderReportsFiles(t *testing.T) {
	f := newIssueFixture(t)
	svc := NewIssueService(IssueDependencies{
		IssueRepo: f.repo,
		Resolver:  storage.NewResolver(stubObjects{}, ""),
		Clock:     f.clock.Now,
	})

	input := validIssueInput()
	input.Files = []storage.File{sizedFile("a.png", storage.MimePNG, mb)}

	result, err := svc.Submit(context.Background(), student, input)
	require.NoError(t, err)
	require.Len(t, result.Uploads, 1)
	assert.Equal(t, "a.png", result.Uploads[0].Filename)
	assert.Equal(t, "no uploader configured", result.Uploads[0].Error)
	assert.Nil(t, result.Issue.ProofFiles)
}

func TestIssueService_SubmitFeedbackIgnoresFiles(t *testing.T) {
	f := newIssueFixture(t)

	result, err := f.svc.Submit(context.Background(), student, SubmitInput{
		Type:            domain.IssueTypeFeedback,
		Category:        domain.CategoryOther,
		SpecifyCategory: "Canteen",
		Description:     "Great new menu",
		Files:           []storage.File{sizedFile("a.png", storage.MimePNG, mb)},
	})
	require.NoError(t, err)
	assert.Empty(t, f.uploader.calls)
	assert.Len(t, result.Rejected, 1)
	assert.Nil(t, result.Issue.IssueID)
	assert.Equal(t, "Canteen", result.Issue.SpecifyCategory)
}

func TestIssueService_SubmitStoreError(t *testing.T) {
	f := newIssueFixture(t)
	f.repo.createErr = errors.New(`new row violates check constraint "issues_type_check"`)

	_, err := f.svc.Submit(context.Background(), student, validIssueInput())
	code, _ := domainCode(t, err)
	assert.Equal(t, "PERSISTENCE_FAILED", code)
	assert.Contains(t, err.Error(), "issues_type_check")
	assert.Empty(t, f.repo.items)
	assert.Empty(t, f.events)
}

func TestIssueService_SubmitRequiresSession(t *testing.T) {
	f := newIssueFixture(t)
	_, err := f.svc.Submit(context.Background(), domain.Session{}, validIssueInput())
	code, _ := domainCode(t, err)
	assert.Equal(t, "UNAUTHORIZED", code)
}

func TestIssueService_ScenarioA_NewIssueNotEligible(t *testing.T) {
	f := newIssueFixture(t)
	result, err := f.svc.Submit(context.Background(), student, validIssueInput())
	require.NoError(t, err)

	gate, err := f.svc.EscalationView(context.Background(), student, result.Issue.ID)
	require.NoError(t, err)
	assert.Equal(t, EscalationNotEligible, gate.State)
	assert.Equal(t, 48, gate.HoursRemaining)

	_, err = f.svc.Escalate(context.Background(), student, result.Issue.ID, EscalateInput{Reason: "impatient"})
	code, status := domainCode(t, err)
	assert.Equal(t, "CONFLICT", code)
	assert.Equal(t, http.StatusConflict, status)
	assert.Empty(t, f.repo.escalateCalls)
}

func TestIssueService_ScenarioB_EscalateAfter49Hours(t *testing.T) {
	f := newIssueFixture(t)
	result, err := f.svc.Submit(context.Background(), student, validIssueInput())
	require.NoError(t, err)
	id := result.Issue.ID

	f.clock.Advance(49 * time.Hour)
	gate, err := f.svc.EscalationView(context.Background(), student, id)
	require.NoError(t, err)
	assert.Equal(t, EscalationEligible, gate.State)

	tracked, err := f.svc.Escalate(context.Background(), student, id, EscalateInput{Reason: "no response", EscalatedTo: "Principal"})
	require.NoError(t, err)

	require.Len(t, f.repo.escalateCalls, 1)
	call := f.repo.escalateCalls[0]
	assert.Equal(t, id, call.IssueID)
	assert.Equal(t, "no response", call.Record.Reason)
	assert.Equal(t, "Principal", call.Record.EscalatedTo)

	assert.True(t, tracked.Issue.Escalated)
	assert.Equal(t, EscalationEscalated, tracked.Escalation.State)

	f.clock.Advance(500 * time.Hour)
	gate, err = f.svc.EscalationView(context.Background(), student, id)
	require.NoError(t, err)
	assert.Equal(t, EscalationEscalated, gate.State)

	_, err = f.svc.Escalate(context.Background(), student, id, EscalateInput{Reason: "again"})
	code, _ := domainCode(t, err)
	assert.Equal(t, "CONFLICT", code)
	assert.Len(t, f.repo.escalateCalls, 1, "second escalation must not reach the store")

	last := f.events[len(f.events)-1]
	assert.Equal(t, events.EventIssueEscalated, last.Type)
	assert.Equal(t, 49, last.Payload.(events.IssueEscalatedPayload).AgeHours)
}

func TestIssueService_ScenarioC_ReasonRequired(t *testing.T) {
	for _, reason := range []string{"", "   ", "\t\n"} {
		f := newIssueFixture(t)
		result, err := f.svc.Submit(context.Background(), student, validIssueInput())
		require.NoError(t, err)
		f.clock.Advance(49 * time.Hour)

		_, err = f.svc.Escalate(context.Background(), student, result.Issue.ID, EscalateInput{Reason: reason, EscalatedTo: "Principal"})
		code, _ := domainCode(t, err)
		assert.Equal(t, "VALIDATION_FAILED", code)
		assert.Equal(t, "Reason Required", apperrors.ToDomainError(err).Message)
		assert.Empty(t, f.repo.escalateCalls)

		stored, err := f.repo.GetByID(context.Background(), result.Issue.ID)
		require.NoError(t, err)
		assert.False(t, stored.Escalated)
	}
}

func TestIssueService_EscalateStoreError(t *testing.T) {
	f := newIssueFixture(t)
	result, err := f.svc.Submit(context.Background(), student, validIssueInput())
	require.NoError(t, err)
	f.clock.Advance(49 * time.Hour)
	published := len(f.events)

	f.repo.escalateErr = fmt.Errorf("escalating issue: %w", errors.New("deadlock detected"))
	_, err = f.svc.Escalate(context.Background(), student, result.Issue.ID, EscalateInput{Reason: "no response"})
	code, status := domainCode(t, err)
	assert.Equal(t, "PERSISTENCE_FAILED", code)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "deadlock detected", apperrors.ToDomainError(err).Message)

	stored, err := f.repo.GetByID(context.Background(), result.Issue.ID)
	require.NoError(t, err)
	assert.False(t, stored.Escalated)
	assert.Len(t, f.events, published)
}

func TestIssueService_EscalateSurvivesFailedReRead(t *testing.T) {
	f := newIssueFixture(t)
	result, err := f.svc.Submit(context.Background(), student, validIssueInput())
	require.NoError(t, err)
	f.clock.Advance(49 * time.Hour)

	// The gate read succeeds; the read after the flip fails.
	f.repo.getErr = errors.New("connection reset")
	f.repo.failGetAfter = f.repo.getCalls + 1

	tracked, err := f.svc.Escalate(context.Background(), student, result.Issue.ID, EscalateInput{Reason: "no response", EscalatedTo: "Principal"})
	require.NoError(t, err)
	assert.True(t, tracked.Issue.Escalated)
	assert.Equal(t, EscalationEscalated, tracked.Escalation.State)
	require.NotNil(t, tracked.Issue.EscalationReason)
	assert.Equal(t, "no response", *tracked.Issue.EscalationReason)

	last := f.events[len(f.events)-1]
	assert.Equal(t, events.EventIssueEscalated, last.Type)
	assert.Equal(t, result.Issue.ID, last.IssueID)
}

func TestIssueService_EscalateClosedAndForeign(t *testing.T) {
	f := newIssueFixture(t)
	created := f.clock.Now().Add(-72 * time.Hour)
	resolved := f.repo.put(domain.Issue{UserID: student.UserID, Status: domain.IssueStatusResolved, CreatedAt: created})
	other := f.repo.put(domain.Issue{UserID: "someone-else", Status: domain.IssueStatusOpen, CreatedAt: created})

	_, err := f.svc.Escalate(context.Background(), student, resolved.ID, EscalateInput{Reason: "late"})
	code, _ := domainCode(t, err)
	assert.Equal(t, "CONFLICT", code)

	_, err = f.svc.Escalate(context.Background(), student, other.ID, EscalateInput{Reason: "x"})
	code, _ = domainCode(t, err)
	assert.Equal(t, "FORBIDDEN", code)

	_, err = f.svc.Escalate(context.Background(), student, "missing", EscalateInput{Reason: "x"})
	code, _ = domainCode(t, err)
	assert.Equal(t, "NOT_FOUND", code)

	assert.Empty(t, f.repo.escalateCalls)
}

func TestIssueService_Tracking(t *testing.T) {
	f := newIssueFixture(t)
	base := f.clock.Now()

	older := f.repo.put(domain.Issue{UserID: student.UserID, Status: domain.IssueStatusInProgress, CreatedAt: base.Add(-2 * time.Hour),
		ProofFiles: []string{"/uploads/a.png", "uploads/b.png", "proofs/c.pdf"}})
	newer := f.repo.put(domain.Issue{UserID: student.UserID, Status: domain.IssueStatusSubmitted, CreatedAt: base.Add(-time.Hour)})
	resolvedAt := base.Add(-30 * time.Minute)
	msg := "Fixed the boiler"
	f.repo.put(domain.Issue{UserID: student.UserID, Status: domain.IssueStatusResolved, CreatedAt: base.Add(-3 * time.Hour),
		ResolvedAt: &resolvedAt, ResolutionMessage: &msg})
	f.repo.put(domain.Issue{UserID: "other", Status: domain.IssueStatusOpen, CreatedAt: base})

	active, err := f.svc.ListActive(context.Background(), student)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, newer.ID, active[0].Issue.ID)
	assert.Equal(t, older.ID, active[1].Issue.ID)

	assert.Equal(t, 1, active[1].Progress.CurrentStep)
	assert.Equal(t, []Attachment{
		{Label: "File 1", URL: "/uploads/a.png"},
		{Label: "File 2", URL: "/uploads/b.png"},
		{Label: "File 3", URL: "https://objects.test/issue-proofs/proofs/c.pdf"},
	}, active[1].Attachments)
	assert.Equal(t, 46, active[1].Escalation.HoursRemaining)

	resolved, err := f.svc.ListResolved(context.Background(), student)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, "Fixed the boiler", *resolved[0].Issue.ResolutionMessage)
	assert.Equal(t, 2, resolved[0].Progress.CurrentStep)
	assert.True(t, resolved[0].Escalation.Closed)

	_, err = f.svc.Get(context.Background(), domain.Session{UserID: "intruder", Role: domain.RoleStudent}, older.ID)
	code, _ := domainCode(t, err)
	assert.Equal(t, "FORBIDDEN", code)

	staffView, err := f.svc.Get(context.Background(), domain.Session{UserID: "fac-1", Role: domain.RoleFaculty}, older.ID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, staffView.Issue.ID)
}
