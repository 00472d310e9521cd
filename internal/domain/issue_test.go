package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIssueTypeCategories(t *testing.T) {
	assert.True(t, IssueTypeIssue.Valid())
	assert.False(t, IssueType("complaint").Valid())

	assert.True(t, IssueTypeIssue.AllowsCategory("Hostel"))
	assert.True(t, IssueTypeSuggestion.AllowsCategory(CategoryOther))
	assert.False(t, IssueTypeFeedback.AllowsCategory("Hostel"))

	opts := IssueTypeFeedback.CategoryOptions()
	opts[0] = "mutated"
	assert.Equal(t, "Teaching", IssueTypeFeedback.CategoryOptions()[0])
}

func TestIssueStatusPredicates(t *testing.T) {
	tests := []struct {
		status   IssueStatus
		active   bool
		terminal bool
	}{
		{IssueStatusOpen, true, false},
		{IssueStatusSubmitted, true, false},
		{IssueStatusInProgress, true, false},
		{IssueStatusResolved, false, true},
		{IssueStatusRejected, false, true},
	}
	for _, tt := range tests {
		assert.True(t, tt.status.Valid(), tt.status)
		assert.Equal(t, tt.active, tt.status.Active(), tt.status)
		assert.Equal(t, tt.terminal, tt.status.Terminal(), tt.status)
	}
	assert.False(t, IssueStatus("closed").Valid())
}

func TestIssueReference(t *testing.T) {
	ref := "ISS-1A2B"
	assert.Equal(t, "ISS-1A2B", (&Issue{IssueID: &ref}).Reference())
	assert.Equal(t, "", (&Issue{}).Reference())
}

func TestSessionIsStaff(t *testing.T) {
	assert.False(t, Session{Role: RoleStudent}.IsStaff())
	assert.True(t, Session{Role: RoleFaculty}.IsStaff())
	assert.True(t, Session{Role: RoleAdmin}.IsStaff())
}
