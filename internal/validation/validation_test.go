package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/feedx-service/pkg/util/errorutil"
)

type payload struct {
	Reason string `json:"reason" validate:"notblank"`
	Email  string `json:"email" validate:"omitempty,email"`
	Kind   string `json:"kind" validate:"required,oneof=a b"`
}

func TestValidator_Struct(t *testing.T) {
	v := New()

	require.NoError(t, v.Struct(payload{Reason: "x", Kind: "a"}))

	err := v.Struct(payload{Reason: "   ", Email: "nope", Kind: "c"})
	require.Error(t, err)

	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	assert.Equal(t, "this field cannot be blank", domainErr.Details["reason"])
	assert.Contains(t, domainErr.Details, "email")
	assert.Contains(t, domainErr.Details, "kind")
}
