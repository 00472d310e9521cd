package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflakeReferences(t *testing.T) {
	refs, err := NewSnowflakeReferences(1)
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		ref := refs.Next()
		assert.True(t, strings.HasPrefix(ref, "ISS-"), ref)
		assert.Equal(t, strings.ToUpper(ref), ref)
		assert.False(t, seen[ref], "duplicate %s", ref)
		seen[ref] = true
	}

	_, err = NewSnowflakeReferences(5000)
	assert.Error(t, err)
}
