package ids

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	seen := make(map[int64]struct{})
	prev := int64(0)
	for i := 0; i < 1000; i++ {
		id := New()
		assert.Positive(t, id)
		assert.Greater(t, id, prev, "ids must be monotonic per node")
		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
		prev = id
	}
}

func TestFromKey(t *testing.T) {
	first := FromKey("K1")
	second := FromKey("K1")
	other := FromKey("K2")

	assert.Positive(t, first)
	assert.Equal(t, first, second, "same key must derive the same id")
	assert.NotEqual(t, first, other)
}

func TestAuthorizationCode(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 100; i++ {
		assert.Regexp(t, pattern, AuthorizationCode())
	}
}
