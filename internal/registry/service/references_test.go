package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReference(t *testing.T) {
	publisher, extension, ok := ParseReference("acme.tool")
	assert.True(t, ok)
	assert.Equal(t, "acme", publisher)
	assert.Equal(t, "tool", extension)

	for _, bad := range []string{"", "tool", "acme.", ".tool", "a.b.c", "..", "."} {
		_, _, ok := ParseReference(bad)
		assert.False(t, ok, "reference %q should be dropped", bad)
	}
}
