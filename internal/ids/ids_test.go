package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	a := New()
	b := New()

	assert.Len(t, a, 27)
	assert.NotEqual(t, a, b)
	assert.True(t, Valid(a))
}

func TestValid(t *testing.T) {
	assert.False(t, Valid(""))
	assert.False(t, Valid("not-an-id"))
}
