package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep the suite fast.
var testParams = Argon2Params{Time: 1, Memory: 1024, Threads: 1}

func TestPasswordHasherRoundTrip(t *testing.T) {
	h := NewPasswordHasher(testParams)

	hash, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.Contains(t, string(hash), "$argon2id$v=19$m=1024,t=1,p=1$")

	ok, err := h.Verify("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasherSaltsEachHash(t *testing.T) {
	h := NewPasswordHasher(testParams)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestPasswordHasherVerifiesOlderCost(t *testing.T) {
	old := NewPasswordHasher(testParams)
	hash, err := old.Hash("secret-password")
	require.NoError(t, err)

	stronger := NewPasswordHasher(Argon2Params{Time: 2, Memory: 2048, Threads: 1})
	ok, err := stronger.Verify("secret-password", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPasswordHasherMalformed(t *testing.T) {
	h := NewPasswordHasher(testParams)

	for _, bad := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$a$b", "$argon2id$v=1$m=1,t=1,p=1$a$b"} {
		ok, err := h.Verify("x", []byte(bad))
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrMalformedHash, bad)
	}
}

func TestNewPasswordHasherDefaults(t *testing.T) {
	h := NewPasswordHasher(Argon2Params{})
	assert.Equal(t, DefaultParams, h.params)
}
