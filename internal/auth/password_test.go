package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordService_Cost(t *testing.T) {
	hash, err := NewPasswordServiceForTest(bcrypt.MinCost).Hash("password123")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	assert.Equal(t, defaultCost, NewPasswordService().cost)
}

func TestPasswordService_Hash(t *testing.T) {
	ps := NewPasswordServiceForTest(bcrypt.MinCost)

	a, err := ps.Hash("same-password")
	require.NoError(t, err)
	b, err := ps.Hash("same-password")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "salt must differ per hash")

	_, err = ps.Hash(strings.Repeat("a", 72))
	assert.NoError(t, err)

	_, err = ps.Hash(strings.Repeat("a", 73))
	assert.Error(t, err)
}

func TestPasswordService_Verify(t *testing.T) {
	ps := NewPasswordServiceForTest(bcrypt.MinCost)

	for _, pw := range []string{"hello123", "p@$$w0rd!#%", "пароль-密码", "  padded  "} {
		hash, err := ps.Hash(pw)
		require.NoError(t, err)
		assert.NoError(t, ps.Verify(hash, pw), pw)
	}

	hash, err := ps.Hash("the-real-password")
	require.NoError(t, err)
	assert.ErrorIs(t, ps.Verify(hash, "the-wrong-password"), ErrPasswordMismatch)
	assert.ErrorIs(t, ps.Verify(hash, ""), ErrPasswordMismatch)

	// An unusable stored hash is a server fault, not bad credentials.
	err = ps.Verify("not-a-bcrypt-hash", "password")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPasswordMismatch)
}
