package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasherRoundTrip(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("pass1234")
	require.NoError(t, err)
	assert.NotEqual(t, "pass1234", hash)

	assert.True(t, hasher.Verify("pass1234", hash))
	assert.False(t, hasher.Verify("pass12345", hash))
	assert.False(t, hasher.Verify("pass1234", "not-a-hash"))
}

func TestNewPasswordHasherClampsCost(t *testing.T) {
	// 範囲外のコストは既定値に置き換えられる
	hasher := NewPasswordHasher(99)
	assert.Equal(t, DefaultBcryptCost, hasher.cost)

	hasher = NewPasswordHasher(bcrypt.MinCost)
	assert.Equal(t, bcrypt.MinCost, hasher.cost)
}
