package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashNeverEqualsPlaintext(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("Sup3r$ecret")
	require.NoError(t, err)

	assert.NotEqual(t, "Sup3r$ecret", hash)
	assert.NotContains(t, hash, "Sup3r$ecret")
}

func TestCheckRoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("Sup3r$ecret")
	require.NoError(t, err)

	assert.NoError(t, h.Check(hash, "Sup3r$ecret"))
	assert.Error(t, h.Check(hash, "wrong-password"))
}

func TestHasherClampsInvalidCost(t *testing.T) {
	h := NewHasher(999)

	hash, err := h.Hash("pw")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
