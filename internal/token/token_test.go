package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecureTokenLength(t *testing.T) {
	for _, n := range []int{SingleUseTokenLength, RefreshTokenLength} {
		tok, err := GenerateSecureToken(n)
		require.NoError(t, err)
		assert.Len(t, tok, n)
	}
}

func TestGenerateSecureTokenIsURLSafe(t *testing.T) {
	tok, err := GenerateSecureToken(256)
	require.NoError(t, err)

	for _, r := range tok {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
		assert.True(t, ok, "token contains non-URL-safe rune %q", r)
	}
}

func TestGenerateSecureTokenIsRandom(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := GenerateSecureToken(RefreshTokenLength)
		require.NoError(t, err)
		assert.False(t, seen[tok], "duplicate token generated")
		seen[tok] = true
	}
}

func TestHashTokenIsDeterministicHex(t *testing.T) {
	h1 := HashToken("some-refresh-token")
	h2 := HashToken("some-refresh-token")
	assert.Equal(t, h1, h2)

	// SHA-256 hex is 64 chars.
	assert.Len(t, h1, 64)

	assert.NotEqual(t, h1, HashToken("some-refresh-token2"))
}
