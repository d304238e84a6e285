package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("secret", "agritrace", "u-1", "farmer", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "farmer", claims.Role)
	assert.Equal(t, "agritrace", claims.Issuer)
}

func TestParseToken_Rejects(t *testing.T) {
	token, err := GenerateToken("secret", "", "u-1", "farmer", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken("other", token)
	assert.Error(t, err)

	defaulted, err := GenerateToken("secret", "", "u-1", "farmer", -time.Hour)
	require.NoError(t, err)
	// non-positive ttl falls back to the default lifetime
	_, err = ParseToken("secret", defaulted)
	assert.NoError(t, err)

	_, err = ParseToken("secret", "not-a-token")
	assert.Error(t, err)
}
