package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorToken_RoundTrip(t *testing.T) {
	token, err := GenerateOperatorToken("s3cret", "ops", time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken(token, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, RoleOperator, claims.Role)
	assert.Equal(t, "ops", claims.Subject)
}

func TestOperatorToken_Rejections(t *testing.T) {
	t.Run("wrong secret", func(t *testing.T) {
		token, err := GenerateOperatorToken("s3cret", "ops", time.Minute)
		require.NoError(t, err)
		_, err = ValidateToken(token, "other")
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := GenerateOperatorToken("s3cret", "ops", -time.Minute)
		require.NoError(t, err)
		_, err = ValidateToken(token, "s3cret")
		assert.Error(t, err)
	})

	t.Run("no secret configured", func(t *testing.T) {
		_, err := GenerateOperatorToken("", "ops", time.Minute)
		assert.Error(t, err)
	})
}
