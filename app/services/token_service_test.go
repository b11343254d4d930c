package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHMACTokenService(t *testing.T, accessTTL, refreshTTL time.Duration) TokenService {
	t.Helper()

	svc, err := NewTokenService(accessTTL, refreshTTL, "gashadokuro-test", "gashadokuro-test-clients",
		false, "", "", "token-service-test-secret")
	require.NoError(t, err)
	return svc
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService(time.Hour, time.Hour, "iss", "aud", false, "", "", "")
	assert.Error(t, err)
}

func TestGenerateAndValidateTokens(t *testing.T) {
	svc := newHMACTokenService(t, time.Hour, 24*time.Hour)

	access, refresh, err := svc.GenerateTokens(7)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.NotEqual(t, access, refresh)

	accessClaims, err := svc.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, uint(7), accessClaims.CustomerID)
	assert.Equal(t, "access", accessClaims.TokenType)
	assert.NotEmpty(t, accessClaims.TokenID)
	assert.True(t, accessClaims.ExpiresAt.After(accessClaims.IssuedAt))

	refreshClaims, err := svc.ValidateToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refreshClaims.TokenType)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newHMACTokenService(t, time.Hour, 24*time.Hour)

	_, err := svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	svc := newHMACTokenService(t, time.Hour, 24*time.Hour)

	other, err := NewTokenService(time.Hour, time.Hour, "iss", "aud", false, "", "", "a-different-secret")
	require.NoError(t, err)

	access, _, err := other.GenerateTokens(1)
	require.NoError(t, err)

	_, err = svc.ValidateToken(access)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := newHMACTokenService(t, -time.Minute, 24*time.Hour)

	access, _, err := svc.GenerateTokens(1)
	require.NoError(t, err)

	_, err = svc.ValidateToken(access)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshToken(t *testing.T) {
	svc := newHMACTokenService(t, time.Hour, 24*time.Hour)

	t.Run("IssuesNewPair", func(t *testing.T) {
		_, refresh, err := svc.GenerateTokens(9)
		require.NoError(t, err)

		newAccess, newRefresh, err := svc.RefreshToken(refresh)
		require.NoError(t, err)

		claims, err := svc.ValidateToken(newAccess)
		require.NoError(t, err)
		assert.Equal(t, uint(9), claims.CustomerID)
		assert.Equal(t, "access", claims.TokenType)

		claims, err = svc.ValidateToken(newRefresh)
		require.NoError(t, err)
		assert.Equal(t, "refresh", claims.TokenType)
	})

	t.Run("RejectsAccessToken", func(t *testing.T) {
		access, _, err := svc.GenerateTokens(9)
		require.NoError(t, err)

		_, _, err = svc.RefreshToken(access)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}
