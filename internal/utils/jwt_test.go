package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-signing-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	id := Identity{AccountID: 42, Email: "user@example.com"}
	tok, err := NewAccessToken(testSecret, id, 15)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Token)
	assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), tok.Exp, 5*time.Second)

	claims, ok := VerifyToken(testSecret, tok.Token, TokenTypeAccess)
	require.True(t, ok)
	assert.Equal(t, uint64(42), claims.AccountID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, TokenTypeAccess, claims.Type)
}

func TestRefreshTokenCarriesRemember(t *testing.T) {
	id := Identity{AccountID: 7, Email: "night@owl.dev"}
	tok, err := NewRefreshToken(testSecret, id, true, 30)
	require.NoError(t, err)

	claims, ok := VerifyToken(testSecret, tok.Token, TokenTypeRefresh)
	require.True(t, ok)
	assert.True(t, claims.Remember)
	assert.Equal(t, uint64(7), claims.AccountID)

	tok2, err := NewRefreshToken(testSecret, id, false, 7)
	require.NoError(t, err)
	claims2, ok := VerifyToken(testSecret, tok2.Token, TokenTypeRefresh)
	require.True(t, ok)
	assert.False(t, claims2.Remember)
}

func TestVerifyTokenRejectsWrongType(t *testing.T) {
	id := Identity{AccountID: 1, Email: "a@b.co"}
	access, err := NewAccessToken(testSecret, id, 15)
	require.NoError(t, err)
	refresh, err := NewRefreshToken(testSecret, id, false, 7)
	require.NoError(t, err)

	// An access token must never pass as refresh, and vice versa.
	_, ok := VerifyToken(testSecret, access.Token, TokenTypeRefresh)
	assert.False(t, ok)
	_, ok = VerifyToken(testSecret, refresh.Token, TokenTypeAccess)
	assert.False(t, ok)
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	tok, err := NewAccessToken(testSecret, Identity{AccountID: 1}, 15)
	require.NoError(t, err)
	_, ok := VerifyToken("another-secret", tok.Token, TokenTypeAccess)
	assert.False(t, ok)
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	tok, err := NewAccessToken(testSecret, Identity{AccountID: 1}, -1)
	require.NoError(t, err)
	_, ok := VerifyToken(testSecret, tok.Token, TokenTypeAccess)
	assert.False(t, ok)
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		_, ok := VerifyToken(testSecret, raw, TokenTypeAccess)
		assert.False(t, ok, "raw %q", raw)
	}
}
