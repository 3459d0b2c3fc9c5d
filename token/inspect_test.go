package token_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/dojotv/token"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("unknown-to-client"))
	require.NoError(t, err)
	return raw
}

func TestInspectReadsClaimsWithoutKey(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	raw := signed(t, jwtlib.MapClaims{
		"sub":   "user-1",
		"email": "a@b.com",
		"iss":   "crm",
		"iat":   exp.Add(-time.Hour).Unix(),
		"exp":   exp.Unix(),
	})

	c, err := token.Inspect(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", c.Subject)
	require.Equal(t, "a@b.com", c.Email)
	require.Equal(t, "crm", c.Issuer)
	require.True(t, c.ExpiresAt.Equal(exp))
	require.False(t, c.Expired(exp.Add(-time.Minute)))
	require.True(t, c.Expired(exp.Add(time.Minute)))
}

func TestInspectSubjectFallbacksAndBearerPrefix(t *testing.T) {
	raw := signed(t, jwtlib.MapClaims{"_id": "abc123"})

	c, err := token.Inspect("Bearer " + raw)
	require.NoError(t, err)
	require.Equal(t, "abc123", c.Subject)
	require.False(t, c.Expired(time.Now()))
}

func TestInspectOpaqueToken(t *testing.T) {
	_, err := token.Inspect("5f2b1c0e9a")
	require.ErrorIs(t, err, token.ErrNotJWT)

	_, err = token.Inspect("a.b.c")
	require.ErrorIs(t, err, token.ErrNotJWT)
}
