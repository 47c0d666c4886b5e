package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/thriftyclothings/storefront/token"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return s
}

func TestInspectReadsClaimsWithoutKey(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := signed(t, jwt.MapClaims{"sub": "user-1", "role": "admin", "exp": exp.Unix()})

	c, err := token.Inspect(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", c.Subject)
	require.Equal(t, "admin", c.Role)
	require.True(t, c.ExpiresAt.Equal(exp))
	require.False(t, c.Expired(time.Now()))
	require.True(t, c.Expired(exp.Add(time.Second)))
}

func TestInspectFallsBackToUserID(t *testing.T) {
	raw := signed(t, jwt.MapClaims{"userId": "64f1"})

	c, err := token.Inspect(raw)
	require.NoError(t, err)
	require.Equal(t, "64f1", c.Subject)
	require.False(t, c.Expired(time.Now()))
}

func TestInspectRejectsOpaqueTokens(t *testing.T) {
	_, err := token.Inspect("opaque-session-token")
	require.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	require.Empty(t, token.Fingerprint(""))
	require.Len(t, token.Fingerprint("t1"), 8)
	require.Equal(t, token.Fingerprint("t1"), token.Fingerprint("t1"))
	require.NotEqual(t, token.Fingerprint("t1"), token.Fingerprint("t2"))
}
