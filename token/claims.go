package token

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Claims is what the storefront can read from a backend session token. The
// token is opaque to the client: nothing here is verified, so it is only
// fit for logging and scheduling, never for authorization.
type Claims struct {
	Subject   string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Inspect decodes the claims of a JWT session token without checking its
// signature. Tokens that are not JWTs return an error.
func Inspect(raw string) (*Claims, error) {
	var claims sessionClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil, errors.Wrap(err, "[token Inspect] not a JWT")
	}

	c := &Claims{
		Subject: claims.Subject,
		Role:    claims.Role,
	}
	if c.Subject == "" {
		c.Subject = claims.UserID
	}
	if claims.IssuedAt != nil {
		c.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		c.ExpiresAt = claims.ExpiresAt.Time
	}
	return c, nil
}

// Expired reports whether the token carries an expiry that is before now
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(now)
}

// Fingerprint returns a short stable identifier for a token, safe to log
func Fingerprint(raw string) string {
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:4])
}
