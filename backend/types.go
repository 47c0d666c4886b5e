package backend

import "github.com/thriftyclothings/storefront/users"

// Endpoint paths, relative to the API base URL
const (
	PathRegisterWithIdentity = "/auth/register-with-identity"
	PathLoginWithIdentity    = "/auth/login-with-identity"
	PathResolveSession       = "/auth/resolve-session"
	PathValidateToken        = "/auth/validate-token"
	PathLogout               = "/auth/logout"
	PathTrackLogin           = "/user-profile/track-login"
)

// IdentityRequest links a signed-in identity to a backend session
type IdentityRequest struct {
	IdentityUID string `json:"identityUid"`
	Email       string `json:"email"`
}

// RegisterRequest creates the backend user for a new identity
type RegisterRequest struct {
	IdentityUID string `json:"identityUid"`
	Email       string `json:"email"`
	Name        string `json:"name"`
}

// SessionResponse is returned by the identity exchange endpoints. Token is
// empty when the backend did not issue a new one.
type SessionResponse struct {
	Token string      `json:"token,omitempty"`
	User  *users.User `json:"user"`
}
