package identity

import "context"

// Identity is the credential the identity provider reports for the
// signed-in end user. It is read on every auth-state callback and never
// persisted by the session core.
type Identity struct {
	UID           string // Provider-scoped user id
	Email         string
	EmailVerified bool
	DisplayName   string
}

// Listener receives the current identity, or nil once signed out.
type Listener func(ctx context.Context, id *Identity)

// Provider is the capability set the session core needs from an identity
// vendor. Errors returned by implementations are *Error values.
type Provider interface {
	// CreateIdentity registers a new account and sets its display name
	CreateIdentity(ctx context.Context, email, password, displayName string) (*Identity, error)
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SignOut(ctx context.Context) error
	// OnAuthStateChanged registers fn. The current state is delivered first,
	// and deliveries to one listener never overlap.
	OnAuthStateChanged(fn Listener) (unsubscribe func())
	SendVerificationEmail(ctx context.Context, id *Identity) error
	SendPasswordResetEmail(ctx context.Context, email string) error
}
