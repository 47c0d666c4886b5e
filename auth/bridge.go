package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thriftyclothings/storefront/backend"
	"github.com/thriftyclothings/storefront/identity"
	apperrors "github.com/thriftyclothings/storefront/internal/errors"
	"github.com/thriftyclothings/storefront/sessions"
	"github.com/thriftyclothings/storefront/token"
	"github.com/thriftyclothings/storefront/tokenstore"
	"github.com/thriftyclothings/storefront/users"
)

// Backend is the part of the storefront API the bridge talks to
type Backend interface {
	RegisterWithIdentity(ctx context.Context, req backend.RegisterRequest) (*backend.SessionResponse, error)
	LoginWithIdentity(ctx context.Context, req backend.IdentityRequest) (*backend.SessionResponse, error)
	ResolveSession(ctx context.Context, req backend.IdentityRequest) (*backend.SessionResponse, error)
	ValidateToken(ctx context.Context) (*users.User, error)
	Logout(ctx context.Context) error
	TrackLogin(ctx context.Context) error
}

// Deps holds the collaborators of a Bridge
type Deps struct {
	Identity identity.Provider // Identity vendor
	Backend  Backend           // Storefront API session endpoints
	Tokens   tokenstore.Store  // Persisted backend session token
	Session  *sessions.Store   // Session written by the bridge
}

// Bridge keeps the storefront session in step with the identity provider
// and the backend. It is the only writer of the session store and token.
type Bridge struct {
	deps    Deps
	logger  zerolog.Logger
	nowTime func() time.Time

	// flow serialises the register, login and logout flows with the
	// identity-change handler so their state writes never interleave.
	flow sync.Mutex

	lock        sync.Mutex
	started     bool
	unsubscribe func()
	current     *identity.Identity
}

// BridgeOption defines a function type to modify the Bridge instance.
type BridgeOption func(*Bridge)

func WithLogger(l zerolog.Logger) BridgeOption {
	return func(b *Bridge) {
		b.logger = l
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) BridgeOption {
	return func(b *Bridge) {
		b.nowTime = nowFunc
	}
}

// NewBridge initializes a new Bridge with required dependencies.
func NewBridge(deps Deps, options ...BridgeOption) (*Bridge, error) {
	if deps.Identity == nil {
		return nil, errors.New("[NewBridge] Identity provider is required")
	}
	if deps.Backend == nil {
		return nil, errors.New("[NewBridge] Backend is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("[NewBridge] Tokens store is required")
	}
	if deps.Session == nil {
		return nil, errors.New("[NewBridge] Session store is required")
	}

	b := &Bridge{
		deps:    deps,
		logger:  log.Logger,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(b)
	}
	return b, nil
}

// Start subscribes to identity changes. The subscription ends when ctx is
// done or Stop is called. Starting twice is an error.
func (b *Bridge) Start(ctx context.Context) error {
	b.lock.Lock()
	if b.started {
		b.lock.Unlock()
		return errors.WithStack(apperrors.ErrAlreadyStarted)
	}
	b.started = true
	b.lock.Unlock()

	unsubscribe := b.deps.Identity.OnAuthStateChanged(b.onIdentityChange)

	b.lock.Lock()
	b.unsubscribe = unsubscribe
	b.lock.Unlock()

	context.AfterFunc(ctx, b.Stop)
	return nil
}

// Stop ends the identity subscription and waits for an in-progress
// callback to return. It is safe to call more than once.
func (b *Bridge) Stop() {
	b.lock.Lock()
	unsubscribe := b.unsubscribe
	b.unsubscribe = nil
	b.lock.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Register creates the identity, sends the verification email, creates the
// backend user and signs the session in. Nothing is retried.
func (b *Bridge) Register(ctx context.Context, email, password, displayName string) (*users.User, error) {
	b.flow.Lock()
	defer b.flow.Unlock()

	id, err := b.deps.Identity.CreateIdentity(ctx, email, password, displayName)
	if err != nil {
		return nil, errors.Wrap(err, "[Register] create identity")
	}
	b.setCurrent(id)

	if err := b.deps.Identity.SendVerificationEmail(ctx, id); err != nil {
		return nil, errors.Wrap(err, "[Register] send verification email")
	}

	resp, err := b.deps.Backend.RegisterWithIdentity(ctx, backend.RegisterRequest{
		IdentityUID: id.UID,
		Email:       id.Email,
		Name:        displayName,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Register] backend register")
	}

	b.persistToken(resp.Token)
	b.setUser(resp.User)
	b.logger.Info().Str("user", resp.User.ID).Msg("registered")
	return resp.User.Clone(), nil
}

// Login signs the identity in and exchanges it for a backend session. The
// login tracking call afterwards never affects the result.
func (b *Bridge) Login(ctx context.Context, email, password string) (*users.User, error) {
	b.flow.Lock()
	defer b.flow.Unlock()

	id, err := b.deps.Identity.SignIn(ctx, email, password)
	if err != nil {
		return nil, errors.Wrap(err, "[Login] sign in")
	}
	b.setCurrent(id)

	resp, err := b.deps.Backend.LoginWithIdentity(ctx, backend.IdentityRequest{
		IdentityUID: id.UID,
		Email:       id.Email,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Login] backend login")
	}

	b.persistToken(resp.Token)
	b.setUser(resp.User)

	if err := b.deps.Backend.TrackLogin(ctx); err != nil {
		b.logger.Warn().Err(err).Str("user", resp.User.ID).Msg("failed to track login")
	}

	b.logger.Info().Str("user", resp.User.ID).Str("role", string(resp.User.Role)).Msg("logged in")
	return resp.User.Clone(), nil
}

// Logout signs out everywhere it can. The local session and token are
// cleared whatever the provider or backend answer.
func (b *Bridge) Logout(ctx context.Context) {
	b.flow.Lock()
	defer b.flow.Unlock()

	if err := b.deps.Identity.SignOut(ctx); err != nil {
		b.logger.Err(err).Msg("identity sign out failed")
	}
	b.setCurrent(nil)

	if err := b.deps.Backend.Logout(ctx); err != nil {
		b.logger.Debug().Err(err).Msg("backend logout failed")
	}

	b.deps.Session.ClearUser()
	b.clearToken()
}

// SendPasswordReset asks the identity provider to mail a reset link
func (b *Bridge) SendPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}
	if err := b.deps.Identity.SendPasswordResetEmail(ctx, email); err != nil {
		return errors.Wrap(err, "[SendPasswordReset] send")
	}
	return nil
}

// ResendVerification mails a new verification link to the signed-in
// identity.
func (b *Bridge) ResendVerification(ctx context.Context) error {
	id := b.Current()
	if id == nil {
		return errors.WithStack(apperrors.ErrNotSignedIn)
	}
	if err := b.deps.Identity.SendVerificationEmail(ctx, id); err != nil {
		return errors.Wrap(err, "[ResendVerification] send")
	}
	return nil
}

// Current returns the identity last reported by the provider
func (b *Bridge) Current() *identity.Identity {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.current == nil {
		return nil
	}
	id := *b.current
	return &id
}

func (b *Bridge) onIdentityChange(ctx context.Context, id *identity.Identity) {
	b.flow.Lock()
	defer b.flow.Unlock()
	defer b.deps.Session.MarkInitialized()

	// Stopped while waiting for a flow: leave the persisted state alone.
	if ctx.Err() != nil {
		return
	}

	b.setCurrent(id)
	if id == nil {
		b.deps.Session.ClearUser()
		b.clearToken()
		return
	}

	resp, err := b.deps.Backend.ResolveSession(ctx, backend.IdentityRequest{
		IdentityUID: id.UID,
		Email:       id.Email,
	})
	if err == nil {
		b.setUser(resp.User)
		b.persistToken(resp.Token)
		return
	}
	if ctx.Err() != nil {
		return
	}
	b.logger.Err(err).Str("uid", id.UID).Msg("failed to resolve session")

	stored, tokenErr := b.deps.Tokens.Get()
	if tokenErr != nil {
		// An unreadable slot would fail every later request
		b.logger.Err(tokenErr).Msg("failed to read session token")
		b.deps.Session.ClearUser()
		b.clearToken()
		return
	}
	if stored == "" {
		b.deps.Session.ClearUser()
		return
	}

	user, err := b.deps.Backend.ValidateToken(ctx)
	if err != nil && ctx.Err() != nil {
		return
	}
	if err != nil {
		b.logger.Err(err).Str("token", token.Fingerprint(stored)).Msg("token validation failed")
		b.deps.Session.ClearUser()
		b.clearToken()
		return
	}
	b.setUser(user)
}

// setUser signs the session in. Roles the guards do not know still sign
// in but match no role-gated page.
func (b *Bridge) setUser(u *users.User) {
	if u != nil && !u.Role.Valid() {
		b.logger.Warn().Str("user", u.ID).Str("role", string(u.Role)).Msg("backend returned an unknown role")
	}
	b.deps.Session.SetUser(u)
}

func (b *Bridge) setCurrent(id *identity.Identity) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if id == nil {
		b.current = nil
		return
	}
	c := *id
	b.current = &c
}

// persistToken stores a token issued by the backend. An empty token keeps
// whatever is stored.
func (b *Bridge) persistToken(raw string) {
	if raw == "" {
		return
	}
	if err := b.deps.Tokens.Set(raw); err != nil {
		b.logger.Err(err).Msg("failed to persist session token")
		return
	}

	event := b.logger.Debug().Str("token", token.Fingerprint(raw))
	if claims, err := token.Inspect(raw); err == nil {
		event = event.Str("subject", claims.Subject)
		if !claims.ExpiresAt.IsZero() {
			event = event.Dur("expiresIn", claims.ExpiresAt.Sub(b.nowTime()))
		}
		if claims.Expired(b.nowTime()) {
			b.logger.Warn().Str("token", token.Fingerprint(raw)).Msg("backend issued an expired session token")
		}
	}
	event.Msg("session token stored")
}

func (b *Bridge) clearToken() {
	if err := b.deps.Tokens.Clear(); err != nil {
		b.logger.Err(err).Msg("failed to clear session token")
	}
}
