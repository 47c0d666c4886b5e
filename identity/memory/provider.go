package memory

import (
	"context"
	"net/mail"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/thriftyclothings/storefront/identity"
)

const (
	minPasswordLength = 6
	maxFailedSignIns  = 5
)

var _ identity.Provider = (*Provider)(nil)

// Mail is a message the provider would have sent
type Mail struct {
	Kind  string // "verification" or "password-reset"
	Email string
}

type account struct {
	id            identity.Identity
	passwordHash  []byte
	disabled      bool
	failedSignIns int
}

// Provider is an in-process identity provider. It backs local development
// and tests; accounts live only as long as the process.
type Provider struct {
	lock     sync.RWMutex
	accounts map[string]*account // email -> account
	outbox   []Mail
	failures map[string]error // operation -> injected error

	notifier *identity.Notifier
}

type Option func(*Provider)

// WithSignedIn seeds an account and reports it as already signed in, the
// way a browser restores a persisted identity on reload.
func WithSignedIn(id identity.Identity, password string) Option {
	return func(p *Provider) {
		if err := p.addAccount(id, password); err != nil {
			panic(err)
		}
		p.notifier.Publish(&id)
	}
}

// WithAccount seeds an account without signing it in
func WithAccount(id identity.Identity, password string) Option {
	return func(p *Provider) {
		if err := p.addAccount(id, password); err != nil {
			panic(err)
		}
	}
}

func New(options ...Option) *Provider {
	p := &Provider{
		accounts: make(map[string]*account),
		failures: make(map[string]error),
		notifier: identity.NewNotifier(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *Provider) addAccount(id identity.Identity, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	if id.UID == "" {
		id.UID = uuid.NewString()
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	p.accounts[normaliseEmail(id.Email)] = &account{id: id, passwordHash: hash}
	return nil
}

// Fail makes every call of operation ("CreateIdentity", "SignIn", "SignOut",
// "SendVerificationEmail", "SendPasswordResetEmail") return err until
// cleared with a nil err.
func (p *Provider) Fail(operation string, err error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if err == nil {
		delete(p.failures, operation)
		return
	}
	p.failures[operation] = err
}

func (p *Provider) injected(operation string) error {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.failures[operation]
}

// Disable blocks further sign-ins for email
func (p *Provider) Disable(email string) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if a, ok := p.accounts[normaliseEmail(email)]; ok {
		a.disabled = true
	}
}

// VerifyEmail marks the account's email as verified
func (p *Provider) VerifyEmail(email string) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if a, ok := p.accounts[normaliseEmail(email)]; ok {
		a.id.EmailVerified = true
	}
}

// Outbox returns the mails sent so far
func (p *Provider) Outbox() []Mail {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return append([]Mail(nil), p.outbox...)
}

// Current returns the signed-in identity, if any
func (p *Provider) Current() *identity.Identity {
	return p.notifier.Current()
}

// SignOutRemote simulates the session ending outside the app (expiry,
// revocation in another tab).
func (p *Provider) SignOutRemote() {
	p.notifier.Publish(nil)
}

func (p *Provider) CreateIdentity(ctx context.Context, email, password, displayName string) (*identity.Identity, error) {
	if err := p.injected("CreateIdentity"); err != nil {
		return nil, err
	}
	if !validEmail(email) {
		return nil, identity.Translate("auth/invalid-email", "", nil)
	}
	if len(password) < minPasswordLength {
		return nil, identity.Translate("auth/weak-password", "", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, identity.Translate("auth/internal-error", "Registration failed", err)
	}

	key := normaliseEmail(email)
	p.lock.Lock()
	if _, exists := p.accounts[key]; exists {
		p.lock.Unlock()
		return nil, identity.Translate("auth/email-already-in-use", "", nil)
	}
	a := &account{
		id: identity.Identity{
			UID:         uuid.NewString(),
			Email:       strings.TrimSpace(email),
			DisplayName: displayName,
		},
		passwordHash: hash,
	}
	p.accounts[key] = a
	id := a.id
	p.lock.Unlock()

	// Creating an account signs it in
	p.notifier.Publish(&id)
	return &id, nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*identity.Identity, error) {
	if err := p.injected("SignIn"); err != nil {
		return nil, err
	}
	if !validEmail(email) {
		return nil, identity.Translate("auth/invalid-email", "", nil)
	}

	p.lock.Lock()
	a, ok := p.accounts[normaliseEmail(email)]
	if !ok {
		p.lock.Unlock()
		return nil, identity.Translate("auth/user-not-found", "", nil)
	}
	if a.failedSignIns >= maxFailedSignIns {
		p.lock.Unlock()
		return nil, identity.Translate("auth/too-many-requests", "", nil)
	}
	if a.disabled {
		p.lock.Unlock()
		return nil, identity.Translate("auth/user-disabled", "", nil)
	}
	if bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) != nil {
		a.failedSignIns++
		p.lock.Unlock()
		return nil, identity.Translate("auth/wrong-password", "", nil)
	}
	a.failedSignIns = 0
	id := a.id
	p.lock.Unlock()

	p.notifier.Publish(&id)
	return &id, nil
}

func (p *Provider) SignOut(ctx context.Context) error {
	if err := p.injected("SignOut"); err != nil {
		return err
	}
	p.notifier.Publish(nil)
	return nil
}

func (p *Provider) OnAuthStateChanged(fn identity.Listener) func() {
	return p.notifier.Subscribe(fn)
}

func (p *Provider) SendVerificationEmail(ctx context.Context, id *identity.Identity) error {
	if err := p.injected("SendVerificationEmail"); err != nil {
		return err
	}
	if id == nil {
		return identity.Translate("auth/user-not-found", "", nil)
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	p.outbox = append(p.outbox, Mail{Kind: "verification", Email: id.Email})
	return nil
}

func (p *Provider) SendPasswordResetEmail(ctx context.Context, email string) error {
	if err := p.injected("SendPasswordResetEmail"); err != nil {
		return err
	}
	if !validEmail(email) {
		return identity.Translate("auth/invalid-email", "", nil)
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	if _, ok := p.accounts[normaliseEmail(email)]; !ok {
		return identity.Translate("auth/user-not-found", "", nil)
	}
	p.outbox = append(p.outbox, Mail{Kind: "password-reset", Email: email})
	return nil
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	return err == nil && addr.Address == strings.TrimSpace(email)
}
