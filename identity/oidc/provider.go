package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/thriftyclothings/storefront/identity"
)

// Issuer form endpoints, relative to the issuer URL
const (
	RouteSignup             = "/auth/signup"
	RouteResendVerification = "/auth/verify-email/resend"
	RouteForgotPassword     = "/auth/forgot-password"
	RouteRevoke             = "/oauth2/revoke"
)

var _ identity.Provider = (*Provider)(nil)

// Config describes the OpenID Connect issuer and this client's registration
type Config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	// CredentialCache is a file the refresh token is kept in so a restart
	// restores the signed-in identity. Empty disables persistence.
	CredentialCache string
	HTTPClient      *http.Client
}

// Provider signs users in against an OpenID Connect issuer with the
// resource-owner password grant and verifies the returned ID token.
type Provider struct {
	config     Config
	oauth      *oauth2.Config
	verifier   *gooidc.IDTokenVerifier
	httpClient *http.Client
	formClient *http.Client

	lock  sync.Mutex
	token *oauth2.Token

	notifier *identity.Notifier
}

// New discovers the issuer's endpoints and restores a cached identity, if any
func New(ctx context.Context, config Config) (*Provider, error) {
	if config.Issuer == "" || config.ClientID == "" {
		return nil, errors.New("[oidc New] issuer and client id are required")
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	ctx = gooidc.ClientContext(ctx, httpClient)
	discovered, err := gooidc.NewProvider(ctx, strings.TrimRight(config.Issuer, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "[oidc New] failed to create OIDC provider")
	}

	p := &Provider{
		config: config,
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     discovered.Endpoint(),
			Scopes:       []string{gooidc.ScopeOpenID, "profile", "email", gooidc.ScopeOfflineAccess},
		},
		verifier:   discovered.Verifier(&gooidc.Config{ClientID: config.ClientID}),
		httpClient: httpClient,
		formClient: &http.Client{
			Timeout:   httpClient.Timeout,
			Transport: httpClient.Transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		notifier: identity.NewNotifier(),
	}

	p.restore(ctx)
	return p, nil
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

func (p *Provider) CreateIdentity(ctx context.Context, email, password, displayName string) (*identity.Identity, error) {
	form := url.Values{
		"email":            {email},
		"password":         {password},
		"confirm_password": {password},
		"name":             {displayName},
		"client_id":        {p.config.ClientID},
	}
	if err := p.postForm(ctx, RouteSignup, form); err != nil {
		return nil, err
	}
	// A new account is signed in straight away
	return p.SignIn(ctx, email, password)
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*identity.Identity, error) {
	token, err := p.oauth.PasswordCredentialsToken(p.clientContext(ctx), email, password)
	if err != nil {
		return nil, translateOAuthError(err)
	}

	id, err := p.identityFromToken(ctx, token)
	if err != nil {
		return nil, err
	}

	p.setToken(token)
	p.notifier.Publish(id)
	return id, nil
}

// SignOut always forgets the local credential. A failed revocation is
// still reported to the caller.
func (p *Provider) SignOut(ctx context.Context) error {
	p.lock.Lock()
	token := p.token
	p.token = nil
	p.lock.Unlock()

	p.writeCache("")
	p.notifier.Publish(nil)

	if token == nil || token.RefreshToken == "" {
		return nil
	}
	form := url.Values{
		"token":           {token.RefreshToken},
		"token_type_hint": {"refresh_token"},
		"client_id":       {p.config.ClientID},
		"client_secret":   {p.config.ClientSecret},
	}
	if err := p.postForm(ctx, RouteRevoke, form); err != nil {
		return errors.Wrap(err, "[oidc SignOut] token revocation failed")
	}
	return nil
}

func (p *Provider) OnAuthStateChanged(fn identity.Listener) func() {
	return p.notifier.Subscribe(fn)
}

func (p *Provider) SendVerificationEmail(ctx context.Context, id *identity.Identity) error {
	if id == nil {
		return identity.Translate("auth/user-not-found", "", nil)
	}
	return p.postForm(ctx, RouteResendVerification, url.Values{"email": {id.Email}})
}

func (p *Provider) SendPasswordResetEmail(ctx context.Context, email string) error {
	return p.postForm(ctx, RouteForgotPassword, url.Values{"email": {email}})
}

type idTokenClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func (p *Provider) identityFromToken(ctx context.Context, token *oauth2.Token) (*identity.Identity, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, identity.Translate("invalid-id-token", "No ID token in response", nil)
	}

	idToken, err := p.verifier.Verify(gooidc.ClientContext(ctx, p.httpClient), rawIDToken)
	if err != nil {
		return nil, identity.Translate("invalid-id-token", "ID token verification failed", err)
	}

	var claims idTokenClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, identity.Translate("invalid-id-token", "Failed to extract claims", err)
	}

	return &identity.Identity{
		UID:           claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		DisplayName:   claims.Name,
	}, nil
}

func (p *Provider) setToken(token *oauth2.Token) {
	p.lock.Lock()
	p.token = token
	p.lock.Unlock()
	p.writeCache(token.RefreshToken)
}

type cachedCredential struct {
	RefreshToken string `json:"refresh_token"`
}

func (p *Provider) restore(ctx context.Context) {
	if p.config.CredentialCache == "" {
		return
	}
	data, err := os.ReadFile(p.config.CredentialCache)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Err(err).Str("file", p.config.CredentialCache).Msg("Failed to read identity credential cache")
		}
		return
	}
	var cached cachedCredential
	if err := json.Unmarshal(data, &cached); err != nil || cached.RefreshToken == "" {
		return
	}

	token, err := p.oauth.TokenSource(p.clientContext(ctx), &oauth2.Token{RefreshToken: cached.RefreshToken}).Token()
	if err != nil {
		log.Err(err).Msg("Cached identity could not be refreshed")
		p.writeCache("")
		return
	}
	id, err := p.identityFromToken(ctx, token)
	if err != nil {
		log.Err(err).Msg("Cached identity failed verification")
		p.writeCache("")
		return
	}
	if token.RefreshToken == "" {
		token.RefreshToken = cached.RefreshToken
	}
	p.setToken(token)
	p.notifier.Publish(id)
}

func (p *Provider) writeCache(refreshToken string) {
	path := p.config.CredentialCache
	if path == "" {
		return
	}
	if refreshToken == "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Err(err).Str("file", path).Msg("Failed to clear identity credential cache")
		}
		return
	}
	data, _ := json.Marshal(cachedCredential{RefreshToken: refreshToken})
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		log.Err(err).Str("file", path).Msg("Failed to create credential cache directory")
		return
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		log.Err(err).Str("file", path).Msg("Failed to write identity credential cache")
	}
}

type issuerError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// postForm submits a form to one of the issuer's account endpoints. 2xx and
// 3xx (the issuer redirects browsers after a successful post) are success.
func (p *Provider) postForm(ctx context.Context, route string, form url.Values) error {
	endpoint := strings.TrimRight(p.config.Issuer, "/") + route
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return identity.Translate("internal-error", "Request could not be built", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.formClient.Do(req)
	if err != nil {
		return identity.Translate("network-request-failed", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusBadRequest {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var ie issuerError
	if json.Unmarshal(body, &ie) == nil && ie.Error != "" {
		return identity.Translate(ie.Error, ie.ErrorDescription, nil)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return identity.Translate("too-many-requests", "", nil)
	}
	return identity.Translate("", fmt.Sprintf("Identity provider returned %d", resp.StatusCode), nil)
}

func translateOAuthError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		code := retrieveErr.ErrorCode
		if code == "" && retrieveErr.Response != nil && retrieveErr.Response.StatusCode == http.StatusTooManyRequests {
			code = "too-many-requests"
		}
		return identity.Translate(code, retrieveErr.ErrorDescription, err)
	}
	return identity.Translate("network-request-failed", "", err)
}
