package backend

import (
	"context"

	"github.com/pkg/errors"

	"github.com/thriftyclothings/storefront/apiclient"
	apperrors "github.com/thriftyclothings/storefront/internal/errors"
	"github.com/thriftyclothings/storefront/users"
)

// Client calls the storefront API's session endpoints
type Client struct {
	api *apiclient.Client
}

func New(api *apiclient.Client) *Client {
	return &Client{api: api}
}

func (c *Client) RegisterWithIdentity(ctx context.Context, req RegisterRequest) (*SessionResponse, error) {
	return c.exchange(ctx, PathRegisterWithIdentity, req)
}

func (c *Client) LoginWithIdentity(ctx context.Context, req IdentityRequest) (*SessionResponse, error) {
	return c.exchange(ctx, PathLoginWithIdentity, req)
}

// ResolveSession exchanges an already signed-in identity for a session,
// used when the identity provider reports a restored sign-in.
func (c *Client) ResolveSession(ctx context.Context, req IdentityRequest) (*SessionResponse, error) {
	return c.exchange(ctx, PathResolveSession, req)
}

// ValidateToken returns the user the stored session token belongs to
func (c *Client) ValidateToken(ctx context.Context) (*users.User, error) {
	var resp SessionResponse
	if err := c.api.GetJSON(ctx, PathValidateToken, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, errors.WithStack(apperrors.ErrMissingUser)
	}
	return resp.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.api.PostJSON(ctx, PathLogout, nil, nil)
}

func (c *Client) TrackLogin(ctx context.Context) error {
	return c.api.PostJSON(ctx, PathTrackLogin, nil, nil)
}

func (c *Client) exchange(ctx context.Context, path string, body any) (*SessionResponse, error) {
	var resp SessionResponse
	if err := c.api.PostJSON(ctx, path, body, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, errors.Wrapf(apperrors.ErrMissingUser, "[backend.exchange] %s", path)
	}
	return &resp, nil
}
