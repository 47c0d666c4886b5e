package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	apperrors "github.com/thriftyclothings/storefront/internal/errors"
	"github.com/thriftyclothings/storefront/token"
	"github.com/thriftyclothings/storefront/tokenstore"
)

const (
	// RefreshPath is the endpoint that exchanges a stale session token
	RefreshPath = "/auth/refresh-token"

	// RequestIDHeader carries a per-attempt correlation id
	RequestIDHeader = "X-Request-Id"

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 10 << 20
)

// Response is a fully read API response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	sentToken string
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if v == nil || len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.Wrap(err, "[Response.Decode] decode body")
	}
	return nil
}

// Client sends requests to the storefront API. It attaches the stored
// session token and recovers from one 401 per request by refreshing it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     tokenstore.Store
	navigator  Navigator
	metrics    Metrics
	limiter    *rate.Limiter
	logger     zerolog.Logger
	timeout    time.Duration

	refreshGroup singleflight.Group
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTransport keeps the default client but sends through rt
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.httpClient = &http.Client{Transport: rt, Timeout: c.timeout}
	}
}

// WithTimeout bounds each attempt and the refresh call. Apply it after
// WithHTTPClient, which it modifies.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
		c.httpClient.Timeout = d
	}
}

// WithNavigator sets where forced login navigations go
func WithNavigator(n Navigator) ClientOption {
	return func(c *Client) {
		c.navigator = n
	}
}

func WithMetrics(m Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithRateLimiter makes every attempt wait on l before it is sent
func WithRateLimiter(l *rate.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = l
	}
}

func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for the API rooted at baseURL
func New(baseURL string, tokens tokenstore.Store, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[apiclient.New] base URL is required")
	}
	if tokens == nil {
		return nil, errors.New("[apiclient.New] token store is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		tokens:     tokens,
		metrics:    noopMetrics{},
		logger:     log.Logger,
		timeout:    defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Do sends req. A 401 triggers at most one token refresh and one resend;
// when that cannot recover the session the token is cleared, a login
// navigation is requested and a *SessionExpiredError is returned.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	resp, err := c.send(ctx, req, "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return c.recoverUnauthorized(ctx, req, resp)
	}
	return c.finish(req, resp)
}

func (c *Client) recoverUnauthorized(ctx context.Context, req *Request, resp *Response) (*Response, error) {
	if req.retried || isRefreshPath(req.Path) {
		return nil, c.expireSession(req, c.backendError(resp))
	}

	newToken, err := c.refresh(ctx, resp.sentToken)
	if err != nil {
		return nil, c.expireSession(req, err)
	}

	retry := req.retry()
	c.metrics.RecordRetry()
	resp, err = c.send(ctx, retry, newToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, c.expireSession(retry, c.backendError(resp))
	}
	return c.finish(retry, resp)
}

// refresh returns a usable token. When another request already replaced
// the token this one was sent with, that token is reused. Concurrent
// callers holding the same stale token share one refresh call.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	current, err := c.tokens.Get()
	if err != nil {
		return "", errors.Wrap(err, "[Client.refresh] read token")
	}
	if current != "" && current != stale {
		c.metrics.RecordRefresh(RefreshSkipped)
		return current, nil
	}

	v, err, shared := c.refreshGroup.Do(current, func() (any, error) {
		return c.doRefresh(context.WithoutCancel(ctx), current)
	})
	if shared {
		c.metrics.RecordRefresh(RefreshShared)
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) doRefresh(ctx context.Context, stale string) (string, error) {
	// A flight for this stale token may have finished between the caller's
	// read and joining the group.
	if current, err := c.tokens.Get(); err == nil && current != "" && current != stale {
		c.metrics.RecordRefresh(RefreshSkipped)
		return current, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := NewRawRequest(http.MethodPost, RefreshPath, "application/json", []byte("{}"))
	resp, err := c.send(ctx, req, stale)
	if err != nil {
		c.metrics.RecordRefresh(RefreshFailed)
		return "", errors.Wrap(err, "[Client.doRefresh] send")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.RecordRefresh(RefreshFailed)
		return "", c.backendError(resp)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := resp.Decode(&body); err != nil || body.Token == "" {
		c.metrics.RecordRefresh(RefreshFailed)
		return "", errNoRefreshToken(err)
	}
	if err := c.tokens.Set(body.Token); err != nil {
		c.metrics.RecordRefresh(RefreshFailed)
		return "", errors.Wrap(err, "[Client.doRefresh] persist token")
	}

	c.metrics.RecordRefresh(RefreshSucceeded)
	c.logger.Debug().
		Str("old", token.Fingerprint(stale)).
		Str("new", token.Fingerprint(body.Token)).
		Msg("session token refreshed")
	return body.Token, nil
}

// expireSession clears the token and sends the user to the login page
// unless they are already on an authentication screen.
func (c *Client) expireSession(req *Request, cause error) error {
	if err := c.tokens.Clear(); err != nil {
		c.logger.Err(err).Msg("failed to clear session token")
	}
	c.metrics.RecordSessionExpired()

	if c.navigator != nil && !IsAuthPage(c.navigator.CurrentPath()) {
		c.navigator.NavigateTo(LoginPath)
	}
	c.logger.Info().Str("path", req.Path).Bool("retried", req.retried).Msg("session expired")
	return &SessionExpiredError{Path: req.Path, Cause: cause}
}

// send performs one network attempt. A non-empty bearer overrides the
// stored token.
func (c *Client) send(ctx context.Context, req *Request, bearer string) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "[Client.send] rate limit")
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.url(req), req.bodyReader())
	if err != nil {
		return nil, errors.Wrap(err, "[Client.send] build request")
	}
	for k, vs := range req.Header {
		httpReq.Header[k] = append([]string(nil), vs...)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, uuid.NewString())

	switch req.kind {
	case bodyJSON, bodyMultipart:
		httpReq.Header.Set("Content-Type", req.contentType)
	case bodyRaw:
		if req.contentType != "" {
			httpReq.Header.Set("Content-Type", req.contentType)
		}
	}

	if bearer == "" {
		bearer = c.storedToken()
	}
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.RecordRequest(req.Method, 0, time.Since(start))
		return nil, errors.Wrapf(err, "[Client.send] %s %s", req.Method, req.Path)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	c.metrics.RecordRequest(req.Method, httpResp.StatusCode, time.Since(start))
	if err != nil {
		return nil, errors.Wrapf(err, "[Client.send] read %s %s", req.Method, req.Path)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
		sentToken:  bearer,
	}, nil
}

// storedToken reads the token slot. An unreadable slot is cleared and the
// request goes out without a bearer.
func (c *Client) storedToken() string {
	stored, err := c.tokens.Get()
	if err == nil {
		return stored
	}
	c.logger.Err(err).Msg("unreadable session token, clearing it")
	if err := c.tokens.Clear(); err != nil {
		c.logger.Err(err).Msg("failed to clear session token")
	}
	return ""
}

// finish turns markup bodies and non-2xx statuses into errors
func (c *Client) finish(req *Request, resp *Response) (*Response, error) {
	if looksLikeHTMLDocument(resp.Header.Get("Content-Type"), resp.Body) {
		c.metrics.RecordMalformedResponse()
		err := &MalformedResponseError{StatusCode: resp.StatusCode, Snippet: htmlSnippet(resp.Body)}
		c.logger.Error().
			Str("method", req.Method).
			Str("path", req.Path).
			Int("status", resp.StatusCode).
			Str("snippet", err.Snippet).
			Msg("received HTML instead of JSON")
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.backendError(resp)
	}
	return resp, nil
}

func (c *Client) backendError(resp *Response) error {
	be := &BackendError{StatusCode: resp.StatusCode, Body: resp.Body}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Code    string `json:"code"`
	}
	if json.Unmarshal(resp.Body, &body) == nil {
		be.Code = body.Code
		be.Message = body.Message
		if be.Message == "" {
			be.Message = body.Error
		}
	}
	return be
}

func (c *Client) url(req *Request) string {
	u := req.Path
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = c.baseURL + "/" + strings.TrimLeft(u, "/")
	}
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

func isRefreshPath(path string) bool {
	return strings.Contains(path, RefreshPath)
}

func errNoRefreshToken(cause error) error {
	if cause != nil {
		return errors.Wrap(cause, "[Client.doRefresh] decode refresh response")
	}
	return errors.WithStack(apperrors.ErrRefreshNoToken)
}

// GetJSON sends a GET and decodes the response into out
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Do(ctx, NewRequest(http.MethodGet, path))
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// PostJSON sends in as JSON, or no body when in is nil, and decodes the
// response into out when out is non-nil.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	req := NewRequest(http.MethodPost, path)
	if in != nil {
		var err error
		if req, err = NewJSONRequest(http.MethodPost, path, in); err != nil {
			return err
		}
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}
