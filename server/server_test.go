package server_test

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/thriftyclothings/storefront/apiclient"
	"github.com/thriftyclothings/storefront/identity"
	"github.com/thriftyclothings/storefront/server"
	"github.com/thriftyclothings/storefront/sessions"
	"github.com/thriftyclothings/storefront/users"
)

type testConfig struct{}

func (testConfig) GetEnv() string                { return "TEST" }
func (testConfig) GetAppName() string            { return "Thrifty Clothings" }
func (testConfig) GetLoadingRefreshSeconds() int { return 2 }

// fakeAuth stands in for the identity bridge
type fakeAuth struct {
	mu       sync.Mutex
	session  *sessions.Store
	loginErr error
	calls    []string
	current  *identity.Identity
}

func (a *fakeAuth) record(call string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, call)
}

func (a *fakeAuth) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

func (a *fakeAuth) Register(_ context.Context, email, _, name string) (*users.User, error) {
	a.record("register")
	u := &users.User{ID: "u1", Email: email, Name: name, Role: users.RoleUser}
	a.session.SetUser(u)
	return u, nil
}

func (a *fakeAuth) Login(_ context.Context, email, _ string) (*users.User, error) {
	a.record("login")
	if a.loginErr != nil {
		return nil, a.loginErr
	}
	u := &users.User{ID: "u1", Email: email, Role: users.RoleUser}
	a.session.SetUser(u)
	return u, nil
}

func (a *fakeAuth) Logout(context.Context) {
	a.record("logout")
	a.session.ClearUser()
}

func (a *fakeAuth) SendPasswordReset(context.Context, string) error {
	a.record("reset")
	return nil
}

func (a *fakeAuth) ResendVerification(context.Context) error {
	a.record("resend")
	if a.current == nil {
		return identity.Translate("auth/user-not-found", "", nil)
	}
	return nil
}

func (a *fakeAuth) Current() *identity.Identity {
	return a.current
}

type testFixture struct {
	session   *sessions.Store
	auth      *fakeAuth
	navigator *server.Navigator
	registry  *prometheus.Registry
	server    *server.Server
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		session:   sessions.NewStore(),
		navigator: server.NewNavigator(),
		registry:  prometheus.NewRegistry(),
	}
	f.auth = &fakeAuth{session: f.session}
	apiclient.NewCollector(f.registry)

	srv, err := server.New(testConfig{}, server.Deps{
		Auth:       f.auth,
		Session:    f.session,
		Navigator:  f.navigator,
		Gatherer:   f.registry,
		Registerer: f.registry,
	})
	require.NoError(t, err)
	f.server = srv
	t.Cleanup(srv.Close)
	return f
}

func (f *testFixture) signIn(role users.RoleType) {
	f.session.SetUser(&users.User{ID: "u1", Email: "ada@example.com", Name: "Ada", Role: role})
	f.session.MarkInitialized()
}

func (f *testFixture) get(path string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *testFixture) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func requireRedirect(t *testing.T, rec *httptest.ResponseRecorder, target string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, target, rec.Header().Get("Location"))
}

func TestNew_Validation(t *testing.T) {
	_, err := server.New(testConfig{}, server.Deps{})
	require.Error(t, err)
}

func TestGuardedPages_LoadingBeforeInitialized(t *testing.T) {
	f := setupTestFixture(t)
	f.session.SetUser(&users.User{ID: "u1", Role: users.RoleSeller})

	for _, path := range []string{"/", "/admin", "/admin/orders", "/cart", "/seller", "/no-such-page"} {
		rec := f.get(path)
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.Contains(t, rec.Body.String(), "Loading...", path)
		require.Contains(t, rec.Body.String(), `http-equiv="refresh" content="2"`, path)
		require.Empty(t, rec.Header().Get("Location"), path)
	}
}

func TestAdminPages_SellerRedirectedToLogin(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(users.RoleSeller)

	requireRedirect(t, f.get("/admin"), "/login")
	requireRedirect(t, f.get("/admin/products/edit/42"), "/login")
}

func TestAdminPages_AdminRenders(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(users.RoleAdmin)

	rec := f.get("/admin/products/edit/42")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Edit product")
	require.Contains(t, rec.Body.String(), `data-page="/admin/products/edit/42"`)
}

func TestLanding(t *testing.T) {
	f := setupTestFixture(t)
	f.session.MarkInitialized()

	rec := f.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Welcome")

	f.signIn(users.RoleUser)
	requireRedirect(t, f.get("/"), "/home")
}

func TestCatchAll(t *testing.T) {
	f := setupTestFixture(t)
	f.session.MarkInitialized()
	requireRedirect(t, f.get("/does/not/exist"), "/")

	f.signIn(users.RoleUser)
	requireRedirect(t, f.get("/does/not/exist"), "/home")
}

func TestSignedInPages(t *testing.T) {
	f := setupTestFixture(t)
	f.session.MarkInitialized()

	requireRedirect(t, f.get("/cart"), "/login")
	requireRedirect(t, f.get("/profile/wishlist"), "/login")
	requireRedirect(t, f.get("/seller"), "/")

	f.signIn(users.RoleUser)
	require.Equal(t, http.StatusOK, f.get("/cart").Code)
	requireRedirect(t, f.get("/seller"), "/")

	f.signIn(users.RoleSeller)
	require.Equal(t, http.StatusOK, f.get("/seller").Code)
}

func TestPublicPages_NoGuard(t *testing.T) {
	f := setupTestFixture(t)

	for _, path := range []string{"/home", "/products", "/login", "/register", "/forgot-password", "/verify-email"} {
		rec := f.get(path)
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.NotContains(t, rec.Body.String(), "Loading...", path)
		require.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"), path)
	}
}

func TestHTMXRedirect(t *testing.T) {
	f := setupTestFixture(t)
	f.session.MarkInitialized()

	rec := f.get("/admin", "HX-Request", "true")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("HX-Redirect"))
}

func TestLoginSubmission(t *testing.T) {
	f := setupTestFixture(t)
	f.session.MarkInitialized()

	rec := f.postForm("/login", url.Values{"email": {"ada@example.com"}, "password": {"secret1"}})
	requireRedirect(t, rec, "/")
	require.Equal(t, []string{"login"}, f.auth.Calls())
	require.True(t, f.session.Snapshot().SignedIn())
}

func TestLoginSubmission_InlineErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{
			name:    "wrong password",
			err:     identity.Translate("auth/wrong-password", "", nil),
			message: identity.Translate("auth/wrong-password", "", nil).Message,
		},
		{
			name:    "unknown backend user",
			err:     &apiclient.BackendError{StatusCode: http.StatusNotFound, Code: apiclient.CodeUserNotFound},
			message: "No account found with this email. Please register first.",
		},
		{
			name:    "html from backend",
			err:     &apiclient.MalformedResponseError{StatusCode: http.StatusBadGateway},
			message: "server error - please try again later",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.session.MarkInitialized()
			f.auth.loginErr = tt.err

			rec := f.postForm("/login", url.Values{"email": {"ada@example.com"}, "password": {"secret1"}})
			require.Equal(t, http.StatusOK, rec.Code)
			require.Contains(t, rec.Body.String(), `role="alert"`)
			require.Contains(t, rec.Body.String(), template.HTMLEscapeString(tt.message))
			require.Contains(t, rec.Body.String(), `value="ada@example.com"`)
		})
	}
}

func TestLoginSubmission_EmailNotVerified(t *testing.T) {
	f := setupTestFixture(t)
	f.auth.loginErr = &apiclient.BackendError{StatusCode: http.StatusForbidden, Code: apiclient.CodeEmailNotVerified}

	rec := f.postForm("/login", url.Values{"email": {"ada@example.com"}, "password": {"secret1"}})
	requireRedirect(t, rec, "/verify-email?email=ada%40example.com")
}

func TestLoginSubmission_Validation(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.postForm("/login", url.Values{"email": {"not-an-email"}, "password": {"x"}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Please enter a valid email address.")
	require.Empty(t, f.auth.Calls())
}

func TestRegisterSubmission(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.postForm("/register", url.Values{
		"name": {"Ada"}, "email": {"ada@example.com"}, "password": {"secret1"}, "confirmPassword": {"secret2"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Passwords do not match")
	require.Contains(t, rec.Body.String(), `value="Ada"`)
	require.Empty(t, f.auth.Calls())

	rec = f.postForm("/register", url.Values{
		"name": {"Ada"}, "email": {"ada@example.com"}, "password": {"secret1"}, "confirmPassword": {"secret1"},
	})
	requireRedirect(t, rec, "/verify-email?email=ada%40example.com")
	require.Equal(t, []string{"register"}, f.auth.Calls())
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(users.RoleUser)

	rec := f.postForm("/logout", nil)
	requireRedirect(t, rec, "/login")
	require.False(t, f.session.Snapshot().SignedIn())
}

func TestForgotPassword(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.postForm("/forgot-password", url.Values{"email": {"ada@example.com"}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Password reset email sent!")
	require.Equal(t, []string{"reset"}, f.auth.Calls())
}

func TestResendVerification(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.postForm("/verify-email/resend", nil)
	require.Contains(t, rec.Body.String(), `role="alert"`)

	f.auth.current = &identity.Identity{UID: "uid-1", Email: "ada@example.com"}
	rec = f.postForm("/verify-email/resend", nil)
	require.Contains(t, rec.Body.String(), "Verification email sent!")
	require.Contains(t, rec.Body.String(), "ada@example.com")
}

func TestNavigator_ForcedLoginApplied(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(users.RoleUser)

	require.Equal(t, http.StatusOK, f.get("/profile").Code)
	require.Equal(t, "/profile", f.navigator.CurrentPath())

	f.navigator.NavigateTo("/login")
	requireRedirect(t, f.get("/products"), "/login")
	require.Equal(t, "/login", f.navigator.CurrentPath())

	require.Equal(t, http.StatusOK, f.get("/products").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	f := setupTestFixture(t)
	f.session.MarkInitialized()

	rec := f.get("/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	require.Equal(t, true, body["initialized"])
	require.Equal(t, false, body["signedIn"])

	rec = f.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "storefront_api_retries_total")
}

func TestMetrics_FollowSessionStore(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.get("/metrics")
	require.Contains(t, rec.Body.String(), "storefront_session_initialized 0")
	require.Contains(t, rec.Body.String(), "storefront_session_signed_in 0")

	f.session.MarkInitialized()
	f.signIn(users.RoleSeller)

	rec = f.get("/metrics")
	require.Contains(t, rec.Body.String(), "storefront_session_initialized 1")
	require.Contains(t, rec.Body.String(), "storefront_session_signed_in 1")

	f.session.ClearUser()

	rec = f.get("/metrics")
	require.Contains(t, rec.Body.String(), "storefront_session_signed_in 0")
}
