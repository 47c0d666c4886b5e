package server

import (
	"context"
	"html/template"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/thriftyclothings/storefront/auth"
	"github.com/thriftyclothings/storefront/identity"
	"github.com/thriftyclothings/storefront/sessions"
	"github.com/thriftyclothings/storefront/users"
)

// Config is the part of the application configuration the shell reads
type Config interface {
	GetEnv() string
	GetAppName() string
	GetLoadingRefreshSeconds() int
}

// Authenticator is the session flow surface the form handlers drive
type Authenticator interface {
	Register(ctx context.Context, email, password, displayName string) (*users.User, error)
	Login(ctx context.Context, email, password string) (*users.User, error)
	Logout(ctx context.Context)
	SendPasswordReset(ctx context.Context, email string) error
	ResendVerification(ctx context.Context) error
	Current() *identity.Identity
}

// Deps holds the collaborators of a Server
type Deps struct {
	Auth      Authenticator       // Identity bridge
	Session   *sessions.Store     // Session read by the guards
	Navigator *Navigator          // Shared with the API client
	Gatherer  prometheus.Gatherer // Source for /metrics

	// Registerer receives the session gauges. Nil keeps them unregistered.
	Registerer prometheus.Registerer
}

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	appName   string
	refresh   int
	mux       *http.ServeMux
	routes    []string
	auth      Authenticator
	session   *sessions.Store
	navigator *Navigator
	gatherer  prometheus.Gatherer
	validator *auth.Validator
	templates map[string]*template.Template

	watch       *sessionWatch
	unsubscribe func()
}

var pageTemplates = []string{
	"loading.html",
	"page.html",
	"login.html",
	"register.html",
	"forgot_password.html",
	"verify_email.html",
}

func New(config Config, deps Deps) (*Server, error) {
	if deps.Auth == nil {
		return nil, errors.New("[Server New] Auth is required")
	}
	if deps.Session == nil {
		return nil, errors.New("[Server New] Session store is required")
	}
	if deps.Navigator == nil {
		deps.Navigator = NewNavigator()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		env:       config.GetEnv(),
		appName:   config.GetAppName(),
		refresh:   config.GetLoadingRefreshSeconds(),
		mux:       http.NewServeMux(),
		auth:      deps.Auth,
		session:   deps.Session,
		navigator: deps.Navigator,
		gatherer:  deps.Gatherer,
		validator: auth.NewValidator(),
		templates: make(map[string]*template.Template),
	}
	if s.refresh <= 0 {
		s.refresh = 1
	}

	for _, name := range pageTemplates {
		tmpl, err := ParseTemplate(name)
		if err != nil {
			return nil, errors.Wrapf(err, "[Server New] failed to parse template %s", name)
		}
		s.templates[name] = tmpl
	}

	s.watch = newSessionWatch(deps.Session, deps.Registerer)
	s.unsubscribe = deps.Session.Subscribe(s.watch.observe)
	s.watch.observe(deps.Session.Snapshot())

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

// Close stops following the session store
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}
