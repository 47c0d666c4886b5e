package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/thriftyclothings/storefront/apiclient"
	"github.com/thriftyclothings/storefront/auth"
	"github.com/thriftyclothings/storefront/backend"
	"github.com/thriftyclothings/storefront/identity"
	"github.com/thriftyclothings/storefront/identity/memory"
	"github.com/thriftyclothings/storefront/identity/oidc"
	"github.com/thriftyclothings/storefront/internal/config"
	"github.com/thriftyclothings/storefront/internal/logging"
	"github.com/thriftyclothings/storefront/server"
	"github.com/thriftyclothings/storefront/sessions"
	"github.com/thriftyclothings/storefront/tokenstore"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running storefront")
	}
	log.Info().Msg("Storefront stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	logging.Setup(os.Stdout, c.GetEnv(), c.GetLogLevel())
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, err := newTokenStore(c)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	navigator := server.NewNavigator()

	clientOptions := []apiclient.ClientOption{
		apiclient.WithTimeout(c.GetAPITimeout()),
		apiclient.WithNavigator(navigator),
		apiclient.WithMetrics(apiclient.NewCollector(registry)),
	}
	if limit := c.GetAPIRateLimit(); limit > 0 {
		clientOptions = append(clientOptions, apiclient.WithRateLimiter(rate.NewLimiter(rate.Limit(limit), c.GetAPIRateBurst())))
	}
	api, err := apiclient.New(c.GetAPIBaseURL(), tokens, clientOptions...)
	if err != nil {
		return err
	}

	provider, err := newIdentityProvider(ctx, c)
	if err != nil {
		return err
	}

	session := sessions.NewStore()
	bridge, err := auth.NewBridge(auth.Deps{
		Identity: provider,
		Backend:  backend.New(api),
		Tokens:   tokens,
		Session:  session,
	})
	if err != nil {
		return err
	}
	if err := bridge.Start(ctx); err != nil {
		return err
	}
	defer bridge.Stop()

	handler, err := server.New(c, server.Deps{
		Auth:       bridge,
		Session:    session,
		Navigator:  navigator,
		Gatherer:   registry,
		Registerer: registry,
	})
	if err != nil {
		return err
	}
	defer handler.Close()

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	return shutdown(httpServer)
}

func newTokenStore(c config.Config) (tokenstore.Store, error) {
	if path := c.GetTokenFile(); path != "" {
		store, err := tokenstore.NewFileStore(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return tokenstore.NewInMemoryStore(), nil
}

func newIdentityProvider(ctx context.Context, c config.Config) (identity.Provider, error) {
	switch c.GetIdentityMode() {
	case config.IdentityModeOIDC:
		provider, err := oidc.New(ctx, oidc.Config{
			Issuer:          c.GetOIDCIssuer(),
			ClientID:        c.GetOIDCClientID(),
			ClientSecret:    c.GetOIDCClientSecret(),
			CredentialCache: c.GetOIDCCredentialCache(),
		})
		if err != nil {
			return nil, err
		}
		return provider, nil
	default:
		log.Warn().Msg("Using the in-memory identity provider; accounts are lost on restart")
		return memory.New(), nil
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Storefront listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "server.ListenAndServe")
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server.Shutdown")
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
