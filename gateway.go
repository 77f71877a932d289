// Package idpgateway wires the configured store, bearer auth, request
// logging, and the /scim HTTP surface into one process-wide Gateway,
// grounded on the teacher's root gateway.go: same
// New/SetLogger/Initialize/Start lifecycle, same discardLogger default,
// generalized from "a plugin manager serving N named backends" to "one
// configured store.Store" (spec.md names exactly one backend per
// process, not a plugin registry).
package idpgateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/scimcore/idp-gateway/auth"
	"github.com/scimcore/idp-gateway/config"
	"github.com/scimcore/idp-gateway/httpapi"
	"github.com/scimcore/idp-gateway/logging"
	"github.com/scimcore/idp-gateway/store"
	"github.com/scimcore/idp-gateway/store/inmemory"
	"github.com/scimcore/idp-gateway/store/relational"
)

// Gateway is the top-level process state object (spec.md §9:
// "Singletons... model as an explicit, lazily-initialized process-wide
// state object constructed at startup and passed by reference... No
// ambient globals").
type Gateway struct {
	config  *config.Config
	store   store.Store
	handler http.Handler
	logger  *slog.Logger
}

// New constructs a Gateway for cfg. It does not open any store
// connection or build the handler chain until Initialize is called.
func New(cfg *config.Config) *Gateway {
	return &Gateway{
		config: cfg,
		logger: logging.Discard(),
	}
}

// SetLogger sets the gateway's logger. Pass nil to disable logging.
func (g *Gateway) SetLogger(logger *slog.Logger) {
	if logger == nil {
		g.logger = logging.Discard()
		return
	}
	g.logger = logger
}

// Initialize validates configuration, constructs the configured store
// backend, and builds the HTTP handler chain (logging -> auth ->
// routes, with /health skipping auth). It must be called before Start
// or Handler.
func (g *Gateway) Initialize(ctx context.Context) error {
	if err := g.config.Validate(); err != nil {
		g.logger.Error("configuration validation failed", "error", err)
		return fmt.Errorf("invalid configuration: %w", err)
	}

	st, err := buildStore(ctx, g.config)
	if err != nil {
		g.logger.Error("failed to construct store", "error", err)
		return fmt.Errorf("build store: %w", err)
	}
	g.store = st

	authenticator, err := auth.NewAuthenticator(g.config.Auth.Secret, g.config.Auth.SecretRef)
	if err != nil {
		g.logger.Error("failed to build authenticator", "error", err)
		return fmt.Errorf("build authenticator: %w", err)
	}

	scimHandler := httpapi.New(g.store, g.logger)
	authenticated := auth.Middleware(authenticator)(scimHandler)

	// /health is a liveness probe and isn't part of the /scim/*
	// surface spec.md §6 requires a bearer token for, so it bypasses
	// the auth middleware entirely.
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			scimHandler.ServeHTTP(w, r)
			return
		}
		authenticated.ServeHTTP(w, r)
	})
	handler = logging.Middleware(g.logger)(handler)
	g.handler = handler

	g.logger.Info("gateway initialized",
		"store_type", g.config.Store.Type,
		"base_url", g.config.Server.BaseURL,
		"port", g.config.Server.Port,
	)
	return nil
}

func buildStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Type {
	case config.StoreTypeMemory:
		return inmemory.New(), nil
	case config.StoreTypeRelational:
		return relational.Open(ctx, cfg.Store.Driver, RelationalDSN(cfg.Store))
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}
}

// RelationalDSN builds the sqlx-compatible data source name for a
// StoreConfig, shared by Gateway.Initialize and the "migrate" CLI
// command, which constructs a relational store without a full Gateway.
func RelationalDSN(s config.StoreConfig) string {
	switch s.Driver {
	case "sqlite":
		return s.Database
	default:
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.Host, s.Port, s.User, s.Password, s.Database, s.SSLMode,
		)
	}
}

// Handler returns the HTTP handler for the gateway. Returns an error
// if Initialize has not been called yet.
func (g *Gateway) Handler() (http.Handler, error) {
	if g.handler == nil {
		return nil, fmt.Errorf("gateway not initialized - call Initialize() first")
	}
	return g.handler, nil
}

// Start initializes the gateway if needed and serves HTTP (blocking)
// on the configured port.
func (g *Gateway) Start(ctx context.Context) error {
	if g.handler == nil {
		if err := g.Initialize(ctx); err != nil {
			return err
		}
	}

	addr := fmt.Sprintf(":%d", g.config.Server.Port)
	g.logger.Info("starting idp-gateway", "addr", addr)
	err := http.ListenAndServe(addr, g.handler)
	if err != nil {
		g.logger.Error("gateway server stopped", "error", err)
	}
	return err
}

// Store returns the configured store, for operators that want to run
// migrations or diagnostics without starting the HTTP server.
func (g *Gateway) Store() store.Store {
	return g.store
}
