// Package config defines the gateway's configuration shape and
// validation, generalized from the teacher's GatewayConfig/PluginConfig
// split (config/config.go) to the single configured backend this
// repo serves: one store (in-memory or relational) and one bearer
// secret, instead of a list of named plugins.
package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a single configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationErrors collects every validation failure found in one pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("config validation failed with %d errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Config is the root configuration object, constructed once at startup
// by Load and passed by reference to every component that needs it
// (no ambient globals).
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Auth   AuthConfig
}

// Validate validates the full configuration tree.
func (c *Config) Validate() error {
	var errs ValidationErrors
	errs = append(errs, collect(c.Server.Validate())...)
	errs = append(errs, collect(c.Store.Validate())...)
	errs = append(errs, collect(c.Auth.Validate())...)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func collect(err error) ValidationErrors {
	if err == nil {
		return nil
	}
	if verrs, ok := err.(ValidationErrors); ok {
		return verrs
	}
	if verr, ok := err.(*ValidationError); ok {
		return ValidationErrors{*verr}
	}
	return ValidationErrors{{Message: err.Error()}}
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	BaseURL string
	Port    int
}

func (s *ServerConfig) Validate() error {
	var errs ValidationErrors
	if s.BaseURL == "" {
		errs = append(errs, ValidationError{Field: "server.base_url", Message: "base_url cannot be empty"})
	}
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, ValidationError{Field: "server.port", Message: fmt.Sprintf("port %d is out of range: must be between 1 and 65535", s.Port)})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// StoreType selects which store.Store implementation backs the gateway.
type StoreType string

const (
	StoreTypeMemory     StoreType = "memory"
	StoreTypeRelational StoreType = "relational"
)

// StoreConfig holds backend selection plus relational connection fields
// (spec.md §6: "store.type (selects backend); relational connection
// fields (host, port, user, password, database, ssl_mode, schema)").
type StoreConfig struct {
	Type     StoreType
	Driver   string // "postgres" or "sqlite", relational only
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	Schema   string
}

func (s *StoreConfig) Validate() error {
	var errs ValidationErrors

	switch s.Type {
	case StoreTypeMemory:
		return nil
	case StoreTypeRelational:
		// falls through to field checks below
	default:
		errs = append(errs, ValidationError{
			Field:   "store.type",
			Message: fmt.Sprintf("invalid store type %q: must be %q or %q", s.Type, StoreTypeMemory, StoreTypeRelational),
		})
		return errs
	}

	switch s.Driver {
	case "postgres":
		if s.Host == "" {
			errs = append(errs, ValidationError{Field: "store.host", Message: "host is required for the relational store"})
		}
		if s.Database == "" {
			errs = append(errs, ValidationError{Field: "store.database", Message: "database is required for the relational store"})
		}
	case "sqlite":
		if s.Database == "" {
			errs = append(errs, ValidationError{Field: "store.database", Message: "database (DSN or file path) is required for the sqlite store"})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "store.driver",
			Message: fmt.Sprintf("invalid store driver %q: must be \"postgres\" or \"sqlite\"", s.Driver),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// AuthConfig holds the bearer secret (or a reference to fetch one from
// a key-vault-shaped SecretSource — spec.md §6: "authentication secret
// or key-vault reference").
type AuthConfig struct {
	Secret    string
	SecretRef string
}

func (a *AuthConfig) Validate() error {
	if a.Secret == "" && a.SecretRef == "" {
		return &ValidationError{Field: "auth.secret", Message: "either secret or secret_ref must be set"}
	}
	return nil
}

// Default returns a configuration suitable for local development: the
// in-memory store and a fixed development secret.
func Default() *Config {
	return &Config{
		Server: ServerConfig{BaseURL: "http://localhost", Port: 8080},
		Store:  StoreConfig{Type: StoreTypeMemory},
		Auth:   AuthConfig{Secret: "development-secret"},
	}
}
