package config

import (
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		config      *Config
		wantErr     bool
		errContains []string
	}{
		{
			name: "valid memory store",
			config: &Config{
				Server: ServerConfig{BaseURL: "http://localhost", Port: 8080},
				Store:  StoreConfig{Type: StoreTypeMemory},
				Auth:   AuthConfig{Secret: "s3cr3t"},
			},
			wantErr: false,
		},
		{
			name: "valid relational store",
			config: &Config{
				Server: ServerConfig{BaseURL: "http://localhost", Port: 8080},
				Store:  StoreConfig{Type: StoreTypeRelational, Driver: "postgres", Host: "db", Database: "scim"},
				Auth:   AuthConfig{Secret: "s3cr3t"},
			},
			wantErr: false,
		},
		{
			name: "empty base_url",
			config: &Config{
				Server: ServerConfig{Port: 8080},
				Store:  StoreConfig{Type: StoreTypeMemory},
				Auth:   AuthConfig{Secret: "s3cr3t"},
			},
			wantErr:     true,
			errContains: []string{"server.base_url", "cannot be empty"},
		},
		{
			name: "port out of range",
			config: &Config{
				Server: ServerConfig{BaseURL: "http://localhost", Port: 0},
				Store:  StoreConfig{Type: StoreTypeMemory},
				Auth:   AuthConfig{Secret: "s3cr3t"},
			},
			wantErr:     true,
			errContains: []string{"server.port", "out of range"},
		},
		{
			name: "invalid store type",
			config: &Config{
				Server: ServerConfig{BaseURL: "http://localhost", Port: 8080},
				Store:  StoreConfig{Type: "bogus"},
				Auth:   AuthConfig{Secret: "s3cr3t"},
			},
			wantErr:     true,
			errContains: []string{"store.type", "invalid store type"},
		},
		{
			name: "relational missing host",
			config: &Config{
				Server: ServerConfig{BaseURL: "http://localhost", Port: 8080},
				Store:  StoreConfig{Type: StoreTypeRelational, Driver: "postgres", Database: "scim"},
				Auth:   AuthConfig{Secret: "s3cr3t"},
			},
			wantErr:     true,
			errContains: []string{"store.host"},
		},
		{
			name: "missing auth secret",
			config: &Config{
				Server: ServerConfig{BaseURL: "http://localhost", Port: 8080},
				Store:  StoreConfig{Type: StoreTypeMemory},
			},
			wantErr:     true,
			errContains: []string{"auth.secret"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.errContains {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not contain %q", err.Error(), want)
				}
			}
		})
	}
}

func TestValidationErrorsSingular(t *testing.T) {
	errs := ValidationErrors{{Field: "x", Message: "bad"}}
	if errs.Error() != "config validation error [x]: bad" {
		t.Errorf("got %q", errs.Error())
	}
}

func TestValidationErrorsPlural(t *testing.T) {
	errs := ValidationErrors{{Field: "x", Message: "bad"}, {Field: "y", Message: "worse"}}
	got := errs.Error()
	if !strings.Contains(got, "2 errors") {
		t.Errorf("got %q", got)
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}
