package idpgateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/scimcore/idp-gateway/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{BaseURL: "http://localhost", Port: 8080},
		Store:  config.StoreConfig{Type: config.StoreTypeMemory},
		Auth:   config.AuthConfig{Secret: "s3cr3t"},
	}
}

func TestInitializeBuildsHandler(t *testing.T) {
	g := New(testConfig())
	if err := g.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := g.Handler(); err != nil {
		t.Fatalf("handler: %v", err)
	}
}

func TestHandlerBeforeInitializeErrors(t *testing.T) {
	g := New(testConfig())
	if _, err := g.Handler(); err == nil {
		t.Fatalf("expected error before Initialize")
	}
}

func TestInitializeRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = 0
	g := New(cfg)
	if err := g.Initialize(context.Background()); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestHandlerRequiresAuth(t *testing.T) {
	g := New(testConfig())
	if err := g.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	handler, _ := g.Handler()
	ts := httptest.NewServer(handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/scim/Users")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("got %d", resp.StatusCode)
	}
}

func TestInitializeFailsWhenSecretRefUnresolvable(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.AuthConfig{SecretRef: "IDP_GATEWAY_DEFINITELY_UNSET"}
	g := New(cfg)
	if err := g.Initialize(context.Background()); err == nil {
		t.Fatalf("expected error when secret_ref cannot be resolved")
	}
}

func TestHealthBypassesAuth(t *testing.T) {
	g := New(testConfig())
	if err := g.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	handler, _ := g.Handler()
	ts := httptest.NewServer(handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("got %d", resp.StatusCode)
	}
}
