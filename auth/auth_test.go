package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBearerAuthenticator(t *testing.T) {
	ba := NewBearerAuthenticator("s3cr3t")

	tests := []struct {
		name    string
		header  string
		wantErr bool
	}{
		{name: "valid token", header: "Bearer s3cr3t", wantErr: false},
		{name: "wrong token", header: "Bearer nope", wantErr: true},
		{name: "missing header", header: "", wantErr: true},
		{name: "wrong auth type", header: "Basic s3cr3t", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			err := ba.Authenticate(req)
			if (err != nil) != tt.wantErr {
				t.Errorf("Authenticate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type countingSource struct {
	calls int
	value string
}

func (c *countingSource) Get(ctx context.Context) (string, error) {
	c.calls++
	return c.value, nil
}

func TestCachingSecretSourceFetchesOnce(t *testing.T) {
	src := &countingSource{value: "cached-secret"}
	cache := NewCachingSecretSource(src)

	for i := 0; i < 3; i++ {
		got, err := cache.Get(context.Background())
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got != "cached-secret" {
			t.Errorf("got %q", got)
		}
	}
	if src.calls != 1 {
		t.Errorf("expected underlying source fetched once, got %d calls", src.calls)
	}
}

type failingSource struct{}

func (failingSource) Get(ctx context.Context) (string, error) {
	return "", errors.New("vault unreachable")
}

func TestBearerAuthenticatorPropagatesSecretSourceError(t *testing.T) {
	ba := &BearerAuthenticator{Secret: failingSource{}}
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer anything")
	if err := ba.Authenticate(req); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMiddlewareRejectsUnauthenticated(t *testing.T) {
	handlerCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	})
	mw := Middleware(NewBearerAuthenticator("s3cr3t"))(next)

	req := httptest.NewRequest("GET", "/scim/Users", nil)
	rr := httptest.NewRecorder()
	mw.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("got status %d", rr.Code)
	}
	if handlerCalled {
		t.Errorf("next handler should not run on auth failure")
	}
}

func TestMiddlewareAllowsAuthenticated(t *testing.T) {
	handlerCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})
	mw := Middleware(NewBearerAuthenticator("s3cr3t"))(next)

	req := httptest.NewRequest("GET", "/scim/Users", nil)
	req.Header.Set("Authorization", "Bearer s3cr3t")
	rr := httptest.NewRecorder()
	mw.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || !handlerCalled {
		t.Errorf("expected success, got status %d, called=%v", rr.Code, handlerCalled)
	}
}

func TestNewAuthenticatorPrefersLiteralSecret(t *testing.T) {
	ba, err := NewAuthenticator("s3cr3t", "IGNORED_REF")
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}
	if _, ok := ba.Secret.(StaticSecret); !ok {
		t.Fatalf("expected StaticSecret, got %T", ba.Secret)
	}
}

func TestNewAuthenticatorResolvesSecretRef(t *testing.T) {
	t.Setenv("IDP_GATEWAY_TEST_SECRET", "from-env")
	ba, err := NewAuthenticator("", "IDP_GATEWAY_TEST_SECRET")
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}
	got, err := ba.Secret.Get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "from-env" {
		t.Errorf("got %q", got)
	}
}

func TestNewAuthenticatorErrorsWithoutSecretOrRef(t *testing.T) {
	if _, err := NewAuthenticator("", ""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestEnvSecretSourceMissingVar(t *testing.T) {
	src := EnvSecretSource("IDP_GATEWAY_DEFINITELY_UNSET")
	if _, err := src.Get(context.Background()); err == nil {
		t.Fatalf("expected error for unset environment variable")
	}
}

func TestMiddlewareNilAuthenticatorPassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := Middleware(nil)(next)

	req := httptest.NewRequest("GET", "/scim/Users", nil)
	rr := httptest.NewRecorder()
	mw.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("got status %d", rr.Code)
	}
}
