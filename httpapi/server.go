// Package httpapi implements the HTTP surface spec.md §6 names, rooted
// at /scim (the teacher serves the same shape per plugin at
// /{plugin}/Users; this repo serves exactly one configured backend, so
// the plugin path segment is dropped). Grounded on the teacher's
// scim/server.go: a net/http.ServeMux built with Go 1.22+
// method-prefixed patterns, and a single handlePluginError-style
// translation point for store errors, generalized here from a
// type-switch on *SCIMError to an errors.As chain over the typed store
// errors.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/scimcore/idp-gateway/logging"
	"github.com/scimcore/idp-gateway/store"
)

// Server is the HTTP handler for the SCIM surface. It holds no other
// state than the store it's backed by and the logger passed to it at
// construction (spec.md §9: no ambient globals).
type Server struct {
	store  store.Store
	logger *slog.Logger
	mux    *http.ServeMux
}

// New builds a Server rooted at /scim. Pass a nil logger to use the
// discard default.
func New(st store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{store: st, logger: logger, mux: http.NewServeMux()}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /scim/Users", s.handleSearchUsers)
	s.mux.HandleFunc("POST /scim/Users", s.handleCreateUser)
	s.mux.HandleFunc("GET /scim/Users/{id}", s.handleGetUser)
	s.mux.HandleFunc("PUT /scim/Users/{id}", s.handleReplaceUser)
	s.mux.HandleFunc("PATCH /scim/Users/{id}", s.handlePatchUser)
	s.mux.HandleFunc("DELETE /scim/Users/{id}", s.handleDeleteUser)

	s.mux.HandleFunc("GET /scim/Groups", s.handleSearchGroups)
	s.mux.HandleFunc("POST /scim/Groups", s.handleCreateGroup)
	s.mux.HandleFunc("GET /scim/Groups/{id}", s.handleGetGroup)
	s.mux.HandleFunc("PATCH /scim/Groups/{id}", s.handlePatchGroup)
	s.mux.HandleFunc("DELETE /scim/Groups/{id}", s.handleDeleteGroup)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
