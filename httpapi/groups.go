package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/scimcore/idp-gateway/patch"
	"github.com/scimcore/idp-gateway/resource"
)

func (s *Server) handleSearchGroups(w http.ResponseWriter, r *http.Request) {
	params := parseQueryParams(r)

	result, err := s.store.SearchGroups(r.Context(), params.Filter, params.StartIndex, params.Count)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	body := resource.NewListResponse(result.Resources, params.StartIndex, len(result.Resources), result.Total)
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	defer r.Body.Close()

	var group resource.Group
	if err := json.Unmarshal(raw, &group); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if group.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "displayName is required")
		return
	}

	created, err := s.store.CreateGroup(r.Context(), &group)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	group, err := s.store.GetGroup(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, group)
}

// handlePatchGroup decodes and dispatches the PatchOp via the patch
// package (C8), then returns the refreshed group.
func (s *Server) handlePatchGroup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var body resource.PatchOp
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	defer r.Body.Close()

	updated, err := patch.Apply(r.Context(), s.store, id, body)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.store.DeleteGroup(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
