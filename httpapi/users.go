package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/scimcore/idp-gateway/resource"
)

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	params := parseQueryParams(r)

	result, err := s.store.SearchUsers(r.Context(), params.Filter, params.StartIndex, params.Count)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	body := resource.NewListResponse(resource.SanitizeUsers(result.Resources), params.StartIndex, len(result.Resources), result.Total)
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	defer r.Body.Close()

	var user resource.User
	if err := json.Unmarshal(raw, &user); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if user.UserName == "" {
		writeError(w, http.StatusBadRequest, "userName is required")
		return
	}

	var rawFields map[string]any
	json.Unmarshal(raw, &rawFields)
	if _, explicit := rawFields["active"]; !explicit {
		user.Active = resource.BoolPtr(true)
	}

	created, err := s.store.CreateUser(r.Context(), &user)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resource.SanitizeUser(created))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resource.SanitizeUser(user))
}

// handleReplaceUser implements PUT /Users/{id} as a merge, per spec.md
// §9's resolved Open Question ("treat as merge unless the spec author
// states otherwise").
func (s *Server) handleReplaceUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	patch, err := decodeJSONMap(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	updated, err := s.store.UpdateUser(r.Context(), id, patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resource.SanitizeUser(updated))
}

func (s *Server) handlePatchUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	patch, err := decodeJSONMap(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	updated, err := s.store.UpdateUser(r.Context(), id, patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resource.SanitizeUser(updated))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.store.DeleteUser(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func decodeJSONMap(r *http.Request) (map[string]any, error) {
	defer r.Body.Close()
	var m map[string]any
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}
