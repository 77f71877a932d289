package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/scimcore/idp-gateway/resource"
	"github.com/scimcore/idp-gateway/store"
)

// writeJSON writes a successful SCIM response.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/scim+json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError writes the SCIM error envelope directly.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, resource.NewErrorBody(status, detail))
}

// writeStoreError is the single translation point from a store error to
// an HTTP response (teacher's handlePluginError, generalized from a
// type-switch on *SCIMError to errors.As over the typed store errors,
// per spec.md §7's taxonomy-to-status table).
func writeStoreError(w http.ResponseWriter, err error) {
	var notFound *store.NotFoundError
	var alreadyExists *store.AlreadyExistsError
	var filterErr *store.FilterParseError
	var unsupportedAttr *store.UnsupportedAttributeError
	var validationErr *store.ValidationError

	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &alreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &filterErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &unsupportedAttr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
