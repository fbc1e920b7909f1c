// Package api provides HTTP API handlers for profiles, mappings, bundles
// and calibration.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ayusman/gesturemix/internal/mapping"
	"github.com/ayusman/gesturemix/internal/monitoring"
)

// maxBodyBytes caps request bodies; bundles are the largest payload.
const maxBodyBytes = 4 << 20

type errorResponse struct {
	Error  string               `json:"error"`
	Issues []mapping.FieldIssue `json:"issues,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeRegistryError maps registry and validation errors to status codes.
func writeRegistryError(w http.ResponseWriter, err error) {
	var verr *mapping.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Issues: verr.Issues})
	case errors.Is(err, mapping.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, mapping.ErrReadOnly):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, mapping.ErrActiveProfile):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, mapping.ErrUnsupportedBundle):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		monitoring.Logf("api: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

// decodeJSON reads a JSON request body into v. An empty body leaves v
// untouched when allowEmpty is set.
func decodeJSON(r *http.Request, v interface{}, allowEmpty bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
