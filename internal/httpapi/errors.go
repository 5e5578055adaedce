package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// Error kinds surfaced to clients. Messages are sanitized; the kind is the
// machine-readable contract.
const (
	kindInvalidCredentials = "invalid-credentials"
	kindAccountDeactivated = "account-deactivated"
	kindAdminRequired      = "admin-required"
	kindNotFound           = "not-found"
	kindInvalidIDFormat    = "invalid-id-format"
	kindConflict           = "conflict"
	kindWrongPassword      = "wrong-current-password"
	kindInvalidInput       = "invalid-input"
	kindUpstreamFailure    = "upstream-failure"
)

func writeError(w http.ResponseWriter, r *http.Request, code int, kind, msg string) {
	payload := map[string]any{
		"error":   kind,
		"message": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method-not-allowed", "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
