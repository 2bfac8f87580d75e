package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/singhkkrish/traceit/internal/apperr"
)

// envelope is the payload of a successful response; "success" is added by
// jsonSuccess.
type envelope map[string]any

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonSuccess writes {"success": true, ...fields}.
func jsonSuccess(w http.ResponseWriter, status int, fields envelope) {
	body := envelope{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	jsonResponse(w, status, body)
}

// jsonError writes {"success": false, "message": message}.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, envelope{"success": false, "message": message})
}

// writeError answers err with its apperr status. Validation errors carry
// their own message; server faults are logged and answered with fallback.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := apperr.Status(err)

	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		jsonError(w, status, verr.Error())
	case status == http.StatusInternalServerError:
		slog.Error(fallback, "method", r.Method, "path", r.URL.Path, "error", err)
		jsonError(w, status, fallback)
	default:
		jsonError(w, status, fallback)
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}
