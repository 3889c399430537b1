// Package handlers provides HTTP handlers for the admin and sensor APIs.
//   - admin.go: label listing, arming, rename and delete (JSON)
//   - sensor.go: raw signature enrollment and recognition (text/plain)
//   - events.go: server-sent notification stream
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-gate/internal/enroll"
	"github.com/kozaktomas/face-gate/internal/match"
	"github.com/kozaktomas/face-gate/internal/signature"
	"github.com/kozaktomas/face-gate/internal/store"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// errInternal is reported for storage failures; details stay in the log.
const errInternal = "internal server error"

// Enroller is the enrollment surface used by the handlers.
type Enroller interface {
	Arm(ctx context.Context, label string) (string, error)
	Armed() (string, bool)
	Disarm(ctx context.Context) (string, bool)
	Enroll(ctx context.Context, sig signature.Signature) (string, error)
	ListLabels(ctx context.Context) ([]string, error)
	DeleteLabel(ctx context.Context, label string) error
	RenameLabel(ctx context.Context, oldLabel, newLabel string) error
}

// Recognizer identifies query signatures.
type Recognizer interface {
	Recognize(ctx context.Context, query signature.Signature) (match.Result, error)
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondText sends a plain text response, the format sensors understand.
func respondText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

// errorStatus maps a core error to an HTTP status and a user-visible message.
func errorStatus(err error) (int, string) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, "signature too large"
	case errors.Is(err, signature.ErrEmpty):
		return http.StatusBadRequest, "no face data received"
	case errors.Is(err, enroll.ErrEmptyLabel),
		errors.Is(err, enroll.ErrEmptyName),
		errors.Is(err, enroll.ErrSameName),
		errors.Is(err, store.ErrInvalidLabel):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, enroll.ErrDuplicateLabel),
		errors.Is(err, store.ErrAlreadyExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, errInternal
	}
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
