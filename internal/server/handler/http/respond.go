package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"coursevault/internal/middleware"
	"coursevault/internal/repository"
)

// UserResolver maps a token subject (the user's public identifier) to the
// internal numeric user ID.
type UserResolver interface {
	ResolveUser(ctx context.Context, uuid string) (int64, error)
}

// writeJSON writes the API success envelope.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    data,
	})
}

// writeError writes the API error envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// currentUser resolves the authenticated user's internal ID from the request
// context. On failure it writes the error response and reports false.
func currentUser(w http.ResponseWriter, r *http.Request, users UserResolver) (int64, bool) {
	subject := middleware.GetUserIDFromContext(r.Context())
	if subject == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return 0, false
	}
	id, err := users.ResolveUser(r.Context(), subject)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return 0, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return 0, false
	}
	return id, true
}
