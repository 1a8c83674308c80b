// Package http provides HTTP handlers for user authentication,
// course management, credential launch and video analysis.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"coursevault/internal/models"
	"coursevault/internal/service"
)

// AuthService defines the interface for authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// Register creates a new user account.
	Register(ctx context.Context, email, password string) (*models.User, error)
	// Login verifies the credentials and returns a signed bearer token
	// together with the user.
	Login(ctx context.Context, email, password string) (string, *models.User, error)
}

// AuthHandler handles HTTP requests for user registration and login.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
}

// AuthRequest represents the JSON payload for registration and login.
type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userPayload is the user representation handed to clients. The internal
// numeric ID never leaves the server.
type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Register handles POST /api/auth/register requests.
// It expects a JSON body with non-empty "email" and "password" fields.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	u, err := h.AuthService.Register(r.Context(), req.Email, req.Password)
	if errors.Is(err, service.ErrEmailTaken) {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, userPayload{ID: u.UUID, Email: u.Email})
}

// Login handles POST /api/auth/login requests.
// Unknown email and wrong password are indistinguishable to the client.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	token, u, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  userPayload{ID: u.UUID, Email: u.Email},
	})
}
