package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"coursevault/internal/repository"
)

// ProxyHandler serves the embed flow: an embedding client fetches the course
// address together with the decrypted credential in one call.
type ProxyHandler struct {
	CourseService CourseService
	Users         UserResolver
}

// Embed handles GET /api/proxy/embed/{courseId} requests.
func (h *ProxyHandler) Embed(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.Users)
	if !ok {
		return
	}

	courseUUID := chi.URLParam(r, "courseId")
	info, err := h.CourseService.Launch(r.Context(), userID, courseUUID)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to unlock credentials")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"courseId":    courseUUID,
		"courseTitle": info.CourseTitle,
		"courseUrl":   info.CourseURL,
		"loginUrl":    info.LoginURL,
		"credentials": info.Credentials,
	})
}
