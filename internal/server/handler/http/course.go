package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"coursevault/internal/models"
	"coursevault/internal/repository"
	"coursevault/internal/service"
)

// CourseService defines the interface for course operations required by the
// CourseHandler.
type CourseService interface {
	// Create stores a new course with its credential encrypted.
	Create(ctx context.Context, userID int64, in service.CourseInput) (*models.Course, error)
	// List returns one page of the user's courses and the total count.
	List(ctx context.Context, userID int64, page, limit int) ([]models.Course, int64, error)
	// Get retrieves a single course without decrypting its credential.
	Get(ctx context.Context, userID int64, courseUUID string) (*models.Course, error)
	// Update changes descriptive fields, re-encrypting when a new
	// username/password pair is supplied.
	Update(ctx context.Context, userID int64, courseUUID string, in service.CourseInput) error
	// Delete marks a course inactive.
	Delete(ctx context.Context, userID int64, courseUUID string) error
	// Launch decrypts the credential for the auto-fill flow.
	Launch(ctx context.Context, userID int64, courseUUID string) (*service.LaunchInfo, error)
}

// CourseHandler handles HTTP requests for course management and launch.
type CourseHandler struct {
	CourseService CourseService
	Users         UserResolver
}

// CourseRequest represents the JSON payload for creating or updating a course.
// Username and Password are plaintext in transit only; the server persists
// them exclusively as an encrypted triple.
type CourseRequest struct {
	CourseName  string `json:"courseName"`
	CourseURL   string `json:"courseUrl"`
	LoginURL    string `json:"loginUrl"`
	Description string `json:"description"`
	Username    string `json:"username"`
	Password    string `json:"password"`
}

func (req CourseRequest) input() service.CourseInput {
	return service.CourseInput{
		CourseName:  req.CourseName,
		CourseURL:   req.CourseURL,
		LoginURL:    req.LoginURL,
		Description: req.Description,
		Username:    req.Username,
		Password:    req.Password,
	}
}

// Create handles POST /api/courses requests.
func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.Users)
	if !ok {
		return
	}

	var req CourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.CourseName == "" || req.CourseURL == "" || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "courseName, courseUrl, username and password are required")
		return
	}

	c, err := h.CourseService.Create(r.Context(), userID, req.input())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create course")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// List handles GET /api/courses requests with page/limit query parameters.
func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.Users)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	courses, total, err := h.CourseService.List(r.Context(), userID, page, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if courses == nil {
		courses = []models.Course{}
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	totalPages := (total + int64(limit) - 1) / int64(limit)

	writeJSON(w, http.StatusOK, map[string]any{
		"courses":    courses,
		"total":      total,
		"page":       page,
		"limit":      limit,
		"totalPages": totalPages,
	})
}

// Get handles GET /api/courses/{courseId} requests.
func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.Users)
	if !ok {
		return
	}

	c, err := h.CourseService.Get(r.Context(), userID, chi.URLParam(r, "courseId"))
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Update handles PUT /api/courses/{courseId} requests and returns the
// updated course.
func (h *CourseHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.Users)
	if !ok {
		return
	}

	var req CourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	courseUUID := chi.URLParam(r, "courseId")
	err := h.CourseService.Update(r.Context(), userID, courseUUID, req.input())
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	c, err := h.CourseService.Get(r.Context(), userID, courseUUID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Delete handles DELETE /api/courses/{courseId} requests.
func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.Users)
	if !ok {
		return
	}

	err := h.CourseService.Delete(r.Context(), userID, chi.URLParam(r, "courseId"))
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "course deleted"})
}

// Launch handles POST /api/courses/{courseId}/launch requests. The response
// carries the decrypted credential for the auto-fill client; nothing is
// persisted in plaintext.
func (h *CourseHandler) Launch(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.Users)
	if !ok {
		return
	}

	info, err := h.CourseService.Launch(r.Context(), userID, chi.URLParam(r, "courseId"))
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to unlock credentials")
		return
	}
	writeJSON(w, http.StatusOK, info)
}
