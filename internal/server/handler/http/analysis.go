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

// AnalysisService defines the interface for video analysis operations
// required by the AnalysisHandler.
type AnalysisService interface {
	// Submit requests analysis of a video, returning a cached result or the
	// accepted job in processing state.
	Submit(ctx context.Context, videoID string, userID int64) (*service.SubmitResult, error)
	// GetResult returns the current state of an analysis; it never blocks.
	GetResult(ctx context.Context, id int64) (*service.SubmitResult, error)
	// ListByUser returns all analyses of a user, newest first.
	ListByUser(ctx context.Context, userID int64) ([]models.VideoAnalysis, error)
}

// AnalysisHandler handles HTTP requests for video analysis submission and
// result polling.
type AnalysisHandler struct {
	AnalysisService AnalysisService
	Users           UserResolver
}

// AnalyzeRequest represents the JSON payload for submitting a video.
type AnalyzeRequest struct {
	VideoID string `json:"videoId"`
}

// Submit handles POST /api/analysis requests. Repeated submissions for the
// same video converge on a single job; a completed one returns its knowledge
// points immediately.
func (h *AnalysisHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.Users)
	if !ok {
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VideoID == "" {
		writeError(w, http.StatusBadRequest, "videoId is required")
		return
	}

	res, err := h.AnalysisService.Submit(r.Context(), req.VideoID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetResult handles GET /api/analysis/{analysisId} requests. Clients poll
// this endpoint until the status is terminal.
func (h *AnalysisHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r, h.Users); !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "analysisId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid analysis id")
		return
	}

	res, err := h.AnalysisService.GetResult(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// List handles GET /api/analysis requests.
func (h *AnalysisHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.Users)
	if !ok {
		return
	}

	analyses, err := h.AnalysisService.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if analyses == nil {
		analyses = []models.VideoAnalysis{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": analyses})
}
