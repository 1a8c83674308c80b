package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"coursevault/internal/analyzer"
	"coursevault/internal/downloader"
	"coursevault/internal/models"
	"coursevault/internal/repository"
)

// AnalysisRepository defines the persistence operations needed by the
// AnalysisService.
type AnalysisRepository interface {
	// FindByVideoAndUser fetches the analysis row for a (video, user) pair.
	FindByVideoAndUser(ctx context.Context, videoID string, userID int64) (*models.VideoAnalysis, error)
	// ClaimProcessing creates or reuses the row for the pair, moves it to
	// processing and returns the row ID with the new attempt counter.
	ClaimProcessing(ctx context.Context, videoID string, userID int64) (id, attempt int64, err error)
	// CompleteAttempt writes the result and knowledge points atomically,
	// unless the attempt has been superseded.
	CompleteAttempt(ctx context.Context, id, attempt int64, resultJSON string, points []models.KnowledgePoint) (bool, error)
	// FailAttempt writes a failure detail, unless the attempt has been superseded.
	FailAttempt(ctx context.Context, id, attempt int64, detailJSON string) (bool, error)
	// GetByID fetches a single analysis row.
	GetByID(ctx context.Context, id int64) (*models.VideoAnalysis, error)
	// KnowledgePoints fetches points ordered by start time ascending.
	KnowledgePoints(ctx context.Context, analysisID int64) ([]models.KnowledgePoint, error)
	// ListByUser fetches all analyses of a user, newest first.
	ListByUser(ctx context.Context, userID int64) ([]models.VideoAnalysis, error)
}

// Downloader fetches a video to local disk and cleans up after analysis.
type Downloader interface {
	Download(ctx context.Context, videoID string) (string, error)
	Cleanup(path string) error
}

// Analyzer extracts knowledge points from a downloaded media file.
type Analyzer interface {
	Analyze(ctx context.Context, videoID, filePath string) ([]models.KnowledgePoint, error)
}

// SubmitResult is what a submission returns: either a cache hit with the
// completed knowledge points, or the accepted job's ID in processing state.
type SubmitResult struct {
	AnalysisID      int64                   `json:"analysisId"`
	Status          models.AnalysisStatus   `json:"status"`
	KnowledgePoints []models.KnowledgePoint `json:"knowledgePoints"`
}

// AnalysisService drives the video analysis lifecycle: one row per
// (video, user) pair, a detached background pipeline per claim, and pollable
// status.
type AnalysisService struct {
	repo       AnalysisRepository
	downloader Downloader
	analyzer   Analyzer
	log        *zap.Logger

	// pipelineTimeout bounds one background run end to end.
	pipelineTimeout time.Duration

	wg sync.WaitGroup
}

// NewAnalysisService constructs an AnalysisService.
func NewAnalysisService(repo AnalysisRepository, dl Downloader, an Analyzer, log *zap.Logger) *AnalysisService {
	return &AnalysisService{
		repo:            repo,
		downloader:      dl,
		analyzer:        an,
		log:             log,
		pipelineTimeout: 30 * time.Minute,
	}
}

// Submit requests analysis of videoID for the given user.
//
// A completed row with a stored result is a cache hit: its knowledge points
// are returned immediately and no pipeline is spawned. Any other existing row
// is re-claimed, and a missing row is created; either way a background
// pipeline is spawned and the caller gets the job ID in processing state to
// poll. Repeated submissions for the same pair converge on a single row.
func (s *AnalysisService) Submit(ctx context.Context, videoID string, userID int64) (*SubmitResult, error) {
	existing, err := s.repo.FindByVideoAndUser(ctx, videoID, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status == models.AnalysisCompleted && existing.Result != nil {
		points, err := s.repo.KnowledgePoints(ctx, existing.ID)
		if err != nil {
			return nil, err
		}
		return &SubmitResult{
			AnalysisID:      existing.ID,
			Status:          models.AnalysisCompleted,
			KnowledgePoints: points,
		}, nil
	}

	id, attempt, err := s.repo.ClaimProcessing(ctx, videoID, userID)
	if err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.runPipeline(id, attempt, videoID)

	return &SubmitResult{AnalysisID: id, Status: models.AnalysisProcessing}, nil
}

// GetResult returns the current state of an analysis. KnowledgePoints is empty
// unless the status is completed. It never blocks; clients poll.
func (s *AnalysisService) GetResult(ctx context.Context, id int64) (*SubmitResult, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{AnalysisID: a.ID, Status: a.Status}
	if a.Status == models.AnalysisCompleted {
		points, err := s.repo.KnowledgePoints(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		result.KnowledgePoints = points
	}
	return result, nil
}

// ListByUser returns all analyses of a user, newest first.
func (s *AnalysisService) ListByUser(ctx context.Context, userID int64) ([]models.VideoAnalysis, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Wait blocks until all in-flight pipelines have finished. Called on shutdown.
func (s *AnalysisService) Wait() {
	s.wg.Wait()
}

// failureDetail is the result payload of a failed analysis.
type failureDetail struct {
	Error string `json:"error"`
	Stage string `json:"stage"`
}

// runPipeline executes one background analysis: download, analyze, persist.
// It is the single error boundary for the whole run; every failure, panics
// included, becomes a failed-status write and nothing escapes the goroutine.
func (s *AnalysisService) runPipeline(id, attempt int64, videoID string) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.pipelineTimeout)
	defer cancel()

	log := s.log.With(zap.Int64("analysis", id), zap.Int64("attempt", attempt), zap.String("video", videoID))

	var filePath string
	defer func() {
		if filePath == "" {
			return
		}
		if err := s.downloader.Cleanup(filePath); err != nil {
			log.Warn("cleanup of downloaded file failed", zap.Error(err))
		}
	}()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("pipeline panic: %v", r)
			}
		}()

		filePath, err = s.downloader.Download(ctx, videoID)
		if err != nil {
			return err
		}

		points, err := s.analyzer.Analyze(ctx, videoID, filePath)
		if err != nil {
			return err
		}

		resultJSON, err := json.Marshal(points)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}

		written, err := s.repo.CompleteAttempt(ctx, id, attempt, string(resultJSON), points)
		if err != nil {
			return err
		}
		if !written {
			log.Info("attempt superseded, result dropped")
			return nil
		}
		log.Info("analysis completed", zap.Int("points", len(points)))
		return nil
	}()
	if err == nil {
		return
	}

	detail, mErr := json.Marshal(failureDetail{Error: err.Error(), Stage: classifyStage(err)})
	if mErr != nil {
		detail = []byte(`{"error":"analysis failed","stage":"internal"}`)
	}

	// The pipeline context may already be expired; the terminal write gets
	// its own deadline so the row cannot stay in processing.
	writeCtx, writeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer writeCancel()

	written, fErr := s.repo.FailAttempt(writeCtx, id, attempt, string(detail))
	if fErr != nil {
		log.Error("failed to persist analysis failure", zap.Error(fErr), zap.NamedError("cause", err))
		return
	}
	if !written {
		log.Info("attempt superseded, failure dropped", zap.Error(err))
		return
	}
	log.Warn("analysis failed", zap.Error(err))
}

// classifyStage attributes a pipeline error to the step that produced it.
func classifyStage(err error) string {
	switch {
	case errors.Is(err, downloader.ErrDownloadFailed):
		return "download"
	case errors.Is(err, analyzer.ErrProviderTimeout):
		return "provider_timeout"
	case errors.Is(err, analyzer.ErrResponseParse):
		return "parse"
	case errors.Is(err, analyzer.ErrProviderFailure), errors.Is(err, analyzer.ErrNotConfigured):
		return "provider"
	default:
		return "internal"
	}
}
