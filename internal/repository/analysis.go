package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coursevault/internal/models"
)

// PostgresAnalysisRepository implements video analysis persistence against a
// PostgreSQL database.
type PostgresAnalysisRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresAnalysisRepository creates a new PostgresAnalysisRepository using
// the provided *sql.DB. db must be a valid connection to a PostgreSQL instance.
func NewPostgresAnalysisRepository(db *sql.DB) *PostgresAnalysisRepository {
	return &PostgresAnalysisRepository{DB: db}
}

// FindByVideoAndUser fetches the analysis row for a (video, user) pair.
// Returns ErrNotFound when no row exists.
func (r *PostgresAnalysisRepository) FindByVideoAndUser(ctx context.Context, videoID string, userID int64) (*models.VideoAnalysis, error) {
	var a models.VideoAnalysis
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, video_id, user_id, status, attempt, result, created_at, updated_at
		  FROM video_analysis
		 WHERE video_id = $1 AND user_id = $2
	`, videoID, userID).Scan(&a.ID, &a.VideoID, &a.UserID, &a.Status, &a.Attempt, &a.Result, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindByVideoAndUser: %w", err)
	}
	return &a, nil
}

// ClaimProcessing creates the analysis row for a (video, user) pair, or reuses
// the existing one, and moves it to processing. The UNIQUE(video_id, user_id)
// constraint makes concurrent submissions converge on a single row; the
// returned attempt counter identifies this claim so a stale pipeline's final
// write can be detected and dropped.
func (r *PostgresAnalysisRepository) ClaimProcessing(ctx context.Context, videoID string, userID int64) (id, attempt int64, err error) {
	err = r.DB.QueryRowContext(ctx, `
		INSERT INTO video_analysis (video_id, user_id, status, attempt)
		VALUES ($1, $2, 'processing', 1)
		ON CONFLICT (video_id, user_id) DO UPDATE
			SET status = 'processing',
			    attempt = video_analysis.attempt + 1,
			    updated_at = now()
		RETURNING id, attempt
	`, videoID, userID).Scan(&id, &attempt)
	if err != nil {
		return 0, 0, fmt.Errorf("ClaimProcessing: %w", err)
	}
	return id, attempt, nil
}

// CompleteAttempt transitions an analysis to completed and atomically replaces
// its knowledge point set, all in one transaction. The update is guarded by the
// attempt counter: when another claim has superseded this one, nothing is
// written and false is returned.
func (r *PostgresAnalysisRepository) CompleteAttempt(ctx context.Context, id, attempt int64, resultJSON string, points []models.KnowledgePoint) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE video_analysis
		   SET status = 'completed', result = $1, updated_at = now()
		 WHERE id = $2 AND attempt = $3
	`, resultJSON, id, attempt)
	if err != nil {
		return false, fmt.Errorf("complete: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		// A newer attempt owns the row now.
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM knowledge_points WHERE analysis_id = $1
	`, id); err != nil {
		return false, fmt.Errorf("delete knowledge points: %w", err)
	}
	for _, p := range points {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO knowledge_points (analysis_id, start_time, end_time, content)
			VALUES ($1, $2, $3, $4)
		`, id, p.StartTime, p.EndTime, p.Content); err != nil {
			return false, fmt.Errorf("insert knowledge point: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// FailAttempt transitions an analysis to failed with an error detail payload.
// Guarded by the attempt counter like CompleteAttempt; a superseded pipeline's
// failure is dropped and false is returned.
func (r *PostgresAnalysisRepository) FailAttempt(ctx context.Context, id, attempt int64, detailJSON string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE video_analysis
		   SET status = 'failed', result = $1, updated_at = now()
		 WHERE id = $2 AND attempt = $3
	`, detailJSON, id, attempt)
	if err != nil {
		return false, fmt.Errorf("FailAttempt: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows > 0, nil
}

// GetByID fetches a single analysis row. Returns ErrNotFound when absent.
func (r *PostgresAnalysisRepository) GetByID(ctx context.Context, id int64) (*models.VideoAnalysis, error) {
	var a models.VideoAnalysis
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, video_id, user_id, status, attempt, result, created_at, updated_at
		  FROM video_analysis
		 WHERE id = $1
	`, id).Scan(&a.ID, &a.VideoID, &a.UserID, &a.Status, &a.Attempt, &a.Result, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return &a, nil
}

// KnowledgePoints fetches the knowledge points of an analysis ordered by start
// time ascending.
func (r *PostgresAnalysisRepository) KnowledgePoints(ctx context.Context, analysisID int64) ([]models.KnowledgePoint, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT start_time, end_time, content
		  FROM knowledge_points
		 WHERE analysis_id = $1
		 ORDER BY start_time ASC
	`, analysisID)
	if err != nil {
		return nil, fmt.Errorf("KnowledgePoints: %w", err)
	}
	defer rows.Close()

	var points []models.KnowledgePoint
	for rows.Next() {
		var p models.KnowledgePoint
		if err := rows.Scan(&p.StartTime, &p.EndTime, &p.Content); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("KnowledgePoints rows: %w", err)
	}
	return points, nil
}

// ListByUser fetches all analyses of a user, newest first.
func (r *PostgresAnalysisRepository) ListByUser(ctx context.Context, userID int64) ([]models.VideoAnalysis, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, video_id, user_id, status, attempt, result, created_at, updated_at
		  FROM video_analysis
		 WHERE user_id = $1
		 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListByUser: %w", err)
	}
	defer rows.Close()

	var analyses []models.VideoAnalysis
	for rows.Next() {
		var a models.VideoAnalysis
		if err := rows.Scan(&a.ID, &a.VideoID, &a.UserID, &a.Status, &a.Attempt, &a.Result, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByUser rows: %w", err)
	}
	return analyses, nil
}
