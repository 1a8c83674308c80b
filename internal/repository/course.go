package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coursevault/internal/models"
)

// PostgresCourseRepository implements course persistence against a PostgreSQL database.
type PostgresCourseRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresCourseRepository creates a new PostgresCourseRepository using the
// provided *sql.DB. db must be a valid connection to a PostgreSQL instance.
func NewPostgresCourseRepository(db *sql.DB) *PostgresCourseRepository {
	return &PostgresCourseRepository{DB: db}
}

// Create inserts a course together with its encrypted credential triple.
// The course's ID and CreatedAt fields are populated from the inserted row.
func (r *PostgresCourseRepository) Create(ctx context.Context, c *models.Course) error {
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO courses
			(uuid, user_id, course_name, course_url, login_url, description, encrypted_credentials, iv, auth_tag)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, c.UUID, c.UserID, c.CourseName, c.CourseURL, nullIfEmpty(c.LoginURL), nullIfEmpty(c.Description),
		c.Secret.Ciphertext, c.Secret.Nonce, c.Secret.AuthTag,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("Create course: %w", err)
	}
	return nil
}

// ListByUser fetches the active courses of a user, newest first, along with the
// total active count for pagination.
func (r *PostgresCourseRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]models.Course, int64, error) {
	var total int64
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM courses WHERE user_id = $1 AND is_active = TRUE
	`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByUser count: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT uuid, course_name, course_url, COALESCE(login_url, ''), COALESCE(description, ''),
		       last_accessed, access_count, created_at
		  FROM courses
		 WHERE user_id = $1 AND is_active = TRUE
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByUser: %w", err)
	}
	defer rows.Close()

	var courses []models.Course
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.UUID, &c.CourseName, &c.CourseURL, &c.LoginURL, &c.Description,
			&c.LastAccessed, &c.AccessCount, &c.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		c.UserID = userID
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListByUser rows: %w", err)
	}
	return courses, total, nil
}

// GetByUUID retrieves a single active course with its encrypted credential for
// the given user. Returns ErrNotFound when absent or owned by someone else.
func (r *PostgresCourseRepository) GetByUUID(ctx context.Context, userID int64, uuid string) (*models.Course, error) {
	var c models.Course
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, uuid, course_name, course_url, COALESCE(login_url, ''), COALESCE(description, ''),
		       encrypted_credentials, iv, auth_tag, last_accessed, access_count, created_at
		  FROM courses
		 WHERE uuid = $1 AND user_id = $2 AND is_active = TRUE
	`, uuid, userID).Scan(&c.ID, &c.UUID, &c.CourseName, &c.CourseURL, &c.LoginURL, &c.Description,
		&c.Secret.Ciphertext, &c.Secret.Nonce, &c.Secret.AuthTag, &c.LastAccessed, &c.AccessCount, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetByUUID: %w", err)
	}
	c.UserID = userID
	return &c, nil
}

// UpdateInfo updates a course's descriptive fields, leaving the stored
// credential triple untouched.
func (r *PostgresCourseRepository) UpdateInfo(ctx context.Context, userID int64, uuid, name, description, loginURL string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE courses
		   SET course_name = $1, description = $2, login_url = $3
		 WHERE uuid = $4 AND user_id = $5 AND is_active = TRUE
	`, name, nullIfEmpty(description), nullIfEmpty(loginURL), uuid, userID)
	if err != nil {
		return fmt.Errorf("UpdateInfo: %w", err)
	}
	return checkFound(res)
}

// UpdateWithSecret updates a course's descriptive fields and replaces the
// credential triple with a brand-new one. Ciphertext is never patched in place.
func (r *PostgresCourseRepository) UpdateWithSecret(ctx context.Context, userID int64, uuid, name, description, loginURL string, secret models.EncryptedSecret) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE courses
		   SET course_name = $1, description = $2, login_url = $3,
		       encrypted_credentials = $4, iv = $5, auth_tag = $6
		 WHERE uuid = $7 AND user_id = $8 AND is_active = TRUE
	`, name, nullIfEmpty(description), nullIfEmpty(loginURL),
		secret.Ciphertext, secret.Nonce, secret.AuthTag, uuid, userID)
	if err != nil {
		return fmt.Errorf("UpdateWithSecret: %w", err)
	}
	return checkFound(res)
}

// SoftDelete marks a course inactive. The row, and with it the credential
// triple, is retained until a hard cleanup removes it.
func (r *PostgresCourseRepository) SoftDelete(ctx context.Context, userID int64, uuid string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE courses SET is_active = FALSE WHERE uuid = $1 AND user_id = $2 AND is_active = TRUE
	`, uuid, userID)
	if err != nil {
		return fmt.Errorf("SoftDelete: %w", err)
	}
	return checkFound(res)
}

// RecordAccess bumps the launch bookkeeping for a course.
func (r *PostgresCourseRepository) RecordAccess(ctx context.Context, courseID int64) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE courses SET last_accessed = now(), access_count = access_count + 1 WHERE id = $1
	`, courseID)
	if err != nil {
		return fmt.Errorf("RecordAccess: %w", err)
	}
	return nil
}

func checkFound(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
