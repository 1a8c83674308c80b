// Package repository provides persistence implementations for the coursevault
// services using a PostgreSQL database.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"coursevault/internal/models"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicateEmail indicates a registration conflict on the email column.
	ErrDuplicateEmail = errors.New("repository: email already registered")
)

// uniqueViolation is the PostgreSQL error code for unique constraint conflicts.
const uniqueViolation = "23505"

// PostgresUserRepository implements user persistence against a PostgreSQL database.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository with the given
// database connection. db must be a valid *sql.DB connected to a PostgreSQL
// instance.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

// CreateUser inserts a new user and returns its internal numeric ID.
// Returns ErrDuplicateEmail when the email is already registered.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, uuid, email string, passwordHash []byte) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO users (uuid, email, password_hash) VALUES ($1, $2, $3) RETURNING id
	`, uuid, email, passwordHash).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return 0, ErrDuplicateEmail
		}
		return 0, fmt.Errorf("CreateUser: %w", err)
	}
	return id, nil
}

// FindByEmail fetches a user by email. Returns ErrNotFound when absent.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, uuid, email, password_hash, created_at FROM users WHERE email = $1
	`, email).Scan(&u.ID, &u.UUID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindByEmail: %w", err)
	}
	return &u, nil
}

// FindIDByUUID resolves a user's public identifier to the internal numeric ID.
// Returns ErrNotFound when absent.
func (r *PostgresUserRepository) FindIDByUUID(ctx context.Context, uuid string) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `
		SELECT id FROM users WHERE uuid = $1
	`, uuid).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("FindIDByUUID: %w", err)
	}
	return id, nil
}
