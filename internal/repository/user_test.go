package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func setupUserMock(t *testing.T) (*PostgresUserRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresUserRepository(db)
	cleanup := func() {
		db.Close()
	}
	return repo, mock, cleanup
}

func TestCreateUser_Success(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (uuid, email, password_hash) VALUES ($1, $2, $3) RETURNING id`)).
		WithArgs("uuid-1", "a@b.c", []byte("hash")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := repo.CreateUser(context.Background(), "uuid-1", "a@b.c", []byte("hash"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 7 {
		t.Errorf("expected id 7, got %d", id)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("uuid-1", "a@b.c", []byte("hash")).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.CreateUser(context.Background(), "uuid-1", "a@b.c", []byte("hash"))
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestFindByEmail_Success(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	created := time.Now()
	rows := sqlmock.NewRows([]string{"id", "uuid", "email", "password_hash", "created_at"}).
		AddRow(int64(3), "uuid-3", "a@b.c", []byte("hash"), created)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, uuid, email, password_hash, created_at FROM users WHERE email = $1`)).
		WithArgs("a@b.c").
		WillReturnRows(rows)

	u, err := repo.FindByEmail(context.Background(), "a@b.c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != 3 || u.UUID != "uuid-3" || u.Email != "a@b.c" {
		t.Errorf("unexpected user: %+v", u)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFindByEmail_NotFound(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, uuid, email, password_hash, created_at FROM users WHERE email = $1`)).
		WithArgs("missing@b.c").
		WillReturnRows(sqlmock.NewRows([]string{"id", "uuid", "email", "password_hash", "created_at"}))

	_, err := repo.FindByEmail(context.Background(), "missing@b.c")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFindIDByUUID(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM users WHERE uuid = $1`)).
		WithArgs("uuid-9").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))

	id, err := repo.FindIDByUUID(context.Background(), "uuid-9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 9 {
		t.Errorf("expected id 9, got %d", id)
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM users WHERE uuid = $1`)).
		WithArgs("unknown").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.FindIDByUUID(context.Background(), "unknown"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
