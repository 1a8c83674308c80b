// Package service provides business-logic services for authentication, course
// management and video analysis, delegating persistence to repository
// interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"coursevault/internal/middleware"
	"coursevault/internal/models"
	"coursevault/internal/repository"
)

// ErrInvalidCredentials indicates the email/password pair did not match.
var ErrInvalidCredentials = errors.New("service: invalid credentials")

// ErrEmailTaken indicates the email is already registered.
var ErrEmailTaken = errors.New("service: email already registered")

// UserRepository defines the persistence operations needed by the AuthService.
type UserRepository interface {
	// CreateUser inserts a new user and returns its internal numeric ID.
	CreateUser(ctx context.Context, uuid, email string, passwordHash []byte) (int64, error)
	// FindByEmail retrieves a user by email.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindIDByUUID resolves a public identifier to the internal numeric ID.
	FindIDByUUID(ctx context.Context, uuid string) (int64, error)
}

// AuthService implements registration and login with JWT bearer tokens.
type AuthService struct {
	repo      UserRepository
	jwtSecret string
	tokenTTL  time.Duration
}

// NewAuthService constructs an AuthService with the provided repository and
// token signing secret.
func NewAuthService(repo UserRepository, jwtSecret string) *AuthService {
	return &AuthService{repo: repo, jwtSecret: jwtSecret, tokenTTL: 24 * time.Hour}
}

// Register creates a new user with a bcrypt password hash.
// Returns ErrEmailTaken when the email is already registered.
func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		UUID:         uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
	}
	id, err := s.repo.CreateUser(ctx, u.UUID, u.Email, u.PasswordHash)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	u.ID = id
	return u, nil
}

// Login verifies the email/password pair and returns a signed bearer token.
// Returns ErrInvalidCredentials on unknown email or wrong password; the two
// cases are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	u, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	claims := &middleware.Claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.UUID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, u, nil
}

// ResolveUser maps a token subject (the user's public identifier) to the
// internal numeric ID used by the other repositories.
func (s *AuthService) ResolveUser(ctx context.Context, userUUID string) (int64, error) {
	return s.repo.FindIDByUUID(ctx, userUUID)
}
