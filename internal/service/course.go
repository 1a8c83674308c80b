package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"coursevault/internal/models"
	"coursevault/internal/vault"
)

// CourseRepository defines the persistence operations needed by the CourseService.
type CourseRepository interface {
	// Create inserts a course with its encrypted credential triple.
	Create(ctx context.Context, c *models.Course) error
	// ListByUser fetches active courses for pagination.
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]models.Course, int64, error)
	// GetByUUID retrieves a single active course with its credential triple.
	GetByUUID(ctx context.Context, userID int64, uuid string) (*models.Course, error)
	// UpdateInfo updates descriptive fields, leaving the credential untouched.
	UpdateInfo(ctx context.Context, userID int64, uuid, name, description, loginURL string) error
	// UpdateWithSecret updates descriptive fields and replaces the credential triple.
	UpdateWithSecret(ctx context.Context, userID int64, uuid, name, description, loginURL string, secret models.EncryptedSecret) error
	// SoftDelete marks a course inactive.
	SoftDelete(ctx context.Context, userID int64, uuid string) error
	// RecordAccess bumps launch bookkeeping.
	RecordAccess(ctx context.Context, courseID int64) error
}

// CourseInput carries the client-provided course fields. Username and Password
// are plaintext here and exist only for the duration of the call; they are
// persisted exclusively in encrypted form.
type CourseInput struct {
	CourseName  string
	CourseURL   string
	LoginURL    string
	Description string
	Username    string
	Password    string
}

// LaunchInfo is the decrypted payload the auto-fill client needs to open a
// course site.
type LaunchInfo struct {
	CourseTitle string             `json:"courseTitle"`
	CourseURL   string             `json:"courseUrl"`
	LoginURL    string             `json:"loginUrl"`
	Credentials models.Credentials `json:"credentials"`
}

// defaultLoginURL is used when a course has no dedicated login page.
const defaultLoginURL = "https://passport.bilibili.com/login"

// CourseService implements course management on top of the Vault: credentials
// go through Encrypt on the way in and Decrypt on the way out, and are never
// stored in plaintext.
type CourseService struct {
	repo  CourseRepository
	vault *vault.Vault
}

// NewCourseService constructs a CourseService with the provided repository and
// vault.
func NewCourseService(repo CourseRepository, v *vault.Vault) *CourseService {
	return &CourseService{repo: repo, vault: v}
}

// Create encrypts the credential pair and stores a new course for the user.
func (s *CourseService) Create(ctx context.Context, userID int64, in CourseInput) (*models.Course, error) {
	secret, err := s.encryptCredentials(in.Username, in.Password)
	if err != nil {
		return nil, err
	}

	c := &models.Course{
		UUID:        uuid.NewString(),
		UserID:      userID,
		CourseName:  in.CourseName,
		CourseURL:   in.CourseURL,
		LoginURL:    in.LoginURL,
		Description: in.Description,
		Secret:      secret,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns one page of the user's active courses and the total count.
func (s *CourseService) List(ctx context.Context, userID int64, page, limit int) ([]models.Course, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, limit, (page-1)*limit)
}

// Get retrieves a single course without decrypting its credential.
func (s *CourseService) Get(ctx context.Context, userID int64, courseUUID string) (*models.Course, error) {
	return s.repo.GetByUUID(ctx, userID, courseUUID)
}

// Update changes a course's descriptive fields. When a new username/password
// pair is supplied, a brand-new encrypted triple replaces the stored one; the
// old ciphertext is never patched.
func (s *CourseService) Update(ctx context.Context, userID int64, courseUUID string, in CourseInput) error {
	if in.Username != "" && in.Password != "" {
		secret, err := s.encryptCredentials(in.Username, in.Password)
		if err != nil {
			return err
		}
		return s.repo.UpdateWithSecret(ctx, userID, courseUUID, in.CourseName, in.Description, in.LoginURL, secret)
	}
	return s.repo.UpdateInfo(ctx, userID, courseUUID, in.CourseName, in.Description, in.LoginURL)
}

// Delete marks a course inactive.
func (s *CourseService) Delete(ctx context.Context, userID int64, courseUUID string) error {
	return s.repo.SoftDelete(ctx, userID, courseUUID)
}

// Launch decrypts the course credential for the auto-fill flow and records the
// access. Vault errors propagate unmasked: a tampered triple surfaces as an
// authentication failure, never as garbage credentials.
func (s *CourseService) Launch(ctx context.Context, userID int64, courseUUID string) (*LaunchInfo, error) {
	c, err := s.repo.GetByUUID(ctx, userID, courseUUID)
	if err != nil {
		return nil, err
	}

	plaintext, err := s.vault.Decrypt(c.Secret)
	if err != nil {
		return nil, err
	}
	var creds models.Credentials
	if err := json.Unmarshal([]byte(plaintext), &creds); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}

	if err := s.repo.RecordAccess(ctx, c.ID); err != nil {
		return nil, err
	}

	loginURL := c.LoginURL
	if loginURL == "" {
		loginURL = defaultLoginURL
	}
	return &LaunchInfo{
		CourseTitle: c.CourseName,
		CourseURL:   c.CourseURL,
		LoginURL:    loginURL,
		Credentials: creds,
	}, nil
}

func (s *CourseService) encryptCredentials(username, password string) (models.EncryptedSecret, error) {
	plaintext, err := json.Marshal(models.Credentials{Username: username, Password: password})
	if err != nil {
		return models.EncryptedSecret{}, fmt.Errorf("encode credentials: %w", err)
	}
	return s.vault.Encrypt(string(plaintext))
}
