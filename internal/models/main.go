// Package models defines the core data structures for users, courses,
// encrypted credentials and video analyses.
package models

import "time"

// User represents an application user with credentials.
type User struct {
	// ID is the internal numeric identifier for the user.
	ID int64
	// UUID is the public identifier handed out to clients and embedded in tokens.
	UUID string
	// Email is the login name chosen by the user.
	Email string
	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash []byte
	// CreatedAt is the registration timestamp.
	CreatedAt time.Time
}

// EncryptedSecret is one encrypted credential blob as persisted alongside a course.
// All three fields are hex encoded. A triple is immutable once written: updating
// a credential always produces a brand-new triple.
type EncryptedSecret struct {
	// Ciphertext is the encrypted JSON-encoded username/password pair.
	Ciphertext string `json:"ciphertext"`
	// Nonce is the 16-byte nonce used for this encryption, unique per operation.
	Nonce string `json:"nonce"`
	// AuthTag is the 16-byte GCM authentication tag.
	AuthTag string `json:"authTag"`
}

// Credentials is the plaintext form of a stored course credential.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Course represents one stored course link with its encrypted credential.
type Course struct {
	// ID is the internal numeric identifier.
	ID int64 `json:"-"`
	// UUID is the public identifier handed out to clients.
	UUID string `json:"id"`
	// UserID is the owning user's internal identifier.
	UserID int64 `json:"-"`
	// CourseName is the display name.
	CourseName string `json:"courseName"`
	// CourseURL is the course page address.
	CourseURL string `json:"courseUrl"`
	// LoginURL is the site's login page, if different from CourseURL.
	LoginURL string `json:"loginUrl,omitempty"`
	// Description holds optional user notes.
	Description string `json:"description,omitempty"`
	// Secret is the encrypted credential triple.
	Secret EncryptedSecret `json:"-"`
	// LastAccessed is the time of the most recent launch, if any.
	LastAccessed *time.Time `json:"lastAccessed,omitempty"`
	// AccessCount counts launches.
	AccessCount int64 `json:"accessCount"`
	// CreatedAt is the creation timestamp.
	CreatedAt time.Time `json:"createdAt"`
}

// AnalysisStatus is the lifecycle state of a video analysis.
type AnalysisStatus string

const (
	// AnalysisPending is the initial state; rows move to processing immediately.
	AnalysisPending AnalysisStatus = "pending"
	// AnalysisProcessing means the background pipeline is in flight.
	AnalysisProcessing AnalysisStatus = "processing"
	// AnalysisCompleted is terminal: knowledge points are available.
	AnalysisCompleted AnalysisStatus = "completed"
	// AnalysisFailed is terminal but re-enterable by a later submission.
	AnalysisFailed AnalysisStatus = "failed"
)

// Terminal reports whether no further automatic transition occurs from s.
func (s AnalysisStatus) Terminal() bool {
	return s == AnalysisCompleted || s == AnalysisFailed
}

// VideoAnalysis represents one analysis request for a (video, user) pair.
// The pair is unique in the store; repeated submissions converge on one row.
type VideoAnalysis struct {
	// ID is the stable identifier of the analysis row.
	ID int64 `json:"analysisId"`
	// VideoID is the identifier of the source video.
	VideoID string `json:"videoId"`
	// UserID is the owning user's internal identifier.
	UserID int64 `json:"-"`
	// Status is the current lifecycle state.
	Status AnalysisStatus `json:"status"`
	// Attempt is a monotonic counter bumped each time the row is (re)claimed
	// for processing. Stale pipelines detect a mismatch and drop their write.
	Attempt int64 `json:"-"`
	// Result is the JSON result payload, present only in terminal states:
	// knowledge points on success, an error detail on failure.
	Result *string `json:"-"`
	// CreatedAt is the creation timestamp.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt changes on every status transition.
	UpdatedAt time.Time `json:"updatedAt"`
}

// KnowledgePoint is one timestamped annotation belonging to a completed analysis.
type KnowledgePoint struct {
	// StartTime is the chapter start in seconds, >= 0.
	StartTime float64 `json:"start_time"`
	// EndTime is the chapter end in seconds when known; never defaulted to zero.
	EndTime *float64 `json:"end_time,omitempty"`
	// Content is the chapter label; normalized to "" when the provider omits it.
	Content string `json:"content"`
}
