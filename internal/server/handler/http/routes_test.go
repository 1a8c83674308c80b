package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"coursevault/internal/middleware"
	"coursevault/internal/models"
	handler "coursevault/internal/server/handler/http"
	"coursevault/internal/service"
)

const routerSecret = "router-secret"

func newTestRouter(auth *fakeAuthService, course *fakeCourseService, analysis *fakeAnalysisService) http.Handler {
	return handler.NewRouter(
		&handler.AuthHandler{AuthService: auth},
		&handler.CourseHandler{CourseService: course, Users: &fakeUsers{id: 7}},
		&handler.AnalysisHandler{AnalysisService: analysis, Users: &fakeUsers{id: 7}},
		&handler.ProxyHandler{CourseService: course, Users: &fakeUsers{id: 7}},
		routerSecret,
		zap.NewNop(),
	)
}

func signTestToken(t *testing.T, secret string) string {
	t.Helper()
	claims := &middleware.Claims{
		Email: "alice@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "uuid-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return token
}

func TestRouter_RegisterIsPublic(t *testing.T) {
	auth := &fakeAuthService{registerUser: &models.User{UUID: "uuid-1", Email: "alice@example.com"}}
	router := newTestRouter(auth, &fakeCourseService{}, &fakeAnalysisService{})

	b, _ := json.Marshal(map[string]string{"email": "alice@example.com", "password": "pw"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d; want %d", w.Code, http.StatusCreated)
	}
}

func TestRouter_CoursesRequireToken(t *testing.T) {
	router := newTestRouter(&fakeAuthService{}, &fakeCourseService{}, &fakeAnalysisService{})

	req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRouter_CoursesWithToken(t *testing.T) {
	course := &fakeCourseService{courses: []models.Course{{UUID: "course-1"}}, total: 1}
	router := newTestRouter(&fakeAuthService{}, course, &fakeAnalysisService{})

	req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, routerSecret))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d; body %s", w.Code, http.StatusOK, w.Body.String())
	}
	if course.receivedUserID != 7 {
		t.Errorf("userID = %d; want 7", course.receivedUserID)
	}
}

func TestRouter_WrongSecretRejected(t *testing.T) {
	router := newTestRouter(&fakeAuthService{}, &fakeCourseService{}, &fakeAnalysisService{})

	req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "other-secret"))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRouter_RejectsNonJSONBody(t *testing.T) {
	router := newTestRouter(&fakeAuthService{}, &fakeCourseService{}, &fakeAnalysisService{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString("email=alice"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d; want %d", w.Code, http.StatusUnsupportedMediaType)
	}
}

func TestRouter_AnalysisRoutes(t *testing.T) {
	analysis := &fakeAnalysisService{
		submitResult: &service.SubmitResult{AnalysisID: 1, Status: models.AnalysisProcessing},
	}
	router := newTestRouter(&fakeAuthService{}, &fakeCourseService{}, analysis)

	b, _ := json.Marshal(map[string]string{"videoId": "BV1xx411c7mD"})
	req := httptest.NewRequest(http.MethodPost, "/api/analysis", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, routerSecret))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d; body %s", w.Code, http.StatusOK, w.Body.String())
	}
	if analysis.receivedVideoID != "BV1xx411c7mD" {
		t.Errorf("videoID = %q", analysis.receivedVideoID)
	}
}
