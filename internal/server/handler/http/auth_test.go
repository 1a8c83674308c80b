package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"coursevault/internal/models"
	handler "coursevault/internal/server/handler/http"
	"coursevault/internal/service"
)

// fakeAuthService records calls and returns preconfigured results.
type fakeAuthService struct {
	registerUser *models.User
	registerErr  error
	loginToken   string
	loginUser    *models.User
	loginErr     error

	receivedEmail    string
	receivedPassword string
}

func (f *fakeAuthService) Register(_ context.Context, email, password string) (*models.User, error) {
	f.receivedEmail = email
	f.receivedPassword = password
	return f.registerUser, f.registerErr
}

func (f *fakeAuthService) Login(_ context.Context, email, password string) (string, *models.User, error) {
	f.receivedEmail = email
	f.receivedPassword = password
	return f.loginToken, f.loginUser, f.loginErr
}

// envelope mirrors the API success envelope for decoding in tests.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func TestAuthHandler_RegisterSuccess(t *testing.T) {
	fake := &fakeAuthService{
		registerUser: &models.User{ID: 1, UUID: "uuid-1", Email: "alice@example.com"},
	}
	h := &handler.AuthHandler{AuthService: fake}

	b, _ := json.Marshal(map[string]string{"email": "alice@example.com", "password": "pw"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(b))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d; want %d", w.Code, http.StatusCreated)
	}
	if fake.receivedEmail != "alice@example.com" || fake.receivedPassword != "pw" {
		t.Errorf("service received %q/%q", fake.receivedEmail, fake.receivedPassword)
	}

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if !env.Success {
		t.Errorf("success = false")
	}
	var data map[string]string
	_ = json.Unmarshal(env.Data, &data)
	if data["id"] != "uuid-1" || data["email"] != "alice@example.com" {
		t.Errorf("unexpected data: %s", env.Data)
	}
}

func TestAuthHandler_RegisterBadJSON(t *testing.T) {
	h := &handler.AuthHandler{AuthService: &fakeAuthService{}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString("not-a-json"))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAuthHandler_RegisterMissingFields(t *testing.T) {
	h := &handler.AuthHandler{AuthService: &fakeAuthService{}}
	b, _ := json.Marshal(map[string]string{"email": "alice@example.com"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(b))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAuthHandler_RegisterDuplicate(t *testing.T) {
	fake := &fakeAuthService{registerErr: service.ErrEmailTaken}
	h := &handler.AuthHandler{AuthService: fake}

	b, _ := json.Marshal(map[string]string{"email": "alice@example.com", "password": "pw"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(b))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d; want %d", w.Code, http.StatusConflict)
	}
}

func TestAuthHandler_LoginSuccess(t *testing.T) {
	fake := &fakeAuthService{
		loginToken: "signed-token",
		loginUser:  &models.User{ID: 1, UUID: "uuid-1", Email: "alice@example.com"},
	}
	h := &handler.AuthHandler{AuthService: fake}

	b, _ := json.Marshal(map[string]string{"email": "alice@example.com", "password": "pw"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(b))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", w.Code, http.StatusOK)
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	var data struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	_ = json.Unmarshal(env.Data, &data)
	if data.Token != "signed-token" || data.User.ID != "uuid-1" {
		t.Errorf("unexpected data: %s", env.Data)
	}
}

func TestAuthHandler_LoginInvalidCredentials(t *testing.T) {
	fake := &fakeAuthService{loginErr: service.ErrInvalidCredentials}
	h := &handler.AuthHandler{AuthService: fake}

	b, _ := json.Marshal(map[string]string{"email": "alice@example.com", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(b))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthHandler_LoginServiceError(t *testing.T) {
	fake := &fakeAuthService{loginErr: errors.New("db down")}
	h := &handler.AuthHandler{AuthService: fake}

	b, _ := json.Marshal(map[string]string{"email": "alice@example.com", "password": "pw"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(b))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d; want %d", w.Code, http.StatusInternalServerError)
	}
}
