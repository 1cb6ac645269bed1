package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/olenev/userhub/internal/user/domain"
	"github.com/olenev/userhub/internal/user/repository"
	"github.com/olenev/userhub/internal/user/storage"
	"github.com/olenev/userhub/pkg/auth"
)

const testPassword = "secret123"

type dispatchedEmail struct {
	email    string
	username string
	baseURL  string
}

// fakeDispatcher records verification mail instead of sending it
type fakeDispatcher struct {
	mu   sync.Mutex
	sent []dispatchedEmail
}

func (d *fakeDispatcher) DispatchVerification(_ context.Context, email, username, baseURL string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, dispatchedEmail{email: email, username: username, baseURL: baseURL})
	return nil
}

func (d *fakeDispatcher) dispatched() []dispatchedEmail {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]dispatchedEmail, len(d.sent))
	copy(out, d.sent)
	return out
}

type testEnv struct {
	router     *mux.Router
	repo       domain.UserRepository
	tokens     *auth.TokenManager
	dispatcher *fakeDispatcher
	handler    *UserHandler
	avatarDir  string
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	repo := repository.NewGormUserRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	avatarDir := t.TempDir()
	avatars, err := storage.NewLocalAvatarStorage(avatarDir, "/static/avatars")
	if err != nil {
		t.Fatalf("failed to create avatar storage: %v", err)
	}

	tokens := auth.NewTokenManager("test-secret", 0, 0, 0)
	dispatcher := &fakeDispatcher{}

	handler := NewUserHandler(repo, avatars, tokens, dispatcher, nil)
	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	return &testEnv{
		router:     router,
		repo:       repo,
		tokens:     tokens,
		dispatcher: dispatcher,
		handler:    handler,
		avatarDir:  avatarDir,
	}
}

func (e *testEnv) seedUser(t *testing.T, email, username, role string, confirmed bool) *domain.User {
	t.Helper()

	hashed, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		Username:  username,
		Email:     email,
		Password:  hashed,
		Role:      role,
		Confirmed: confirmed,
		IsActive:  true,
	}
	if err := e.repo.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func (e *testEnv) accessToken(t *testing.T, user *domain.User) string {
	t.Helper()

	token, err := e.tokens.CreateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		t.Fatalf("failed to create access token: %v", err)
	}
	return token
}

// do runs a request through the router and returns the recorder
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// doUpload sends a multipart PATCH with a single file field
func (e *testEnv) doUpload(t *testing.T, path, token, field, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPatch, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func jsonUnmarshal(rec *httptest.ResponseRecorder, v interface{}) error {
	return json.Unmarshal(rec.Body.Bytes(), v)
}
