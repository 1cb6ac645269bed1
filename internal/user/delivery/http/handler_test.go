package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/olenev/userhub/internal/user/domain"
)

func TestGetProfileRequiresToken(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Could not validate credentials", decodeBody(t, rec)["error"])
}

func TestUpdateProfile(t *testing.T) {
	env := setupEnv(t)
	user := env.seedUser(t, "deadpool@example.com", "deadpool", domain.RoleUser, true)
	token := env.accessToken(t, user)

	rec := env.do(t, http.MethodPut, "/api/users/me", token, map[string]string{
		"email":     user.Email,
		"full_name": "Wade Winston Wilson",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "Wade Winston Wilson", body["full_name"])
	assert.Equal(t, true, body["confirmed"], "same email keeps the confirmation")

	// Switching addresses drops the confirmation
	rec = env.do(t, http.MethodPut, "/api/users/me", token, map[string]string{
		"email":     "wade@example.com",
		"full_name": "Wade Winston Wilson",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["confirmed"])
}

func TestUpdateProfileEmailTaken(t *testing.T) {
	env := setupEnv(t)
	user := env.seedUser(t, "deadpool@example.com", "deadpool", domain.RoleUser, true)
	env.seedUser(t, "taken@example.com", "taken", domain.RoleUser, true)

	rec := env.do(t, http.MethodPut, "/api/users/me", env.accessToken(t, user), map[string]string{
		"email":     "taken@example.com",
		"full_name": user.FullName,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Account already exists", decodeBody(t, rec)["error"])
}

func TestUpdateAvatar(t *testing.T) {
	env := setupEnv(t)
	user := env.seedUser(t, "deadpool@example.com", "deadpool", domain.RoleUser, true)
	token := env.accessToken(t, user)

	rec := env.doUpload(t, "/api/users/avatar", token, "file", "face.png", []byte("png-bytes"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	avatar, _ := decodeBody(t, rec)["avatar"].(string)
	assert.True(t, strings.HasPrefix(avatar, "/static/avatars/"), "avatar URL: %q", avatar)

	entries, err := os.ReadDir(env.avatarDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "upload should land in the avatar dir")

	stored, err := env.repo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, avatar, stored.Avatar)
}

func TestUpdateAvatarRejectsBadUpload(t *testing.T) {
	env := setupEnv(t)
	user := env.seedUser(t, "deadpool@example.com", "deadpool", domain.RoleUser, true)
	token := env.accessToken(t, user)

	rec := env.doUpload(t, "/api/users/avatar", token, "file", "script.exe", []byte("nope"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unsupported image format", decodeBody(t, rec)["error"])

	// Wrong field name
	rec = env.doUpload(t, "/api/users/avatar", token, "image", "face.png", []byte("png-bytes"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Avatar file is required", decodeBody(t, rec)["error"])
}

func TestAdminAccessControl(t *testing.T) {
	env := setupEnv(t)
	user := env.seedUser(t, "deadpool@example.com", "deadpool", domain.RoleUser, true)

	rec := env.do(t, http.MethodGet, "/api/admin/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/admin/users", env.accessToken(t, user), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Admin access required", decodeBody(t, rec)["error"])
}

func TestAdminCreateUser(t *testing.T) {
	env := setupEnv(t)
	admin := env.seedUser(t, "boss@example.com", "boss", domain.RoleAdmin, true)
	token := env.accessToken(t, admin)

	rec := env.do(t, http.MethodPost, "/api/admin/users", token, map[string]string{
		"username": "nick",
		"email":    "fury@example.com",
		"password": testPassword,
		"role":     domain.RoleAdmin,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, domain.RoleAdmin, body["role"])

	// Admin-created accounts still need email verification
	assert.Equal(t, false, body["confirmed"])

	rec = env.do(t, http.MethodPost, "/api/admin/users", token, map[string]string{
		"username": "other",
		"email":    "fury@example.com",
		"password": testPassword,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminListUsers(t *testing.T) {
	env := setupEnv(t)
	admin := env.seedUser(t, "boss@example.com", "boss", domain.RoleAdmin, true)
	env.seedUser(t, "one@example.com", "one", domain.RoleUser, true)
	env.seedUser(t, "two@example.com", "two", domain.RoleUser, false)
	token := env.accessToken(t, admin)

	rec := env.do(t, http.MethodGet, "/api/admin/users", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []map[string]interface{}
	require.NoError(t, jsonUnmarshal(rec, &all))
	assert.Len(t, all, 3)

	rec = env.do(t, http.MethodGet, "/api/admin/users?role=admin", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var admins []map[string]interface{}
	require.NoError(t, jsonUnmarshal(rec, &admins))
	require.Len(t, admins, 1)
	assert.Equal(t, "boss", admins[0]["username"])

	rec = env.do(t, http.MethodGet, "/api/admin/users?limit=1&offset=1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page []map[string]interface{}
	require.NoError(t, jsonUnmarshal(rec, &page))
	assert.Len(t, page, 1)
}

func TestAdminGetUpdateDelete(t *testing.T) {
	env := setupEnv(t)
	admin := env.seedUser(t, "boss@example.com", "boss", domain.RoleAdmin, true)
	target := env.seedUser(t, "one@example.com", "one", domain.RoleUser, true)
	token := env.accessToken(t, admin)
	path := "/api/admin/users/" + strconv.Itoa(int(target.ID))

	rec := env.do(t, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "one", decodeBody(t, rec)["username"])

	rec = env.do(t, http.MethodPut, path, token, map[string]string{
		"email":     target.Email,
		"full_name": "Agent One",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Agent One", decodeBody(t, rec)["full_name"])

	rec = env.do(t, http.MethodDelete, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User deleted successfully", decodeBody(t, rec)["message"])

	rec = env.do(t, http.MethodGet, path, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/admin/users/not-a-number", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminChangeRole(t *testing.T) {
	env := setupEnv(t)
	admin := env.seedUser(t, "boss@example.com", "boss", domain.RoleAdmin, true)
	target := env.seedUser(t, "one@example.com", "one", domain.RoleUser, true)
	token := env.accessToken(t, admin)
	path := "/api/admin/users/" + strconv.Itoa(int(target.ID)) + "/role"

	rec := env.do(t, http.MethodPut, path, token, map[string]string{"role": domain.RoleAdmin})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.RoleAdmin, decodeBody(t, rec)["role"])

	rec = env.do(t, http.MethodPut, path, token, map[string]string{"role": "root"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminToggleActive(t *testing.T) {
	env := setupEnv(t)
	admin := env.seedUser(t, "boss@example.com", "boss", domain.RoleAdmin, true)
	target := env.seedUser(t, "one@example.com", "one", domain.RoleUser, true)
	adminToken := env.accessToken(t, admin)
	targetToken := env.accessToken(t, target)
	path := "/api/admin/users/" + strconv.Itoa(int(target.ID)) + "/active"

	rec := env.do(t, http.MethodPut, path, adminToken, map[string]bool{"is_active": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, false, decodeBody(t, rec)["is_active"])

	// A deactivated account can neither log in nor use its old token
	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": target.Email,
		"password": testPassword,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Account is deactivated", decodeBody(t, rec)["error"])

	rec = env.do(t, http.MethodGet, "/api/users/me", targetToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Account is deactivated", decodeBody(t, rec)["error"])

	rec = env.do(t, http.MethodPut, path, adminToken, map[string]bool{"is_active": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["is_active"])
}

func TestAdminStats(t *testing.T) {
	env := setupEnv(t)
	admin := env.seedUser(t, "boss@example.com", "boss", domain.RoleAdmin, true)
	env.seedUser(t, "one@example.com", "one", domain.RoleUser, true)
	env.seedUser(t, "two@example.com", "two", domain.RoleUser, false)

	rec := env.do(t, http.MethodGet, "/api/admin/stats", env.accessToken(t, admin), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decodeBody(t, rec)
	assert.Equal(t, float64(3), stats["total_users"])
	assert.Equal(t, float64(2), stats["confirmed_users"])
	assert.Equal(t, float64(3), stats["active_users"])
	assert.Equal(t, float64(1), stats["admin_count"])
	assert.Equal(t, float64(2), stats["user_count"])
}

func TestHealthCheck(t *testing.T) {
	env := setupEnv(t)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	router := mux.NewRouter()
	env.handler.RegisterHealthCheck(router, sqlDB)

	req := httptest.NewRequest(http.MethodGet, "/api/healthchecker", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to userhub!", decodeBody(t, rec)["message"])

	require.NoError(t, sqlDB.Close())

	req = httptest.NewRequest(http.MethodGet, "/api/healthchecker", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Error connecting to the database", decodeBody(t, rec)["error"])
}
