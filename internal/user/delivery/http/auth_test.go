package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olenev/userhub/internal/user/domain"
)

func TestSignupFlow(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username":  "deadpool",
		"email":     "deadpool@example.com",
		"password":  testPassword,
		"full_name": "Wade Wilson",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "User successfully created", body["detail"])

	user, ok := body["user"].(map[string]interface{})
	require.True(t, ok, "response should embed the created user")
	assert.Equal(t, "deadpool", user["username"])
	assert.Equal(t, false, user["confirmed"])
	assert.NotContains(t, user, "password", "hash must never leave the service")

	// Verification mail carries the request base URL
	sent := env.dispatcher.dispatched()
	require.Len(t, sent, 1)
	assert.Equal(t, "deadpool@example.com", sent[0].email)
	assert.Equal(t, "deadpool", sent[0].username)
	assert.Equal(t, "http://example.com", sent[0].baseURL)
}

func TestSignupConflicts(t *testing.T) {
	env := setupEnv(t)
	env.seedUser(t, "deadpool@example.com", "deadpool", domain.RoleUser, true)

	rec := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "somebody",
		"email":    "deadpool@example.com",
		"password": testPassword,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Account already exists", decodeBody(t, rec)["error"])

	rec = env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "deadpool",
		"email":    "fresh@example.com",
		"password": testPassword,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Username already taken", decodeBody(t, rec)["error"])

	assert.Empty(t, env.dispatcher.dispatched(), "no mail for rejected signups")
}

func TestSignupInvalidBody(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/signup", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginFlow(t *testing.T) {
	env := setupEnv(t)
	env.seedUser(t, "deadpool@example.com", "deadpool", domain.RoleUser, true)

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "deadpool@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "bearer", body["token_type"])
	access, _ := body["access_token"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, body["refresh_token"])

	// The access token opens the profile endpoint
	rec = env.do(t, http.MethodGet, "/api/users/me", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "deadpool", decodeBody(t, rec)["username"])
}

func TestLoginErrors(t *testing.T) {
	env := setupEnv(t)
	env.seedUser(t, "confirmed@example.com", "confirmed", domain.RoleUser, true)
	env.seedUser(t, "pending@example.com", "pending", domain.RoleUser, false)
	frozen := env.seedUser(t, "frozen@example.com", "frozen", domain.RoleUser, true)
	frozen.IsActive = false
	require.NoError(t, env.repo.Update(context.Background(), frozen))

	cases := []struct {
		name     string
		email    string
		password string
		status   int
		message  string
	}{
		{"unknown email", "ghost@example.com", testPassword, http.StatusUnauthorized, "Invalid email"},
		{"unconfirmed", "pending@example.com", testPassword, http.StatusUnauthorized, "Email not confirmed"},
		{"wrong password", "confirmed@example.com", "wrong-pass", http.StatusUnauthorized, "Invalid password"},
		{"deactivated", "frozen@example.com", testPassword, http.StatusForbidden, "Account is deactivated"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
				"username": tc.email,
				"password": tc.password,
			})
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.message, decodeBody(t, rec)["error"])
		})
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	env := setupEnv(t)
	env.seedUser(t, "deadpool@example.com", "deadpool", domain.RoleUser, true)

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "deadpool@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	firstRefresh, _ := decodeBody(t, rec)["refresh_token"].(string)
	require.NotEmpty(t, firstRefresh)

	rec = env.do(t, http.MethodGet, "/api/auth/refresh_token", firstRefresh, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	secondRefresh, _ := decodeBody(t, rec)["refresh_token"].(string)
	require.NotEmpty(t, secondRefresh)
	assert.NotEqual(t, firstRefresh, secondRefresh)

	// Replaying the rotated-out token clears the whole session
	rec = env.do(t, http.MethodGet, "/api/auth/refresh_token", firstRefresh, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid refresh token", decodeBody(t, rec)["error"])

	rec = env.do(t, http.MethodGet, "/api/auth/refresh_token", secondRefresh, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid refresh token", decodeBody(t, rec)["error"])
}

func TestRefreshTokenRejectsWrongCredentials(t *testing.T) {
	env := setupEnv(t)
	user := env.seedUser(t, "deadpool@example.com", "deadpool", domain.RoleUser, true)

	cases := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"garbage", "not-a-token"},
		{"access token scope", env.accessToken(t, user)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/auth/refresh_token", tc.token, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Could not validate credentials", decodeBody(t, rec)["error"])
		})
	}
}

func TestConfirmEmailFlow(t *testing.T) {
	env := setupEnv(t)
	user := env.seedUser(t, "pending@example.com", "pending", domain.RoleUser, false)

	token, err := env.tokens.CreateEmailToken(user.Email)
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/auth/confirmed_email/"+token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Email confirmed", decodeBody(t, rec)["message"])

	stored, err := env.repo.FindByEmail(context.Background(), user.Email)
	require.NoError(t, err)
	assert.True(t, stored.Confirmed)

	// Second visit on the same link
	rec = env.do(t, http.MethodGet, "/api/auth/confirmed_email/"+token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Your email is already confirmed", decodeBody(t, rec)["message"])
}

func TestConfirmEmailErrors(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodGet, "/api/auth/confirmed_email/not-a-token", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Invalid token for email verification", decodeBody(t, rec)["error"])

	ghost, err := env.tokens.CreateEmailToken("ghost@example.com")
	require.NoError(t, err)
	rec = env.do(t, http.MethodGet, "/api/auth/confirmed_email/"+ghost, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Verification error", decodeBody(t, rec)["error"])
}

func TestRequestEmail(t *testing.T) {
	env := setupEnv(t)
	env.seedUser(t, "pending@example.com", "pending", domain.RoleUser, false)
	env.seedUser(t, "done@example.com", "done", domain.RoleUser, true)

	rec := env.do(t, http.MethodPost, "/api/auth/request_email", "", map[string]string{"email": "pending@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Check your email for confirmation.", decodeBody(t, rec)["message"])
	require.Len(t, env.dispatcher.dispatched(), 1)

	rec = env.do(t, http.MethodPost, "/api/auth/request_email", "", map[string]string{"email": "done@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Your email is already confirmed", decodeBody(t, rec)["message"])
	assert.Len(t, env.dispatcher.dispatched(), 1, "confirmed address gets no new mail")

	// Unknown addresses get the same generic reply and no mail
	rec = env.do(t, http.MethodPost, "/api/auth/request_email", "", map[string]string{"email": "ghost@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Check your email for confirmation.", decodeBody(t, rec)["message"])
	assert.Len(t, env.dispatcher.dispatched(), 1)
}
