package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupAndLogin(t *testing.T) {
	_, app := newTestServer(t)

	token, _ := signupUser(t, app, "carol")

	// The issued token works on a protected route.
	req := jsonRequest(t, http.MethodGet, "/api/users/me", token, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var me struct {
		Username string `json:"username"`
	}
	decodeBody(t, resp, &me)
	assert.Equal(t, "carol", me.Username)

	// Login with the same credentials returns a fresh token.
	req = jsonRequest(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "carol",
		"password": "Password123!",
	})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &body)
	assert.NotEmpty(t, body.Token)
}

func TestSignupValidation(t *testing.T) {
	_, app := newTestServer(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"short username", map[string]string{"username": "ab", "email": "a@b.com", "password": "Password123!"}},
		{"bad email", map[string]string{"username": "dave", "email": "not-an-email", "password": "Password123!"}},
		{"short password", map[string]string{"username": "dave", "email": "d@e.com", "password": "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := jsonRequest(t, http.MethodPost, "/api/auth/signup", "", tt.body)
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestSignupDuplicateUsername(t *testing.T) {
	_, app := newTestServer(t)

	signupUser(t, app, "erin")

	req := jsonRequest(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "erin",
		"email":    "other@example.com",
		"password": "Password123!",
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &body)
	assert.Contains(t, body.Error, "taken")
}

func TestLoginWrongPassword(t *testing.T) {
	_, app := newTestServer(t)

	signupUser(t, app, "frank")

	req := jsonRequest(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "frank",
		"password": "WrongPassword1!",
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	_, app := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
