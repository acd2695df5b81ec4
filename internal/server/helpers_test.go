package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"ripple/internal/config"
	"ripple/internal/store/memstore"
)

// newTestServer builds a Server over an in-memory store with no Redis,
// mounted on a fresh Fiber app.
func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:      "test_secret",
		Port:           "0",
		PostImageWidth: 600,
		AvatarWidth:    300,
		ImageQuality:   80,
		CascadeShard:   100,
		FeatureFlags:   "event_stream=on",
	}
	s, err := NewServerWithDeps(cfg, memstore.New(), nil)
	require.NoError(t, err)

	app := fiber.New()
	s.SetupRoutes(app)
	return s, app
}

// jsonRequest builds a request with a JSON body and optional bearer token.
func jsonRequest(t *testing.T, method, target, token string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// decodeBody decodes a JSON response body into out and closes the body.
func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// signupUser registers a user through the API and returns its token and ID.
func signupUser(t *testing.T, app *fiber.App, username string) (token, userID string) {
	t.Helper()
	req := jsonRequest(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "Password123!",
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decodeBody(t, resp, &body)
	require.NotEmpty(t, body.Token)
	require.NotEmpty(t, body.User.ID)
	return body.Token, body.User.ID
}

// pngPayload returns a small valid PNG as base64, the way clients upload
// images.
func pngPayload(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: uint8(40 * x), G: uint8(40 * y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// createPost uploads a single-image post and returns its ID.
func createPost(t *testing.T, app *fiber.App, token, caption string) string {
	t.Helper()
	req := jsonRequest(t, http.MethodPost, "/api/posts/", token, map[string]any{
		"caption": caption,
		"images":  []string{pngPayload(t)},
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var post struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &post)
	require.NotEmpty(t, post.ID)
	return post.ID
}
