// Package testutil provides shared fixtures for tests.
package testutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"

	"ripple/internal/models"
	"ripple/internal/store"
)

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t interface {
	Helper()
	Fatalf(string, ...any)
}, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: uint8(x), A: 255})
	}
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// SeedUser writes a user document directly into the store.
func SeedUser(t interface {
	Helper()
	Fatalf(string, ...any)
}, st store.Store, id, username string) {
	t.Helper()
	if err := st.Set(context.Background(), models.UserPath(id),
		models.NewUserFields(username, username+"@example.com", "x")); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

// SeedPost writes a post document directly into the store and returns its path.
func SeedPost(t interface {
	Helper()
	Fatalf(string, ...any)
}, st store.Store, postID string, owner *models.User, caption string) string {
	t.Helper()
	path := models.PostPath(postID)
	if err := st.Set(context.Background(), path,
		models.NewPostFields(owner, caption, []string{"ref:1"})); err != nil {
		t.Fatalf("seed post %s: %v", postID, err)
	}
	return path
}

// StubCodec is an ImageEncoder double that returns predictable references.
type StubCodec struct {
	Calls int
	Err   error
}

// EncodePostImage returns a deterministic post reference or the stub error.
func (c *StubCodec) EncodePostImage([]byte) (string, error) {
	if c.Err != nil {
		return "", c.Err
	}
	c.Calls++
	return "ref:post", nil
}

// EncodeAvatar returns a deterministic avatar reference or the stub error.
func (c *StubCodec) EncodeAvatar([]byte) (string, error) {
	if c.Err != nil {
		return "", c.Err
	}
	c.Calls++
	return "ref:avatar", nil
}
