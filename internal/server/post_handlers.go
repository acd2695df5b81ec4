package server

import (
	"encoding/base64"
	"strings"

	"github.com/gofiber/fiber/v2"

	"ripple/internal/models"
	"ripple/internal/service"
)

// postRequest is the JSON body for creating or updating a post. Images
// arrive base64-encoded, optionally as data URIs.
type postRequest struct {
	Caption string   `json:"caption"`
	Images  []string `json:"images"`
}

// decodeImages turns the request's base64 payloads into raw bytes. The
// codec validates actual image content later; this only undoes the
// transport encoding.
func decodeImages(encoded []string) ([][]byte, error) {
	images := make([][]byte, 0, len(encoded))
	for _, e := range encoded {
		if idx := strings.Index(e, ";base64,"); idx >= 0 {
			e = e[idx+len(";base64,"):]
		}
		raw, err := base64.StdEncoding.DecodeString(e)
		if err != nil {
			return nil, err
		}
		images = append(images, raw)
	}
	return images, nil
}

// CreatePost handles POST /api/posts.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, models.NewInvalidArgumentError("Invalid request body"))
	}
	images, err := decodeImages(req.Images)
	if err != nil {
		return respondErr(c, models.NewInvalidArgumentError("Images must be base64 encoded"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		OwnerID: userIDFromLocals(c),
		Caption: req.Caption,
		Images:  images,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetFeed handles GET /api/posts.
func (s *Server) GetFeed(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	posts, err := s.postService.ListFeed(c.UserContext(), limit)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id.
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.postService.GetPost(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(post)
}

// GetUserPosts handles GET /api/users/:id/posts.
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListUserPosts(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(posts)
}

// UpdatePost handles PUT /api/posts/:id.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, models.NewInvalidArgumentError("Invalid request body"))
	}
	images, err := decodeImages(req.Images)
	if err != nil {
		return respondErr(c, models.NewInvalidArgumentError("Images must be base64 encoded"))
	}

	err = s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		PostID:  c.Params("id"),
		ActorID: userIDFromLocals(c),
		Caption: req.Caption,
		Images:  images,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeletePost handles DELETE /api/posts/:id. A PARTIAL_FAILURE response
// means some children were already removed and the call should be retried.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	err := s.postService.DeletePost(c.UserContext(), c.Params("id"), userIDFromLocals(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
