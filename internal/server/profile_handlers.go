package server

import (
	"encoding/base64"
	"strings"

	"github.com/gofiber/fiber/v2"

	"ripple/internal/models"
	"ripple/internal/service"
)

// GetMyProfile handles GET /api/users/me.
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.profileService.GetProfile(c.UserContext(), userIDFromLocals(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(user)
}

// GetUserProfile handles GET /api/users/:id.
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	user, err := s.profileService.GetProfile(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me. The edit fans out to every
// post and comment the user authored; a PARTIAL_FAILURE response means the
// profile itself was saved but some denormalized copies are stale until the
// next successful edit.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		Username string            `json:"username"`
		Bio      string            `json:"bio"`
		Pronouns string            `json:"pronouns"`
		Links    []models.LinkItem `json:"links"`
		Avatar   string            `json:"avatar"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, models.NewInvalidArgumentError("Invalid request body"))
	}

	var avatar []byte
	if req.Avatar != "" {
		encoded := req.Avatar
		if idx := strings.Index(encoded, ";base64,"); idx >= 0 {
			encoded = encoded[idx+len(";base64,"):]
		}
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return respondErr(c, models.NewInvalidArgumentError("Avatar must be base64 encoded"))
		}
		avatar = raw
	}

	err := s.profileService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:   userIDFromLocals(c),
		Username: req.Username,
		Bio:      req.Bio,
		Pronouns: req.Pronouns,
		Links:    req.Links,
		Avatar:   avatar,
	})
	if err != nil {
		return respondErr(c, err)
	}

	user, err := s.profileService.GetProfile(c.UserContext(), userIDFromLocals(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(user)
}
