package server

import (
	"github.com/gofiber/fiber/v2"
)

// FollowUser handles POST /api/users/:id/follow. Following an already
// followed user is a no-op and still returns 204.
func (s *Server) FollowUser(c *fiber.Ctx) error {
	err := s.socialService.Follow(c.UserContext(), userIDFromLocals(c), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UnfollowUser handles DELETE /api/users/:id/follow.
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	err := s.socialService.Unfollow(c.UserContext(), userIDFromLocals(c), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetFollowStatus handles GET /api/users/:id/follow.
func (s *Server) GetFollowStatus(c *fiber.Ctx) error {
	following, err := s.socialService.IsFollowing(c.UserContext(), userIDFromLocals(c), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"following": following})
}

// GetFollowers handles GET /api/users/:id/followers.
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	ids, err := s.socialService.ListFollowers(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"followers": ids})
}

// GetFollowing handles GET /api/users/:id/following.
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	ids, err := s.socialService.ListFollowing(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"following": ids})
}
