package server

import (
	"github.com/gofiber/fiber/v2"

	"ripple/internal/models"
	"ripple/internal/service"
)

// ToggleLike handles POST /api/posts/:id/like. The same endpoint likes and
// unlikes; the response reports the resulting state.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	actorID := userIDFromLocals(c)
	username := usernameFromLocals(c)
	if username == "" {
		// The like marker snapshots the actor's username, so a failed
		// lookup must fail the request rather than commit a blank snapshot.
		actor, err := s.userService.GetUser(c.UserContext(), actorID)
		if err != nil {
			return respondErr(c, err)
		}
		username = actor.Username
	}

	liked, err := s.engagementService.ToggleLike(c.UserContext(), service.ToggleLikeInput{
		PostID:   c.Params("id"),
		ActorID:  actorID,
		Username: username,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"liked": liked})
}

// GetLikeStatus handles GET /api/posts/:id/like.
func (s *Server) GetLikeStatus(c *fiber.Ctx) error {
	liked, err := s.engagementService.HasLiked(c.UserContext(), c.Params("id"), userIDFromLocals(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"liked": liked})
}

// GetLikes handles GET /api/posts/:id/likes.
func (s *Server) GetLikes(c *fiber.Ctx) error {
	likes, err := s.engagementService.ListLikes(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(likes)
}

// CreateComment handles POST /api/posts/:id/comments.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, models.NewInvalidArgumentError("Invalid request body"))
	}

	actorID := userIDFromLocals(c)
	actor, err := s.userService.GetUser(c.UserContext(), actorID)
	if err != nil {
		return respondErr(c, err)
	}

	comment, err := s.engagementService.AddComment(c.UserContext(), service.AddCommentInput{
		PostID:          c.Params("id"),
		AuthorID:        actorID,
		AuthorUsername:  actor.Username,
		AuthorAvatarRef: actor.AvatarRef,
		Text:            req.Text,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetComments handles GET /api/posts/:id/comments.
func (s *Server) GetComments(c *fiber.Ctx) error {
	comments, err := s.engagementService.ListComments(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(comments)
}
