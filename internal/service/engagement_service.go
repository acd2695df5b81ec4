// Package service implements the engagement, post lifecycle, profile
// propagation, and social graph engines. Each engine is stateless; every
// operation is one bounded interaction with the document store, either a
// transaction (read-decide-write) or a batch (write-many), and engines never
// call each other.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"ripple/internal/cache"
	"ripple/internal/models"
	"ripple/internal/notifications"
	"ripple/internal/store"
)

// EngagementService implements the like toggle and comment creation, each
// paired with an atomic counter mutation on the parent post.
type EngagementService struct {
	store  store.Store
	events notifications.Publisher
}

// NewEngagementService returns a new EngagementService.
func NewEngagementService(st store.Store, events notifications.Publisher) *EngagementService {
	if events == nil {
		events = notifications.NopPublisher{}
	}
	return &EngagementService{store: st, events: events}
}

// ToggleLikeInput identifies the post and the acting user.
type ToggleLikeInput struct {
	PostID   string
	ActorID  string
	Username string
}

// ToggleLike flips the acting user's like marker on the post and moves
// likes_count by exactly one in the same transaction. Returns the new like
// state. Two racing toggles for the same (post, user) serialize in the
// store; each committed toggle pairs its marker change with its counter
// delta, so the counter never drifts.
func (s *EngagementService) ToggleLike(ctx context.Context, in ToggleLikeInput) (bool, error) {
	if in.ActorID == "" {
		return false, models.NewUnauthenticatedError("Acting user required")
	}
	if in.PostID == "" {
		return false, models.NewInvalidArgumentError("Post ID required")
	}

	postPath := models.PostPath(in.PostID)
	likePath := models.LikePath(in.PostID, in.ActorID)

	var liked bool
	err := s.store.RunTransaction(ctx, func(tx store.Txn) error {
		if _, err := tx.Get(postPath); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return models.NewNotFoundError("Post", in.PostID)
			}
			return err
		}

		_, err := tx.Get(likePath)
		switch {
		case err == nil:
			tx.Delete(likePath)
			tx.Increment(postPath, models.FieldLikesCount, -1)
			liked = false
		case errors.Is(err, store.ErrNotFound):
			tx.Set(likePath, models.NewLikeFields(in.ActorID, in.Username))
			tx.Increment(postPath, models.FieldLikesCount, 1)
			liked = true
		default:
			return err
		}
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return false, appErr
		}
		return false, models.NewStoreError(err)
	}

	cache.InvalidatePost(ctx, in.PostID)
	s.publishToggle(ctx, in, liked)
	return liked, nil
}

func (s *EngagementService) publishToggle(ctx context.Context, in ToggleLikeInput, liked bool) {
	evType := notifications.EventPostUnliked
	if liked {
		evType = notifications.EventPostLiked
	}
	_ = s.events.PublishEvent(ctx, notifications.Event{
		Type:    evType,
		ActorID: in.ActorID,
		PostID:  in.PostID,
	})
}

// HasLiked reports whether the user's like marker exists on the post. Plain
// existence read, may be stale relative to a concurrent toggle.
func (s *EngagementService) HasLiked(ctx context.Context, postID, userID string) (bool, error) {
	_, err := s.store.Get(ctx, models.LikePath(postID, userID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, models.NewStoreError(err)
	}
	return true, nil
}

// ListLikes returns the like markers under a post, newest first.
func (s *EngagementService) ListLikes(ctx context.Context, postID string) ([]*models.Like, error) {
	docs, err := s.store.Query(ctx, models.PostLikesPath(postID), store.Query{
		OrderBy: models.FieldTimestamp,
		Desc:    true,
	})
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	likes := make([]*models.Like, 0, len(docs))
	for _, d := range docs {
		likes = append(likes, models.LikeFromDocument(d))
	}
	return likes, nil
}

// AddCommentInput carries a new comment and its author's denormalized
// display snapshot.
type AddCommentInput struct {
	PostID          string
	AuthorID        string
	AuthorUsername  string
	AuthorAvatarRef string
	Text            string
}

// AddComment creates the comment and increments the post's comments_count
// in one all-or-nothing batch: no state exists where the comment is visible
// without the counter move, or vice versa.
func (s *EngagementService) AddComment(ctx context.Context, in AddCommentInput) (*models.Comment, error) {
	if in.AuthorID == "" {
		return nil, models.NewUnauthenticatedError("Acting user required")
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, models.NewInvalidArgumentError("Comment text must not be empty")
	}

	commentID := uuid.NewString()
	commentPath := models.CommentPath(in.PostID, commentID)

	if _, err := s.store.Get(ctx, models.PostPath(in.PostID)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.NewNotFoundError("Post", in.PostID)
		}
		return nil, models.NewStoreError(err)
	}

	writes := []store.Write{
		store.SetWrite(commentPath, models.NewCommentFields(in.AuthorID, in.AuthorUsername, in.AuthorAvatarRef, text)),
		store.IncrementWrite(models.PostPath(in.PostID), models.FieldCommentsCount, 1),
	}
	if err := s.store.RunBatch(ctx, writes); err != nil {
		return nil, models.NewStoreError(err)
	}

	doc, err := s.store.Get(ctx, commentPath)
	if err != nil {
		return nil, models.NewStoreError(err)
	}

	cache.InvalidatePost(ctx, in.PostID)
	_ = s.events.PublishEvent(ctx, notifications.Event{
		Type:      notifications.EventCommentCreated,
		ActorID:   in.AuthorID,
		PostID:    in.PostID,
		CommentID: commentID,
	})
	return models.CommentFromDocument(doc), nil
}

// ListComments returns the post's comments, newest first. Plain query; no
// transaction, restartable.
func (s *EngagementService) ListComments(ctx context.Context, postID string) ([]*models.Comment, error) {
	docs, err := s.store.Query(ctx, models.PostCommentsPath(postID), store.Query{
		OrderBy: models.FieldTimestamp,
		Desc:    true,
	})
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	comments := make([]*models.Comment, 0, len(docs))
	for _, d := range docs {
		comments = append(comments, models.CommentFromDocument(d))
	}
	return comments, nil
}
