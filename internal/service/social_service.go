package service

import (
	"context"
	"errors"

	"ripple/internal/cache"
	"ripple/internal/models"
	"ripple/internal/notifications"
	"ripple/internal/store"
)

// SocialService implements follow and unfollow as a paired bidirectional
// marker plus paired counter mutation, all inside one transaction.
type SocialService struct {
	store  store.Store
	events notifications.Publisher
}

// NewSocialService returns a new SocialService.
func NewSocialService(st store.Store, events notifications.Publisher) *SocialService {
	if events == nil {
		events = notifications.NopPublisher{}
	}
	return &SocialService{store: st, events: events}
}

// Follow creates both follow markers and moves both counters atomically.
// Following an already-followed user is a silent no-op; the existence check
// runs inside the same transaction as the writes, so a duplicate call can
// never double-increment. Self-follow is rejected.
func (s *SocialService) Follow(ctx context.Context, followerID, followeeID string) error {
	if followerID == "" {
		return models.NewUnauthenticatedError("Acting user required")
	}
	if followerID == followeeID {
		return models.NewInvalidArgumentError("Users cannot follow themselves")
	}

	followerPath := models.UserPath(followerID)
	followeePath := models.UserPath(followeeID)
	followingMarker := models.FollowingPath(followerID, followeeID)
	followerMarker := models.FollowerPath(followeeID, followerID)

	var followed bool
	err := s.store.RunTransaction(ctx, func(tx store.Txn) error {
		if _, err := tx.Get(followerPath); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return models.NewNotFoundError("User", followerID)
			}
			return err
		}
		if _, err := tx.Get(followeePath); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return models.NewNotFoundError("User", followeeID)
			}
			return err
		}

		_, err := tx.Get(followingMarker)
		switch {
		case err == nil:
			// Already following.
			followed = false
			return nil
		case errors.Is(err, store.ErrNotFound):
		default:
			return err
		}

		tx.Set(followingMarker, models.FollowMarkerFields())
		tx.Set(followerMarker, models.FollowMarkerFields())
		tx.Increment(followerPath, models.FieldFollowingCount, 1)
		tx.Increment(followeePath, models.FieldFollowersCount, 1)
		followed = true
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return models.NewStoreError(err)
	}

	if followed {
		cache.InvalidateUser(ctx, followerID)
		cache.InvalidateUser(ctx, followeeID)
		_ = s.events.PublishEvent(ctx, notifications.Event{
			Type:     notifications.EventUserFollowed,
			ActorID:  followerID,
			TargetID: followeeID,
		})
	}
	return nil
}

// Unfollow deletes both markers and moves both counters atomically. An
// unfollow with no existing relationship is a silent no-op, symmetric with
// Follow's duplicate handling.
func (s *SocialService) Unfollow(ctx context.Context, followerID, followeeID string) error {
	if followerID == "" {
		return models.NewUnauthenticatedError("Acting user required")
	}
	if followerID == followeeID {
		return models.NewInvalidArgumentError("Users cannot unfollow themselves")
	}

	followerPath := models.UserPath(followerID)
	followeePath := models.UserPath(followeeID)
	followingMarker := models.FollowingPath(followerID, followeeID)
	followerMarker := models.FollowerPath(followeeID, followerID)

	var unfollowed bool
	err := s.store.RunTransaction(ctx, func(tx store.Txn) error {
		_, err := tx.Get(followingMarker)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// Not following.
			unfollowed = false
			return nil
		case err != nil:
			return err
		}

		tx.Delete(followingMarker)
		tx.Delete(followerMarker)
		tx.Increment(followerPath, models.FieldFollowingCount, -1)
		tx.Increment(followeePath, models.FieldFollowersCount, -1)
		unfollowed = true
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return models.NewStoreError(err)
	}

	if unfollowed {
		cache.InvalidateUser(ctx, followerID)
		cache.InvalidateUser(ctx, followeeID)
		_ = s.events.PublishEvent(ctx, notifications.Event{
			Type:     notifications.EventUserUnfollowed,
			ActorID:  followerID,
			TargetID: followeeID,
		})
	}
	return nil
}

// IsFollowing reports whether the follower-side marker exists. Plain
// existence read, non-transactional.
func (s *SocialService) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	_, err := s.store.Get(ctx, models.FollowingPath(followerID, followeeID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, models.NewStoreError(err)
	}
	return true, nil
}

// ListFollowers returns the user IDs following the given user.
func (s *SocialService) ListFollowers(ctx context.Context, userID string) ([]string, error) {
	return s.listMarkers(ctx, store.JoinPath(models.UsersCollection, userID, models.FollowersCollection))
}

// ListFollowing returns the user IDs the given user follows.
func (s *SocialService) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	return s.listMarkers(ctx, store.JoinPath(models.UsersCollection, userID, models.FollowingCollection))
}

func (s *SocialService) listMarkers(ctx context.Context, collectionPath string) ([]string, error) {
	docs, err := s.store.Query(ctx, collectionPath, store.Query{})
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID())
	}
	return ids, nil
}
