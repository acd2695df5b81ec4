package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ripple/internal/cache"
	"ripple/internal/models"
	"ripple/internal/notifications"
	"ripple/internal/observability"
	"ripple/internal/store"
)

// ProfileService implements profile edits and the fan-out of denormalized
// username/avatar copies into every post and comment the user authored.
type ProfileService struct {
	store     store.Store
	codec     ImageEncoder
	events    notifications.Publisher
	shardSize int
}

// NewProfileService returns a new ProfileService.
func NewProfileService(st store.Store, codec ImageEncoder, events notifications.Publisher, shardSize int) *ProfileService {
	if events == nil {
		events = notifications.NopPublisher{}
	}
	if shardSize <= 0 || shardSize > store.MaxBatchWrites {
		shardSize = store.MaxBatchWrites
	}
	return &ProfileService{store: st, codec: codec, events: events, shardSize: shardSize}
}

// UpdateProfileInput carries a profile edit. A nil Avatar leaves the stored
// avatar alone; a non-nil one is encoded before any write.
type UpdateProfileInput struct {
	UserID   string
	Username string
	Bio      string
	Pronouns string
	Links    []models.LinkItem
	Avatar   []byte
}

// UpdateProfile rewrites the user document and fans the new display snapshot
// out to every post the user owns and every comment they authored. The user
// document rides in the first shard, so profile text is never left
// unupdated by a later shard failure; stale denormalized copies from a
// partial fan-out self-heal on the next edit.
func (s *ProfileService) UpdateProfile(ctx context.Context, in UpdateProfileInput) error {
	if in.UserID == "" {
		return models.NewUnauthenticatedError("Acting user required")
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return models.NewInvalidArgumentError("Username must not be empty")
	}
	if len(in.Links) > models.MaxProfileLinks {
		return models.NewInvalidArgumentError(
			fmt.Sprintf("At most %d profile links are allowed", models.MaxProfileLinks))
	}

	if _, err := s.store.Get(ctx, models.UserPath(in.UserID)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.NewNotFoundError("User", in.UserID)
		}
		return models.NewStoreError(err)
	}

	var avatarRef *string
	if in.Avatar != nil {
		ref, err := s.codec.EncodeAvatar(in.Avatar)
		if err != nil {
			return models.NewInvalidArgumentError("Avatar image could not be encoded")
		}
		avatarRef = &ref
	}

	delta := models.ProfileDelta{
		Username:  username,
		Bio:       in.Bio,
		Pronouns:  in.Pronouns,
		Links:     models.ClassifyLinks(in.Links),
		AvatarRef: avatarRef,
	}

	posts, err := s.store.Query(ctx, models.PostsCollection, store.Query{
		Filters: []store.Filter{store.Where(models.FieldOwnerID, in.UserID)},
	})
	if err != nil {
		return models.NewStoreError(err)
	}
	comments, err := s.store.QueryGroup(ctx, models.CommentsCollection, store.Query{
		Filters: []store.Filter{store.Where(models.FieldAuthorID, in.UserID)},
	})
	if err != nil {
		return models.NewStoreError(err)
	}

	ownerStamp := models.OwnerStampDelta{Username: username, AvatarRef: avatarRef}
	authorStamp := models.AuthorStampDelta{Username: username, AvatarRef: avatarRef}

	writes := make([]store.Write, 0, 1+len(posts)+len(comments))
	writes = append(writes, store.UpdateWrite(models.UserPath(in.UserID), delta.Fields()))
	for _, d := range posts {
		writes = append(writes, store.UpdateWrite(d.Path, ownerStamp.Fields()))
	}
	for _, d := range comments {
		writes = append(writes, store.UpdateWrite(d.Path, authorStamp.Fields()))
	}

	if err := s.commitSharded(ctx, writes); err != nil {
		return err
	}
	observability.ProfileFanoutDocs.Add(float64(len(posts) + len(comments)))

	cache.InvalidateUser(ctx, in.UserID)
	for _, d := range posts {
		cache.InvalidatePost(ctx, store.DocumentID(d.Path))
	}
	_ = s.events.PublishEvent(ctx, notifications.Event{
		Type:    notifications.EventProfileUpdated,
		ActorID: in.UserID,
	})
	return nil
}

func (s *ProfileService) commitSharded(ctx context.Context, writes []store.Write) error {
	committed := 0
	for start := 0; start < len(writes); start += s.shardSize {
		end := start + s.shardSize
		if end > len(writes) {
			end = len(writes)
		}
		if err := s.store.RunBatch(ctx, writes[start:end]); err != nil {
			if committed > 0 {
				return models.NewPartialFailureError(
					fmt.Sprintf("profile propagation failed after %d of %d writes committed, some denormalized copies are stale until the next edit", committed, len(writes)),
					err)
			}
			return models.NewStoreError(err)
		}
		committed = end
	}
	return nil
}

// GetProfile returns one user's profile, served cache-aside.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := cache.CacheAside(ctx, cache.ProfileKey(userID), &user, cache.ProfileTTL, func() error {
		doc, err := s.store.Get(ctx, models.UserPath(userID))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return models.NewNotFoundError("User", userID)
			}
			return models.NewStoreError(err)
		}
		user = *models.UserFromDocument(doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
