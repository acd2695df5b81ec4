package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ripple/internal/cache"
	"ripple/internal/models"
	"ripple/internal/notifications"
	"ripple/internal/observability"
	"ripple/internal/store"
)

// ImageEncoder is the image codec collaborator: it turns raw uploaded bytes
// into storable references before any store write happens.
type ImageEncoder interface {
	EncodePostImage(data []byte) (string, error)
	EncodeAvatar(data []byte) (string, error)
}

// PostService implements post creation, update, and cascade deletion.
type PostService struct {
	store     store.Store
	codec     ImageEncoder
	events    notifications.Publisher
	shardSize int
}

// NewPostService returns a new PostService. shardSize bounds the writes per
// cascade batch and must not exceed the store's batch limit.
func NewPostService(st store.Store, codec ImageEncoder, events notifications.Publisher, shardSize int) *PostService {
	if events == nil {
		events = notifications.NopPublisher{}
	}
	if shardSize <= 0 || shardSize > store.MaxBatchWrites {
		shardSize = store.MaxBatchWrites
	}
	return &PostService{store: st, codec: codec, events: events, shardSize: shardSize}
}

// CreatePostInput carries a new post's content. Images are raw uploads; the
// codec runs before any write.
type CreatePostInput struct {
	OwnerID string
	Caption string
	Images  [][]byte
}

// CreatePost encodes the images, captures the owner's current display
// snapshot, and commits the post document plus the owner's posts_count
// increment as one batch. If any image fails to encode, nothing is written.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.OwnerID == "" {
		return nil, models.NewUnauthenticatedError("Acting user required")
	}
	if len(in.Images) < models.MinPostImages || len(in.Images) > models.MaxPostImages {
		return nil, models.NewInvalidArgumentError(
			fmt.Sprintf("A post carries %d to %d images", models.MinPostImages, models.MaxPostImages))
	}

	imageRefs := make([]string, 0, len(in.Images))
	for i, img := range in.Images {
		ref, err := s.codec.EncodePostImage(img)
		if err != nil {
			return nil, models.NewInvalidArgumentError(fmt.Sprintf("Image %d could not be encoded", i+1))
		}
		imageRefs = append(imageRefs, ref)
	}

	ownerDoc, err := s.store.Get(ctx, models.UserPath(in.OwnerID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.NewNotFoundError("User", in.OwnerID)
		}
		return nil, models.NewStoreError(err)
	}
	owner := models.UserFromDocument(ownerDoc)

	postID := uuid.NewString()
	postPath := models.PostPath(postID)

	writes := []store.Write{
		store.SetWrite(postPath, models.NewPostFields(owner, in.Caption, imageRefs)),
		store.IncrementWrite(models.UserPath(in.OwnerID), models.FieldPostsCount, 1),
	}
	if err := s.store.RunBatch(ctx, writes); err != nil {
		return nil, models.NewStoreError(err)
	}

	doc, err := s.store.Get(ctx, postPath)
	if err != nil {
		return nil, models.NewStoreError(err)
	}

	cache.InvalidateUser(ctx, in.OwnerID)
	_ = s.events.PublishEvent(ctx, notifications.Event{
		Type:    notifications.EventPostCreated,
		ActorID: in.OwnerID,
		PostID:  postID,
	})
	return models.PostFromDocument(doc), nil
}

// GetPost returns one post, served cache-aside.
func (s *PostService) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	err := cache.CacheAside(ctx, cache.PostKey(postID), &post, cache.PostTTL, func() error {
		doc, err := s.store.Get(ctx, models.PostPath(postID))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return models.NewNotFoundError("Post", postID)
			}
			return models.NewStoreError(err)
		}
		post = *models.PostFromDocument(doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// ListFeed returns posts newest first, up to limit.
func (s *PostService) ListFeed(ctx context.Context, limit int) ([]*models.Post, error) {
	docs, err := s.store.Query(ctx, models.PostsCollection, store.Query{
		OrderBy: models.FieldTimestamp,
		Desc:    true,
		Limit:   limit,
	})
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	posts := make([]*models.Post, 0, len(docs))
	for _, d := range docs {
		posts = append(posts, models.PostFromDocument(d))
	}
	return posts, nil
}

// ListUserPosts returns one user's posts, newest first.
func (s *PostService) ListUserPosts(ctx context.Context, userID string) ([]*models.Post, error) {
	docs, err := s.store.Query(ctx, models.PostsCollection, store.Query{
		Filters: []store.Filter{store.Where(models.FieldOwnerID, userID)},
		OrderBy: models.FieldTimestamp,
		Desc:    true,
	})
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	posts := make([]*models.Post, 0, len(docs))
	for _, d := range docs {
		posts = append(posts, models.PostFromDocument(d))
	}
	return posts, nil
}

// UpdatePostInput carries a post edit. Images replace the full list.
type UpdatePostInput struct {
	PostID  string
	ActorID string
	Caption string
	Images  [][]byte
}

// UpdatePost overwrites the caption and the full image list as one document
// update. Counters and the creation timestamp are untouched. Only the owner
// may edit.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) error {
	if in.ActorID == "" {
		return models.NewUnauthenticatedError("Acting user required")
	}
	if len(in.Images) < models.MinPostImages || len(in.Images) > models.MaxPostImages {
		return models.NewInvalidArgumentError(
			fmt.Sprintf("A post carries %d to %d images", models.MinPostImages, models.MaxPostImages))
	}

	post, err := s.ownedPost(ctx, in.PostID, in.ActorID)
	if err != nil {
		return err
	}

	imageRefs := make([]string, 0, len(in.Images))
	for i, img := range in.Images {
		ref, encErr := s.codec.EncodePostImage(img)
		if encErr != nil {
			return models.NewInvalidArgumentError(fmt.Sprintf("Image %d could not be encoded", i+1))
		}
		imageRefs = append(imageRefs, ref)
	}

	delta := models.PostContentDelta{Caption: in.Caption, ImageRefs: imageRefs}
	if err := s.store.Update(ctx, models.PostPath(post.ID), delta.Fields()); err != nil {
		return models.NewStoreError(err)
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

// DeletePost removes the post and every like and comment under it. The
// enumeration reads are not atomic with the deletes, so a child created
// between enumeration and commit can survive as an orphan; that race is an
// accepted property of the store's batch primitive. When the cascade exceeds
// one batch it is split into sequential shards with the post document (and
// the owner's posts_count decrement) in the final shard, so a mid-cascade
// failure never leaves a deleted post visible with live children.
func (s *PostService) DeletePost(ctx context.Context, postID, actorID string) error {
	if actorID == "" {
		return models.NewUnauthenticatedError("Acting user required")
	}
	post, err := s.ownedPost(ctx, postID, actorID)
	if err != nil {
		return err
	}

	likes, err := s.store.Query(ctx, models.PostLikesPath(postID), store.Query{})
	if err != nil {
		return models.NewStoreError(err)
	}
	comments, err := s.store.Query(ctx, models.PostCommentsPath(postID), store.Query{})
	if err != nil {
		return models.NewStoreError(err)
	}

	writes := make([]store.Write, 0, len(likes)+len(comments)+2)
	for _, d := range likes {
		writes = append(writes, store.DeleteWrite(d.Path))
	}
	for _, d := range comments {
		writes = append(writes, store.DeleteWrite(d.Path))
	}
	writes = append(writes,
		store.DeleteWrite(models.PostPath(postID)),
		store.IncrementWrite(models.UserPath(post.OwnerID), models.FieldPostsCount, -1),
	)

	if err := s.commitSharded(ctx, writes, "cascade deletion"); err != nil {
		return err
	}

	cache.InvalidatePost(ctx, postID)
	cache.InvalidateUser(ctx, post.OwnerID)
	_ = s.events.PublishEvent(ctx, notifications.Event{
		Type:    notifications.EventPostDeleted,
		ActorID: actorID,
		PostID:  postID,
	})
	return nil
}

// commitSharded splits writes into sequential batches of at most shardSize.
// Order is preserved, so callers control what lands in the last shard. A
// failure after the first committed shard is surfaced as PARTIAL_FAILURE.
func (s *PostService) commitSharded(ctx context.Context, writes []store.Write, what string) error {
	committed := 0
	for start := 0; start < len(writes); start += s.shardSize {
		end := start + s.shardSize
		if end > len(writes) {
			end = len(writes)
		}
		if err := s.store.RunBatch(ctx, writes[start:end]); err != nil {
			observability.RecordCascadeShard("failed")
			if committed > 0 {
				return models.NewPartialFailureError(
					fmt.Sprintf("%s failed after %d of %d writes committed, retry to finish", what, committed, len(writes)),
					err)
			}
			return models.NewStoreError(err)
		}
		observability.RecordCascadeShard("ok")
		committed = end
	}
	return nil
}

func (s *PostService) ownedPost(ctx context.Context, postID, actorID string) (*models.Post, error) {
	doc, err := s.store.Get(ctx, models.PostPath(postID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.NewNotFoundError("Post", postID)
		}
		return nil, models.NewStoreError(err)
	}
	post := models.PostFromDocument(doc)
	if post.OwnerID != actorID {
		return nil, models.NewForbiddenError("Only the post owner may modify the post")
	}
	return post, nil
}
