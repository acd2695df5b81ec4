// Package notifications provides real-time engagement event delivery.
package notifications

import (
	"context"
	"time"
)

// Event types published by the engines after a committed operation.
const (
	EventPostCreated    = "post_created"
	EventPostDeleted    = "post_deleted"
	EventPostLiked      = "post_liked"
	EventPostUnliked    = "post_unliked"
	EventCommentCreated = "comment_created"
	EventUserFollowed   = "user_followed"
	EventUserUnfollowed = "user_unfollowed"
	EventProfileUpdated = "profile_updated"
)

// Event is one committed engagement fact. TargetID is the user whose
// content or graph was affected; ActorID is who caused it.
type Event struct {
	Type      string    `json:"type"`
	ActorID   string    `json:"actor_id"`
	TargetID  string    `json:"target_id,omitempty"`
	PostID    string    `json:"post_id,omitempty"`
	CommentID string    `json:"comment_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers committed events to interested subscribers. Publishing
// is best-effort and never participates in the originating transaction.
type Publisher interface {
	PublishEvent(ctx context.Context, ev Event) error
}

// NopPublisher discards all events. Used when Redis is not configured and
// as the default in tests.
type NopPublisher struct{}

// PublishEvent implements Publisher.
func (NopPublisher) PublishEvent(context.Context, Event) error { return nil }
