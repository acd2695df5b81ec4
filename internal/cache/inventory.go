package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix     = "user:%s"
	PostKeyPrefix     = "post:%s"
	CommentsKeyPrefix = "post:%s:comments"
	FeedKeyPrefix     = "feed:%s"
	ProfileKeyPrefix  = "profile:%s"
)

const (
	UserTTL     = 5 * time.Minute
	PostTTL     = 30 * time.Minute
	CommentsTTL = 2 * time.Minute
	FeedTTL     = 1 * time.Minute
	ProfileTTL  = 5 * time.Minute
)

func UserKey(userID string) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID string) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func CommentsKey(postID string) string {
	return fmt.Sprintf(CommentsKeyPrefix, postID)
}

func FeedKey(userID string) string {
	return fmt.Sprintf(FeedKeyPrefix, userID)
}

func ProfileKey(userID string) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateUser(ctx context.Context, userID string) {
	Invalidate(ctx, UserKey(userID), ProfileKey(userID), FeedKey(userID))
}

func InvalidatePost(ctx context.Context, postID string) {
	Invalidate(ctx, PostKey(postID), CommentsKey(postID))
}
