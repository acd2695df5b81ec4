package models

import (
	"time"

	"ripple/internal/store"
)

// Collections and field names for post documents and their children.
const (
	PostsCollection    = "posts"
	LikesCollection    = "likes"
	CommentsCollection = "comments"

	FieldOwnerID       = "owner_uid"
	FieldOwnerUsername = "owner_username"
	FieldOwnerAvatar   = "owner_image_url"
	FieldCaption       = "caption"
	FieldImageRefs     = "image_urls"
	FieldLikesCount    = "likes_count"
	FieldCommentsCount = "comments_count"
	FieldTimestamp     = "timestamp"
)

// Post image list bounds.
const (
	MinPostImages = 1
	MaxPostImages = 5
)

// Post is a post document. Owner display fields are denormalized snapshots
// captured at creation or most-recent profile edit; they are not live joins.
type Post struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_uid"`
	OwnerUsername  string    `json:"owner_username"`
	OwnerAvatarRef string    `json:"owner_image_url,omitempty"`
	Caption        string    `json:"caption"`
	ImageRefs      []string  `json:"image_urls"`
	LikesCount     int64     `json:"likes_count"`
	CommentsCount  int64     `json:"comments_count"`
	CreatedAt      time.Time `json:"timestamp"`
}

// PostPath returns the document path for a post ID.
func PostPath(id string) string {
	return store.JoinPath(PostsCollection, id)
}

// PostLikesPath returns the like subcollection path of a post.
func PostLikesPath(postID string) string {
	return store.JoinPath(PostsCollection, postID, LikesCollection)
}

// LikePath returns the like marker path for a (post, user) pair. The liking
// user's ID doubles as the document ID, which makes it both the uniqueness
// constraint and the has-liked existence flag.
func LikePath(postID, userID string) string {
	return store.JoinPath(PostsCollection, postID, LikesCollection, userID)
}

// PostCommentsPath returns the comment subcollection path of a post.
func PostCommentsPath(postID string) string {
	return store.JoinPath(PostsCollection, postID, CommentsCollection)
}

// CommentPath returns the document path of one comment under a post.
func CommentPath(postID, commentID string) string {
	return store.JoinPath(PostsCollection, postID, CommentsCollection, commentID)
}

// NewPostFields builds the field set for a freshly created post. Both
// counters start at zero and the timestamp is server-assigned.
func NewPostFields(owner *User, caption string, imageRefs []string) store.Fields {
	return store.Fields{
		FieldOwnerID:       owner.ID,
		FieldOwnerUsername: owner.Username,
		FieldOwnerAvatar:   owner.AvatarRef,
		FieldCaption:       caption,
		FieldImageRefs:     imageRefs,
		FieldLikesCount:    int64(0),
		FieldCommentsCount: int64(0),
		FieldTimestamp:     store.ServerTimestamp,
	}
}

// PostFromDocument decodes a post document snapshot.
func PostFromDocument(d *store.Document) *Post {
	return &Post{
		ID:             d.ID(),
		OwnerID:        d.String(FieldOwnerID),
		OwnerUsername:  d.String(FieldOwnerUsername),
		OwnerAvatarRef: d.String(FieldOwnerAvatar),
		Caption:        d.String(FieldCaption),
		ImageRefs:      d.Strings(FieldImageRefs),
		LikesCount:     d.Int(FieldLikesCount),
		CommentsCount:  d.Int(FieldCommentsCount),
		CreatedAt:      d.Time(FieldTimestamp),
	}
}

// PostContentDelta enumerates exactly the fields a post edit may touch:
// caption and the full image list. Counters and the creation timestamp are
// unreachable from an edit.
type PostContentDelta struct {
	Caption   string
	ImageRefs []string
}

// Fields renders the delta for a store update.
func (d PostContentDelta) Fields() store.Fields {
	return store.Fields{
		FieldCaption:   d.Caption,
		FieldImageRefs: d.ImageRefs,
	}
}

// OwnerStampDelta is the denormalized owner snapshot a profile edit fans out
// to every post the user owns. A nil AvatarRef leaves the stored copy alone.
type OwnerStampDelta struct {
	Username  string
	AvatarRef *string
}

// Fields renders the delta for a store update.
func (d OwnerStampDelta) Fields() store.Fields {
	fields := store.Fields{FieldOwnerUsername: d.Username}
	if d.AvatarRef != nil {
		fields[FieldOwnerAvatar] = *d.AvatarRef
	}
	return fields
}
