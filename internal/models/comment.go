package models

import (
	"time"

	"ripple/internal/store"
)

// Field names for comment documents. Author display fields reuse the
// user-document names because they are denormalized copies of them.
const (
	FieldAuthorID     = "uid"
	FieldAuthorName   = "username"
	FieldAuthorAvatar = "profile_image_url"
	FieldText         = "content"
)

// Comment is a comment document parented under a post. Comments are
// immutable after creation and are removed only by the parent post's
// cascade deletion.
type Comment struct {
	ID              string    `json:"id"`
	PostID          string    `json:"post_id"`
	AuthorID        string    `json:"uid"`
	AuthorUsername  string    `json:"username"`
	AuthorAvatarRef string    `json:"profile_image_url,omitempty"`
	Text            string    `json:"content"`
	CreatedAt       time.Time `json:"timestamp"`
}

// NewCommentFields builds the field set for a new comment with a
// server-assigned timestamp.
func NewCommentFields(authorID, authorUsername, authorAvatarRef, text string) store.Fields {
	return store.Fields{
		FieldAuthorID:     authorID,
		FieldAuthorName:   authorUsername,
		FieldAuthorAvatar: authorAvatarRef,
		FieldText:         text,
		FieldTimestamp:    store.ServerTimestamp,
	}
}

// CommentFromDocument decodes a comment document snapshot. The post ID is
// recovered from the document path.
func CommentFromDocument(d *store.Document) *Comment {
	segs := store.SplitPath(d.Path)
	postID := ""
	if len(segs) >= 4 {
		postID = segs[1]
	}
	return &Comment{
		ID:              d.ID(),
		PostID:          postID,
		AuthorID:        d.String(FieldAuthorID),
		AuthorUsername:  d.String(FieldAuthorName),
		AuthorAvatarRef: d.String(FieldAuthorAvatar),
		Text:            d.String(FieldText),
		CreatedAt:       d.Time(FieldTimestamp),
	}
}

// AuthorStampDelta is the denormalized author snapshot a profile edit fans
// out to every comment the user authored, across all posts.
type AuthorStampDelta struct {
	Username  string
	AvatarRef *string
}

// Fields renders the delta for a store update.
func (d AuthorStampDelta) Fields() store.Fields {
	fields := store.Fields{FieldAuthorName: d.Username}
	if d.AvatarRef != nil {
		fields[FieldAuthorAvatar] = *d.AvatarRef
	}
	return fields
}
