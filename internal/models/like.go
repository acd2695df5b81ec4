package models

import (
	"time"

	"ripple/internal/store"
)

// Like is a like marker under a post. Its existence for (post, user) IS the
// has-liked boolean; there is no separate flag anywhere.
type Like struct {
	UserID    string    `json:"uid"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"timestamp"`
}

// NewLikeFields builds the field set for a like marker.
func NewLikeFields(userID, username string) store.Fields {
	return store.Fields{
		FieldAuthorID:   userID,
		FieldAuthorName: username,
		FieldTimestamp:  store.ServerTimestamp,
	}
}

// LikeFromDocument decodes a like marker snapshot.
func LikeFromDocument(d *store.Document) *Like {
	return &Like{
		UserID:    d.String(FieldAuthorID),
		Username:  d.String(FieldAuthorName),
		CreatedAt: d.Time(FieldTimestamp),
	}
}
