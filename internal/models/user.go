package models

import (
	"strings"
	"time"

	"ripple/internal/store"
)

// Collection and field names for user documents.
const (
	UsersCollection = "users"

	FieldUsername       = "username"
	FieldEmail          = "email"
	FieldAvatarRef      = "profile_image_url"
	FieldBio            = "bio"
	FieldPronouns       = "pronouns"
	FieldSocialLinks    = "social_links"
	FieldPasswordHash   = "password_hash"
	FieldFollowersCount = "followers_count"
	FieldFollowingCount = "following_count"
	FieldPostsCount     = "posts_count"
	FieldCreatedAt      = "created_at"
	FieldUpdatedAt      = "updated_at"
)

// User is a user document. The three counters are server-maintained
// aggregates: at rest they equal the count of the corresponding follower
// markers, following markers, and posts.
type User struct {
	ID             string      `json:"id"`
	Username       string      `json:"username"`
	Email          string      `json:"email"`
	AvatarRef      string      `json:"profile_image_url,omitempty"`
	Bio            string      `json:"bio,omitempty"`
	Pronouns       string      `json:"pronouns,omitempty"`
	Links          SocialLinks `json:"social_links"`
	FollowersCount int64       `json:"followers_count"`
	FollowingCount int64       `json:"following_count"`
	PostsCount     int64       `json:"posts_count"`
	CreatedAt      time.Time   `json:"created_at"`
	PasswordHash   string      `json:"-"`
}

// SocialLinks holds one URL per named platform slot.
type SocialLinks struct {
	Website  string `json:"website,omitempty"`
	Facebook string `json:"facebook,omitempty"`
	Threads  string `json:"threads,omitempty"`
	YouTube  string `json:"youtube,omitempty"`
}

// LinkItem is a user-supplied labeled URL before slot classification.
type LinkItem struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// MaxProfileLinks bounds the links accepted by a profile edit.
const MaxProfileLinks = 4

// ClassifyLinks sorts labeled links into platform slots by case-insensitive
// substring match. Unmatched labels land in the website slot, and a later
// link overwrites an earlier one in the same slot, so at most one URL per
// platform survives a single edit.
func ClassifyLinks(links []LinkItem) SocialLinks {
	var out SocialLinks
	for _, link := range links {
		label := strings.ToLower(link.Label)
		switch {
		case strings.Contains(label, "facebook"):
			out.Facebook = link.URL
		case strings.Contains(label, "threads"):
			out.Threads = link.URL
		case strings.Contains(label, "youtube"):
			out.YouTube = link.URL
		default:
			out.Website = link.URL
		}
	}
	return out
}

// fieldMap renders the links as a store field value, omitting empty slots.
func (l SocialLinks) fieldMap() map[string]string {
	out := make(map[string]string, 4)
	if l.Website != "" {
		out["website"] = l.Website
	}
	if l.Facebook != "" {
		out["facebook"] = l.Facebook
	}
	if l.Threads != "" {
		out["threads"] = l.Threads
	}
	if l.YouTube != "" {
		out["youtube"] = l.YouTube
	}
	return out
}

func socialLinksFrom(m map[string]string) SocialLinks {
	return SocialLinks{
		Website:  m["website"],
		Facebook: m["facebook"],
		Threads:  m["threads"],
		YouTube:  m["youtube"],
	}
}

// UserPath returns the document path for a user ID.
func UserPath(id string) string {
	return store.JoinPath(UsersCollection, id)
}

// NewUserFields builds the field set for a freshly registered user. Counters
// start at zero and created_at is server-assigned.
func NewUserFields(username, email, passwordHash string) store.Fields {
	return store.Fields{
		FieldUsername:       username,
		FieldEmail:          email,
		FieldPasswordHash:   passwordHash,
		FieldFollowersCount: int64(0),
		FieldFollowingCount: int64(0),
		FieldPostsCount:     int64(0),
		FieldCreatedAt:      store.ServerTimestamp,
	}
}

// UserFromDocument decodes a user document snapshot.
func UserFromDocument(d *store.Document) *User {
	return &User{
		ID:             d.ID(),
		Username:       d.String(FieldUsername),
		Email:          d.String(FieldEmail),
		AvatarRef:      d.String(FieldAvatarRef),
		Bio:            d.String(FieldBio),
		Pronouns:       d.String(FieldPronouns),
		Links:          socialLinksFrom(d.StringMap(FieldSocialLinks)),
		FollowersCount: d.Int(FieldFollowersCount),
		FollowingCount: d.Int(FieldFollowingCount),
		PostsCount:     d.Int(FieldPostsCount),
		CreatedAt:      d.Time(FieldCreatedAt),
		PasswordHash:   d.String(FieldPasswordHash),
	}
}

// ProfileDelta enumerates exactly the fields a profile edit may touch.
// A nil AvatarRef leaves the stored avatar alone.
type ProfileDelta struct {
	Username  string
	Bio       string
	Pronouns  string
	Links     SocialLinks
	AvatarRef *string
}

// Fields renders the delta for a store update. Counters, email, and the
// password hash are deliberately unreachable from here.
func (d ProfileDelta) Fields() store.Fields {
	fields := store.Fields{
		FieldUsername:  d.Username,
		FieldBio:       d.Bio,
		FieldPronouns:  d.Pronouns,
		FieldUpdatedAt: store.ServerTimestamp,
	}
	if links := d.Links.fieldMap(); len(links) > 0 {
		fields[FieldSocialLinks] = links
	}
	if d.AvatarRef != nil {
		fields[FieldAvatarRef] = *d.AvatarRef
	}
	return fields
}
