package models

import "ripple/internal/store"

// Follow relationships are a symmetric pair of marker documents: one under
// the follower's "user-following" subcollection keyed by the followee, one
// under the followee's "user-followers" subcollection keyed by the follower.
// The two markers exist or not-exist together, never individually.
const (
	FollowingCollection = "user-following"
	FollowersCollection = "user-followers"
)

// FollowingPath returns the follower-side marker path. Its existence IS the
// is-following boolean.
func FollowingPath(followerID, followeeID string) string {
	return store.JoinPath(UsersCollection, followerID, FollowingCollection, followeeID)
}

// FollowerPath returns the followee-side marker path.
func FollowerPath(followeeID, followerID string) string {
	return store.JoinPath(UsersCollection, followeeID, FollowersCollection, followerID)
}

// FollowMarkerFields builds the field set for a follow marker. The marker's
// existence carries the fact; the timestamp is bookkeeping.
func FollowMarkerFields() store.Fields {
	return store.Fields{FieldTimestamp: store.ServerTimestamp}
}
