package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripple/internal/models"
	"ripple/internal/store"
	"ripple/internal/store/memstore"
	"ripple/internal/testutil"
)

func newSocialFixture(t *testing.T) (*memstore.Memstore, *SocialService) {
	t.Helper()
	st := memstore.New()
	testutil.SeedUser(t, st, "u-alice", "alice")
	testutil.SeedUser(t, st, "u-bob", "bob")
	return st, NewSocialService(st, nil)
}

func followCounts(t *testing.T, st store.Store, userID string) (following, followers int64) {
	t.Helper()
	doc, err := st.Get(context.Background(), models.UserPath(userID))
	require.NoError(t, err)
	return doc.Int(models.FieldFollowingCount), doc.Int(models.FieldFollowersCount)
}

func TestFollowSymmetry(t *testing.T) {
	t.Parallel()
	st, svc := newSocialFixture(t)

	require.NoError(t, svc.Follow(context.Background(), "u-alice", "u-bob"))

	// Both markers exist together.
	_, err := st.Get(context.Background(), models.FollowingPath("u-alice", "u-bob"))
	assert.NoError(t, err)
	_, err = st.Get(context.Background(), models.FollowerPath("u-bob", "u-alice"))
	assert.NoError(t, err)

	aliceFollowing, aliceFollowers := followCounts(t, st, "u-alice")
	bobFollowing, bobFollowers := followCounts(t, st, "u-bob")
	assert.Equal(t, int64(1), aliceFollowing)
	assert.Equal(t, int64(0), aliceFollowers)
	assert.Equal(t, int64(0), bobFollowing)
	assert.Equal(t, int64(1), bobFollowers)

	// The relationship is directional: bob does not follow alice.
	isFollowing, err := svc.IsFollowing(context.Background(), "u-alice", "u-bob")
	require.NoError(t, err)
	assert.True(t, isFollowing)
	reverse, err := svc.IsFollowing(context.Background(), "u-bob", "u-alice")
	require.NoError(t, err)
	assert.False(t, reverse)
}

func TestFollowRepeatIsNoOp(t *testing.T) {
	t.Parallel()
	st, svc := newSocialFixture(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Follow(context.Background(), "u-alice", "u-bob"))
	}

	aliceFollowing, _ := followCounts(t, st, "u-alice")
	_, bobFollowers := followCounts(t, st, "u-bob")
	assert.Equal(t, int64(1), aliceFollowing)
	assert.Equal(t, int64(1), bobFollowers)
}

func TestFollowSelfRejected(t *testing.T) {
	t.Parallel()
	_, svc := newSocialFixture(t)

	err := svc.Follow(context.Background(), "u-alice", "u-alice")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeInvalidArgument, appErr.Code)
}

func TestFollowUnknownUsers(t *testing.T) {
	t.Parallel()
	_, svc := newSocialFixture(t)

	var appErr *models.AppError
	err := svc.Follow(context.Background(), "u-alice", "u-ghost")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)

	err = svc.Follow(context.Background(), "u-ghost", "u-bob")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)

	err = svc.Follow(context.Background(), "", "u-bob")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeUnauthenticated, appErr.Code)
}

func TestUnfollow(t *testing.T) {
	t.Parallel()
	st, svc := newSocialFixture(t)

	require.NoError(t, svc.Follow(context.Background(), "u-alice", "u-bob"))
	require.NoError(t, svc.Unfollow(context.Background(), "u-alice", "u-bob"))

	_, err := st.Get(context.Background(), models.FollowingPath("u-alice", "u-bob"))
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Get(context.Background(), models.FollowerPath("u-bob", "u-alice"))
	assert.ErrorIs(t, err, store.ErrNotFound)

	aliceFollowing, _ := followCounts(t, st, "u-alice")
	_, bobFollowers := followCounts(t, st, "u-bob")
	assert.Equal(t, int64(0), aliceFollowing)
	assert.Equal(t, int64(0), bobFollowers)
}

func TestUnfollowWithoutRelationshipIsNoOp(t *testing.T) {
	t.Parallel()
	st, svc := newSocialFixture(t)

	require.NoError(t, svc.Unfollow(context.Background(), "u-alice", "u-bob"))

	// Counters never dip below their true value from a spurious unfollow.
	aliceFollowing, _ := followCounts(t, st, "u-alice")
	_, bobFollowers := followCounts(t, st, "u-bob")
	assert.Equal(t, int64(0), aliceFollowing)
	assert.Equal(t, int64(0), bobFollowers)
}

func TestFollowTransactionFailureLeavesNothing(t *testing.T) {
	t.Parallel()
	st, svc := newSocialFixture(t)

	st.SetTxnHook(func() error { return store.ErrUnavailable })
	err := svc.Follow(context.Background(), "u-alice", "u-bob")
	st.SetTxnHook(nil)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeStoreUnavailable, appErr.Code)

	_, err = st.Get(context.Background(), models.FollowingPath("u-alice", "u-bob"))
	assert.ErrorIs(t, err, store.ErrNotFound)
	aliceFollowing, _ := followCounts(t, st, "u-alice")
	assert.Equal(t, int64(0), aliceFollowing)
}

func TestListFollowersAndFollowing(t *testing.T) {
	t.Parallel()
	st, svc := newSocialFixture(t)
	testutil.SeedUser(t, st, "u-carol", "carol")

	require.NoError(t, svc.Follow(context.Background(), "u-alice", "u-bob"))
	require.NoError(t, svc.Follow(context.Background(), "u-carol", "u-bob"))
	require.NoError(t, svc.Follow(context.Background(), "u-alice", "u-carol"))

	followers, err := svc.ListFollowers(context.Background(), "u-bob")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u-alice", "u-carol"}, followers)

	following, err := svc.ListFollowing(context.Background(), "u-alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u-bob", "u-carol"}, following)

	following, err = svc.ListFollowing(context.Background(), "u-bob")
	require.NoError(t, err)
	assert.Empty(t, following)
}
