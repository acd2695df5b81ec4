package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripple/internal/models"
	"ripple/internal/store"
	"ripple/internal/store/memstore"
	"ripple/internal/testutil"
)

func seedPostWithOwner(t *testing.T, st store.Store) (ownerID, postID string) {
	t.Helper()
	testutil.SeedUser(t, st, "u-alice", "alice")
	testutil.SeedPost(t, st, "p1", &models.User{ID: "u-alice", Username: "alice"}, "hello")
	return "u-alice", "p1"
}

func postLikesCount(t *testing.T, st store.Store, postID string) int64 {
	t.Helper()
	doc, err := st.Get(context.Background(), models.PostPath(postID))
	require.NoError(t, err)
	return doc.Int(models.FieldLikesCount)
}

func TestToggleLikeParity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		toggles int
	}{
		{name: "single toggle likes", toggles: 1},
		{name: "double toggle returns to baseline", toggles: 2},
		{name: "odd sequence ends liked", toggles: 5},
		{name: "even sequence ends unliked", toggles: 8},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			st := memstore.New()
			_, postID := seedPostWithOwner(t, st)
			svc := NewEngagementService(st, nil)

			in := ToggleLikeInput{PostID: postID, ActorID: "u-bob", Username: "bob"}
			var last bool
			for i := 0; i < tt.toggles; i++ {
				liked, err := svc.ToggleLike(context.Background(), in)
				require.NoError(t, err)
				last = liked
			}

			wantLiked := tt.toggles%2 == 1
			assert.Equal(t, wantLiked, last)

			hasLiked, err := svc.HasLiked(context.Background(), postID, "u-bob")
			require.NoError(t, err)
			assert.Equal(t, wantLiked, hasLiked)

			wantCount := int64(0)
			if wantLiked {
				wantCount = 1
			}
			assert.Equal(t, wantCount, postLikesCount(t, st, postID))
		})
	}
}

func TestToggleLikeValidation(t *testing.T) {
	t.Parallel()
	st := memstore.New()
	seedPostWithOwner(t, st)
	svc := NewEngagementService(st, nil)

	_, err := svc.ToggleLike(context.Background(), ToggleLikeInput{PostID: "p1"})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeUnauthenticated, appErr.Code)

	_, err = svc.ToggleLike(context.Background(), ToggleLikeInput{PostID: "missing", ActorID: "u-bob"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestToggleLikeFailedTransactionLeavesNoTrace(t *testing.T) {
	t.Parallel()
	st := memstore.New()
	_, postID := seedPostWithOwner(t, st)
	svc := NewEngagementService(st, nil)

	st.SetTxnHook(func() error { return store.ErrUnavailable })
	_, err := svc.ToggleLike(context.Background(), ToggleLikeInput{PostID: postID, ActorID: "u-bob", Username: "bob"})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeStoreUnavailable, appErr.Code)

	// Counter and marker must not diverge from a failed attempt.
	st.SetTxnHook(nil)
	assert.Equal(t, int64(0), postLikesCount(t, st, postID))
	hasLiked, err := svc.HasLiked(context.Background(), postID, "u-bob")
	require.NoError(t, err)
	assert.False(t, hasLiked)
}

func TestAddComment(t *testing.T) {
	t.Parallel()
	st := memstore.New()
	_, postID := seedPostWithOwner(t, st)
	svc := NewEngagementService(st, nil)

	comment, err := svc.AddComment(context.Background(), AddCommentInput{
		PostID:         postID,
		AuthorID:       "u-bob",
		AuthorUsername: "bob",
		Text:           "  nice shot  ",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, comment.ID)
	assert.Equal(t, postID, comment.PostID)
	assert.Equal(t, "nice shot", comment.Text)
	assert.False(t, comment.CreatedAt.IsZero())

	doc, err := st.Get(context.Background(), models.PostPath(postID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Int(models.FieldCommentsCount))
}

func TestAddCommentRejectsEmptyText(t *testing.T) {
	t.Parallel()
	st := memstore.New()
	_, postID := seedPostWithOwner(t, st)
	svc := NewEngagementService(st, nil)

	before := st.Len()
	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := svc.AddComment(context.Background(), AddCommentInput{
			PostID: postID, AuthorID: "u-bob", Text: text,
		})
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeInvalidArgument, appErr.Code)
	}
	// Rejected before any store write.
	assert.Equal(t, before, st.Len())
}

func TestAddCommentAtomicity(t *testing.T) {
	t.Parallel()
	st := memstore.New()
	_, postID := seedPostWithOwner(t, st)
	svc := NewEngagementService(st, nil)

	st.SetBatchHook(func([]store.Write) error { return store.ErrUnavailable })
	_, err := svc.AddComment(context.Background(), AddCommentInput{
		PostID: postID, AuthorID: "u-bob", AuthorUsername: "bob", Text: "hi",
	})
	require.Error(t, err)
	st.SetBatchHook(nil)

	// Neither the comment nor the counter move survived the failed batch.
	comments, err := svc.ListComments(context.Background(), postID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	doc, err := st.Get(context.Background(), models.PostPath(postID))
	require.NoError(t, err)
	assert.Equal(t, int64(0), doc.Int(models.FieldCommentsCount))
}

func TestListCommentsNewestFirst(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	st := memstore.NewWithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	})
	_, postID := seedPostWithOwner(t, st)
	svc := NewEngagementService(st, nil)

	for _, text := range []string{"first", "second", "third"} {
		_, err := svc.AddComment(context.Background(), AddCommentInput{
			PostID: postID, AuthorID: "u-bob", AuthorUsername: "bob", Text: text,
		})
		require.NoError(t, err)
	}

	comments, err := svc.ListComments(context.Background(), postID)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "third", comments[0].Text)
	assert.Equal(t, "first", comments[2].Text)
	assert.True(t, comments[0].CreatedAt.After(comments[2].CreatedAt))
}

func TestHasLikedMissingPost(t *testing.T) {
	t.Parallel()
	st := memstore.New()
	svc := NewEngagementService(st, nil)

	liked, err := svc.HasLiked(context.Background(), "nope", "u-bob")
	require.NoError(t, err)
	assert.False(t, liked)
}
