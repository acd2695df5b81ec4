package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripple/internal/models"
	"ripple/internal/store"
	"ripple/internal/store/memstore"
)

func TestRunProducesConsistentGraph(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	require.NoError(t, Run(ctx, st, Options{NumUsers: 5, NumPosts: 8}))

	users, err := st.Query(ctx, models.UsersCollection, store.Query{})
	require.NoError(t, err)
	assert.Len(t, users, 5)

	posts, err := st.Query(ctx, models.PostsCollection, store.Query{})
	require.NoError(t, err)
	assert.Len(t, posts, 8)

	// Every post's counters match its markers.
	for _, d := range posts {
		post := models.PostFromDocument(d)
		likes, err := st.Query(ctx, models.PostLikesPath(post.ID), store.Query{})
		require.NoError(t, err)
		assert.Equal(t, int64(len(likes)), post.LikesCount, "likes_count for %s", post.ID)

		comments, err := st.Query(ctx, models.PostCommentsPath(post.ID), store.Query{})
		require.NoError(t, err)
		assert.Equal(t, int64(len(comments)), post.CommentsCount, "comments_count for %s", post.ID)
	}

	// Posts counters match ownership, follow markers are symmetric.
	var totalPosts int64
	for _, d := range users {
		user := models.UserFromDocument(d)
		totalPosts += user.PostsCount

		following, err := st.Query(ctx, store.JoinPath(models.UserPath(user.ID), models.FollowingCollection), store.Query{})
		require.NoError(t, err)
		assert.Equal(t, int64(len(following)), user.FollowingCount)

		for _, m := range following {
			followeeID := store.DocumentID(m.Path)
			_, err := st.Get(ctx, models.FollowerPath(followeeID, user.ID))
			assert.NoError(t, err, "missing reverse marker for %s -> %s", user.ID, followeeID)
		}
	}
	assert.Equal(t, int64(8), totalPosts)
}

func TestFactoryLikeIsIdempotent(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	f, err := NewFactory(st, Options{})
	require.NoError(t, err)

	user, err := f.CreateUser(ctx)
	require.NoError(t, err)
	post, err := f.CreatePost(ctx, user)
	require.NoError(t, err)

	require.NoError(t, f.Like(ctx, post, user))
	require.NoError(t, f.Like(ctx, post, user))

	doc, err := st.Get(ctx, models.PostPath(post.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), models.PostFromDocument(doc).LikesCount)
}

func TestClean(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	require.NoError(t, Run(ctx, st, Options{NumUsers: 3, NumPosts: 4}))
	require.NoError(t, Clean(ctx, st))

	for _, collection := range []string{models.UsersCollection, models.PostsCollection} {
		docs, err := st.Query(ctx, collection, store.Query{})
		require.NoError(t, err)
		assert.Empty(t, docs, collection)
	}
	likes, err := st.QueryGroup(ctx, models.LikesCollection, store.Query{})
	require.NoError(t, err)
	assert.Empty(t, likes)
}
