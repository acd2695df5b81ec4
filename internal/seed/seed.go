package seed

import (
	"context"
	"fmt"
	"log/slog"

	"ripple/internal/models"
	"ripple/internal/store"
)

// Options configures a seeding run.
type Options struct {
	NumUsers int
	NumPosts int
	// MaxDays spreads created_at timestamps over this many days back.
	MaxDays int
	// Clean removes all existing documents before seeding.
	Clean bool
}

// Run populates the store with a connected demo graph: users, posts,
// likes, comments, and follows.
func Run(ctx context.Context, st store.Store, opts Options) error {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 20
	}
	if opts.NumPosts <= 0 {
		opts.NumPosts = opts.NumUsers * 3
	}

	if opts.Clean {
		if err := Clean(ctx, st); err != nil {
			return fmt.Errorf("clean before seed: %w", err)
		}
	}

	f, err := NewFactory(st, opts)
	if err != nil {
		return err
	}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser(ctx)
		if err != nil {
			return fmt.Errorf("seed user %d: %w", i, err)
		}
		users = append(users, u)
	}
	slog.Info("seeded users", "count", len(users))

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		owner := users[f.rng.Intn(len(users))]
		p, err := f.CreatePost(ctx, owner)
		if err != nil {
			return fmt.Errorf("seed post %d: %w", i, err)
		}
		posts = append(posts, p)
	}
	slog.Info("seeded posts", "count", len(posts))

	var likes, comments int
	for _, p := range posts {
		for _, u := range users {
			if f.rng.Intn(3) == 0 {
				if err := f.Like(ctx, p, u); err != nil {
					return fmt.Errorf("seed like: %w", err)
				}
				likes++
			}
			if f.rng.Intn(6) == 0 {
				if err := f.Comment(ctx, p, u); err != nil {
					return fmt.Errorf("seed comment: %w", err)
				}
				comments++
			}
		}
	}
	slog.Info("seeded engagement", "likes", likes, "comments", comments)

	var follows int
	for _, a := range users {
		for _, b := range users {
			if f.rng.Intn(4) == 0 {
				if err := f.Follow(ctx, a, b); err != nil {
					return fmt.Errorf("seed follow: %w", err)
				}
				follows++
			}
		}
	}
	slog.Info("seeded follows", "count", follows)
	return nil
}

// Clean deletes every seeded collection, children before parents, in
// batches bounded by the store's batch limit.
func Clean(ctx context.Context, st store.Store) error {
	groups := []string{
		models.LikesCollection,
		models.CommentsCollection,
		models.FollowingCollection,
		models.FollowersCollection,
		models.PostsCollection,
		models.UsersCollection,
	}
	for _, collection := range groups {
		docs, err := st.QueryGroup(ctx, collection, store.Query{})
		if err != nil {
			return err
		}
		for start := 0; start < len(docs); start += store.MaxBatchWrites {
			end := start + store.MaxBatchWrites
			if end > len(docs) {
				end = len(docs)
			}
			writes := make([]store.Write, 0, end-start)
			for _, d := range docs[start:end] {
				writes = append(writes, store.DeleteWrite(d.Path))
			}
			if err := st.RunBatch(ctx, writes); err != nil {
				return err
			}
		}
	}
	return nil
}
