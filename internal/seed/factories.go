// Package seed creates demo data for development and testing. Every write
// goes through the same batch primitive production uses, so seeded counters
// always match their markers.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"ripple/internal/models"
	"ripple/internal/store"
)

// DemoPassword is the password every seeded account gets.
const DemoPassword = "Password123!"

// Factory builds domain documents and persists them through the store.
type Factory struct {
	store store.Store
	rng   *rand.Rand
	opts  Options

	// one hash shared by all seeded users; bcrypt per user is pointlessly slow
	passwordHash string
}

// NewFactory creates a Factory bound to the provided store.
func NewFactory(st store.Store, opts Options) (*Factory, error) {
	gofakeit.Seed(time.Now().UnixNano())
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	return &Factory{
		store:        st,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		opts:         opts,
		passwordHash: string(hash),
	}, nil
}

// backdated returns a timestamp spread over the last MaxDays, stored the way
// the drivers store resolved server timestamps.
func (f *Factory) backdated() string {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back).UTC().Format(time.RFC3339Nano)
}

// username generates a handle that passes account validation.
func (f *Factory) username() string {
	name := strings.ToLower(gofakeit.Username())
	name = strings.Trim(name, "_-")
	if len(name) < 3 {
		name = "user" + name
	}
	if len(name) > 24 {
		name = name[:24]
	}
	// disambiguate; gofakeit repeats handles on long runs
	return fmt.Sprintf("%s%d", name, f.rng.Intn(1000))
}

// CreateUser persists a user document with a filled-out profile.
func (f *Factory) CreateUser(ctx context.Context) (*models.User, error) {
	username := f.username()
	fields := models.NewUserFields(username, username+"@example.com", f.passwordHash)
	fields[models.FieldAvatarRef] = fmt.Sprintf("https://picsum.photos/seed/%s/300/300", username)
	fields[models.FieldBio] = gofakeit.Sentence(8)
	fields[models.FieldCreatedAt] = f.backdated()

	if f.rng.Intn(2) == 0 {
		links := models.ClassifyLinks([]models.LinkItem{
			{Label: "Website", URL: gofakeit.URL()},
		})
		fields[models.FieldSocialLinks] = map[string]string{"website": links.Website}
	}

	userID := uuid.NewString()
	if err := f.store.Set(ctx, models.UserPath(userID), fields); err != nil {
		return nil, err
	}
	doc, err := f.store.Get(ctx, models.UserPath(userID))
	if err != nil {
		return nil, err
	}
	return models.UserFromDocument(doc), nil
}

// CreatePost persists a post owned by user, bumping the owner's posts_count
// in the same batch.
func (f *Factory) CreatePost(ctx context.Context, owner *models.User) (*models.Post, error) {
	imageCount := 1 + f.rng.Intn(models.MaxPostImages)
	imageRefs := make([]string, 0, imageCount)
	for i := 0; i < imageCount; i++ {
		imageRefs = append(imageRefs, fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID()))
	}

	fields := models.NewPostFields(owner, gofakeit.Sentence(6+f.rng.Intn(10)), imageRefs)
	fields[models.FieldTimestamp] = f.backdated()

	postID := uuid.NewString()
	err := f.store.RunBatch(ctx, []store.Write{
		store.SetWrite(models.PostPath(postID), fields),
		store.IncrementWrite(models.UserPath(owner.ID), models.FieldPostsCount, 1),
	})
	if err != nil {
		return nil, err
	}
	doc, err := f.store.Get(ctx, models.PostPath(postID))
	if err != nil {
		return nil, err
	}
	return models.PostFromDocument(doc), nil
}

// Like records a like marker and counter bump. Repeat likes are skipped so
// the counter never drifts from the markers.
func (f *Factory) Like(ctx context.Context, post *models.Post, user *models.User) error {
	likePath := models.LikePath(post.ID, user.ID)
	if _, err := f.store.Get(ctx, likePath); err == nil {
		return nil
	}
	return f.store.RunBatch(ctx, []store.Write{
		store.SetWrite(likePath, models.NewLikeFields(user.ID, user.Username)),
		store.IncrementWrite(models.PostPath(post.ID), models.FieldLikesCount, 1),
	})
}

// Comment records a comment plus its counter bump.
func (f *Factory) Comment(ctx context.Context, post *models.Post, author *models.User) error {
	fields := models.NewCommentFields(author.ID, author.Username, author.AvatarRef, gofakeit.Sentence(4+f.rng.Intn(12)))
	fields[models.FieldTimestamp] = f.backdated()
	return f.store.RunBatch(ctx, []store.Write{
		store.SetWrite(models.CommentPath(post.ID, uuid.NewString()), fields),
		store.IncrementWrite(models.PostPath(post.ID), models.FieldCommentsCount, 1),
	})
}

// Follow records the symmetric marker pair and both counters. Self-follows
// and repeats are skipped.
func (f *Factory) Follow(ctx context.Context, follower, followee *models.User) error {
	if follower.ID == followee.ID {
		return nil
	}
	followingPath := models.FollowingPath(follower.ID, followee.ID)
	if _, err := f.store.Get(ctx, followingPath); err == nil {
		return nil
	}
	return f.store.RunBatch(ctx, []store.Write{
		store.SetWrite(followingPath, models.FollowMarkerFields()),
		store.SetWrite(models.FollowerPath(followee.ID, follower.ID), models.FollowMarkerFields()),
		store.IncrementWrite(models.UserPath(follower.ID), models.FieldFollowingCount, 1),
		store.IncrementWrite(models.UserPath(followee.ID), models.FieldFollowersCount, 1),
	})
}
