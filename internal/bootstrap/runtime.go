// Package bootstrap wires the store, cache, and optional dev fixtures that
// every binary shares.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"ripple/internal/cache"
	"ripple/internal/config"
	"ripple/internal/database"
	"ripple/internal/models"
	"ripple/internal/seed"
	"ripple/internal/store"
	"ripple/internal/store/memstore"
	"ripple/internal/store/pgstore"
)

// DevUsername is the login of the built-in development account.
const DevUsername = "ripple-dev"

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemoData populates the store with a generated demo graph.
	SeedDemoData bool
	DemoUsers    int
	DemoPosts    int
}

// InitRuntime opens the configured store driver, initializes Redis, and in
// development ensures a known login exists. The Redis client may be nil if
// the server is unreachable; callers degrade to cache-less operation.
func InitRuntime(cfg *config.Config, opts Options) (store.Store, *redis.Client, error) {
	var st store.Store
	switch cfg.StoreDriver {
	case "postgres":
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		if err := database.EnsureSchema(db); err != nil {
			return nil, nil, fmt.Errorf("schema setup failed: %w", err)
		}
		st = pgstore.New(db)
	default:
		st = memstore.New()
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if cfg.Env == "development" || cfg.Env == "" {
		if err := ensureDevUser(context.Background(), st); err != nil {
			return nil, nil, fmt.Errorf("failed to bootstrap development login: %w", err)
		}
	}

	if opts.SeedDemoData {
		err := seed.Run(context.Background(), st, seed.Options{
			NumUsers: opts.DemoUsers,
			NumPosts: opts.DemoPosts,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("demo seeding failed: %w", err)
		}
	}

	return st, r, nil
}

// ensureDevUser creates the development login if it does not exist yet.
func ensureDevUser(ctx context.Context, st store.Store) error {
	existing, err := st.Query(ctx, models.UsersCollection, store.Query{
		Filters: []store.Filter{store.Where(models.FieldUsername, DevUsername)},
		Limit:   1,
	})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seed.DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	path := models.UserPath("dev-" + DevUsername)
	if err := st.Set(ctx, path, models.NewUserFields(DevUsername, DevUsername+"@localhost", string(hash))); err != nil {
		return err
	}
	slog.Info("created development login", "username", DevUsername)
	return nil
}
