// Command seed populates the configured store with generated demo data.
package main

import (
	"context"
	"flag"
	"log"

	"ripple/internal/bootstrap"
	"ripple/internal/config"
	"ripple/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 60, "Number of posts to create")
	maxDays := flag.Int("days", 90, "Spread timestamps over this many days")
	clean := flag.Bool("clean", false, "Delete all existing documents before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.StoreDriver != "postgres" {
		log.Fatal("Seeding a memory store is pointless; set STORE_DRIVER=postgres")
	}

	st, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	err = seed.Run(context.Background(), st, seed.Options{
		NumUsers: *numUsers,
		NumPosts: *numPosts,
		MaxDays:  *maxDays,
		Clean:    *clean,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seeded %d users and %d posts (password for all accounts: %s)", *numUsers, *numPosts, seed.DemoPassword)
}
