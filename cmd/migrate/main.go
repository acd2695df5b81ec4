// Command migrate applies the document table schema to Postgres.
package main

import (
	"log"

	"ripple/internal/config"
	"ripple/internal/database"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}

	if err := database.EnsureSchema(db); err != nil {
		log.Fatalf("Schema setup failed: %v", err)
	}
	log.Println("Schema is up to date")
}
