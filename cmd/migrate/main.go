package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"pvcapacity/domain/core"
	"pvcapacity/internal/config"
	"pvcapacity/internal/container"
)

// migrate applies the result-store schema and uploads completed outputs from
// OUTPUT_DIR. With no arguments every output found there is uploaded;
// outputs already in the database are skipped.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if len(os.Args) > 1 && os.Args[1] == "-h" {
		log.Fatal("Usage: migrate [output-name...]  (reads DATABASE_URL and OUTPUT_DIR)")
	}

	c, err := container.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create container: %v", err)
	}
	defer c.Shutdown(context.Background())

	ctx := context.Background()
	if err := c.ConnectDatabase(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	names := os.Args[1:]
	if len(names) == 0 {
		if names, err = c.Samples.List(); err != nil {
			log.Fatalf("Failed to list outputs in %s: %v", cfg.Output.Dir, err)
		}
	}
	log.Printf("Found %d outputs to migrate from %s", len(names), cfg.Output.Dir)

	migrated, skipped := 0, 0
	for _, name := range names {
		m, err := c.Upload(ctx, name)
		switch {
		case err == nil:
			log.Printf("Migrated %s (simulation %s, %d runs)", name, m.SimulationID, m.Runs)
			migrated++
		case core.IsOutputCollision(err):
			log.Printf("Skipping %s: already migrated", name)
			skipped++
		default:
			log.Printf("Failed to migrate %s: %v", name, err)
			skipped++
		}
	}

	log.Printf("Migration complete: %d migrated, %d skipped", migrated, skipped)
}
