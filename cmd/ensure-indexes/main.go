// Command ensure-indexes creates the unique indexes on the users collection
// and exits. Run it once per environment before the first deploy.
package main

import (
	"context"
	"os"

	"github.com/pennywise/pennywise/backend/go-services/internal/config"
	"github.com/pennywise/pennywise/backend/go-services/internal/database"
	"github.com/pennywise/pennywise/backend/go-services/internal/users"
	"github.com/pennywise/pennywise/backend/go-services/pkg/logger"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer func() { _ = logger.Sync() }()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.MongoDB.URI == "" {
		logger.Fatalf("MONGODB_URI is required")
	}

	ctx := context.Background()
	client, err := database.Connect(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, database.DefaultRetry)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	store := users.NewMongoStore(client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection))
	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Fatalf("%v", err)
	}
	logger.Infof("indexes ensured on %s.%s", cfg.MongoDB.Database, cfg.MongoDB.Collection)
}
