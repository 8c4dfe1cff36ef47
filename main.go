package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/mirrorpress/engine/pkg/config"
	"github.com/mirrorpress/engine/pkg/database"
	"github.com/mirrorpress/engine/pkg/logging"
	"github.com/mirrorpress/engine/pkg/models"
	"github.com/mirrorpress/engine/pkg/retry"
	"github.com/mirrorpress/engine/pkg/schema"
	"github.com/mirrorpress/engine/pkg/services"
	"github.com/mirrorpress/engine/pkg/storage"
	"github.com/mirrorpress/engine/pkg/vcs"
)

// Version is set at build time via ldflags
var Version = "dev"

func usage() {
	fmt.Fprintf(os.Stderr, "usage: engine revert <commit> | engine revert-all <commit>\n")
	os.Exit(2)
}

func main() {
	if len(os.Args) != 3 {
		usage()
	}
	command, commitHash := os.Args[1], os.Args[2]
	if command != "revert" && command != "revert-all" {
		usage()
	}

	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("content_dir", cfg.Content.Dir),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.URL())))

	ctx := context.Background()

	registry, err := schema.LoadRegistry(cfg.Content.SchemaPath)
	if err != nil {
		logger.Fatal("Failed to load entity schema", zap.Error(err))
	}
	stores := storage.NewFactory(cfg.Content.Dir, registry)

	db, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*database.DB, error) {
		return database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.URL(),
			MaxConnections: cfg.Database.MaxConnections,
		})
	})
	if err != nil {
		logger.Fatal("Failed to connect to mirror database",
			zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("Failed to migrate mirror schema", zap.Error(err))
	}

	repo, err := vcs.NewGitRepository(cfg.Git.WorkDir, cfg.Git.Binary, logger)
	if err != nil {
		logger.Fatal("Failed to open content repository", zap.Error(err))
	}

	reverter := services.NewReverter(
		repo,
		repo,
		services.NewReferenceValidator(registry, stores, logger),
		services.NewClassifier(logger),
		services.NewMirrorSynchronizer(stores, db, logger),
		database.NewPostMirror(db, logger),
		services.NewSystemClock(),
		logger,
	)

	var status models.RevertStatus
	switch command {
	case "revert":
		status, err = reverter.Revert(ctx, commitHash)
	case "revert-all":
		status, err = reverter.RevertAll(ctx, commitHash)
	}
	if err != nil {
		logger.Fatal("Revert failed", zap.String("commit", commitHash), zap.Error(err))
	}

	fmt.Println(status)
	if status != models.RevertOK {
		os.Exit(1)
	}
}
