// Package main is the entry point for the estate portal server.
//
// main stays small. It loads configuration, builds the logger, opens the
// database and the storage bucket, then hands everything to internal/server.
// All behavior lives in the internal packages.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/sakif/estate-portal/internal/config"
	"github.com/sakif/estate-portal/internal/logger"
	"github.com/sakif/estate-portal/internal/repository/sqlstore"
	"github.com/sakif/estate-portal/internal/server"
	"github.com/sakif/estate-portal/internal/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.String("error", err.Error()))
		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}
	sentry.Flush(2 * time.Second)
}

func run() error {
	// === 1. CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// === 2. LOGGING ===
	log := logger.New(cfg.IsDevelopment(), cfg.SentryDSN)

	// === 3. DATABASE ===
	// Open also applies any pending migrations.
	db, err := sqlstore.Open(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return err
	}

	// === 4. STORAGE BUCKET ===
	bucket, err := openBucket(cfg, log)
	if err != nil {
		db.Close()
		return err
	}

	// === 5. SERVER ===
	srv, err := server.New(cfg, log, db, bucket)
	if err != nil {
		db.Close()
		return err
	}

	// Start blocks until SIGINT/SIGTERM and closes the database on return.
	return srv.Start()
}

func openBucket(cfg *config.Config, log *slog.Logger) (storage.Bucket, error) {
	switch cfg.StorageDriver {
	case config.StorageS3:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		bucket, err := storage.NewS3Bucket(ctx, storage.S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
		}, log)
		if err != nil {
			return nil, err
		}
		return bucket, nil
	default:
		log.Info("using disk storage", slog.String("dir", cfg.StorageDir))
		bucket, err := storage.NewDiskBucket(cfg.StorageDir)
		if err != nil {
			return nil, err
		}
		return bucket, nil
	}
}
