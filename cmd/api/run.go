package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/streamforge/vod-platform/internal/app"
	"github.com/streamforge/vod-platform/internal/config"
	"github.com/streamforge/vod-platform/internal/media/httpapi"
	"github.com/streamforge/vod-platform/internal/media/service"
	"github.com/streamforge/vod-platform/internal/objectstore"
	"github.com/streamforge/vod-platform/internal/queue"
	pg "github.com/streamforge/vod-platform/internal/storage/postgres"
)

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := app.Logger("api")

	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	// The API process owns the schema.
	if err := pg.Migrate(ctx, db); err != nil {
		return err
	}

	store, err := objectstore.NewMinioStore(objectstore.MinioConfig{
		Endpoint:   cfg.Storage.Endpoint,
		AccessKey:  cfg.Storage.AccessKey,
		SecretKey:  cfg.Storage.SecretKey,
		Bucket:     cfg.Storage.Bucket,
		UseSSL:     cfg.Storage.UseSSL,
		PresignTTL: cfg.PresignTTL,
	})
	if err != nil {
		return err
	}

	jobs, err := queue.NewRedisQueue(queue.RedisConfig{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		MaxAttempts: cfg.TranscodeAttempts,
		BackoffBase: cfg.TranscodeBackoff,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer jobs.Close()

	repo := pg.NewMediaRepo(db)
	svc := service.New(repo, store, jobs, service.Config{PublicBaseURL: cfg.PublicBaseURL}, logger)
	router := httpapi.NewRouter(httpapi.New(svc))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()
	logger.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen and serve: %w", err)
	}
}
