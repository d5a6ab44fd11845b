package main

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/streamforge/vod-platform/internal/app"
	"github.com/streamforge/vod-platform/internal/config"
	"github.com/streamforge/vod-platform/internal/objectstore"
	"github.com/streamforge/vod-platform/internal/queue"
	pg "github.com/streamforge/vod-platform/internal/storage/postgres"
	"github.com/streamforge/vod-platform/internal/transcode"
)

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := app.Logger("worker")

	// Fail at startup, not on the first job.
	if _, err := exec.LookPath(cfg.FFmpegPath); err != nil {
		return fmt.Errorf("ffmpeg binary not found (%s): %w", cfg.FFmpegPath, err)
	}

	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	store, err := objectstore.NewMinioStore(objectstore.MinioConfig{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
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
		Concurrency: cfg.WorkerConcurrency,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer jobs.Close()

	engine := transcode.NewFFmpegEngine(transcode.FFmpegConfig{
		BinaryPath:     cfg.FFmpegPath,
		SegmentSeconds: cfg.HLSSegmentSeconds,
	}, logger)
	pipeline := transcode.NewPipeline(store, engine, transcode.PipelineConfig{HLSPrefix: cfg.HLSPrefix}, logger)
	worker := transcode.NewWorker(pg.NewMediaRepo(db), pipeline, logger)

	return worker.Run(ctx, jobs)
}
