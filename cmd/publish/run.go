package main

import (
	"context"
	"fmt"

	"github.com/streamforge/vod-platform/internal/app"
	"github.com/streamforge/vod-platform/internal/config"
	"github.com/streamforge/vod-platform/internal/media/kafka"
	"github.com/streamforge/vod-platform/internal/media/outbox"
	pg "github.com/streamforge/vod-platform/internal/storage/postgres"
)

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := app.Logger("publish")

	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer producer.Close()

	publisher, err := outbox.NewPublisher(outbox.PublisherConfig{
		OutboxRepo: pg.NewOutboxRepo(db),
		Producer:   producer,
		Interval:   cfg.OutboxInterval,
		BatchSize:  cfg.OutboxBatchSize,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	return publisher.Start(ctx)
}
