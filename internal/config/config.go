// Package config assembles the explicit configuration object every
// component receives at construction. All values come from the environment
// (optionally via a .env file); nothing reads configuration ambiently.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type Config struct {
	HTTPAddr    string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Storage       StorageConfig
	PublicBaseURL string
	PresignTTL    time.Duration

	HLSSegmentSeconds int
	HLSPrefix         string
	FFmpegPath        string

	TranscodeAttempts int
	TranscodeBackoff  time.Duration
	WorkerConcurrency int

	KafkaBrokers    []string
	KafkaTopic      string
	OutboxInterval  time.Duration
	OutboxBatchSize int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:    envString("HTTP_ADDR", ":8081"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisAddr:     envString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		Storage: StorageConfig{
			Endpoint:  os.Getenv("STORAGE_ENDPOINT"),
			AccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
			SecretKey: os.Getenv("STORAGE_SECRET_KEY"),
			Bucket:    envString("STORAGE_BUCKET", "media"),
			UseSSL:    envBool("STORAGE_USE_SSL", false),
		},
		PublicBaseURL: os.Getenv("PUBLIC_CDN_BASE_URL"),
		PresignTTL:    time.Duration(envInt("PRESIGN_EXPIRES_SEC", 900)) * time.Second,

		HLSSegmentSeconds: envInt("HLS_SEGMENT_SECONDS", 6),
		HLSPrefix:         envString("HLS_OUTPUT_PREFIX", "hls"),
		FFmpegPath:        envString("FFMPEG_PATH", "ffmpeg"),

		TranscodeAttempts: envInt("TRANSCODE_ATTEMPTS", 3),
		TranscodeBackoff:  time.Duration(envInt("TRANSCODE_BACKOFF_MS", 5000)) * time.Millisecond,
		WorkerConcurrency: envInt("WORKER_CONCURRENCY", 1),

		KafkaBrokers:    splitList(envString("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:      envString("KAFKA_TOPIC", "media.lifecycle"),
		OutboxInterval:  time.Duration(envInt("OUTBOX_INTERVAL_MS", 1000)) * time.Millisecond,
		OutboxBatchSize: envInt("OUTBOX_BATCH_SIZE", 100),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
