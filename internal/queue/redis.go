package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig configures the Redis-backed queue implementation.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Name     string

	// MaxAttempts bounds delivery attempts per job; BackoffBase seeds the
	// exponential retry delay. Defaults: 3 attempts, 5s base.
	MaxAttempts int
	BackoffBase time.Duration

	// Concurrency is the number of jobs processed at once per Consume call.
	// Transcoding is ffmpeg-bound, so the default is 1.
	Concurrency int

	Logger zerolog.Logger
}

// RedisQueue keeps jobs on a pending list, checks them out onto an active
// list while a handler runs, and parks retries on a delayed zset scored by
// their due time. The dedup set holds every job ID ever enqueued, and a
// per-job hash is retained after completion for inspection.
type RedisQueue struct {
	client      *redis.Client
	name        string
	maxAttempts int
	backoffBase time.Duration
	concurrency int
	logger      zerolog.Logger
}

type envelope struct {
	ID      string `json:"id"`
	Payload []byte `json:"payload"`
	Attempt int    `json:"attempt"`
}

func NewRedisQueue(cfg RedisConfig) (*RedisQueue, error) {
	if cfg.Addr == "" {
		return nil, errors.New("queue: redis addr is required")
	}
	name := cfg.Name
	if name == "" {
		name = "transcode"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 5 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("queue: redis ping: %w", err)
	}

	return &RedisQueue{
		client:      client,
		name:        name,
		maxAttempts: cfg.MaxAttempts,
		backoffBase: cfg.BackoffBase,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger.With().Str("component", "redis_queue").Str("queue", name).Logger(),
	}, nil
}

func (q *RedisQueue) key(suffix string) string { return "q:" + q.name + ":" + suffix }
func (q *RedisQueue) jobKey(id string) string  { return q.key("job:" + id) }
func (q *RedisQueue) pendingKey() string       { return q.key("pending") }
func (q *RedisQueue) activeKey() string        { return q.key("active") }
func (q *RedisQueue) delayedKey() string       { return q.key("delayed") }
func (q *RedisQueue) idsKey() string           { return q.key("ids") }

// Enqueue adds the job unless its ID was ever enqueued before. The dedup
// check and the push are not atomic across the two commands, but the SADD
// itself is: two racing enqueues for the same ID push at most once.
func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	if job.ID == "" {
		return errors.New("queue: job id is required")
	}
	added, err := q.client.SAdd(ctx, q.idsKey(), job.ID).Result()
	if err != nil {
		return fmt.Errorf("queue: dedup check: %w", err)
	}
	if added == 0 {
		q.logger.Debug().Str("job_id", job.ID).Msg("duplicate enqueue ignored")
		return nil
	}

	env := envelope{ID: job.ID, Payload: job.Payload, Attempt: 0}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("queue: marshal envelope: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, q.jobKey(job.ID), "state", StateQueued, "attempts", 0)
	pipe.LPush(ctx, q.pendingKey(), raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queue: push job: %w", err)
	}
	q.logger.Info().Str("job_id", job.ID).Msg("job enqueued")
	return nil
}

// Consume delivers jobs to h until ctx is cancelled. Each worker goroutine
// processes one job at a time; jobs sit on the active list while a handler
// runs, so a crashed worker leaves an inspectable trail.
func (q *RedisQueue) Consume(ctx context.Context, h Handler) error {
	done := make(chan struct{})
	for i := 0; i < q.concurrency; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			q.loop(ctx, h)
		}()
	}
	for i := 0; i < q.concurrency; i++ {
		<-done
	}
	return ctx.Err()
}

func (q *RedisQueue) loop(ctx context.Context, h Handler) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := q.promoteDue(ctx); err != nil && ctx.Err() == nil {
			q.logger.Error().Err(err).Msg("promote delayed jobs")
		}

		raw, err := q.client.BLMove(ctx, q.pendingKey(), q.activeKey(), "RIGHT", "LEFT", 2*time.Second).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			q.logger.Error().Err(err).Msg("pop pending job")
			continue
		}

		var env envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			q.logger.Error().Err(err).Msg("drop undecodable envelope")
			q.client.LRem(ctx, q.activeKey(), 1, raw)
			continue
		}
		q.process(ctx, h, env, raw)
	}
}

func (q *RedisQueue) process(ctx context.Context, h Handler, env envelope, raw string) {
	attempt := env.Attempt + 1
	q.client.HSet(ctx, q.jobKey(env.ID), "state", StateActive, "attempts", attempt)

	err := h(ctx, Job{ID: env.ID, Payload: env.Payload, Attempt: attempt})
	q.client.LRem(ctx, q.activeKey(), 1, raw)

	switch {
	case err == nil:
		q.client.HSet(ctx, q.jobKey(env.ID), "state", StateCompleted)
		q.logger.Info().Str("job_id", env.ID).Int("attempt", attempt).Msg("job completed")

	case IsFatal(err):
		q.client.HSet(ctx, q.jobKey(env.ID), "state", StateFailed, "error", err.Error())
		q.logger.Error().Err(err).Str("job_id", env.ID).Msg("job failed fatally")

	case attempt >= q.maxAttempts:
		q.client.HSet(ctx, q.jobKey(env.ID), "state", StateFailed, "error", err.Error())
		q.logger.Error().Err(err).Str("job_id", env.ID).Int("attempt", attempt).Msg("job abandoned, retry budget exhausted")

	default:
		delay := Backoff(q.backoffBase, attempt)
		retry := envelope{ID: env.ID, Payload: env.Payload, Attempt: attempt}
		rawRetry, merr := json.Marshal(retry)
		if merr != nil {
			q.logger.Error().Err(merr).Str("job_id", env.ID).Msg("marshal retry envelope")
			return
		}
		due := float64(time.Now().Add(delay).UnixMilli())
		pipe := q.client.TxPipeline()
		pipe.HSet(ctx, q.jobKey(env.ID), "state", StateDelayed, "error", err.Error())
		pipe.ZAdd(ctx, q.delayedKey(), redis.Z{Score: due, Member: rawRetry})
		if _, perr := pipe.Exec(ctx); perr != nil {
			q.logger.Error().Err(perr).Str("job_id", env.ID).Msg("schedule retry")
			return
		}
		q.logger.Warn().Err(err).Str("job_id", env.ID).Int("attempt", attempt).Dur("delay", delay).Msg("job retry scheduled")
	}
}

// promoteDue moves delayed jobs whose due time has passed back onto the
// pending list.
func (q *RedisQueue) promoteDue(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	due, err := q.client.ZRangeByScore(ctx, q.delayedKey(), &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil {
		return err
	}
	for _, member := range due {
		removed, err := q.client.ZRem(ctx, q.delayedKey(), member).Result()
		if err != nil {
			return err
		}
		// Another worker may have promoted it between the range and the rem.
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.pendingKey(), member).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Record returns the retained state of a job for inspection.
func (q *RedisQueue) Record(ctx context.Context, id string) (JobRecord, error) {
	fields, err := q.client.HGetAll(ctx, q.jobKey(id)).Result()
	if err != nil {
		return JobRecord{}, fmt.Errorf("queue: job record: %w", err)
	}
	rec := JobRecord{ID: id, State: fields["state"], Error: fields["error"]}
	if attempts, ok := fields["attempts"]; ok {
		rec.Attempts, _ = strconv.Atoi(attempts)
	}
	return rec, nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
