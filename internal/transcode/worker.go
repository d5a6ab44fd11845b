package transcode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/streamforge/vod-platform/internal/media/domain"
	"github.com/streamforge/vod-platform/internal/media/models"
	"github.com/streamforge/vod-platform/internal/media/repository"
	"github.com/streamforge/vod-platform/internal/queue"
)

// Worker consumes transcode jobs and drives the media state machine:
// QUEUED → PROCESSING → READY | FAILED. Redelivery after a crash is handled
// by the READY short-circuit; a failed attempt re-raises to the queue so its
// backoff policy applies.
type Worker struct {
	repo       repository.MediaRepository
	transcoder Transcoder
	logger     zerolog.Logger
}

func NewWorker(repo repository.MediaRepository, transcoder Transcoder, logger zerolog.Logger) *Worker {
	return &Worker{
		repo:       repo,
		transcoder: transcoder,
		logger:     logger.With().Str("component", "transcode_worker").Logger(),
	}
}

// Run blocks consuming jobs from q until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, q queue.Queue) error {
	w.logger.Info().Msg("transcode worker started")
	return q.Consume(ctx, w.Handle)
}

func (w *Worker) Handle(ctx context.Context, job queue.Job) error {
	payload, err := UnmarshalJob(job.Payload)
	if err != nil {
		return queue.Fatal(err)
	}
	log := w.logger.With().Str("media_id", payload.MediaID.String()).Int("attempt", job.Attempt).Logger()

	m, err := w.repo.GetByID(ctx, payload.MediaID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// A job for a row that does not exist is corrupted or forged;
			// retrying cannot help.
			log.Error().Msg("job references unknown media")
			return queue.Fatal(fmt.Errorf("%w: media %s does not exist", models.ErrConsistency, payload.MediaID))
		}
		return fmt.Errorf("load media: %w", err)
	}
	if m.SrcKey != payload.SrcKey {
		log.Error().Str("job_src_key", payload.SrcKey).Str("media_src_key", m.SrcKey).Msg("job srcKey mismatch")
		return queue.Fatal(fmt.Errorf("%w: job srcKey does not match media", models.ErrConsistency))
	}

	// At-least-once redelivery after a crash past the commit point: the work
	// is already published, acknowledge without re-transcoding.
	if m.Status == models.StatusReady && m.HLSKey != nil {
		log.Info().Msg("media already ready, skipping")
		return nil
	}

	if err := domain.ValidateTransition(m.Status, models.StatusProcessing); err != nil {
		return fmt.Errorf("enter processing: %w", err)
	}
	from := m.Status
	m.Status = models.StatusProcessing
	m.Error = nil
	if m, err = w.repo.Update(ctx, m, models.NewMediaStatusChanged(m.ID, from, models.StatusProcessing)); err != nil {
		return fmt.Errorf("persist processing: %w", err)
	}

	hlsKey, runErr := w.transcoder.Run(ctx, m.ID, m.SrcKey)
	if runErr != nil {
		msg := runErr.Error()
		m.Status = models.StatusFailed
		m.Error = &msg
		if _, err := w.repo.Update(ctx, m, models.NewMediaStatusChanged(m.ID, models.StatusProcessing, models.StatusFailed)); err != nil {
			log.Error().Err(err).Msg("persist failed state")
		}
		log.Error().Err(runErr).Msg("transcode failed")
		// Re-raise so the queue's retry/backoff policy applies.
		return runErr
	}

	m.Status = models.StatusReady
	m.HLSKey = &hlsKey
	m.Error = nil
	if _, err := w.repo.Update(ctx, m, models.NewMediaStatusChanged(m.ID, models.StatusProcessing, models.StatusReady)); err != nil {
		return fmt.Errorf("persist ready: %w", err)
	}
	log.Info().Str("hls_key", hlsKey).Msg("media ready")
	return nil
}
