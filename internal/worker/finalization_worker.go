package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizgrade-backend/internal/cache"
	"github.com/stemsi/quizgrade-backend/internal/config"
	"github.com/stemsi/quizgrade-backend/internal/grading"
	"github.com/stemsi/quizgrade-backend/internal/repository"
	"github.com/stemsi/quizgrade-backend/internal/service"
)

const (
	FinalizeBatchTimeout = 2 * time.Second
	FinalizePollTimeout  = 1 * time.Second
	FinalizeMaxAttempts  = 3
)

// Finalizer closes one reviewed submission.
type Finalizer interface {
	Finalize(ctx context.Context, submissionID uuid.UUID, force bool) (float64, error)
}

// FinalizationWorker drains the finalize queue in batches, the bulk
// counterpart of finalizing submissions one at a time from the review API.
type FinalizationWorker struct {
	rdb       *redis.Client
	queue     *cache.FinalizeQueue
	finalizer Finalizer
	batchSize int
	log       zerolog.Logger
}

func NewFinalizationWorker(rdb *redis.Client, finalizer Finalizer, batchSize int, log zerolog.Logger) *FinalizationWorker {
	if batchSize < 1 {
		batchSize = 50
	}
	return &FinalizationWorker{
		rdb:       rdb,
		queue:     cache.NewFinalizeQueue(rdb),
		finalizer: finalizer,
		batchSize: batchSize,
		log:       log.With().Str("component", "finalization_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *FinalizationWorker) Start(ctx context.Context) {
	w.log.Info().Int("batch_size", w.batchSize).Msg("FinalizationWorker started")

	batch := make([]cache.FinalizeJob, 0, w.batchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= w.batchSize || time.Since(lastFlush) >= FinalizeBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, FinalizePollTimeout, config.WorkerKey.FinalizeSubmissionsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var job cache.FinalizeJob
			if err := json.Unmarshal([]byte(item[1]), &job); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, job)
		}
	}
}

// ----------------------------------------------------------------
// Batch processing
// ----------------------------------------------------------------

func (w *FinalizationWorker) flushSafe(ctx context.Context, batch []cache.FinalizeJob) {
	if len(batch) == 0 {
		return
	}

	retry := w.settle(ctx, batch)
	if len(retry) == 0 {
		return
	}
	if err := w.queue.Push(ctx, retry...); err != nil {
		w.log.Error().Err(err).Int("jobs", len(retry)).Msg("Requeue failed, jobs dropped")
	}
}

// settle finalizes every job and returns the ones worth retrying. Rejections
// by the state machine are final and only logged.
func (w *FinalizationWorker) settle(ctx context.Context, batch []cache.FinalizeJob) []cache.FinalizeJob {
	var (
		retry               []cache.FinalizeJob
		finalized, rejected int
	)

	for _, job := range batch {
		log := w.log.With().Str("submission_id", job.SubmissionID.String()).Logger()

		score, err := w.finalizer.Finalize(ctx, job.SubmissionID, job.Force)
		switch {
		case err == nil:
			finalized++
			log.Info().Float64("score", score).Msg("Submission finalized")

		case errors.Is(err, grading.ErrInvalidStateTransition),
			errors.Is(err, service.ErrNotFullyGraded),
			errors.Is(err, repository.ErrNotFound):
			rejected++
			log.Warn().Err(err).Msg("Submission not finalized")

		default:
			job.Attempt++
			if job.Attempt >= FinalizeMaxAttempts {
				rejected++
				log.Error().Err(err).Int("attempt", job.Attempt).Msg("Finalization failed, giving up")
				continue
			}
			log.Warn().Err(err).Int("attempt", job.Attempt).Msg("Finalization failed, requeueing")
			retry = append(retry, job)
		}
	}

	w.log.Info().
		Int("finalized", finalized).
		Int("rejected", rejected).
		Int("retry", len(retry)).
		Msg("Finalize batch processed")
	return retry
}
