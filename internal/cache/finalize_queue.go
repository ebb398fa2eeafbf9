package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/quizgrade-backend/internal/config"
)

// FinalizeJob is one queued finalization.
type FinalizeJob struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	Force        bool      `json:"force"`
	Attempt      int       `json:"attempt"`
}

// FinalizeQueue pushes finalization jobs for the finalization worker.
type FinalizeQueue struct {
	rdb *redis.Client
}

// NewFinalizeQueue creates a FinalizeQueue.
func NewFinalizeQueue(rdb *redis.Client) *FinalizeQueue {
	return &FinalizeQueue{rdb: rdb}
}

// Enqueue appends one job per ID, in order.
func (q *FinalizeQueue) Enqueue(ctx context.Context, force bool, ids ...uuid.UUID) error {
	jobs := make([]FinalizeJob, len(ids))
	for i, id := range ids {
		jobs[i] = FinalizeJob{SubmissionID: id, Force: force}
	}
	return q.Push(ctx, jobs...)
}

// Push appends prepared jobs, used for retries.
func (q *FinalizeQueue) Push(ctx context.Context, jobs ...FinalizeJob) error {
	if len(jobs) == 0 {
		return nil
	}
	values := make([]interface{}, len(jobs))
	for i, j := range jobs {
		raw, err := json.Marshal(j)
		if err != nil {
			return fmt.Errorf("marshal job: %w", err)
		}
		values[i] = raw
	}
	if err := q.rdb.RPush(ctx, config.WorkerKey.FinalizeSubmissionsQueue, values...).Err(); err != nil {
		return fmt.Errorf("enqueue finalize: %w", err)
	}
	return nil
}
