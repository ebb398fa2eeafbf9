// Package cache keeps quizzes, autosaved drafts and the finalization queue in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/quizgrade-backend/internal/config"
	"github.com/stemsi/quizgrade-backend/internal/model"
)

// ErrMiss is returned when a key is not cached.
var ErrMiss = errors.New("cache miss")

// QuizCache caches full quizzes (with correctness flags, for grading) and the
// student-facing paper side by side.
type QuizCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewQuizCache creates a QuizCache whose entries expire after ttl.
func NewQuizCache(rdb *redis.Client, ttl time.Duration) *QuizCache {
	return &QuizCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached full quiz.
func (c *QuizCache) Get(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	raw, err := c.rdb.Get(ctx, config.CacheKey.QuizKey(id.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	var q model.Quiz
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, fmt.Errorf("decode quiz: %w", err)
	}
	return &q, nil
}

// GetPaper returns the cached student payload.
func (c *QuizCache) GetPaper(ctx context.Context, id uuid.UUID) (*model.QuizPaper, error) {
	raw, err := c.rdb.Get(ctx, config.CacheKey.QuizPaperKey(id.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get paper: %w", err)
	}

	var p model.QuizPaper
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode paper: %w", err)
	}
	return &p, nil
}

// Set caches the quiz and its paper atomically via pipeline.
func (c *QuizCache) Set(ctx context.Context, q *model.Quiz) error {
	full, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	paper, err := json.Marshal(q.Paper())
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}

	id := q.ID.String()
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, config.CacheKey.QuizKey(id), full, c.ttl)
	pipe.Set(ctx, config.CacheKey.QuizPaperKey(id), paper, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache quiz: %w", err)
	}
	return nil
}

// Invalidate drops both cached views of a quiz.
func (c *QuizCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	return c.rdb.Del(ctx,
		config.CacheKey.QuizKey(id.String()),
		config.CacheKey.QuizPaperKey(id.String()),
	).Err()
}
