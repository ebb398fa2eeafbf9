package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/quizgrade-backend/internal/config"
	"github.com/stemsi/quizgrade-backend/internal/model"
)

// DraftStore keeps answers autosaved while a quiz is being taken, one hash
// per user and quiz, field per question.
type DraftStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewDraftStore creates a DraftStore whose drafts expire after ttl.
func NewDraftStore(rdb *redis.Client, ttl time.Duration) *DraftStore {
	return &DraftStore{rdb: rdb, ttl: ttl}
}

// Start records when the user opened the quiz; an earlier start is kept.
func (d *DraftStore) Start(ctx context.Context, quizID uuid.UUID, userID int, at time.Time) (time.Time, error) {
	key := config.CacheKey.DraftStartKey(quizID.String(), userID)
	if err := d.rdb.SetNX(ctx, key, at.Unix(), d.ttl).Err(); err != nil {
		return time.Time{}, fmt.Errorf("mark start: %w", err)
	}
	return d.StartedAt(ctx, quizID, userID)
}

// StartedAt returns the recorded start time.
func (d *DraftStore) StartedAt(ctx context.Context, quizID uuid.UUID, userID int) (time.Time, error) {
	val, err := d.rdb.Get(ctx, config.CacheKey.DraftStartKey(quizID.String(), userID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, ErrMiss
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get start: %w", err)
	}
	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start time format in cache: %w", err)
	}
	return time.Unix(unix, 0), nil
}

// Save stores one draft answer and refreshes the draft's expiry.
func (d *DraftStore) Save(ctx context.Context, quizID uuid.UUID, userID int, ans model.SubmitAnswerRequest) error {
	raw, err := json.Marshal(ans)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}

	key := config.CacheKey.DraftAnswersKey(quizID.String(), userID)
	pipe := d.rdb.TxPipeline()
	pipe.HSet(ctx, key, ans.QuestionID.String(), raw)
	pipe.Expire(ctx, key, d.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Load returns every draft answer of the user for the quiz. Unreadable
// fields are skipped.
func (d *DraftStore) Load(ctx context.Context, quizID uuid.UUID, userID int) ([]model.SubmitAnswerRequest, error) {
	fields, err := d.rdb.HGetAll(ctx, config.CacheKey.DraftAnswersKey(quizID.String(), userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load drafts: %w", err)
	}

	answers := make([]model.SubmitAnswerRequest, 0, len(fields))
	for _, raw := range fields {
		var a model.SubmitAnswerRequest
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			continue
		}
		answers = append(answers, a)
	}
	return answers, nil
}

// Clear removes the draft and its start marker.
func (d *DraftStore) Clear(ctx context.Context, quizID uuid.UUID, userID int) error {
	return d.rdb.Del(ctx,
		config.CacheKey.DraftAnswersKey(quizID.String(), userID),
		config.CacheKey.DraftStartKey(quizID.String(), userID),
	).Err()
}
