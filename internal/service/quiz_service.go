package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizgrade-backend/internal/model"
	"github.com/stemsi/quizgrade-backend/internal/repository"
)

// QuizService handles quiz management and the Redis read path.
type QuizService struct {
	repo  QuizStore
	cache QuizCache
	log   zerolog.Logger
}

// NewQuizService creates a new QuizService.
func NewQuizService(repo QuizStore, cache QuizCache, log zerolog.Logger) *QuizService {
	return &QuizService{
		repo:  repo,
		cache: cache,
		log:   log.With().Str("component", "quiz_service").Logger(),
	}
}

// List returns every quiz with its question count and total points.
func (s *QuizService) List(ctx context.Context) ([]model.QuizSummary, error) {
	quizzes, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	if quizzes == nil {
		quizzes = []model.QuizSummary{}
	}
	return quizzes, nil
}

// Get returns the full quiz, correctness flags included, from cache or
// database. A database hit repopulates the cache.
func (s *QuizService) Get(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	if q, err := s.cache.Get(ctx, id); err == nil {
		return q, nil
	}

	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.warm(ctx, q)
	return q, nil
}

// Paper returns the student-facing view of a quiz.
func (s *QuizService) Paper(ctx context.Context, id uuid.UUID) (*model.QuizPaper, error) {
	if p, err := s.cache.GetPaper(ctx, id); err == nil {
		return p, nil
	}

	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	paper := q.Paper()
	return &paper, nil
}

// Create validates and stores a new quiz.
func (s *QuizService) Create(ctx context.Context, q *model.Quiz) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, q); err != nil {
		return fmt.Errorf("create quiz: %w", err)
	}
	s.warm(ctx, q)

	s.log.Info().Str("quiz_id", q.ID.String()).Int("questions", len(q.Questions)).Msg("Quiz created")
	return nil
}

// Replace overwrites the metadata and questions of an existing quiz. Quizzes
// that already have submissions are refused so recorded answers keep their
// referents.
func (s *QuizService) Replace(ctx context.Context, q *model.Quiz) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if err := s.repo.ReplaceQuestions(ctx, q); err != nil {
		return fmt.Errorf("replace quiz: %w", err)
	}
	s.invalidate(ctx, q.ID)

	s.log.Info().Str("quiz_id", q.ID.String()).Msg("Quiz replaced")
	return nil
}

// Delete removes a quiz together with its questions and submissions.
func (s *QuizService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)

	s.log.Info().Str("quiz_id", id.String()).Msg("Quiz deleted")
	return nil
}

// Load imports quizzes in one transaction and drops every affected cache entry.
func (s *QuizService) Load(ctx context.Context, quizzes []*model.Quiz, policy repository.LoadPolicy) (repository.LoadResult, error) {
	for _, q := range quizzes {
		if err := q.Validate(); err != nil {
			return repository.LoadResult{}, fmt.Errorf("quiz %q: %w", q.Title, err)
		}
	}

	var stale []uuid.UUID
	if policy == repository.LoadPolicyReplace {
		existing, err := s.repo.List(ctx)
		if err != nil {
			return repository.LoadResult{}, fmt.Errorf("list quizzes: %w", err)
		}
		for _, q := range existing {
			stale = append(stale, q.ID)
		}
	}

	res, err := s.repo.Load(ctx, quizzes, policy)
	if err != nil {
		return res, fmt.Errorf("load quizzes: %w", err)
	}
	for _, q := range quizzes {
		stale = append(stale, q.ID)
	}
	for _, id := range stale {
		s.invalidate(ctx, id)
	}
	for _, title := range res.SkippedTitles {
		s.log.Warn().
			Str("title", title).
			Msg("Quiz has submissions, kept existing questions")
	}

	s.log.Info().
		Str("policy", string(policy)).
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("deleted", res.Deleted).
		Int("skipped", res.Skipped).
		Msg("Quizzes loaded")
	return res, nil
}

// PrewarmAll loads every quiz into Redis on application startup.
func (s *QuizService) PrewarmAll(ctx context.Context) error {
	quizzes, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list quizzes: %w", err)
	}

	if len(quizzes) == 0 {
		s.log.Info().Msg("No quizzes to prewarm")
		return nil
	}

	warmed := 0
	for _, summary := range quizzes {
		q, err := s.repo.Get(ctx, summary.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("quiz_id", summary.ID.String()).Msg("Failed to load quiz, skipping")
			continue
		}
		if err := s.cache.Set(ctx, q); err != nil {
			s.log.Warn().Err(err).Str("quiz_id", summary.ID.String()).Msg("Failed to warm quiz, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(quizzes)).
		Msg("Prewarming complete")
	return nil
}

func (s *QuizService) warm(ctx context.Context, q *model.Quiz) {
	if err := s.cache.Set(ctx, q); err != nil {
		s.log.Warn().Err(err).Str("quiz_id", q.ID.String()).Msg("Failed to cache quiz")
	}
}

func (s *QuizService) invalidate(ctx context.Context, id uuid.UUID) {
	if id == uuid.Nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("quiz_id", id.String()).Msg("Failed to invalidate quiz cache")
	}
}
