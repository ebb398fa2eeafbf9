package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizgrade-backend/internal/grading"
	"github.com/stemsi/quizgrade-backend/internal/model"
	"github.com/stemsi/quizgrade-backend/internal/repository"
	"github.com/stemsi/quizgrade-backend/internal/response"
)

// ErrNotFullyGraded is returned when finalization is attempted while coding
// answers still lack points.
var ErrNotFullyGraded = errors.New("submission has ungraded coding answers")

// ReviewService handles manual grading and finalization.
type ReviewService struct {
	quizzes            *QuizService
	repo               SubmissionStore
	queue              FinalizeQueue
	requireFullyGraded bool
	log                zerolog.Logger
}

// NewReviewService creates a new ReviewService. With requireFullyGraded,
// Finalize refuses submissions that still have ungraded coding answers
// unless forced.
func NewReviewService(
	quizzes *QuizService,
	repo SubmissionStore,
	queue FinalizeQueue,
	requireFullyGraded bool,
	log zerolog.Logger,
) *ReviewService {
	return &ReviewService{
		quizzes:            quizzes,
		repo:               repo,
		queue:              queue,
		requireFullyGraded: requireFullyGraded,
		log:                log.With().Str("component", "review_service").Logger(),
	}
}

// ListAwaiting returns submissions waiting for manual grading, oldest first.
func (s *ReviewService) ListAwaiting(ctx context.Context, page, perPage int) ([]model.SubmissionSummary, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	subs, total, err := s.repo.ListByStatus(ctx, model.SubmissionStatusAwaitingManualGrade, page, perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list awaiting: %w", err)
	}
	if subs == nil {
		subs = []model.SubmissionSummary{}
	}

	return subs, response.NewPagination(page, perPage, total), nil
}

// GradeAnswer records the reviewer's points and feedback on a coding answer.
func (s *ReviewService) GradeAnswer(ctx context.Context, submissionID, answerID uuid.UUID, points float64, feedback string) (*model.Answer, error) {
	var graded model.Answer
	_, err := s.repo.Mutate(ctx, submissionID, func(sub *model.Submission) error {
		ans, ok := sub.Answer(answerID)
		if !ok {
			return repository.ErrNotFound
		}

		quiz, err := s.quizzes.Get(ctx, sub.QuizID)
		if err != nil {
			return fmt.Errorf("get quiz: %w", err)
		}
		q, ok := quiz.Question(ans.QuestionID)
		if !ok {
			return fmt.Errorf("%w: question %s", grading.ErrDanglingReference, ans.QuestionID)
		}

		if err := grading.CheckManualGrade(sub, q, points); err != nil {
			return err
		}

		ans.PointsAwarded = &points
		ans.Feedback = feedback
		graded = *ans
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("submission_id", submissionID.String()).
		Str("answer_id", answerID.String()).
		Float64("points", points).
		Msg("Answer graded")
	return &graded, nil
}

// Finalize closes a reviewed submission and stores its final score. The
// status check and the write happen under the store's row lock, so a
// submission completes at most once.
func (s *ReviewService) Finalize(ctx context.Context, submissionID uuid.UUID, force bool) (float64, error) {
	var score float64
	_, err := s.repo.Mutate(ctx, submissionID, func(sub *model.Submission) error {
		final, err := grading.Finalize(sub)
		if err != nil {
			return err
		}

		if s.requireFullyGraded && !force {
			quiz, err := s.quizzes.Get(ctx, sub.QuizID)
			if err != nil {
				return fmt.Errorf("get quiz: %w", err)
			}
			if pending := grading.Ungraded(sub, quiz); len(pending) > 0 {
				return fmt.Errorf("%w: %d pending", ErrNotFullyGraded, len(pending))
			}
		}

		score = final
		return grading.Complete(sub, final)
	})
	if err != nil {
		return 0, err
	}

	s.log.Info().
		Str("submission_id", submissionID.String()).
		Float64("score", score).
		Bool("forced", force).
		Msg("Submission finalized")
	return score, nil
}

// EnqueueFinalize queues submissions for the finalization worker.
func (s *ReviewService) EnqueueFinalize(ctx context.Context, ids []uuid.UUID, force bool) error {
	if err := s.queue.Enqueue(ctx, force, ids...); err != nil {
		return err
	}
	s.log.Info().Int("count", len(ids)).Bool("forced", force).Msg("Submissions queued for finalization")
	return nil
}
