package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizgrade-backend/internal/grading"
	"github.com/stemsi/quizgrade-backend/internal/model"
)

// Submission errors.
var (
	ErrDuplicateAnswer      = errors.New("question answered more than once")
	ErrNotSubmissionOwner   = errors.New("submission belongs to another user")
	ErrUnknownDraftQuestion = errors.New("draft answer targets a question outside the quiz")
)

// SubmissionService collects answers, grades them and serves results.
type SubmissionService struct {
	quizzes *QuizService
	repo    SubmissionStore
	drafts  DraftStore
	log     zerolog.Logger
	now     func() time.Time
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(quizzes *QuizService, repo SubmissionStore, drafts DraftStore, log zerolog.Logger) *SubmissionService {
	return &SubmissionService{
		quizzes: quizzes,
		repo:    repo,
		drafts:  drafts,
		log:     log.With().Str("component", "submission_service").Logger(),
		now:     time.Now,
	}
}

// Start returns the student paper and records when the user opened it.
func (s *SubmissionService) Start(ctx context.Context, userID int, quizID uuid.UUID) (*model.QuizPaper, time.Time, error) {
	paper, err := s.quizzes.Paper(ctx, quizID)
	if err != nil {
		return nil, time.Time{}, err
	}
	startedAt, err := s.drafts.Start(ctx, quizID, userID, s.now())
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("start quiz: %w", err)
	}
	return paper, startedAt, nil
}

// SaveDraft autosaves one answer while the quiz is open.
func (s *SubmissionService) SaveDraft(ctx context.Context, userID int, quizID uuid.UUID, ans model.SubmitAnswerRequest) error {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return err
	}
	if _, ok := quiz.Question(ans.QuestionID); !ok {
		return ErrUnknownDraftQuestion
	}
	return s.drafts.Save(ctx, quizID, userID, ans)
}

// SubmitDrafts submits whatever the user has autosaved.
func (s *SubmissionService) SubmitDrafts(ctx context.Context, userID int, quizID uuid.UUID) (*model.Submission, error) {
	answers, err := s.drafts.Load(ctx, quizID, userID)
	if err != nil {
		return nil, fmt.Errorf("load drafts: %w", err)
	}
	return s.Submit(ctx, userID, quizID, answers)
}

// Submit builds one answer per question of the quiz, auto-grades the choice
// answers and stores the result. Questions left out of answers are recorded
// unanswered and earn zero.
func (s *SubmissionService) Submit(ctx context.Context, userID int, quizID uuid.UUID, answers []model.SubmitAnswerRequest) (*model.Submission, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}

	byQuestion := make(map[uuid.UUID]model.SubmitAnswerRequest, len(answers))
	for _, a := range answers {
		if _, ok := quiz.Question(a.QuestionID); !ok {
			return nil, fmt.Errorf("%w: question %s", grading.ErrDanglingReference, a.QuestionID)
		}
		if _, dup := byQuestion[a.QuestionID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAnswer, a.QuestionID)
		}
		byQuestion[a.QuestionID] = a
	}

	now := s.now()
	startedAt := now
	if t, err := s.drafts.StartedAt(ctx, quizID, userID); err == nil {
		startedAt = t
	}

	sub := &model.Submission{
		ID:        uuid.New(),
		UserID:    userID,
		QuizID:    quiz.ID,
		StartedAt: startedAt,
		Status:    model.SubmissionStatusInProgress,
		Answers:   make([]model.Answer, len(quiz.Questions)),
	}
	for i, q := range quiz.Questions {
		req := byQuestion[q.ID]
		ans := model.Answer{
			ID:                uuid.New(),
			SubmissionID:      sub.ID,
			QuestionID:        q.ID,
			SelectedChoiceIDs: req.ChoiceIDs,
		}
		if q.Type == model.QuestionTypeCoding {
			ans.Code = req.Code
		}
		sub.Answers[i] = ans
	}

	report, err := grading.AutoGrade(sub, quiz, now)
	if err != nil {
		return nil, err
	}

	for _, issue := range report.Issues {
		s.log.Warn().
			Str("quiz_id", quiz.ID.String()).
			Str("question_id", issue.QuestionID.String()).
			Str("kind", string(issue.Kind)).
			Int("correct_choices", issue.Correct).
			Msg("Question has malformed correctness flags, answer scored zero")
	}
	if limit := quiz.Duration(); limit > 0 && now.Sub(startedAt) > limit {
		s.log.Warn().
			Str("submission_id", sub.ID.String()).
			Int("user_id", userID).
			Dur("elapsed", now.Sub(startedAt)).
			Dur("limit", limit).
			Msg("Late submission accepted")
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("store submission: %w", err)
	}

	if err := s.drafts.Clear(ctx, quizID, userID); err != nil {
		s.log.Warn().Err(err).Str("submission_id", sub.ID.String()).Msg("Failed to clear drafts")
	}

	s.log.Info().
		Str("submission_id", sub.ID.String()).
		Str("status", string(sub.Status)).
		Float64("score", *sub.Score).
		Msg("Submission graded")
	return sub, nil
}

// History lists the user's submissions, newest first.
func (s *SubmissionService) History(ctx context.Context, userID int) ([]model.SubmissionSummary, error) {
	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	if subs == nil {
		subs = []model.SubmissionSummary{}
	}
	return subs, nil
}

// Detail returns the per-question breakdown of a submission. userID 0 skips
// the ownership check for reviewers.
func (s *SubmissionService) Detail(ctx context.Context, userID int, id uuid.UUID) (*grading.Breakdown, error) {
	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID != 0 && sub.UserID != userID {
		return nil, ErrNotSubmissionOwner
	}

	quiz, err := s.quizzes.Get(ctx, sub.QuizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	b := grading.BuildBreakdown(sub, quiz)
	return &b, nil
}
