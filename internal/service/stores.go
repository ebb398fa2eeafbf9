package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizgrade-backend/internal/model"
	"github.com/stemsi/quizgrade-backend/internal/repository"
)

// QuizStore persists quizzes with their questions and choices.
type QuizStore interface {
	List(ctx context.Context) ([]model.QuizSummary, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
	Create(ctx context.Context, q *model.Quiz) error
	ReplaceQuestions(ctx context.Context, q *model.Quiz) error
	Delete(ctx context.Context, id uuid.UUID) error
	Load(ctx context.Context, quizzes []*model.Quiz, policy repository.LoadPolicy) (repository.LoadResult, error)
}

// SubmissionStore persists submissions and their answers.
// Mutate must serialize concurrent callers on the same submission.
type SubmissionStore interface {
	Create(ctx context.Context, s *model.Submission) error
	Get(ctx context.Context, id uuid.UUID) (*model.Submission, error)
	Mutate(ctx context.Context, id uuid.UUID, fn func(s *model.Submission) error) (*model.Submission, error)
	ListByUser(ctx context.Context, userID int) ([]model.SubmissionSummary, error)
	ListByStatus(ctx context.Context, status model.SubmissionStatus, page, perPage int) ([]model.SubmissionSummary, int64, error)
}

// UserStore persists accounts.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id int) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
}

// QuizCache keeps hot quizzes out of the database. Any error is treated as a
// miss.
type QuizCache interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
	GetPaper(ctx context.Context, id uuid.UUID) (*model.QuizPaper, error)
	Set(ctx context.Context, q *model.Quiz) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// DraftStore holds answers autosaved before submission.
type DraftStore interface {
	Start(ctx context.Context, quizID uuid.UUID, userID int, at time.Time) (time.Time, error)
	StartedAt(ctx context.Context, quizID uuid.UUID, userID int) (time.Time, error)
	Save(ctx context.Context, quizID uuid.UUID, userID int, ans model.SubmitAnswerRequest) error
	Load(ctx context.Context, quizID uuid.UUID, userID int) ([]model.SubmitAnswerRequest, error)
	Clear(ctx context.Context, quizID uuid.UUID, userID int) error
}

// FinalizeQueue hands submission IDs to the finalization worker.
type FinalizeQueue interface {
	Enqueue(ctx context.Context, force bool, ids ...uuid.UUID) error
}
