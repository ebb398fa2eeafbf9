package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus enumerates the lifecycle states of a submission.
type SubmissionStatus string

const (
	SubmissionStatusInProgress          SubmissionStatus = "IN_PROGRESS"
	SubmissionStatusAwaitingManualGrade SubmissionStatus = "AWAITING_MANUAL_GRADE"
	SubmissionStatusCompleted           SubmissionStatus = "COMPLETED"
)

// Valid reports whether s is a known status.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionStatusInProgress, SubmissionStatusAwaitingManualGrade, SubmissionStatusCompleted:
		return true
	}
	return false
}

// Submission is one user's attempt at a quiz.
type Submission struct {
	ID        uuid.UUID        `json:"id"`
	UserID    int              `json:"user_id"`
	QuizID    uuid.UUID        `json:"quiz_id"`
	StartedAt time.Time        `json:"started_at"`
	EndedAt   *time.Time       `json:"ended_at,omitempty"`
	Score     *float64         `json:"score,omitempty"`
	Status    SubmissionStatus `json:"status"`
	Answers   []Answer         `json:"answers,omitempty"`
}

// Validate enforces the structural constraints of a submission.
func (s *Submission) Validate() error {
	if !s.Status.Valid() {
		return invalid("submission", "status", "unknown status "+string(s.Status))
	}
	if s.Score != nil && (*s.Score < 0 || math.IsNaN(*s.Score)) {
		return invalid("submission", "score", "must be a non-negative number")
	}
	if s.EndedAt != nil && s.EndedAt.Before(s.StartedAt) {
		return invalid("submission", "ended_at", "precedes started_at")
	}
	for i := range s.Answers {
		if err := s.Answers[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Answer returns the owned answer with the given ID.
func (s *Submission) Answer(id uuid.UUID) (*Answer, bool) {
	for i := range s.Answers {
		if s.Answers[i].ID == id {
			return &s.Answers[i], true
		}
	}
	return nil, false
}

// Answer is the response to one question within a submission.
// SelectedChoiceIDs is an owned set of choice identifiers, not live links.
type Answer struct {
	ID                uuid.UUID   `json:"id"`
	SubmissionID      uuid.UUID   `json:"submission_id"`
	QuestionID        uuid.UUID   `json:"question_id"`
	SelectedChoiceIDs []uuid.UUID `json:"selected_choice_ids"`
	Code              string      `json:"code_answer,omitempty"`
	PointsAwarded     *float64    `json:"points_awarded,omitempty"`
	Feedback          string      `json:"feedback,omitempty"`
}

// Validate enforces the structural constraints of an answer.
func (a *Answer) Validate() error {
	if a.QuestionID == uuid.Nil {
		return invalid("answer", "question_id", "must be set")
	}
	if a.PointsAwarded != nil && (*a.PointsAwarded < 0 || math.IsNaN(*a.PointsAwarded)) {
		return invalid("answer", "points_awarded", "must be a non-negative number")
	}
	return nil
}

// SubmitQuizRequest carries a student's raw answers keyed by question.
type SubmitQuizRequest struct {
	Answers []SubmitAnswerRequest `json:"answers" binding:"omitempty,dive"`
}

// SubmitAnswerRequest is the raw response to one question.
type SubmitAnswerRequest struct {
	QuestionID uuid.UUID   `json:"question_id" binding:"required"`
	ChoiceIDs  []uuid.UUID `json:"choice_ids" binding:"omitempty,max=64"`
	Code       string      `json:"code" binding:"omitempty,max=65536"`
}

// GradeAnswerRequest is the reviewer's manual grade for a coding answer.
type GradeAnswerRequest struct {
	Points   *float64 `json:"points_awarded" binding:"required,min=0"`
	Feedback string   `json:"feedback" binding:"omitempty,max=10000"`
}

// FinalizeRequest controls a single finalization.
type FinalizeRequest struct {
	Force bool `json:"force"`
}

// BulkFinalizeRequest queues several submissions for finalization.
type BulkFinalizeRequest struct {
	SubmissionIDs []uuid.UUID `json:"submission_ids" binding:"required,min=1,max=500"`
	Force         bool        `json:"force"`
}

// SubmissionSummary is the list view used by history and review queues.
type SubmissionSummary struct {
	ID        uuid.UUID        `json:"id"`
	UserID    int              `json:"user_id"`
	Username  string           `json:"username,omitempty"`
	QuizID    uuid.UUID        `json:"quiz_id"`
	QuizTitle string           `json:"quiz_title"`
	StartedAt time.Time        `json:"started_at"`
	EndedAt   *time.Time       `json:"ended_at,omitempty"`
	Score     *float64         `json:"score,omitempty"`
	Status    SubmissionStatus `json:"status"`
}
