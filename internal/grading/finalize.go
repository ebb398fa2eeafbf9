package grading

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stemsi/quizgrade-backend/internal/model"
)

// CalculateFinalScore sums the awarded points of every answer. Answers not yet
// graded are excluded. It reads sub only, so repeated calls on unchanged
// answers always agree.
func CalculateFinalScore(sub *model.Submission) float64 {
	total := decimal.Zero
	for _, a := range sub.Answers {
		if a.PointsAwarded != nil {
			total = total.Add(decimal.NewFromFloat(*a.PointsAwarded))
		}
	}
	return total.InexactFloat64()
}

// Finalize returns the final score of a submission awaiting manual grading.
// It does not mutate sub; the caller commits score and COMPLETED together.
func Finalize(sub *model.Submission) (float64, error) {
	if sub.Status != model.SubmissionStatusAwaitingManualGrade {
		return 0, fmt.Errorf("%w: finalize from %s", ErrInvalidStateTransition, sub.Status)
	}
	return CalculateFinalScore(sub), nil
}

// Complete applies a finalized score to sub in memory.
func Complete(sub *model.Submission, score float64) error {
	if sub.Status != model.SubmissionStatusAwaitingManualGrade {
		return fmt.Errorf("%w: complete from %s", ErrInvalidStateTransition, sub.Status)
	}
	sub.Score = &score
	sub.Status = model.SubmissionStatusCompleted
	return nil
}

// Ungraded lists the coding answers of sub that still have no points.
// Answers whose question is missing from quiz are skipped.
func Ungraded(sub *model.Submission, quiz *model.Quiz) []model.Answer {
	var pending []model.Answer
	for _, a := range sub.Answers {
		q, ok := quiz.Question(a.QuestionID)
		if !ok || q.Type != model.QuestionTypeCoding {
			continue
		}
		if a.PointsAwarded == nil {
			pending = append(pending, a)
		}
	}
	return pending
}

// FullyGraded reports whether every coding answer of sub has been graded.
func FullyGraded(sub *model.Submission, quiz *model.Quiz) bool {
	return len(Ungraded(sub, quiz)) == 0
}

// CheckManualGrade validates a reviewer's grade for a question of sub.
func CheckManualGrade(sub *model.Submission, q *model.Question, points float64) error {
	if sub.Status != model.SubmissionStatusAwaitingManualGrade {
		return fmt.Errorf("%w: manual grade on %s submission", ErrInvalidStateTransition, sub.Status)
	}
	if q.Type != model.QuestionTypeCoding {
		return ErrNotManuallyGraded
	}
	if points < 0 || points > q.Points {
		return fmt.Errorf("%w: %.2f not in [0, %.2f]", ErrPointsOutOfRange, points, q.Points)
	}
	return nil
}
