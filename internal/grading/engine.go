// Package grading turns a submission's raw answers into points, a score and
// a lifecycle status. It performs no I/O; callers load and persist records.
package grading

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stemsi/quizgrade-backend/internal/model"
)

var (
	// ErrInvalidStateTransition is returned when an operation is applied to a
	// submission whose status does not allow it.
	ErrInvalidStateTransition = errors.New("invalid submission state transition")

	// ErrDanglingReference is returned when an answer points at a question or
	// choice that does not belong to the submission's quiz.
	ErrDanglingReference = errors.New("answer references an entity outside the quiz")

	// ErrNotManuallyGraded is returned when a manual grade targets a
	// question that is graded automatically.
	ErrNotManuallyGraded = errors.New("question is not manually graded")

	// ErrPointsOutOfRange is returned when a manual grade exceeds the
	// question's point value or is negative.
	ErrPointsOutOfRange = errors.New("points out of range")
)

// IssueKind classifies a data-quality problem found while grading.
type IssueKind string

const (
	IssueNoCorrectChoice        IssueKind = "NO_CORRECT_CHOICE"
	IssueMultipleCorrectChoices IssueKind = "MULTIPLE_CORRECT_CHOICES"
)

// Issue is a malformed correctness configuration. The affected answer earns
// zero; the issue is meant for operators, not the quiz taker.
type Issue struct {
	QuestionID uuid.UUID          `json:"question_id"`
	Type       model.QuestionType `json:"question_type"`
	Kind       IssueKind          `json:"kind"`
	Correct    int                `json:"correct_choices"`
}

// Outcome is the grading result of one answer.
type Outcome struct {
	AnswerID    uuid.UUID          `json:"answer_id"`
	QuestionID  uuid.UUID          `json:"question_id"`
	Type        model.QuestionType `json:"question_type"`
	Points      *float64           `json:"points_awarded"`
	MaxPoints   float64            `json:"max_points"`
	NeedsManual bool               `json:"needs_manual"`
}

// Report summarizes an AutoGrade run.
type Report struct {
	Outcomes    []Outcome              `json:"outcomes"`
	Issues      []Issue                `json:"issues,omitempty"`
	Score       float64                `json:"score"`
	Status      model.SubmissionStatus `json:"status"`
	NeedsManual bool                   `json:"needs_manual"`
}

// AutoGrade scores every choice answer of sub against quiz, leaves coding
// answers unset, and moves sub out of IN_PROGRESS. now becomes sub.EndedAt.
//
// Malformed selections and malformed correctness flags degrade to zero points.
// Only integrity faults (wrong state, references outside quiz) return an
// error, and in that case sub is left untouched.
func AutoGrade(sub *model.Submission, quiz *model.Quiz, now time.Time) (*Report, error) {
	if sub.Status != model.SubmissionStatusInProgress {
		return nil, fmt.Errorf("%w: auto-grade from %s", ErrInvalidStateTransition, sub.Status)
	}
	if sub.QuizID != quiz.ID {
		return nil, fmt.Errorf("%w: submission quiz %s, graded against %s", ErrDanglingReference, sub.QuizID, quiz.ID)
	}

	questions := make([]*model.Question, len(sub.Answers))
	for i := range sub.Answers {
		q, err := resolve(quiz, &sub.Answers[i])
		if err != nil {
			return nil, err
		}
		questions[i] = q
	}

	report := &Report{Outcomes: make([]Outcome, 0, len(sub.Answers))}
	total := decimal.Zero

	for i := range sub.Answers {
		a := &sub.Answers[i]
		q := questions[i]

		out := Outcome{AnswerID: a.ID, QuestionID: q.ID, Type: q.Type, MaxPoints: q.Points}

		var (
			points float64
			issue  *Issue
		)
		switch q.Type {
		case model.QuestionTypeSingleChoice:
			points, issue = gradeSingle(q, a.SelectedChoiceIDs)
		case model.QuestionTypeMultiChoice:
			points, issue = gradeMulti(q, a.SelectedChoiceIDs)
		case model.QuestionTypeCoding:
			out.NeedsManual = true
			report.NeedsManual = true
			a.PointsAwarded = nil
			report.Outcomes = append(report.Outcomes, out)
			continue
		}

		if issue != nil {
			report.Issues = append(report.Issues, *issue)
		}
		a.PointsAwarded = &points
		out.Points = &points
		total = total.Add(decimal.NewFromFloat(points))
		report.Outcomes = append(report.Outcomes, out)
	}

	report.Score = total.InexactFloat64()
	report.Status = model.SubmissionStatusCompleted
	if report.NeedsManual {
		report.Status = model.SubmissionStatusAwaitingManualGrade
	}

	score := report.Score
	ended := now
	sub.Score = &score
	sub.Status = report.Status
	sub.EndedAt = &ended

	return report, nil
}

// resolve finds the answer's question in quiz and checks every selected
// choice belongs to it.
func resolve(quiz *model.Quiz, a *model.Answer) (*model.Question, error) {
	q, ok := quiz.Question(a.QuestionID)
	if !ok {
		return nil, fmt.Errorf("%w: question %s", ErrDanglingReference, a.QuestionID)
	}
	for _, id := range a.SelectedChoiceIDs {
		if _, ok := q.Choice(id); !ok {
			return nil, fmt.Errorf("%w: choice %s of question %s", ErrDanglingReference, id, q.ID)
		}
	}
	return q, nil
}

// gradeSingle awards full points iff exactly one choice is flagged correct and
// it is the only selected choice.
func gradeSingle(q *model.Question, selected []uuid.UUID) (float64, *Issue) {
	correct := q.CorrectChoiceIDs()
	switch len(correct) {
	case 0:
		return 0, &Issue{QuestionID: q.ID, Type: q.Type, Kind: IssueNoCorrectChoice}
	case 1:
	default:
		return 0, &Issue{QuestionID: q.ID, Type: q.Type, Kind: IssueMultipleCorrectChoices, Correct: len(correct)}
	}

	chosen := toSet(selected)
	if len(chosen) != 1 {
		return 0, nil
	}
	if _, ok := chosen[correct[0]]; ok {
		return q.Points, nil
	}
	return 0, nil
}

// gradeMulti awards full points iff the selected set equals the non-empty
// correct set. There is no partial credit.
func gradeMulti(q *model.Question, selected []uuid.UUID) (float64, *Issue) {
	correct := toSet(q.CorrectChoiceIDs())
	if len(correct) == 0 {
		return 0, &Issue{QuestionID: q.ID, Type: q.Type, Kind: IssueNoCorrectChoice}
	}
	if sameSet(correct, toSet(selected)) {
		return q.Points, nil
	}
	return 0, nil
}

func toSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sameSet(a, b map[uuid.UUID]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}
