package grading

import (
	"github.com/google/uuid"
	"github.com/stemsi/quizgrade-backend/internal/model"
)

// ChoiceResult is one choice as shown on a result page.
type ChoiceResult struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"choice_text"`
	IsCorrect bool      `json:"is_correct"`
	Selected  bool      `json:"selected"`
}

// QuestionResult compares what was selected with what was correct.
type QuestionResult struct {
	QuestionID    uuid.UUID          `json:"question_id"`
	AnswerID      *uuid.UUID         `json:"answer_id,omitempty"`
	Text          string             `json:"question_text"`
	Type          model.QuestionType `json:"question_type"`
	Order         int                `json:"order"`
	MaxPoints     float64            `json:"max_points"`
	PointsAwarded *float64           `json:"points_awarded"`
	Graded        bool               `json:"graded"`
	Answered      bool               `json:"answered"`
	SelectedIDs   []uuid.UUID        `json:"selected_choice_ids"`
	CorrectIDs    []uuid.UUID        `json:"correct_choice_ids"`
	Choices       []ChoiceResult     `json:"choices,omitempty"`
	Code          string             `json:"code_answer,omitempty"`
	Feedback      string             `json:"feedback,omitempty"`
}

// Breakdown is the per-question view of a graded submission.
type Breakdown struct {
	SubmissionID uuid.UUID              `json:"submission_id"`
	QuizID       uuid.UUID              `json:"quiz_id"`
	QuizTitle    string                 `json:"quiz_title"`
	Status       model.SubmissionStatus `json:"status"`
	Score        *float64               `json:"score"`
	TotalPoints  float64                `json:"total_points"`
	FullyGraded  bool                   `json:"fully_graded"`
	Questions    []QuestionResult       `json:"questions"`
}

// BuildBreakdown lists every question of quiz in quiz order with the matching
// answer of sub. Questions without an answer appear unanswered.
func BuildBreakdown(sub *model.Submission, quiz *model.Quiz) Breakdown {
	byQuestion := make(map[uuid.UUID]*model.Answer, len(sub.Answers))
	for i := range sub.Answers {
		byQuestion[sub.Answers[i].QuestionID] = &sub.Answers[i]
	}

	b := Breakdown{
		SubmissionID: sub.ID,
		QuizID:       quiz.ID,
		QuizTitle:    quiz.Title,
		Status:       sub.Status,
		Score:        sub.Score,
		TotalPoints:  quiz.TotalPoints(),
		FullyGraded:  FullyGraded(sub, quiz),
		Questions:    make([]QuestionResult, 0, len(quiz.Questions)),
	}

	for _, q := range quiz.Questions {
		qr := QuestionResult{
			QuestionID:  q.ID,
			Text:        q.Text,
			Type:        q.Type,
			Order:       q.Position,
			MaxPoints:   q.Points,
			SelectedIDs: []uuid.UUID{},
			CorrectIDs:  q.CorrectChoiceIDs(),
		}
		if qr.CorrectIDs == nil {
			qr.CorrectIDs = []uuid.UUID{}
		}

		selected := map[uuid.UUID]struct{}{}
		if a, ok := byQuestion[q.ID]; ok {
			answerID := a.ID
			qr.AnswerID = &answerID
			qr.PointsAwarded = a.PointsAwarded
			qr.Graded = a.PointsAwarded != nil
			qr.Code = a.Code
			qr.Feedback = a.Feedback
			qr.Answered = len(a.SelectedChoiceIDs) > 0 || a.Code != ""
			selected = toSet(a.SelectedChoiceIDs)
			if len(a.SelectedChoiceIDs) > 0 {
				qr.SelectedIDs = append(qr.SelectedIDs, a.SelectedChoiceIDs...)
			}
		}

		for _, c := range q.Choices {
			_, picked := selected[c.ID]
			qr.Choices = append(qr.Choices, ChoiceResult{
				ID:        c.ID,
				Text:      c.Text,
				IsCorrect: c.IsCorrect,
				Selected:  picked,
			})
		}

		b.Questions = append(b.Questions, qr)
	}

	return b
}
