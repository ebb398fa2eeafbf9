package model

import (
	"math"
	"strings"

	"github.com/google/uuid"
)

// DefaultPoints is used when a question arrives without a point value.
const DefaultPoints = 1.0

// QuestionType enumerates how a question is answered and graded.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultiChoice  QuestionType = "MULTI_CHOICE"
	QuestionTypeCoding       QuestionType = "CODING"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeMultiChoice, QuestionTypeCoding:
		return true
	}
	return false
}

// HasChoices reports whether answers to this type select choices.
func (t QuestionType) HasChoices() bool {
	return t == QuestionTypeSingleChoice || t == QuestionTypeMultiChoice
}

// ParseQuestionType accepts canonical names and the short import tags MCQ, MSQ and CODE.
func ParseQuestionType(s string) (QuestionType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SINGLE_CHOICE", "MCQ":
		return QuestionTypeSingleChoice, true
	case "MULTI_CHOICE", "MSQ":
		return QuestionTypeMultiChoice, true
	case "CODING", "CODE":
		return QuestionTypeCoding, true
	}
	return "", false
}

// Question represents a single quiz question.
type Question struct {
	ID       uuid.UUID    `json:"id"`
	QuizID   uuid.UUID    `json:"quiz_id"`
	Text     string       `json:"question_text"`
	Type     QuestionType `json:"question_type"`
	Points   float64      `json:"points"`
	Position int          `json:"order"`
	Choices  []Choice     `json:"choices,omitempty"`
}

// Validate enforces the structural constraints of a question and its choices.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return invalid("question", "question_text", "must not be empty")
	}
	if !q.Type.Valid() {
		return invalid("question", "question_type", "unknown type "+string(q.Type))
	}
	if q.Points < 0 || math.IsNaN(q.Points) || math.IsInf(q.Points, 0) {
		return invalid("question", "points", "must be a non-negative number")
	}
	if q.Position < 0 {
		return invalid("question", "order", "must not be negative")
	}
	for i := range q.Choices {
		if err := q.Choices[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Choice returns the owned choice with the given ID.
func (q *Question) Choice(id uuid.UUID) (*Choice, bool) {
	for i := range q.Choices {
		if q.Choices[i].ID == id {
			return &q.Choices[i], true
		}
	}
	return nil, false
}

// CorrectChoiceIDs lists the IDs of every choice flagged correct, in choice order.
func (q *Question) CorrectChoiceIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, c := range q.Choices {
		if c.IsCorrect {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// Choice is one selectable option of a choice question.
type Choice struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	Text       string    `json:"choice_text"`
	IsCorrect  bool      `json:"is_correct"`
}

// MaxChoiceTextLength bounds choice text.
const MaxChoiceTextLength = 500

// Validate enforces the structural constraints of a choice.
func (c *Choice) Validate() error {
	if strings.TrimSpace(c.Text) == "" {
		return invalid("choice", "choice_text", "must not be empty")
	}
	if len(c.Text) > MaxChoiceTextLength {
		return invalid("choice", "choice_text", "too long")
	}
	return nil
}

// AddQuestionRequest is the payload for one question of a quiz.
type AddQuestionRequest struct {
	QuestionText string             `json:"question_text" yaml:"question_text" binding:"required,min=1,max=5000"`
	QuestionType string             `json:"question_type" yaml:"question_type" binding:"required,question_type"`
	Points       *float64           `json:"points" yaml:"points" binding:"omitempty,min=0"`
	Order        int                `json:"order" yaml:"order" binding:"min=0"`
	Choices      []AddChoiceRequest `json:"choices" yaml:"choices" binding:"omitempty,dive"`
}

// AddChoiceRequest is the payload for one choice.
type AddChoiceRequest struct {
	ChoiceText string `json:"choice_text" yaml:"choice_text" binding:"required,min=1,max=500"`
	IsCorrect  bool   `json:"is_correct" yaml:"is_correct"`
}

// ToQuestion converts the request into an unsaved Question.
func (r *AddQuestionRequest) ToQuestion() Question {
	qt, _ := ParseQuestionType(r.QuestionType)
	points := DefaultPoints
	if r.Points != nil {
		points = *r.Points
	}
	q := Question{
		Text:     r.QuestionText,
		Type:     qt,
		Points:   points,
		Position: r.Order,
	}
	for _, c := range r.Choices {
		q.Choices = append(q.Choices, Choice{Text: c.ChoiceText, IsCorrect: c.IsCorrect})
	}
	return q
}
