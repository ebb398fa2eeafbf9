package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxTitleLength bounds quiz titles.
const MaxTitleLength = 200

// Quiz is a timed set of ordered questions. A zero time limit means untimed.
type Quiz struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	TimeLimitMinutes int        `json:"time_limit_minutes"`
	Questions        []Question `json:"questions,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Duration is the allotted time limit.
func (q *Quiz) Duration() time.Duration {
	return time.Duration(q.TimeLimitMinutes) * time.Minute
}

// Validate checks the quiz and every question it owns.
func (q *Quiz) Validate() error {
	title := strings.TrimSpace(q.Title)
	if title == "" {
		return invalid("quiz", "title", "must not be empty")
	}
	if len(title) > MaxTitleLength {
		return invalid("quiz", "title", "too long")
	}
	if q.TimeLimitMinutes < 0 {
		return invalid("quiz", "time_limit_minutes", "must not be negative")
	}
	for i := range q.Questions {
		if err := q.Questions[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Question returns the owned question with the given ID.
func (q *Quiz) Question(id uuid.UUID) (*Question, bool) {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return &q.Questions[i], true
		}
	}
	return nil, false
}

// TotalPoints sums the point values of every question.
func (q *Quiz) TotalPoints() float64 {
	total := decimal.Zero
	for _, qs := range q.Questions {
		total = total.Add(decimal.NewFromFloat(qs.Points))
	}
	return total.InexactFloat64()
}

// QuizSummary is the list view of a quiz.
type QuizSummary struct {
	ID               uuid.UUID `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	TimeLimitMinutes int       `json:"time_limit_minutes"`
	QuestionCount    int       `json:"question_count"`
	TotalPoints      float64   `json:"total_points"`
	CreatedAt        time.Time `json:"created_at"`
}

// QuizPaper is the Redis-cached payload sent to students (no correctness flags).
type QuizPaper struct {
	QuizID           uuid.UUID          `json:"quiz_id"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	TimeLimitMinutes int                `json:"time_limit_minutes"`
	Questions        []QuestionForPaper `json:"questions"`
}

// QuestionForPaper is a question without correct answers, sent to students.
type QuestionForPaper struct {
	ID       uuid.UUID        `json:"id"`
	Text     string           `json:"question_text"`
	Type     QuestionType     `json:"question_type"`
	Points   float64          `json:"points"`
	Position int              `json:"order"`
	Choices  []ChoiceForPaper `json:"choices,omitempty"`
}

// ChoiceForPaper hides the correctness flag.
type ChoiceForPaper struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"choice_text"`
}

// Paper builds the student-facing view of the quiz.
func (q *Quiz) Paper() QuizPaper {
	paper := QuizPaper{
		QuizID:           q.ID,
		Title:            q.Title,
		Description:      q.Description,
		TimeLimitMinutes: q.TimeLimitMinutes,
		Questions:        make([]QuestionForPaper, len(q.Questions)),
	}
	for i, qs := range q.Questions {
		pq := QuestionForPaper{
			ID:       qs.ID,
			Text:     qs.Text,
			Type:     qs.Type,
			Points:   qs.Points,
			Position: qs.Position,
		}
		for _, c := range qs.Choices {
			pq.Choices = append(pq.Choices, ChoiceForPaper{ID: c.ID, Text: c.Text})
		}
		paper.Questions[i] = pq
	}
	return paper
}

// CreateQuizRequest is the payload for creating or replacing a quiz.
type CreateQuizRequest struct {
	Title            string               `json:"title" yaml:"title" binding:"required,min=1,max=200"`
	Description      string               `json:"description" yaml:"description" binding:"omitempty,max=5000"`
	TimeLimitMinutes int                  `json:"time_limit_minutes" yaml:"time_limit_minutes" binding:"min=0,max=1440"`
	Questions        []AddQuestionRequest `json:"questions" yaml:"questions" binding:"required,min=1,dive"`
}

// ToQuiz converts the request into an unsaved Quiz.
func (r *CreateQuizRequest) ToQuiz() *Quiz {
	quiz := &Quiz{
		Title:            strings.TrimSpace(r.Title),
		Description:      r.Description,
		TimeLimitMinutes: r.TimeLimitMinutes,
		Questions:        make([]Question, len(r.Questions)),
	}
	for i, q := range r.Questions {
		quiz.Questions[i] = q.ToQuestion()
	}
	return quiz
}
