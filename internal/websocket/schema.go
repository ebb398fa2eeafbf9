package websocket

import (
	"github.com/google/uuid"
	"github.com/stemsi/quizgrade-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestPayload carries every client action; unused fields stay empty.
type RequestPayload struct {
	Action     Action      `json:"action"`
	QuestionID uuid.UUID   `json:"question_id,omitempty"`
	ChoiceIDs  []uuid.UUID `json:"choice_ids,omitempty"`
	Code       string      `json:"code,omitempty"`
}

// Answer converts an autosave payload into a draft answer.
func (p *RequestPayload) Answer() model.SubmitAnswerRequest {
	return model.SubmitAnswerRequest{QuestionID: p.QuestionID, ChoiceIDs: p.ChoiceIDs, Code: p.Code}
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError   Event = "error"
	EventStarted Event = "started"
	EventSaved   Event = "saved"
	EventGraded  Event = "graded"
	EventPong    Event = "pong"
)

// StartedResponse is sent once the connection is open.
type StartedResponse struct {
	Event     Event            `json:"event"`
	StartedAt int64            `json:"started_at"`
	Paper     *model.QuizPaper `json:"paper"`
}

type SavedResponse struct {
	Event      Event     `json:"event"`
	QuestionID uuid.UUID `json:"question_id"`
}

type GradedResponse struct {
	Event        Event                  `json:"event"`
	SubmissionID uuid.UUID              `json:"submission_id"`
	Status       model.SubmissionStatus `json:"status"`
	Score        float64                `json:"score"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
