package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizgrade-backend/internal/grading"
	"github.com/stemsi/quizgrade-backend/internal/middleware"
	"github.com/stemsi/quizgrade-backend/internal/response"
	"github.com/stemsi/quizgrade-backend/internal/service"
	ws "github.com/stemsi/quizgrade-backend/internal/websocket"
)

// wsOpTimeout bounds the work done for a single client message.
const wsOpTimeout = 10 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a quiz attempt: autosave drafts, then submit.
type WSHandler struct {
	submissionService *service.SubmissionService
	log               zerolog.Logger
	upgrader          websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(submissionService *service.SubmissionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		submissionService: submissionService,
		log:               log.With().Str("component", "ws_handler").Logger(),
		upgrader:          buildUpgrader(allowedOrigins),
	}
}

// QuizStream godoc
// WS /ws/v1/student/quizzes/:quiz_id/stream
// Upgrades to WebSocket for answer autosave and submission.
func (h *WSHandler) QuizStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	quizID, ok := uuidParam(c, "quiz_id")
	if !ok {
		return
	}

	// Start before upgrading so an unknown quiz is a plain 404.
	paper, startedAt, err := h.submissionService.Start(c.Request.Context(), claims.UserID, quizID)
	if err != nil {
		failFromError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	ws.Prepare(conn)

	userID := claims.UserID
	wsLog := h.log.With().
		Int("user_id", userID).
		Str("quiz_id", quizID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")
	_ = ws.WriteTyped(conn, ws.StartedResponse{Event: ws.EventStarted, StartedAt: startedAt.Unix(), Paper: paper})

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, wsLog, userID, quizID, &msg)
		case ws.ActionSubmit:
			if h.handleSubmit(conn, wsLog, userID, quizID) {
				_ = ws.CloseNormal(conn, "submitted")
				return
			}
		case ws.ActionPing:
			_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			_ = ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

// handleAutosave stores a single draft answer in Redis.
func (h *WSHandler) handleAutosave(conn *websocket.Conn, log zerolog.Logger, userID int, quizID uuid.UUID, msg *ws.RequestPayload) {
	if msg.QuestionID == uuid.Nil {
		_ = ws.WriteError(conn, "question_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), wsOpTimeout)
	defer cancel()

	if err := h.submissionService.SaveDraft(ctx, userID, quizID, msg.Answer()); err != nil {
		if errors.Is(err, service.ErrUnknownDraftQuestion) {
			_ = ws.WriteError(conn, "question does not belong to this quiz")
			return
		}
		log.Error().Err(err).Msg("Autosave failed")
		_ = ws.WriteError(conn, "save failed")
		return
	}

	_ = ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, QuestionID: msg.QuestionID})
}

// handleSubmit grades the autosaved drafts. It reports whether the attempt
// is over.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, log zerolog.Logger, userID int, quizID uuid.UUID) bool {
	ctx, cancel := context.WithTimeout(context.Background(), wsOpTimeout)
	defer cancel()

	sub, err := h.submissionService.SubmitDrafts(ctx, userID, quizID)
	if err != nil {
		if errors.Is(err, grading.ErrDanglingReference) {
			_ = ws.WriteError(conn, "an answer references a question or choice outside this quiz")
			return false
		}
		log.Error().Err(err).Msg("Submit failed")
		_ = ws.WriteError(conn, "submit failed")
		return false
	}

	_ = ws.WriteTyped(conn, ws.GradedResponse{
		Event:        ws.EventGraded,
		SubmissionID: sub.ID,
		Status:       sub.Status,
		Score:        *sub.Score,
	})
	return true
}
