package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizgrade-backend/internal/middleware"
	"github.com/stemsi/quizgrade-backend/internal/model"
	"github.com/stemsi/quizgrade-backend/internal/response"
	"github.com/stemsi/quizgrade-backend/internal/service"
	"github.com/stemsi/quizgrade-backend/internal/validator"
)

// SubmissionHandler handles the student side of submissions.
type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(submissionService *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService}
}

// SubmitQuiz godoc
// POST /api/v1/student/quizzes/:quiz_id/submit
// Records the answers, auto-grades choice questions and returns the graded submission.
func (h *SubmissionHandler) SubmitQuiz(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	quizID, ok := uuidParam(c, "quiz_id")
	if !ok {
		return
	}

	var req model.SubmitQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sub, err := h.submissionService.Submit(c.Request.Context(), claims.UserID, quizID, req.Answers)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"submission_id": sub.ID,
		"status":        sub.Status,
		"score":         sub.Score,
		"ended_at":      sub.EndedAt,
	})
}

// History godoc
// GET /api/v1/student/submissions
// Lists the authenticated student's submissions, newest first.
func (h *SubmissionHandler) History(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	subs, err := h.submissionService.History(c.Request.Context(), claims.UserID)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"submissions": subs})
}

// Detail godoc
// GET /api/v1/student/submissions/:submission_id
// GET /api/v1/admin/submissions/:submission_id
// Returns the per-question breakdown. Students only see their own submissions.
func (h *SubmissionHandler) Detail(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, ok := uuidParam(c, "submission_id")
	if !ok {
		return
	}

	owner := claims.UserID
	if claims.Role == model.RoleAdmin && claims.HasPermission(string(model.PermissionSubmissionsRead)) {
		owner = 0
	}

	breakdown, err := h.submissionService.Detail(c.Request.Context(), owner, id)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"submission": breakdown})
}
