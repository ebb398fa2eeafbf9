package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizgrade-backend/internal/model"
	"github.com/stemsi/quizgrade-backend/internal/response"
	"github.com/stemsi/quizgrade-backend/internal/service"
	"github.com/stemsi/quizgrade-backend/internal/validator"
)

// ReviewHandler handles manual grading and finalization.
type ReviewHandler struct {
	reviewService *service.ReviewService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// ListAwaiting godoc
// GET /api/v1/admin/submissions/awaiting
// Lists submissions waiting for manual grading with pagination.
func (h *ReviewHandler) ListAwaiting(c *gin.Context) {
	page, perPage := pageParams(c)

	subs, pagination, err := h.reviewService.ListAwaiting(c.Request.Context(), page, perPage)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"submissions": subs}, pagination)
}

// GradeAnswer godoc
// PATCH /api/v1/admin/submissions/:submission_id/answers/:answer_id
// Awards points and feedback on a coding answer.
func (h *ReviewHandler) GradeAnswer(c *gin.Context) {
	submissionID, ok := uuidParam(c, "submission_id")
	if !ok {
		return
	}
	answerID, ok := uuidParam(c, "answer_id")
	if !ok {
		return
	}

	var req model.GradeAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	answer, err := h.reviewService.GradeAnswer(c.Request.Context(), submissionID, answerID, *req.Points, req.Feedback)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"answer": answer})
}

// Finalize godoc
// POST /api/v1/admin/submissions/:submission_id/finalize
// Computes the final score of a reviewed submission and completes it.
func (h *ReviewHandler) Finalize(c *gin.Context) {
	submissionID, ok := uuidParam(c, "submission_id")
	if !ok {
		return
	}

	var req model.FinalizeRequest
	if c.Request.ContentLength > 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	score, err := h.reviewService.Finalize(c.Request.Context(), submissionID, req.Force)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"submission_id": submissionID,
		"status":        model.SubmissionStatusCompleted,
		"score":         score,
	})
}

// BulkFinalize godoc
// POST /api/v1/admin/submissions/finalize
// Queues several submissions for background finalization.
func (h *ReviewHandler) BulkFinalize(c *gin.Context) {
	var req model.BulkFinalizeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.reviewService.EnqueueFinalize(c.Request.Context(), req.SubmissionIDs, req.Force); err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"queued": len(req.SubmissionIDs)})
}
