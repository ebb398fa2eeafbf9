package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizgrade-backend/internal/loader"
	"github.com/stemsi/quizgrade-backend/internal/middleware"
	"github.com/stemsi/quizgrade-backend/internal/model"
	"github.com/stemsi/quizgrade-backend/internal/repository"
	"github.com/stemsi/quizgrade-backend/internal/response"
	"github.com/stemsi/quizgrade-backend/internal/service"
	"github.com/stemsi/quizgrade-backend/internal/validator"
)

// maxImportBytes caps the size of an uploaded quiz document.
const maxImportBytes = 8 << 20

// QuizHandler handles quiz endpoints for students and administrators.
type QuizHandler struct {
	quizService       *service.QuizService
	submissionService *service.SubmissionService
	loader            *loader.Loader
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(quizService *service.QuizService, submissionService *service.SubmissionService, l *loader.Loader) *QuizHandler {
	return &QuizHandler{
		quizService:       quizService,
		submissionService: submissionService,
		loader:            l,
	}
}

// ListQuizzes godoc
// GET /api/v1/student/quizzes
// GET /api/v1/admin/quizzes
// Lists quizzes with question counts and total points.
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	quizzes, err := h.quizService.List(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"quizzes": quizzes})
}

// StartQuiz godoc
// GET /api/v1/student/quizzes/:quiz_id
// Returns the quiz paper without correctness flags and records the start time.
func (h *QuizHandler) StartQuiz(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	quizID, ok := uuidParam(c, "quiz_id")
	if !ok {
		return
	}

	paper, startedAt, err := h.submissionService.Start(c.Request.Context(), claims.UserID, quizID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"paper":      paper,
		"started_at": startedAt,
	})
}

// GetQuiz godoc
// GET /api/v1/admin/quizzes/:quiz_id
// Returns the full quiz including correct choices.
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	quizID, ok := uuidParam(c, "quiz_id")
	if !ok {
		return
	}

	quiz, err := h.quizService.Get(c.Request.Context(), quizID)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"quiz": quiz})
}

// CreateQuiz godoc
// POST /api/v1/admin/quizzes
// Creates a quiz with its questions and choices.
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	var req model.CreateQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	quiz := req.ToQuiz()
	if err := h.quizService.Create(c.Request.Context(), quiz); err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"quiz": quiz})
}

// ReplaceQuiz godoc
// PUT /api/v1/admin/quizzes/:quiz_id
// Replaces a quiz's metadata and questions. Refused once submissions exist.
func (h *QuizHandler) ReplaceQuiz(c *gin.Context) {
	quizID, ok := uuidParam(c, "quiz_id")
	if !ok {
		return
	}

	var req model.CreateQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	quiz := req.ToQuiz()
	quiz.ID = quizID
	if err := h.quizService.Replace(c.Request.Context(), quiz); err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"quiz": quiz})
}

// DeleteQuiz godoc
// DELETE /api/v1/admin/quizzes/:quiz_id
// Deletes a quiz with its questions and submissions.
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	quizID, ok := uuidParam(c, "quiz_id")
	if !ok {
		return
	}

	if err := h.quizService.Delete(c.Request.Context(), quizID); err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// ImportQuizzes godoc
// POST /api/v1/admin/quizzes/import?policy=upsert|replace
// Loads a JSON or YAML quiz document from the request body in one transaction.
func (h *QuizHandler) ImportQuizzes(c *gin.Context) {
	policy := repository.LoadPolicy(c.DefaultQuery("policy", string(repository.LoadPolicyUpsert)))
	if policy != repository.LoadPolicyUpsert && policy != repository.LoadPolicyReplace {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"policy": "must be upsert or replace"})
		return
	}

	format := loader.FormatJSON
	if ct := c.ContentType(); strings.Contains(ct, "yaml") {
		format = loader.FormatYAML
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	res, err := h.loader.Load(c.Request.Context(), body, format, policy)
	if err != nil {
		var (
			invalid  *loader.InvalidQuizError
			tooLarge *http.MaxBytesError
		)
		switch {
		case errors.As(err, &invalid):
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, invalid.Fields)
		case errors.Is(err, loader.ErrEmptyDocument),
			errors.Is(err, loader.ErrMalformedDocument),
			errors.As(err, &tooLarge):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		default:
			failFromError(c, err)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": res})
}
