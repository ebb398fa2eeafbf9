package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/quizgrade-backend/internal/grading"
	"github.com/stemsi/quizgrade-backend/internal/model"
	"github.com/stemsi/quizgrade-backend/internal/repository"
	"github.com/stemsi/quizgrade-backend/internal/response"
	"github.com/stemsi/quizgrade-backend/internal/service"
)

// failFromError maps domain and storage errors onto the response envelope.
// Unknown errors become a 500.
func failFromError(c *gin.Context, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{ve.Field: ve.Reason})
	case errors.Is(err, repository.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, repository.ErrConflict):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	case errors.Is(err, repository.ErrQuizHasSubmissions):
		response.Fail(c, http.StatusConflict, response.ErrDependencyExists)
	case errors.Is(err, grading.ErrInvalidStateTransition):
		response.Fail(c, http.StatusConflict, response.ErrInvalidStateTransition)
	case errors.Is(err, service.ErrNotFullyGraded):
		response.Fail(c, http.StatusConflict, response.ErrNotFullyGraded)
	case errors.Is(err, grading.ErrPointsOutOfRange):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrPointsOutOfRange)
	case errors.Is(err, grading.ErrNotManuallyGraded):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrNotManuallyGraded)
	case errors.Is(err, grading.ErrDanglingReference),
		errors.Is(err, service.ErrUnknownDraftQuestion):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrDanglingReference)
	case errors.Is(err, service.ErrDuplicateAnswer):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"answers": err.Error()})
	case errors.Is(err, service.ErrNotSubmissionOwner):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// uuidParam parses a UUID path parameter, replying 400 when malformed.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	return page, perPage
}
