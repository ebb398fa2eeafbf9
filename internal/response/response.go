package response

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every endpoint replies with. Exactly one of Data
// and Error is meaningful.
type Response struct {
	Data       interface{} `json:"data"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Metadata   Metadata    `json:"metadata"`
}

// ErrorBody carries a machine-readable code and, for validation failures,
// the offending fields keyed by their JSON path.
type ErrorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Pagination describes one page of a list.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes the page count for total items.
func NewPagination(page, perPage int, total int64) *Pagination {
	p := &Pagination{Page: page, PerPage: perPage, TotalItems: int(total)}
	if perPage > 0 {
		p.TotalPages = (p.TotalItems + perPage - 1) / perPage
	}
	return p
}

// Metadata ties a response to its request for log correlation.
type Metadata struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// Success replies with data.
func Success(c *gin.Context, statusCode int, data interface{}) {
	send(c, statusCode, Response{Data: data})
}

// SuccessWithPagination replies with one page of a list.
func SuccessWithPagination(c *gin.Context, statusCode int, data interface{}, pagination *Pagination) {
	send(c, statusCode, Response{Data: data, Pagination: pagination})
}

// Fail replies with an error code.
func Fail(c *gin.Context, statusCode int, code ErrCode) {
	send(c, statusCode, Response{Error: errorBody(code, nil)})
}

// FailWithFields replies with an error code and per-field reasons.
func FailWithFields(c *gin.Context, statusCode int, code ErrCode, fields map[string]string) {
	send(c, statusCode, Response{Error: errorBody(code, fields)})
}

// AbortFail replies with an error code and stops the handler chain.
func AbortFail(c *gin.Context, statusCode int, code ErrCode) {
	c.Abort()
	Fail(c, statusCode, code)
}

func errorBody(code ErrCode, fields map[string]string) *ErrorBody {
	return &ErrorBody{Code: code, Message: GetMessage(code), Fields: fields}
}

func send(c *gin.Context, statusCode int, r Response) {
	r.Metadata = Metadata{
		RequestID: RequestID(c),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	c.JSON(statusCode, r)
}
