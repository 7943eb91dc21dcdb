package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sorteops/relatorio/internal/edition"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInternal       = errors.New("internal_error")
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// RequestError pairs a sentinel with the human-readable text returned to the
// caller. The sentinel picks the status code, the text goes on the wire.
type RequestError struct {
	Kind    error
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Kind
}

func requestError(kind error, message string) error {
	return &RequestError{Kind: kind, Message: message}
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, message := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Success: false, Error: message})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, string) {
	message := err.Error()

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		message = reqErr.Message
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, message
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, message
	case errors.Is(err, edition.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, message
	case errors.Is(err, edition.ErrScheduleViolation):
		return http.StatusConflict, message
	case errors.Is(err, edition.ErrUnknownCode):
		return http.StatusUnprocessableEntity, message
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
