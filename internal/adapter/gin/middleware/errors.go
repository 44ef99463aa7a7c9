package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	pkgerrors "reactive-user-service/pkg/errors"
	"reactive-user-service/pkg/logger"
	"reactive-user-service/pkg/validation"
)

// Response messages
const (
	MsgEmailRegistered    = "E-mail already registered"
	MsgEmailDuplicate     = "E-mail duplicate Key Exception"
	MsgValidationError    = "Validation Error"
	MsgValidationMessage  = "Error validation attributes"
	MsgMalformedBody      = "Malformed request body"
	MsgInternalError      = "An internal error occurred"
	MsgRateLimitExceeded  = "Rate limit exceeded"
	emailDuplicateKeyHint = "email dup key"
)

// StandardError is the body of every error response
type StandardError struct {
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
}

// ValidationError adds the per-field violations to StandardError
type ValidationError struct {
	StandardError
	Errors []validation.FieldError `json:"errors"`
}

// BadRequestError marks a request the handler could not decode. Binding
// validation failures are reported separately with field details.
type BadRequestError struct {
	Err error
}

func (e *BadRequestError) Error() string { return e.Err.Error() }
func (e *BadRequestError) Unwrap() error { return e.Err }

// NewStandardError builds a StandardError for the current request
func NewStandardError(c *gin.Context, status int, message string) StandardError {
	return StandardError{
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
	}
}

// ErrorHandler maps the last error recorded with c.Error to a JSON response.
// Handlers record the error and return without writing.
func ErrorHandler(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		if fields := validation.Fields(err); fields != nil {
			body := ValidationError{
				StandardError: NewStandardError(c, http.StatusBadRequest, MsgValidationMessage),
				Errors:        fields,
			}
			body.Error = MsgValidationError
			c.JSON(http.StatusBadRequest, body)
			return
		}

		var (
			notFound   *pkgerrors.ObjectNotFoundError
			duplicate  *pkgerrors.DuplicateKeyError
			badRequest *BadRequestError
			internal   *pkgerrors.InternalError
		)
		switch {
		case errors.As(err, &notFound):
			c.JSON(http.StatusNotFound, NewStandardError(c, http.StatusNotFound, notFound.Error()))
		case errors.As(err, &duplicate):
			c.JSON(http.StatusBadRequest, NewStandardError(c, http.StatusBadRequest, duplicateKeyMessage(duplicate.Error())))
		case errors.As(err, &badRequest):
			c.JSON(http.StatusBadRequest, NewStandardError(c, http.StatusBadRequest, MsgMalformedBody))
		case errors.As(err, &internal):
			// already logged by the usecase with its cause
			c.JSON(http.StatusInternalServerError, NewStandardError(c, http.StatusInternalServerError, MsgInternalError))
		default:
			logger.WithContext(c.Request.Context(), log).Error("unhandled request error",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, NewStandardError(c, http.StatusInternalServerError, MsgInternalError))
		}
	}
}

func duplicateKeyMessage(message string) string {
	if strings.Contains(message, emailDuplicateKeyHint) {
		return MsgEmailRegistered
	}
	return MsgEmailDuplicate
}
