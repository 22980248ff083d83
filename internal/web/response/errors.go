package response

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/conduit-lang/scaffold/internal/orm/crud"
	"github.com/conduit-lang/scaffold/internal/orm/validation"
	"github.com/conduit-lang/scaffold/internal/web/query"
	"github.com/conduit-lang/scaffold/internal/web/request"
)

// ErrBadRequest marks client errors that have no more specific sentinel
var ErrBadRequest = errors.New("bad request")

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ValidationErrorResponse represents validation errors
type ValidationErrorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields"`
}

// StatusFor maps an error to the HTTP status that describes it
func StatusFor(err error) int {
	var validationErr *validation.ValidationErrors
	switch {
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, crud.ErrNotFound), errors.Is(err, crud.ErrRelatedNotFound):
		return http.StatusNotFound
	case errors.Is(err, crud.ErrInvalidID),
		errors.Is(err, crud.ErrInvalidReference),
		errors.Is(err, query.ErrInvalidFilter),
		errors.Is(err, request.ErrInvalidBody),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, crud.ErrUniqueViolation), errors.Is(err, crud.ErrForeignKeyViolation):
		return http.StatusConflict
	case errors.Is(err, crud.ErrNotNullViolation), errors.Is(err, crud.ErrCheckViolation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error renders err with the status from StatusFor. Server errors are logged
// and their message is replaced with a generic one.
func Error(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validationErr *validation.ValidationErrors
	if errors.As(err, &validationErr) {
		RenderValidationError(w, validationErr)
		return
	}

	status := StatusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed", zap.Error(err))
		}
		message = "Internal server error"
	}

	JSON(w, status, &ErrorResponse{
		Error:   errorCodeFromStatus(status),
		Message: message,
	})
}

// RenderValidationError renders validation errors
func RenderValidationError(w http.ResponseWriter, validationErr *validation.ValidationErrors) {
	JSON(w, http.StatusUnprocessableEntity, &ValidationErrorResponse{
		Error:   "validation_failed",
		Message: "The request contains invalid data",
		Fields:  validationErr.Fields,
	})
}

// RenderNotFound renders a 404 Not Found error
func RenderNotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Resource not found"
	}
	JSON(w, http.StatusNotFound, &ErrorResponse{Error: "not_found", Message: message})
}

// RenderMethodNotAllowed renders a 405 Method Not Allowed error
func RenderMethodNotAllowed(w http.ResponseWriter, method string) {
	JSON(w, http.StatusMethodNotAllowed, &ErrorResponse{
		Error:   "method_not_allowed",
		Message: "Method " + method + " is not allowed for this resource",
	})
}

// errorCodeFromStatus maps HTTP status codes to error codes
func errorCodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusNotAcceptable:
		return "not_acceptable"
	case http.StatusConflict:
		return "conflict"
	case http.StatusRequestEntityTooLarge:
		return "request_too_large"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case http.StatusInternalServerError:
		return "internal_error"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	default:
		return "error"
	}
}
