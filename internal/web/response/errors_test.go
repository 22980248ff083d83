package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conduit-lang/scaffold/internal/orm/crud"
	"github.com/conduit-lang/scaffold/internal/orm/validation"
	"github.com/conduit-lang/scaffold/internal/web/query"
	"github.com/conduit-lang/scaffold/internal/web/request"
)

func TestStatusFor(t *testing.T) {
	invalid := validation.NewValidationErrors()
	invalid.Add("title", "is required")

	tests := []struct {
		err  error
		want int
	}{
		{crud.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("failed to find Post: %w", crud.ErrNotFound), http.StatusNotFound},
		{crud.ErrRelatedNotFound, http.StatusNotFound},
		{crud.ErrInvalidID, http.StatusBadRequest},
		{crud.ErrInvalidReference, http.StatusBadRequest},
		{query.ErrInvalidFilter, http.StatusBadRequest},
		{fmt.Errorf("%w: unexpected EOF", ErrBadRequest), http.StatusBadRequest},
		{fmt.Errorf("%w: request body is empty", request.ErrInvalidBody), http.StatusBadRequest},
		{invalid, http.StatusUnprocessableEntity},
		{crud.ErrUniqueViolation, http.StatusConflict},
		{crud.ErrForeignKeyViolation, http.StatusConflict},
		{crud.ErrNotNullViolation, http.StatusUnprocessableEntity},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestErrorHidesServerErrors(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	rec := httptest.NewRecorder()

	Error(rec, errors.New("pq: password authentication failed"), zap.New(core))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body.Error)
	assert.NotContains(t, body.Message, "password")
	assert.Equal(t, 1, logs.Len())
}

func TestErrorRendersClientErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, fmt.Errorf("failed to find Post: %w", crud.ErrNotFound), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_found", body.Error)
	assert.Contains(t, body.Message, "record not found")
}

func TestErrorRendersValidationFields(t *testing.T) {
	invalid := validation.NewValidationErrors()
	invalid.Add("title", "is required")
	invalid.Add("email", "must be a valid email address")

	rec := httptest.NewRecorder()
	Error(rec, fmt.Errorf("create: %w", invalid), nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body ValidationErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation_failed", body.Error)
	assert.Equal(t, []string{"is required"}, body.Fields["title"])
	assert.Len(t, body.Fields, 2)
}

func TestNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	NoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())
}
