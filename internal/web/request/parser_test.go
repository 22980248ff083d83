package request

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(body, contentType string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func TestObject(t *testing.T) {
	parser := NewParser()

	body, err := parser.Object(httptest.NewRecorder(), newRequest(`{"title":"Hello","views":9007199254740993}`, "application/json; charset=utf-8"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", body["title"])
	assert.Equal(t, json.Number("9007199254740993"), body["views"])
}

func TestObjectErrors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		want        string
	}{
		{"empty", "", "application/json", "empty"},
		{"malformed", `{"title":`, "application/json", "invalid request body"},
		{"array", `[{"title":"x"}]`, "application/json", "invalid request body"},
		{"null", `null`, "application/json", "expected a JSON object"},
		{"trailing value", `{"a":1}{"b":2}`, "application/json", "multiple JSON values"},
		{"form", `title=x`, "application/x-www-form-urlencoded", "unsupported content type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().Object(httptest.NewRecorder(), newRequest(tt.body, tt.contentType))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidBody))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestArray(t *testing.T) {
	rows, err := NewParser().Array(httptest.NewRecorder(), newRequest(`[{"title":"a"},{"title":"b"}]`, ""))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = NewParser().Array(httptest.NewRecorder(), newRequest(`[{"title":"a"},null]`, ""))
	assert.ErrorIs(t, err, ErrInvalidBody)

	_, err = NewParser().Array(httptest.NewRecorder(), newRequest(`{"title":"a"}`, ""))
	assert.ErrorIs(t, err, ErrInvalidBody)
}

func TestMaxBodySize(t *testing.T) {
	parser := NewParserWithMaxSize(16)
	_, err := parser.Object(httptest.NewRecorder(), newRequest(`{"title":"a much longer title than allowed"}`, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 16 bytes")
}
