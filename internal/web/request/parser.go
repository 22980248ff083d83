package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// ErrInvalidBody is returned for request bodies that cannot be decoded
var ErrInvalidBody = errors.New("invalid request body")

// DefaultMaxBodySize bounds request bodies when no limit is configured
const DefaultMaxBodySize = 10 << 20

// Parser handles parsing of JSON request bodies
type Parser struct {
	maxBodySize int64 // Maximum size for request bodies (in bytes)
}

// NewParser creates a new request parser with default settings
func NewParser() *Parser {
	return NewParserWithMaxSize(DefaultMaxBodySize)
}

// NewParserWithMaxSize creates a parser with a custom max body size
func NewParserWithMaxSize(maxBytes int64) *Parser {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}
	return &Parser{
		maxBodySize: maxBytes,
	}
}

// Object decodes a body holding a single JSON object. Numbers are kept as
// json.Number so integer members survive without float rounding.
func (p *Parser) Object(w http.ResponseWriter, r *http.Request) (map[string]interface{}, error) {
	var body map[string]interface{}
	if err := p.ParseJSON(w, r, &body); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidBody)
	}
	return body, nil
}

// Array decodes a body holding a JSON array of objects
func (p *Parser) Array(w http.ResponseWriter, r *http.Request) ([]map[string]interface{}, error) {
	var rows []map[string]interface{}
	if err := p.ParseJSON(w, r, &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrInvalidBody)
	}
	for i, row := range rows {
		if row == nil {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrInvalidBody, i)
		}
	}
	return rows, nil
}

// ParseJSON parses a JSON request body into target
func (p *Parser) ParseJSON(w http.ResponseWriter, r *http.Request, target interface{}) error {
	if contentType := r.Header.Get("Content-Type"); contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "application/json" {
			return fmt.Errorf("%w: unsupported content type %q", ErrInvalidBody, contentType)
		}
	}

	// Limit body size to prevent DoS attacks
	r.Body = http.MaxBytesReader(w, r.Body, p.maxBodySize)
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()

	if err := decoder.Decode(target); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is empty", ErrInvalidBody)
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: request body exceeds %d bytes", ErrInvalidBody, maxErr.Limit)
		default:
			return fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
	}

	// Check if there's additional data after the JSON value
	if decoder.More() {
		return fmt.Errorf("%w: request body contains multiple JSON values", ErrInvalidBody)
	}

	return nil
}
