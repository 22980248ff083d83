package stream

import (
	"fmt"
	"io"
	"net/http"
)

// Streamer writes a response body in pieces, flushing each one to the client
type Streamer struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

// New creates a new response streamer
func New(w http.ResponseWriter) (*Streamer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	return &Streamer{
		w:       w,
		flusher: flusher,
	}, nil
}

// Start sends the status line and headers. It is a no-op after the first call.
func (s *Streamer) Start(contentType string) {
	if s.started {
		return
	}
	s.started = true

	s.w.Header().Set("Content-Type", contentType)
	s.w.Header().Set("X-Content-Type-Options", "nosniff")
	s.w.Header().Set("Cache-Control", "no-cache")
	s.w.WriteHeader(http.StatusOK)
}

// Started reports whether headers were sent. Once they are, errors can no
// longer be reported through the status code.
func (s *Streamer) Started() bool {
	return s.started
}

// Writer returns the underlying body writer
func (s *Streamer) Writer() io.Writer {
	return s.w
}

// Write writes bytes to the stream
func (s *Streamer) Write(data []byte) (int, error) {
	return s.w.Write(data)
}

// Flush pushes buffered bytes to the client
func (s *Streamer) Flush() {
	s.flusher.Flush()
}
