package stream

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// DefaultBatchSize is used when an Exporter has no batch size
const DefaultBatchSize = 500

// BatchFunc fetches at most limit records starting at offset, in a stable order
type BatchFunc func(ctx context.Context, offset, limit int) ([]map[string]interface{}, error)

// Result summarizes an export
type Result struct {
	Records int
	Batches int
	// Aborted is set when the client went away before the last batch
	Aborted bool
}

// Exporter streams a result set batch by batch. Each batch is fetched only
// after the previous one was written, so a slow client throttles the
// database reads. No transaction spans batches.
type Exporter struct {
	BatchSize int
	Logger    *zap.Logger
}

// Export writes every record produced by fetch through enc.
// It stops after a batch shorter than the batch size, or as soon as ctx is
// done. Errors before the first byte is written leave the response untouched
// so the caller can still render an error status.
func (e *Exporter) Export(ctx context.Context, s *Streamer, enc Encoder, fetch BatchFunc) (Result, error) {
	size := e.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var result Result
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			result.Aborted = true
			logger.Info("export aborted",
				zap.Int("records", result.Records),
				zap.Int("batches", result.Batches),
				zap.Error(err))
			return result, err
		}

		batch, err := fetch(ctx, offset, size)
		if err != nil {
			return result, fmt.Errorf("fetch batch at offset %d: %w", offset, err)
		}

		if !s.Started() {
			s.Start(enc.ContentType())
			if err := enc.Begin(s.Writer()); err != nil {
				return result, err
			}
		}

		for _, record := range batch {
			if err := enc.Encode(s.Writer(), record); err != nil {
				return result, err
			}
		}
		s.Flush()

		result.Records += len(batch)
		result.Batches++

		if len(batch) < size {
			break
		}
		offset += size
	}

	if err := enc.End(s.Writer()); err != nil {
		return result, err
	}
	s.Flush()
	return result, nil
}
