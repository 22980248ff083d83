package scaffold

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/conduit-lang/scaffold/internal/orm/crud"
	"github.com/conduit-lang/scaffold/internal/web/response"
	"github.com/conduit-lang/scaffold/internal/web/router"
	"github.com/conduit-lang/scaffold/internal/web/stream"
)

// export handles GET /export. Records are read in batches of
// ExportBatchSize and written as they arrive; a client that disconnects
// stops further reads.
func (r *Resource) export(w http.ResponseWriter, req *http.Request) {
	logger := r.log(req, router.OpExport)

	where, order, err := r.selection(req)
	if err != nil {
		response.Error(w, err, logger)
		return
	}
	if order == nil {
		order = []string{r.store.PrimaryKey().ColumnName() + " ASC"}
	}

	s, err := stream.New(w)
	if err != nil {
		response.Error(w, err, logger)
		return
	}

	enc := r.encoder(req)
	fetch := func(ctx context.Context, offset, limit int) ([]map[string]interface{}, error) {
		records, err := r.store.Find(ctx, crud.Query{
			Where:   where,
			OrderBy: order,
			Limit:   uint64(limit),
			Offset:  uint64(offset),
		})
		if err != nil {
			return nil, err
		}
		return r.names.ExposeRecords(records), nil
	}

	result, err := r.exporter.Export(req.Context(), s, enc, fetch)
	switch {
	case err == nil:
		logger.Debug("export finished",
			zap.Int("records", result.Records),
			zap.Int("batches", result.Batches))
	case errors.Is(err, context.Canceled):
		// client went away, Export already logged it
	case !s.Started():
		response.Error(w, err, logger)
	default:
		logger.Error("export failed mid-stream", zap.Error(err), zap.Int("records", result.Records))
	}
}

// encoder picks CSV when the client asks for text/csv, JSON otherwise
func (r *Resource) encoder(req *http.Request) stream.Encoder {
	for _, part := range strings.Split(req.Header.Get("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mediaType == "text/csv" {
			return stream.NewCSVEncoder(r.names.ExposedNames())
		}
	}
	return stream.NewJSONEncoder()
}
