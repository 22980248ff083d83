// Package crud is the base data-access service for schema-described resources.
// Records travel as maps keyed by internal field name; SQL is built with
// squirrel, so the same code serves PostgreSQL and SQLite.
package crud

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/conduit-lang/scaffold/internal/orm/events"
	"github.com/conduit-lang/scaffold/internal/orm/schema"
)

// Operation represents a CRUD operation type
type Operation int

const (
	OperationCreate Operation = iota
	OperationRead
	OperationUpdate
	OperationDelete
)

// String returns the string representation of the operation
func (o Operation) String() string {
	switch o {
	case OperationCreate:
		return "create"
	case OperationRead:
		return "read"
	case OperationUpdate:
		return "update"
	case OperationDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// queryer is satisfied by *sql.DB and *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Options configure an Operations instance
type Options struct {
	// Emitter receives created/updated/deleted events after commit
	Emitter events.Emitter
	// Placeholder is sq.Question (default) or sq.Dollar
	Placeholder sq.PlaceholderFormat
	// Registry resolves belongs_to targets so references can be checked before writes
	Registry *schema.Registry
	Logger   *zap.Logger
}

// Query selects a window of records
type Query struct {
	Where   sq.Sqlizer // nil matches everything
	OrderBy []string   // ORDER BY terms, defaults to the primary key
	Limit   uint64     // 0 means no limit
	Offset  uint64
}

// Operations provides CRUD operations for a resource
type Operations struct {
	resource *schema.ResourceSchema
	pk       *schema.Field
	db       *sql.DB
	builder  sq.StatementBuilderType
	emitter  events.Emitter
	registry *schema.Registry
	logger   *zap.Logger
	columns  []string
}

// NewOperations creates a new Operations instance
func NewOperations(resource *schema.ResourceSchema, db *sql.DB, opts Options) (*Operations, error) {
	if resource == nil {
		return nil, fmt.Errorf("crud: resource is nil")
	}
	if db == nil {
		return nil, fmt.Errorf("crud: %s: database is nil", resource.Name)
	}
	pk, err := resource.GetPrimaryKey()
	if err != nil {
		return nil, fmt.Errorf("crud: %w", err)
	}

	placeholder := opts.Placeholder
	if placeholder == nil {
		placeholder = sq.Question
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	emitter := opts.Emitter
	if emitter == nil {
		emitter = events.Nop{}
	}

	return &Operations{
		resource: resource,
		pk:       pk,
		db:       db,
		builder:  sq.StatementBuilder.PlaceholderFormat(placeholder),
		emitter:  emitter,
		registry: opts.Registry,
		logger:   logger.With(zap.String("resource", resource.Name)),
		columns:  resource.Columns(),
	}, nil
}

// Resource returns the resource schema
func (o *Operations) Resource() *schema.ResourceSchema {
	return o.resource
}

// PrimaryKey returns the primary key field
func (o *Operations) PrimaryKey() *schema.Field {
	return o.pk
}

// DB returns the database connection
func (o *Operations) DB() *sql.DB {
	return o.db
}

// byID matches the primary key, narrowed by scope when given
func (o *Operations) byID(id interface{}, scope sq.Sqlizer) sq.Sqlizer {
	where := sq.Eq{o.pk.ColumnName(): id}
	if scope == nil {
		return where
	}
	return sq.And{where, scope}
}

func (o *Operations) emit(ctx context.Context, t events.Type, id interface{}, record, previous map[string]interface{}) {
	event := events.Event{
		Type:     t,
		Resource: o.resource.Name,
		ID:       id,
		Record:   record,
		Previous: previous,
		At:       now(),
	}
	if err := o.emitter.Emit(ctx, event); err != nil {
		o.logger.Warn("event delivery failed",
			zap.String("event", string(t)),
			zap.Any("id", id),
			zap.Error(err))
	}
}
