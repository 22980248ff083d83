// Package scaffold generates the REST handlers of a resource from its schema.
//
// A Resource owns everything derived once at setup: the create and update
// body shapes, the filterable field set, the exposed-name mapping and the
// route definition. Generated handlers are collected in a table keyed by
// operation; overrides replace entries and disabled operations are left out
// before the table is mounted on a router.
package scaffold

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/conduit-lang/scaffold/internal/dto"
	"github.com/conduit-lang/scaffold/internal/web/fetch"
	"github.com/conduit-lang/scaffold/internal/web/middleware"
	"github.com/conduit-lang/scaffold/internal/web/query"
	"github.com/conduit-lang/scaffold/internal/web/request"
	"github.com/conduit-lang/scaffold/internal/web/router"
)

// Default list sizes
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ValuesFunc computes per-request values for create and update bodies
type ValuesFunc func(r *http.Request) map[string]interface{}

// Config controls which handlers are generated and how they behave
type Config struct {
	// Name used in routes, logs and docs; defaults to the resource name
	Name string
	// BasePath defaults to the pluralized snake_case resource name
	BasePath string

	// Operations is the enabled set, nil enables every operation
	Operations []router.CRUDOperation
	// Disable removes operations from the enabled set
	Disable []router.CRUDOperation

	// Shape derivation. CreateShape and UpdateShape replace the derived shapes.
	Shape       dto.Options
	CreateShape *dto.Shape
	UpdateShape *dto.Shape
	Cache       *dto.Cache

	// Filters restricts filterable fields by exposed name, nil allows all
	Filters       []string
	CustomFilters []query.CustomFilter
	// Sort is the default order, e.g. []string{"-created_at", "title"}
	Sort []string

	Paginate        bool
	DefaultLimit    int
	MaxLimit        int
	ExportBatchSize int

	// Scope restricts every read and write to what the request may see
	Scope fetch.ScopeFunc
	// Defaults fills body members the client left out on create, keyed by
	// exposed name. The values go through validation like client input.
	Defaults ValuesFunc
	// Persist forces values on create, replace and update, keyed by internal
	// field name. They bypass the body shape.
	Persist ValuesFunc

	// Overrides replace the generated handler of an operation
	Overrides router.ResourceHandlers
	// Middleware runs in front of the handler of an operation
	Middleware map[router.CRUDOperation][]middleware.Middleware

	Parser *request.Parser
	Logger *zap.Logger
}

func (c *Config) setDefaults() {
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = DefaultLimit
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = MaxLimit
	}
	if c.DefaultLimit > c.MaxLimit {
		c.DefaultLimit = c.MaxLimit
	}
	if c.Cache == nil {
		c.Cache = dto.DefaultCache()
	}
	if c.Parser == nil {
		c.Parser = request.NewParser()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}
