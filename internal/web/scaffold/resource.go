package scaffold

import (
	"fmt"
	"net/http"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/conduit-lang/scaffold/internal/dto"
	"github.com/conduit-lang/scaffold/internal/orm/crud"
	"github.com/conduit-lang/scaffold/internal/orm/schema"
	"github.com/conduit-lang/scaffold/internal/web/fetch"
	"github.com/conduit-lang/scaffold/internal/web/middleware"
	"github.com/conduit-lang/scaffold/internal/web/query"
	"github.com/conduit-lang/scaffold/internal/web/router"
	"github.com/conduit-lang/scaffold/internal/web/stream"
)

// Resource is the generated REST surface of one schema
type Resource struct {
	cfg      Config
	store    *crud.Operations
	schema   *schema.ResourceSchema
	def      *router.ResourceDefinition
	shapes   *dto.Shapes
	filters  *query.FieldSet
	names    *schema.NameMap
	sort     []string
	exporter *stream.Exporter
	logger   *zap.Logger
}

// New derives everything the handlers need. Configuration errors are
// reported here, never at request time.
func New(store *crud.Operations, cfg Config) (*Resource, error) {
	if store == nil {
		return nil, fmt.Errorf("scaffold: store is required")
	}
	resource := store.Resource()
	cfg.setDefaults()

	def := router.NewResourceDefinition(resource.Name)
	if cfg.Name != "" {
		def.Name = cfg.Name
	}
	if cfg.BasePath != "" {
		def.BasePath = cfg.BasePath
	}

	ops, err := enabled(cfg.Operations, cfg.Disable)
	if err != nil {
		return nil, fmt.Errorf("scaffold: %s: %w", def.Name, err)
	}
	def.Operations = ops
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("scaffold: %w", err)
	}

	for op := range cfg.Overrides {
		if op.String() == "unknown" {
			return nil, fmt.Errorf("scaffold: %s: override for unknown operation %d", def.Name, op)
		}
	}

	shapes, err := cfg.Cache.Get(resource, cfg.Shape)
	if err != nil {
		return nil, fmt.Errorf("scaffold: %w", err)
	}
	if cfg.CreateShape != nil || cfg.UpdateShape != nil {
		custom := *shapes
		if cfg.CreateShape != nil {
			custom.Create = cfg.CreateShape
			custom.Update = cfg.CreateShape.Partial("")
		}
		if cfg.UpdateShape != nil {
			custom.Update = cfg.UpdateShape
		}
		shapes = &custom
	}

	filters, err := query.NewFieldSet(resource, cfg.Filters, cfg.CustomFilters)
	if err != nil {
		return nil, fmt.Errorf("scaffold: %w", err)
	}

	sort, err := filters.SortTerms(cfg.Sort)
	if err != nil {
		return nil, fmt.Errorf("scaffold: %s: default sort: %w", def.Name, err)
	}

	r := &Resource{
		cfg:     cfg,
		store:   store,
		schema:  resource,
		def:     def,
		shapes:  shapes,
		filters: filters,
		names:   schema.NewNameMap(resource),
		sort:    sort,
		logger:  cfg.Logger.With(zap.String("resource", def.Name)),
	}
	r.exporter = &stream.Exporter{BatchSize: cfg.ExportBatchSize, Logger: r.logger}

	fetcher, err := fetch.Middleware(fetch.Options{
		Resource: def.Name,
		Store:    store,
		Param:    def.IDParamName,
		Scope:    cfg.Scope,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("scaffold: %w", err)
	}

	for op, mws := range cfg.Middleware {
		def.Middleware[op] = append(def.Middleware[op], mws...)
	}
	def.Middleware[router.OpShow] = append(def.Middleware[router.OpShow], fetcher)

	return r, nil
}

// Mount builds the resource and registers its routes on r
func Mount(r *router.Router, store *crud.Operations, cfg Config) (*Resource, error) {
	if r == nil {
		return nil, fmt.Errorf("scaffold: router is required")
	}
	res, err := New(store, cfg)
	if err != nil {
		return nil, err
	}
	if err := r.RegisterResource(res.def, res.Handlers()); err != nil {
		return nil, fmt.Errorf("scaffold: %w", err)
	}
	return res, nil
}

// enabled resolves the enabled operation set in registration order
func enabled(ops, disable []router.CRUDOperation) ([]router.CRUDOperation, error) {
	if ops == nil {
		ops = router.AllOperations
	}

	off := make(map[router.CRUDOperation]bool, len(disable))
	for _, op := range disable {
		if op.String() == "unknown" {
			return nil, fmt.Errorf("cannot disable unknown operation %d", op)
		}
		off[op] = true
	}

	on := make(map[router.CRUDOperation]bool, len(ops))
	for _, op := range ops {
		if op.String() == "unknown" {
			return nil, fmt.Errorf("unknown operation %d", op)
		}
		on[op] = true
	}

	result := make([]router.CRUDOperation, 0, len(on))
	for _, op := range router.AllOperations {
		if on[op] && !off[op] {
			result = append(result, op)
		}
	}
	return result, nil
}

// Handlers returns the handler table: generated handlers for every enabled
// operation, with overrides applied
func (r *Resource) Handlers() router.ResourceHandlers {
	generated := map[router.CRUDOperation]http.HandlerFunc{
		router.OpList:    r.list,
		router.OpShow:    r.show,
		router.OpExport:  r.export,
		router.OpCreate:  r.create,
		router.OpImport:  r.importMany,
		router.OpReplace: r.replace,
		router.OpUpdate:  r.update,
		router.OpDelete:  r.remove,
	}

	handlers := make(router.ResourceHandlers, len(r.def.Operations))
	for _, op := range r.def.Operations {
		if override, ok := r.cfg.Overrides[op]; ok && override != nil {
			handlers[op] = override
			continue
		}
		handlers[op] = generated[op]
	}
	return handlers
}

// Name returns the resource name used in routes and docs
func (r *Resource) Name() string { return r.def.Name }

// Schema returns the underlying resource schema
func (r *Resource) Schema() *schema.ResourceSchema { return r.schema }

// Store returns the data-access layer
func (r *Resource) Store() *crud.Operations { return r.store }

// Definition returns the route definition
func (r *Resource) Definition() *router.ResourceDefinition { return r.def }

// Operations returns the enabled operations
func (r *Resource) Operations() []router.CRUDOperation {
	return append([]router.CRUDOperation(nil), r.def.Operations...)
}

// Enabled reports whether op is served
func (r *Resource) Enabled(op router.CRUDOperation) bool {
	for _, candidate := range r.def.Operations {
		if candidate == op {
			return true
		}
	}
	return false
}

// Shapes returns the create and update body shapes
func (r *Resource) Shapes() *dto.Shapes { return r.shapes }

// Filters returns the filterable field set
func (r *Resource) Filters() *query.FieldSet { return r.filters }

// Names returns the exposed-name mapping
func (r *Resource) Names() *schema.NameMap { return r.names }

// Paginated reports whether list responses are paginated
func (r *Resource) Paginated() bool { return r.cfg.Paginate }

// scope evaluates the configured scope for req
func (r *Resource) scope(req *http.Request) (sq.Sqlizer, error) {
	if r.cfg.Scope == nil {
		return nil, nil
	}
	return r.cfg.Scope(req)
}

// orderBy appends the primary key to terms so LIMIT/OFFSET windows are stable
func (r *Resource) orderBy(terms []string) []string {
	if len(terms) == 0 {
		return nil
	}
	pk := r.store.PrimaryKey().ColumnName()
	for _, term := range terms {
		if strings.HasPrefix(term, pk+" ") {
			return terms
		}
	}
	return append(append([]string(nil), terms...), pk+" ASC")
}

// and combines the non-nil conditions
func and(conditions ...sq.Sqlizer) sq.Sqlizer {
	var parts sq.And
	for _, c := range conditions {
		if c != nil {
			parts = append(parts, c)
		}
	}
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	default:
		return parts
	}
}

func (r *Resource) log(req *http.Request, op router.CRUDOperation) *zap.Logger {
	return middleware.Logger(req.Context(), r.logger).With(zap.String("operation", op.String()))
}
