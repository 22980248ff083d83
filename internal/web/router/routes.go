package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/conduit-lang/scaffold/internal/orm/schema"
	"github.com/conduit-lang/scaffold/internal/web/middleware"
)

// CRUDOperation represents a REST operation type
type CRUDOperation int

const (
	// OpList represents the list/index operation (GET /)
	OpList CRUDOperation = iota
	// OpShow represents the show/read operation (GET /{id})
	OpShow
	// OpExport streams the whole filtered collection (GET /export)
	OpExport
	// OpCreate represents the create operation (POST /)
	OpCreate
	// OpImport creates many records at once (POST /import)
	OpImport
	// OpReplace represents the full update operation (PUT /{id})
	OpReplace
	// OpUpdate represents the partial update operation (PATCH /{id})
	OpUpdate
	// OpDelete represents the delete operation (DELETE /{id})
	OpDelete
)

// AllOperations lists every operation in registration order
var AllOperations = []CRUDOperation{OpList, OpExport, OpShow, OpCreate, OpImport, OpReplace, OpUpdate, OpDelete}

// String returns the string representation of CRUDOperation
func (o CRUDOperation) String() string {
	switch o {
	case OpList:
		return "list"
	case OpShow:
		return "show"
	case OpExport:
		return "export"
	case OpCreate:
		return "create"
	case OpImport:
		return "import"
	case OpReplace:
		return "replace"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ParseOperation converts a name such as "list" or "delete" to an operation
func ParseOperation(name string) (CRUDOperation, error) {
	for _, op := range AllOperations {
		if op.String() == strings.ToLower(strings.TrimSpace(name)) {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown operation: %q", name)
}

// Method returns the HTTP method serving the operation
func (o CRUDOperation) Method() string {
	switch o {
	case OpCreate, OpImport:
		return http.MethodPost
	case OpReplace:
		return http.MethodPut
	case OpUpdate:
		return http.MethodPatch
	case OpDelete:
		return http.MethodDelete
	default:
		return http.MethodGet
	}
}

// Pattern returns the route pattern of the operation under basePath
func (o CRUDOperation) Pattern(basePath, idParam string) string {
	switch o {
	case OpList, OpCreate:
		return basePath
	case OpExport:
		return basePath + "/export"
	case OpImport:
		return basePath + "/import"
	default:
		return fmt.Sprintf("%s/{%s}", basePath, idParam)
	}
}

// HasID reports whether the operation addresses a single record
func (o CRUDOperation) HasID() bool {
	switch o {
	case OpShow, OpReplace, OpUpdate, OpDelete:
		return true
	}
	return false
}

// ResourceDefinition represents a resource that can be registered with the router
type ResourceDefinition struct {
	Name        string                                     // Resource name (e.g., "Post")
	BasePath    string                                     // Base path (e.g., "/api/posts")
	IDParamName string                                     // ID parameter name (default: "id")
	Operations  []CRUDOperation                            // Enabled operations
	Middleware  map[CRUDOperation][]middleware.Middleware // Middleware per operation
}

// NewResourceDefinition creates a new resource definition with defaults
func NewResourceDefinition(name string) *ResourceDefinition {
	return &ResourceDefinition{
		Name:        name,
		BasePath:    "/" + schema.Pluralize(schema.ToSnakeCase(name)),
		IDParamName: "id",
		Operations:  append([]CRUDOperation(nil), AllOperations...),
		Middleware:  make(map[CRUDOperation][]middleware.Middleware),
	}
}

// ResourceHandlers maps each operation to its handler
type ResourceHandlers map[CRUDOperation]http.Handler

// Validate checks that all required handlers are present
func (h ResourceHandlers) Validate(operations []CRUDOperation) error {
	for _, op := range operations {
		if h[op] == nil {
			return fmt.Errorf("missing handler for operation: %s", op)
		}
	}
	return nil
}

// Validate checks the definition before any route is registered
func (def *ResourceDefinition) Validate() error {
	if def.Name == "" {
		return fmt.Errorf("resource name is required")
	}
	if !strings.HasPrefix(def.BasePath, "/") || strings.HasSuffix(def.BasePath, "/") {
		return fmt.Errorf("resource %s: base path %q must start with / and not end with /", def.Name, def.BasePath)
	}
	if def.IDParamName == "" {
		return fmt.Errorf("resource %s: id parameter name is required", def.Name)
	}

	seen := make(map[CRUDOperation]bool, len(def.Operations))
	for _, op := range def.Operations {
		if op.String() == "unknown" {
			return fmt.Errorf("resource %s: unknown operation %d", def.Name, op)
		}
		if seen[op] {
			return fmt.Errorf("resource %s: operation %s listed twice", def.Name, op)
		}
		seen[op] = true
	}
	return nil
}

// RegisterResource registers REST routes for a resource
func (r *Router) RegisterResource(def *ResourceDefinition, handlers ResourceHandlers) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if err := handlers.Validate(def.Operations); err != nil {
		return fmt.Errorf("invalid handlers: %w", err)
	}

	for _, op := range def.Operations {
		route := r.Handle(op.Method(), op.Pattern(def.BasePath, def.IDParamName), handlers[op], def.Middleware[op]...)
		route.WithResource(def.Name, op).Named(fmt.Sprintf("%s.%s", def.Name, op))
	}
	return nil
}

// RouteList returns a formatted list of all routes
func (r *Router) RouteList() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-8s %-40s %-20s\n", "METHOD", "PATTERN", "NAME"))
	sb.WriteString(strings.Repeat("-", 70) + "\n")

	for _, route := range r.routes {
		sb.WriteString(fmt.Sprintf("%-8s %-40s %-20s\n", route.Method, route.Pattern, route.Name))
	}
	return sb.String()
}
