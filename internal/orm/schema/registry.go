package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages all resource schemas in the application
type Registry struct {
	schemas   map[string]*ResourceSchema
	validator *SchemaValidator
	mu        sync.RWMutex
}

// NewRegistry creates a new schema registry
func NewRegistry() *Registry {
	return &Registry{
		schemas:   make(map[string]*ResourceSchema),
		validator: NewSchemaValidator(),
	}
}

// Register registers a new resource schema
func (r *Registry) Register(schema *ResourceSchema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[schema.Name]; exists {
		return fmt.Errorf("resource %s is already registered", schema.Name)
	}

	// Relationship targets are checked in ValidateAll to allow forward references
	if err := r.validator.ValidateStructural(schema); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", schema.Name, err)
	}

	r.schemas[schema.Name] = schema
	return nil
}

// MustRegister registers a schema and panics on error. Intended for package init.
func (r *Registry) MustRegister(schema *ResourceSchema) {
	if err := r.Register(schema); err != nil {
		panic(err)
	}
}

// Get retrieves a resource schema by name
func (r *Registry) Get(name string) (*ResourceSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schema, exists := r.schemas[name]
	return schema, exists
}

// All returns a copy of all registered schemas
func (r *Registry) All() map[string]*ResourceSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*ResourceSchema, len(r.schemas))
	for k, v := range r.schemas {
		result[k] = v
	}
	return result
}

// List returns the sorted names of all registered resources
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateAll performs cross-resource validation on all registered schemas
func (r *Registry) ValidateAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	graph := NewRelationshipGraph(r.schemas)

	cycles := graph.DetectCycles()
	if len(cycles) > 0 {
		return fmt.Errorf("circular dependencies detected:\n%s", formatCycles(cycles))
	}

	relValidator := NewRelationshipValidator(r.schemas)
	if err := relValidator.Validate(); err != nil {
		return fmt.Errorf("relationship validation failed: %w", err)
	}

	return nil
}

// GetDependencyOrder returns resources in dependency order (referenced resources first)
func (r *Registry) GetDependencyOrder() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	graph := NewRelationshipGraph(r.schemas)
	return graph.TopologicalSort()
}

// Count returns the number of registered schemas
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.schemas)
}

// Exists checks if a resource schema exists
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.schemas[name]
	return exists
}

// Warnings returns the warnings of the most recent registration
func (r *Registry) Warnings() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.validator.Warnings()
}
