package schema

import (
	"fmt"
	"sort"
	"strings"
)

// RelationshipGraph represents the dependency graph between resources
type RelationshipGraph struct {
	nodes map[string]*ResourceSchema
	edges map[string][]string // resource -> dependencies
}

// NewRelationshipGraph creates a new relationship graph
func NewRelationshipGraph(schemas map[string]*ResourceSchema) *RelationshipGraph {
	graph := &RelationshipGraph{
		nodes: schemas,
		edges: make(map[string][]string),
	}

	// Build edges from belongs_to relationships
	for name, schema := range schemas {
		for _, rel := range schema.Relationships {
			// A self reference is a tree, not a dependency cycle
			if rel.Type == RelationshipBelongsTo && rel.TargetResource != name {
				graph.edges[name] = append(graph.edges[name], rel.TargetResource)
			}
		}
		sort.Strings(graph.edges[name])
	}

	return graph
}

// DetectCycles detects circular dependencies in the relationship graph
func (g *RelationshipGraph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	recursionStack := make(map[string]bool)

	var dfs func(node string, path []string) bool
	dfs = func(node string, path []string) bool {
		visited[node] = true
		recursionStack[node] = true
		path = append(path, node)

		for _, neighbor := range g.edges[node] {
			if !visited[neighbor] {
				if dfs(neighbor, path) {
					return true
				}
			} else if recursionStack[neighbor] {
				cycleStart := -1
				for i, n := range path {
					if n == neighbor {
						cycleStart = i
						break
					}
				}
				if cycleStart >= 0 {
					cycle := make([]string, len(path)-cycleStart)
					copy(cycle, path[cycleStart:])
					cycles = append(cycles, cycle)
				}
				return true
			}
		}

		recursionStack[node] = false
		return false
	}

	for _, node := range g.sortedNodes() {
		if !visited[node] {
			dfs(node, []string{})
		}
	}

	return cycles
}

// TopologicalSort returns resources in dependency order (dependencies first)
func (g *RelationshipGraph) TopologicalSort() ([]string, error) {
	outDegree := make(map[string]int)
	for node := range g.nodes {
		outDegree[node] = len(g.edges[node])
	}

	reverseEdges := make(map[string][]string)
	for source, targets := range g.edges {
		for _, target := range targets {
			reverseEdges[target] = append(reverseEdges[target], source)
		}
	}

	queue := []string{}
	for _, node := range g.sortedNodes() {
		if outDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := []string{}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		dependents := reverseEdges[node]
		sort.Strings(dependents)
		for _, dependent := range dependents {
			outDegree[dependent]--
			if outDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.nodes) {
		cycles := g.DetectCycles()
		if len(cycles) > 0 {
			return nil, fmt.Errorf("circular dependency detected: %s", formatCycles(cycles))
		}
		return nil, fmt.Errorf("circular dependency detected")
	}

	return result, nil
}

// GetDependencies returns all direct dependencies of a resource
func (g *RelationshipGraph) GetDependencies(resource string) []string {
	deps, exists := g.edges[resource]
	if !exists {
		return []string{}
	}
	return deps
}

// ValidateGraph checks for cycles and for relationships to unknown resources
func (g *RelationshipGraph) ValidateGraph() error {
	cycles := g.DetectCycles()
	if len(cycles) > 0 {
		return fmt.Errorf("circular dependencies detected:\n%s",
			formatCycles(cycles))
	}

	for _, name := range g.sortedNodes() {
		schema := g.nodes[name]
		for _, rel := range schema.Relationships {
			if _, exists := g.nodes[rel.TargetResource]; !exists {
				return fmt.Errorf("resource %s references unknown resource %s in relationship %s",
					schema.Name, rel.TargetResource, rel.FieldName)
			}
		}
	}

	return nil
}

func (g *RelationshipGraph) sortedNodes() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// formatCycles formats cycle information for error messages
func formatCycles(cycles [][]string) string {
	var b strings.Builder
	for i, cycle := range cycles {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("  Cycle %d: %s -> %s",
			i+1,
			strings.Join(cycle, " -> "),
			cycle[0]))
	}
	return b.String()
}

// RelationshipValidator validates relationships across resources
type RelationshipValidator struct {
	schemas map[string]*ResourceSchema
	errors  []error
}

// NewRelationshipValidator creates a new relationship validator
func NewRelationshipValidator(schemas map[string]*ResourceSchema) *RelationshipValidator {
	return &RelationshipValidator{
		schemas: schemas,
		errors:  make([]error, 0),
	}
}

// Validate validates all relationships
func (v *RelationshipValidator) Validate() error {
	graph := NewRelationshipGraph(v.schemas)

	if err := graph.ValidateGraph(); err != nil {
		return err
	}

	for _, name := range graph.sortedNodes() {
		schema := v.schemas[name]
		for _, rel := range schema.Relationships {
			if rel.Type == RelationshipBelongsTo {
				if err := v.validateForeignKeyType(schema, rel); err != nil {
					v.errors = append(v.errors, err)
				}
			}
		}
	}

	if len(v.errors) > 0 {
		msgs := make([]string, 0, len(v.errors))
		for _, err := range v.errors {
			msgs = append(msgs, err.Error())
		}
		return fmt.Errorf("relationship validation failed with %d errors: %s",
			len(v.errors), strings.Join(msgs, "; "))
	}

	return nil
}

// validateForeignKeyType ensures foreign key type matches target primary key
func (v *RelationshipValidator) validateForeignKeyType(schema *ResourceSchema, rel *Relationship) error {
	targetSchema, exists := v.schemas[rel.TargetResource]
	if !exists {
		return fmt.Errorf("resource %s: relationship %s references unknown resource %s",
			schema.Name, rel.FieldName, rel.TargetResource)
	}

	targetPK, err := targetSchema.GetPrimaryKey()
	if err != nil {
		return fmt.Errorf("resource %s: relationship %s target resource %s has no primary key",
			schema.Name, rel.FieldName, rel.TargetResource)
	}

	fk, exists := schema.Fields[rel.ForeignKey]
	if !exists {
		return fmt.Errorf("resource %s: relationship %s foreign key %s is not a field",
			schema.Name, rel.FieldName, rel.ForeignKey)
	}

	if keyFamily(fk.Type) != keyFamily(targetPK.Type) {
		return fmt.Errorf("resource %s: foreign key %s is %s but %s.%s is %s",
			schema.Name, fk.Name, fk.Type.BaseType, targetSchema.Name, targetPK.Name, targetPK.Type.BaseType)
	}

	return nil
}

// keyFamily groups primitive types that may reference each other
func keyFamily(t *TypeSpec) string {
	switch {
	case t.IsInteger():
		return "integer"
	case t.BaseType == TypeUUID:
		return "uuid"
	default:
		return "text"
	}
}

// Errors returns all validation errors
func (v *RelationshipValidator) Errors() []error {
	return v.errors
}
