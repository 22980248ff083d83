package dto

import (
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/conduit-lang/scaffold/internal/orm/schema"
)

// Shapes pairs the create and update shapes of a resource
type Shapes struct {
	Create *Shape
	Update *Shape
}

// Cache holds derived shapes for the life of the process
type Cache struct {
	shapes cmap.ConcurrentMap[string, *Shapes]
}

// NewCache creates an empty shape cache
func NewCache() *Cache {
	return &Cache{shapes: cmap.New[*Shapes]()}
}

var defaultCache = NewCache()

// DefaultCache returns the process-wide cache
func DefaultCache() *Cache { return defaultCache }

// Get returns the cached shapes for resource and opts, deriving them on first use.
// Concurrent first calls may both derive; the first stored result wins.
func (c *Cache) Get(resource *schema.ResourceSchema, opts Options) (*Shapes, error) {
	key := resource.Name + "/" + opts.key()
	if shapes, ok := c.shapes.Get(key); ok {
		return shapes, nil
	}

	create, err := Derive(resource, opts)
	if err != nil {
		return nil, err
	}
	shapes := &Shapes{Create: create, Update: create.Partial("")}

	c.shapes.SetIfAbsent(key, shapes)
	stored, _ := c.shapes.Get(key)
	return stored, nil
}

// Count returns the number of cached shape pairs
func (c *Cache) Count() int {
	return c.shapes.Count()
}
