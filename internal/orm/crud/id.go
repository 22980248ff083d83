package crud

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/scaffold/internal/orm/schema"
)

// ParseID converts a path identifier to the primary key's Go type
func (o *Operations) ParseID(raw string) (interface{}, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidID)
	}
	id, err := schema.ParseValue(o.pk.Type, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	return id, nil
}
