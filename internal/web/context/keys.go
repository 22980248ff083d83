package context

import "context"

// contextKey is a custom type for context keys to avoid collisions
type contextKey int

const (
	requestIDKey contextKey = iota
	entityKey
)

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// SetRequestID adds the request ID to the context
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetEntity extracts the record loaded for the current request
func GetEntity(ctx context.Context) (map[string]interface{}, bool) {
	entity, ok := ctx.Value(entityKey).(map[string]interface{})
	return entity, ok
}

// SetEntity attaches a loaded record to the context
func SetEntity(ctx context.Context, entity map[string]interface{}) context.Context {
	return context.WithValue(ctx, entityKey, entity)
}
