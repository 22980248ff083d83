// Package fetch loads the record addressed by a route's id parameter before
// the handler runs.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/conduit-lang/scaffold/internal/orm/crud"
	webcontext "github.com/conduit-lang/scaffold/internal/web/context"
	"github.com/conduit-lang/scaffold/internal/web/middleware"
	"github.com/conduit-lang/scaffold/internal/web/response"
)

// Store is the part of the data-access layer the interceptor needs.
// *crud.Operations implements it.
type Store interface {
	ParseID(raw string) (interface{}, error)
	FindByID(ctx context.Context, id interface{}, scope sq.Sqlizer) (map[string]interface{}, error)
}

// ScopeFunc narrows lookups to what the current request may see
type ScopeFunc func(r *http.Request) (sq.Sqlizer, error)

// Options configure the interceptor
type Options struct {
	Resource string
	Store    Store
	// Param is the route parameter holding the id, "id" by default
	Param  string
	Scope  ScopeFunc
	Logger *zap.Logger
}

// Middleware resolves the id parameter to a record. A malformed id is
// answered with 400, a missing or out-of-scope record with 404.
func Middleware(opts Options) (middleware.Middleware, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("fetch: store is required")
	}
	if opts.Param == "" {
		opts.Param = "id"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	logger := opts.Logger.With(zap.String("resource", opts.Resource))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := opts.Store.ParseID(chi.URLParam(r, opts.Param))
			if err != nil {
				response.Error(w, err, logger)
				return
			}

			var scope sq.Sqlizer
			if opts.Scope != nil {
				if scope, err = opts.Scope(r); err != nil {
					response.Error(w, err, middleware.Logger(r.Context(), logger))
					return
				}
			}

			entity, err := opts.Store.FindByID(r.Context(), id, scope)
			if err != nil {
				if errors.Is(err, crud.ErrNotFound) {
					response.RenderNotFound(w, fmt.Sprintf("%s not found", opts.Resource))
					return
				}
				response.Error(w, err, middleware.Logger(r.Context(), logger))
				return
			}

			next.ServeHTTP(w, r.WithContext(webcontext.SetEntity(r.Context(), entity)))
		})
	}, nil
}

// FromContext returns the record loaded by Middleware
func FromContext(ctx context.Context) (map[string]interface{}, bool) {
	return webcontext.GetEntity(ctx)
}

// MustFromContext is FromContext for handlers that only run behind Middleware
func MustFromContext(ctx context.Context) map[string]interface{} {
	entity, ok := FromContext(ctx)
	if !ok {
		panic("fetch: no entity in context")
	}
	return entity
}

// As decodes the record loaded by Middleware into a model struct whose
// fields carry db tags
func As[T any](ctx context.Context) (*T, error) {
	entity, ok := FromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("fetch: no entity in context")
	}
	return crud.DecodeRecord[T](entity)
}
