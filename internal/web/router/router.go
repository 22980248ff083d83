package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/conduit-lang/scaffold/internal/web/middleware"
)

// Router manages HTTP routing using chi framework and keeps a route table
// for introspection
type Router struct {
	mux    chi.Router
	routes []*Route
}

// Route represents a single registered route
type Route struct {
	Method     string // GET, POST, etc.
	Pattern    string // /posts/{id}
	Name       string // Named route for URL generation
	Middleware int    // Number of route-level middleware

	// Resource metadata (if generated)
	ResourceName string
	Operation    CRUDOperation
}

// NewRouter creates a new Router instance
func NewRouter() *Router {
	return &Router{
		mux: chi.NewRouter(),
	}
}

// ServeHTTP implements http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Use adds router-wide middleware. chi requires this before any route is added.
func (r *Router) Use(middlewares ...middleware.Middleware) {
	r.mux.Use(toChi(middlewares)...)
}

// Handle registers handler for method and pattern behind the given middleware
func (r *Router) Handle(method, pattern string, handler http.Handler, middlewares ...middleware.Middleware) *Route {
	route := &Route{
		Method:     method,
		Pattern:    pattern,
		Middleware: len(middlewares),
		Operation:  -1,
	}

	if len(middlewares) > 0 {
		r.mux.With(toChi(middlewares)...).Method(method, pattern, handler)
	} else {
		r.mux.Method(method, pattern, handler)
	}

	r.routes = append(r.routes, route)
	return route
}

// Get registers a GET route
func (r *Router) Get(pattern string, handler http.HandlerFunc, middlewares ...middleware.Middleware) *Route {
	return r.Handle(http.MethodGet, pattern, handler, middlewares...)
}

// Post registers a POST route
func (r *Router) Post(pattern string, handler http.HandlerFunc, middlewares ...middleware.Middleware) *Route {
	return r.Handle(http.MethodPost, pattern, handler, middlewares...)
}

// Put registers a PUT route
func (r *Router) Put(pattern string, handler http.HandlerFunc, middlewares ...middleware.Middleware) *Route {
	return r.Handle(http.MethodPut, pattern, handler, middlewares...)
}

// Patch registers a PATCH route
func (r *Router) Patch(pattern string, handler http.HandlerFunc, middlewares ...middleware.Middleware) *Route {
	return r.Handle(http.MethodPatch, pattern, handler, middlewares...)
}

// Delete registers a DELETE route
func (r *Router) Delete(pattern string, handler http.HandlerFunc, middlewares ...middleware.Middleware) *Route {
	return r.Handle(http.MethodDelete, pattern, handler, middlewares...)
}

// Named sets a name for the route (for URL generation)
func (route *Route) Named(name string) *Route {
	route.Name = name
	return route
}

// WithResource sets resource metadata for the route
func (route *Route) WithResource(resourceName string, operation CRUDOperation) *Route {
	route.ResourceName = resourceName
	route.Operation = operation
	return route
}

// Routes returns a copy of the route table in registration order
func (r *Router) Routes() []Route {
	routes := make([]Route, len(r.routes))
	for i, route := range r.routes {
		routes[i] = *route
	}
	return routes
}

// GetRoute returns a route by name
func (r *Router) GetRoute(name string) (*Route, error) {
	for _, route := range r.routes {
		if route.Name == name {
			return route, nil
		}
	}
	return nil, fmt.Errorf("route not found: %s", name)
}

// URL generates a URL for a named route with parameters
func (r *Router) URL(name string, params map[string]string) (string, error) {
	route, err := r.GetRoute(name)
	if err != nil {
		return "", err
	}

	url := route.Pattern
	for key, value := range params {
		url = strings.ReplaceAll(url, "{"+key+"}", value)
	}

	if strings.Contains(url, "{") {
		return "", fmt.Errorf("missing parameter values for route: %s", name)
	}
	return url, nil
}

// NotFound sets the handler for 404 Not Found
func (r *Router) NotFound(handler http.HandlerFunc) {
	r.mux.NotFound(handler)
}

// MethodNotAllowed sets the handler for 405 Method Not Allowed
func (r *Router) MethodNotAllowed(handler http.HandlerFunc) {
	r.mux.MethodNotAllowed(handler)
}

func toChi(middlewares []middleware.Middleware) []func(http.Handler) http.Handler {
	out := make([]func(http.Handler) http.Handler, len(middlewares))
	for i, m := range middlewares {
		out[i] = m
	}
	return out
}
