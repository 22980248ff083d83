package router

import (
	"net/http"

	"github.com/conduit-lang/scaffold/internal/web/response"
)

// SetupDefaultErrorHandlers answers unknown routes and methods with JSON
// bodies shaped like every other error response
func SetupDefaultErrorHandlers(r *Router) {
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		response.RenderNotFound(w, "The requested resource was not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		response.RenderMethodNotAllowed(w, req.Method)
	})
}
