// Package profiling mounts the runtime pprof endpoints on the service router.
//
// Profiles expose goroutine stacks and heap contents. Enable them only on
// servers that are not reachable from the public internet.
package profiling

import (
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/conduit-lang/scaffold/internal/web/router"
)

// Config holds profiling configuration
type Config struct {
	// Path is the URL path prefix for profiling endpoints (default: "/debug/pprof")
	Path string

	// BlockRate sets the block profiling rate (0 = disabled)
	BlockRate int

	// MutexFraction sets the mutex profiling fraction (0 = disabled)
	MutexFraction int
}

// DefaultConfig returns default profiling configuration
func DefaultConfig() *Config {
	return &Config{
		Path:          "/debug/pprof",
		BlockRate:     1,
		MutexFraction: 1,
	}
}

// profiles are served through pprof.Handler
var profiles = []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"}

// Register adds GET routes for every pprof endpoint, named "pprof.<endpoint>"
func Register(r *router.Router, config *Config) {
	if config == nil {
		config = DefaultConfig()
	}
	prefix := config.Path
	if prefix == "" {
		prefix = DefaultConfig().Path
	}

	runtime.SetBlockProfileRate(config.BlockRate)
	runtime.SetMutexProfileFraction(config.MutexFraction)

	r.Get(prefix+"/", pprof.Index).Named("pprof.index")
	r.Get(prefix+"/cmdline", pprof.Cmdline).Named("pprof.cmdline")
	r.Get(prefix+"/profile", pprof.Profile).Named("pprof.profile")
	r.Get(prefix+"/symbol", pprof.Symbol).Named("pprof.symbol")
	r.Get(prefix+"/trace", pprof.Trace).Named("pprof.trace")

	for _, name := range profiles {
		r.Handle(http.MethodGet, prefix+"/"+name, pprof.Handler(name)).Named("pprof." + name)
	}
}
