// Package app wires configuration, model files, the database, event delivery
// and the generated HTTP surface into one service.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/conduit-lang/scaffold/internal/config"
	"github.com/conduit-lang/scaffold/internal/db"
	"github.com/conduit-lang/scaffold/internal/docs"
	"github.com/conduit-lang/scaffold/internal/dto"
	"github.com/conduit-lang/scaffold/internal/orm/crud"
	"github.com/conduit-lang/scaffold/internal/orm/events"
	"github.com/conduit-lang/scaffold/internal/orm/schema"
	"github.com/conduit-lang/scaffold/internal/web/middleware"
	"github.com/conduit-lang/scaffold/internal/web/profiling"
	"github.com/conduit-lang/scaffold/internal/web/ratelimit"
	"github.com/conduit-lang/scaffold/internal/web/request"
	"github.com/conduit-lang/scaffold/internal/web/router"
	"github.com/conduit-lang/scaffold/internal/web/scaffold"
)

// App is a configured service, ready to be served or described
type App struct {
	config    *config.Config
	logger    *zap.Logger
	db        *sql.DB
	ownsDB    bool
	registry  *schema.Registry
	bus       *events.Bus
	redis     *redis.Client
	limiter   ratelimit.RateLimiter
	limitDB   *redis.Client
	router    *router.Router
	resources []*scaffold.Resource
	doc       *openapi3.T
}

// Options adjusts how New builds the service
type Options struct {
	Logger *zap.Logger
	// DB replaces the configured connection. Close leaves it open.
	DB *sql.DB
	// Offline skips the database ping, for commands that only describe the API
	Offline bool
}

// New loads every model in the configured directory and mounts one scaffolded
// resource per model
func New(ctx context.Context, cfg *config.Config, opts Options) (_ *App, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := schema.NewRegistry()
	if err := schema.LoadDir(cfg.Models.Dir, registry); err != nil {
		return nil, fmt.Errorf("failed to load models: %w", err)
	}
	if registry.Count() == 0 {
		return nil, fmt.Errorf("no models found in %s", cfg.Models.Dir)
	}
	for _, warning := range registry.Warnings() {
		logger.Warn("model warning", zap.String("warning", warning))
	}

	placeholder, err := db.Placeholder(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	a := &App{
		config:   cfg,
		logger:   logger,
		db:       opts.DB,
		registry: registry,
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if a.db == nil {
		if a.db, err = a.connect(ctx, opts.Offline); err != nil {
			return nil, err
		}
		a.ownsDB = true
	}

	emitter := a.emitter()

	stack, err := a.middleware()
	if err != nil {
		return nil, err
	}
	a.router = router.NewRouter()
	a.router.Use(stack...)
	router.SetupDefaultErrorHandlers(a.router)

	parser := request.NewParserWithMaxSize(cfg.Server.MaxBodySize)
	cache := dto.NewCache()

	for _, name := range registry.List() {
		resource, _ := registry.Get(name)
		store, err := crud.NewOperations(resource, a.db, crud.Options{
			Emitter:     emitter,
			Placeholder: placeholder,
			Registry:    registry,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}

		res, err := scaffold.Mount(a.router, store, scaffold.Config{
			BasePath:        cfg.Server.APIPrefix + router.NewResourceDefinition(name).BasePath,
			Cache:           cache,
			Paginate:        cfg.CRUD.Paginate,
			DefaultLimit:    cfg.CRUD.DefaultLimit,
			MaxLimit:        cfg.CRUD.MaxLimit,
			ExportBatchSize: cfg.CRUD.ExportBatchSize,
			Parser:          parser,
			Logger:          logger,
		})
		if err != nil {
			return nil, err
		}
		a.resources = append(a.resources, res)
	}

	if cfg.Docs.Enabled {
		doc, err := a.Document(ctx)
		if err != nil {
			return nil, err
		}
		handler, err := docs.Handler(doc)
		if err != nil {
			return nil, err
		}
		a.router.Handle(http.MethodGet, cfg.Docs.Path, handler).Named("openapi")
	}

	if cfg.Server.Pprof {
		profiling.Register(a.router, profiling.DefaultConfig())
		logger.Warn("pprof endpoints enabled", zap.String("path", profiling.DefaultConfig().Path))
	}

	logger.Info("resources mounted",
		zap.Int("resources", len(a.resources)),
		zap.Int("routes", len(a.router.Routes())),
	)
	return a, nil
}

func (a *App) connect(ctx context.Context, offline bool) (*sql.DB, error) {
	cfg := db.Config{
		Driver:          a.config.Database.Driver,
		URL:             a.config.Database.URL,
		MaxOpenConns:    a.config.Database.MaxOpenConns,
		MaxIdleConns:    a.config.Database.MaxIdleConns,
		ConnMaxLifetime: a.config.Database.ConnMaxLifetime,
	}
	if offline {
		return db.Connect(cfg)
	}
	return db.Open(ctx, cfg)
}

// middleware assembles the request pipeline. CORS runs before rate limiting
// so 429 responses carry CORS headers.
func (a *App) middleware() ([]middleware.Middleware, error) {
	cfg := a.config
	stack := []middleware.Middleware{
		middleware.RequestID(),
		middleware.Recovery(a.logger),
		middleware.LoggingWithConfig(middleware.LoggingConfig{
			Logger:    a.logger,
			SkipPaths: []string{cfg.Docs.Path},
		}),
	}

	if len(cfg.Server.CORSOrigins) > 0 {
		stack = append(stack, middleware.CORS(cfg.Server.CORSOrigins...))
	}

	if cfg.RateLimit.Enabled {
		limiter, err := a.rateLimiter()
		if err != nil {
			return nil, err
		}
		a.limiter = limiter
		stack = append(stack, middleware.RateLimitWithConfig(middleware.RateLimitConfig{
			Limiter:   limiter,
			KeyFunc:   middleware.IPKeyFunc,
			SkipPaths: []string{cfg.Docs.Path},
			FailOpen:  true,
			Logger:    a.logger,
		}))
	}
	return stack, nil
}

func (a *App) rateLimiter() (ratelimit.RateLimiter, error) {
	cfg := a.config.RateLimit
	if cfg.RedisAddr == "" {
		return ratelimit.NewTokenBucketWithConfig(ratelimit.TokenBucketConfig{
			Capacity:        cfg.Requests,
			RefillRate:      cfg.Window,
			CleanupInterval: 5 * time.Minute,
		}), nil
	}

	a.limitDB = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	limiter, err := ratelimit.NewRedisRateLimiter(ratelimit.RedisRateLimiterConfig{
		Client: a.limitDB,
		Limit:  cfg.Requests,
		Window: cfg.Window,
		Prefix: "scaffold:ratelimit:",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}
	a.logger.Info("rate limiting", zap.String("redis", cfg.RedisAddr), zap.Int("requests", cfg.Requests), zap.Duration("window", cfg.Window))
	return limiter, nil
}

// emitter delivers events to in-process subscribers and, when configured,
// publishes them on Redis
func (a *App) emitter() events.Emitter {
	a.bus = events.NewBus(a.config.Events.Workers, a.logger)
	emitters := events.Multi{a.bus}

	if addr := a.config.Events.RedisAddr; addr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: addr})
		emitters = append(emitters, events.NewRedisPublisher(a.redis, a.config.Events.Channel))
		a.logger.Info("publishing events", zap.String("redis", addr), zap.String("channel", a.config.Events.Channel))
	}
	return emitters
}

// Document builds the OpenAPI description of the mounted resources. The
// result is cached.
func (a *App) Document(ctx context.Context) (*openapi3.T, error) {
	if a.doc != nil {
		return a.doc, nil
	}
	doc, err := docs.NewGenerator(a.DocsConfig()).Build(ctx, a.resources)
	if err != nil {
		return nil, err
	}
	a.doc = doc
	return doc, nil
}

// DocsConfig describes the service to the documentation generators. Resource
// paths already carry the API prefix.
func (a *App) DocsConfig() *docs.Config {
	return &docs.Config{
		ProjectName:    a.config.Docs.Title,
		ProjectVersion: a.config.Docs.Version,
		BaseURL:        "http://" + a.config.Server.Address(),
	}
}

// Handler is the root HTTP handler
func (a *App) Handler() http.Handler { return a.router }

// Router exposes the route table
func (a *App) Router() *router.Router { return a.router }

// Resources returns the mounted resources in name order
func (a *App) Resources() []*scaffold.Resource { return a.resources }

// Config returns the configuration the app was built from
func (a *App) Config() *config.Config { return a.config }

// Registry holds the loaded model schemas
func (a *App) Registry() *schema.Registry { return a.registry }

// Bus is the in-process event bus
func (a *App) Bus() *events.Bus { return a.bus }

// DB returns the database handle
func (a *App) DB() *sql.DB { return a.db }

// Close stops event delivery and releases connections the app opened
func (a *App) Close() error {
	var errs []error
	if a.bus != nil {
		a.bus.Close()
		a.bus = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
		a.redis = nil
	}
	if closer, ok := a.limiter.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.limiter = nil
	if a.limitDB != nil {
		if err := a.limitDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close rate limit redis: %w", err))
		}
		a.limitDB = nil
	}
	if a.db != nil && a.ownsDB {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
		a.db = nil
	}
	return errors.Join(errs...)
}
