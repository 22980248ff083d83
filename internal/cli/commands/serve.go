package commands

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/scaffold/internal/app"
	"github.com/conduit-lang/scaffold/internal/config"
	"github.com/conduit-lang/scaffold/internal/logging"
	"github.com/conduit-lang/scaffold/internal/web/server"
)

var (
	servePort int
	serveHost string
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API",
		Long: `Load every model in the models directory and serve its REST API.

The serve command will:
  1. Connect to the configured database
  2. Mount list, show, create, import, replace, update, delete and export
     routes for each model
  3. Serve the OpenAPI document (docs.path)
  4. Drain requests and release connections on SIGINT or SIGTERM

Examples:
  scaffold serve
  scaffold serve --port 8080
  scaffold serve --config config/scaffold.yaml`,
		RunE: runServe,
	}

	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides server.port)")
	cmd.Flags().StringVar(&serveHost, "host", "", "Host to bind (overrides server.host)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	successColor := color.New(color.FgGreen, color.Bold)
	infoColor := color.New(color.FgCyan)
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveHost
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, app.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer a.Close()

	srvConfig := server.DefaultConfig(a.Handler())
	srvConfig.Address = cfg.Server.Address()
	srvConfig.ReadTimeout = cfg.Server.ReadTimeout
	srvConfig.WriteTimeout = cfg.Server.WriteTimeout
	srvConfig.Logger = logger

	srv, err := server.New(srvConfig)
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	shutdown := server.NewGracefulShutdown(srv, &server.ShutdownConfig{
		Timeout: cfg.Server.ShutdownTimeout,
		Logger:  logger,
	})
	shutdown.RegisterHook(func(context.Context) error {
		return a.Close()
	})

	successColor.Fprintf(out, "✓ Serving %d resources on http://%s\n", len(a.Resources()), srv.Addr())
	if cfg.Docs.Enabled {
		infoColor.Fprintf(out, "OpenAPI: http://%s%s\n", srv.Addr(), cfg.Docs.Path)
	}
	infoColor.Fprintln(out, "Press Ctrl+C to stop")

	logger.Info("server started", zap.String("addr", srv.Addr()))
	if err := shutdown.Run(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
