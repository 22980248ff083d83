package commands

import (
	"context"
	"net/http"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/scaffold/internal/app"
	"github.com/conduit-lang/scaffold/internal/cli/ui"
	"github.com/conduit-lang/scaffold/internal/config"
)

var (
	routesResource string
	routesNoColor  bool
)

// NewRoutesCommand creates the routes command
func NewRoutesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the routes serve would mount",
		Long: `List every route generated from the models directory.

The database is not contacted.

Examples:
  scaffold routes
  scaffold routes --resource Post`,
		RunE: runRoutes,
	}

	cmd.Flags().StringVarP(&routesResource, "resource", "r", "", "Only show routes of this resource")
	cmd.Flags().BoolVar(&routesNoColor, "no-color", false, "Disable colored output")

	return cmd
}

func runRoutes(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Context(), app.Options{Offline: true})
	if err != nil {
		return err
	}
	defer a.Close()

	table := ui.NewTable(cmd.OutOrStdout(), []string{"METHOD", "PATTERN", "NAME"}, &ui.TableOptions{
		NoColor:   routesNoColor,
		Highlight: highlightMethod,
	})
	for _, route := range a.Router().Routes() {
		if routesResource != "" && !strings.EqualFold(route.ResourceName, routesResource) {
			continue
		}
		table.AddRow(route.Method, route.Pattern, route.Name)
	}
	table.Render()

	return nil
}

func highlightMethod(column int, cell string) *color.Color {
	if column != 0 {
		return nil
	}
	switch cell {
	case http.MethodGet:
		return color.New(color.FgGreen)
	case http.MethodPost:
		return color.New(color.FgYellow)
	case http.MethodPut, http.MethodPatch:
		return color.New(color.FgBlue)
	case http.MethodDelete:
		return color.New(color.FgRed)
	default:
		return nil
	}
}

// loadApp builds the service from the --config file
func loadApp(ctx context.Context, opts app.Options) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, opts)
}
