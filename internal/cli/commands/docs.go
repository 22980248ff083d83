package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/scaffold/internal/app"
	"github.com/conduit-lang/scaffold/internal/docs"
)

var (
	docsFormat      string
	docsOutput      string
	docsBaseURL     string
	docsProjectName string
	docsProjectDesc string
	docsVersion     string
)

// NewDocsCommand creates the docs command
func NewDocsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Generate API documentation",
		Long: `Generate API documentation for every resource in the models directory.

Supports multiple output formats:
  - openapi: OpenAPI 3.0 specification (JSON)
  - markdown: Markdown documentation files

Examples:
  scaffold docs generate
  scaffold docs generate --format=openapi,markdown
  scaffold docs generate --output=build/docs`,
	}

	cmd.AddCommand(NewDocsGenerateCommand())

	return cmd
}

// NewDocsGenerateCommand creates the docs generate subcommand
func NewDocsGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate API documentation",
		Long: `Generate API documentation in one or more formats.

The database is not contacted. The document describes exactly the routes
"scaffold serve" would mount with the same configuration:
  - Resource fields and relationships
  - REST endpoints with filter, sort and page parameters
  - Request and response schemas
  - Error responses`,
		RunE: runDocsGenerate,
	}

	cmd.Flags().StringVar(&docsFormat, "format", "openapi", "Output format(s): openapi, markdown (comma-separated)")
	cmd.Flags().StringVarP(&docsOutput, "output", "o", "docs", "Output directory")
	cmd.Flags().StringVar(&docsBaseURL, "base-url", "", "Base URL for the API (defaults to the server address)")
	cmd.Flags().StringVar(&docsProjectName, "name", "", "Project name (defaults to docs.title)")
	cmd.Flags().StringVar(&docsProjectDesc, "description", "", "Project description")
	cmd.Flags().StringVar(&docsVersion, "version", "", "API version (defaults to docs.version)")

	return cmd
}

func runDocsGenerate(cmd *cobra.Command, args []string) error {
	startTime := time.Now()

	successColor := color.New(color.FgGreen, color.Bold)
	infoColor := color.New(color.FgCyan)
	out := cmd.OutOrStdout()

	formats, err := parseFormats(docsFormat)
	if err != nil {
		return err
	}

	infoColor.Fprintln(out, "Generating documentation...")

	a, err := loadApp(cmd.Context(), app.Options{Offline: true})
	if err != nil {
		return err
	}
	defer a.Close()

	config := a.DocsConfig()
	config.OutputDir = docsOutput
	config.Formats = formats
	config.ProjectDescription = docsProjectDesc
	if docsProjectName != "" {
		config.ProjectName = docsProjectName
	}
	if docsVersion != "" {
		config.ProjectVersion = docsVersion
	}
	if docsBaseURL != "" {
		config.BaseURL = docsBaseURL
	}

	if err := docs.NewGenerator(config).Generate(cmd.Context(), a.Resources()); err != nil {
		return err
	}

	elapsed := time.Since(startTime)
	successColor.Fprintf(out, "✓ Documentation generated in %v\n", elapsed.Round(time.Millisecond))
	infoColor.Fprintf(out, "Output: %s\n", docsOutput)

	return nil
}

func parseFormats(formatStr string) ([]docs.Format, error) {
	var formats []docs.Format
	for _, part := range strings.Split(formatStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		format, err := docs.ParseFormat(part)
		if err != nil {
			return nil, err
		}
		formats = append(formats, format)
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("no output format given")
	}
	return formats, nil
}
