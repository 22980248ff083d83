// Package docs generates API documentation for mounted scaffold resources.
// It supports OpenAPI 3 (built with kin-openapi) and Markdown output, and can
// serve the OpenAPI document over HTTP.
package docs

import (
	"context"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/conduit-lang/scaffold/internal/web/scaffold"
)

// Generator orchestrates documentation generation across multiple formats
type Generator struct {
	config   *Config
	openapi  *OpenAPIGenerator
	markdown *MarkdownGenerator
}

// Config holds configuration for documentation generation
type Config struct {
	// ProjectName is the document title
	ProjectName string

	// ProjectVersion is the semantic version of the API
	ProjectVersion string

	// ProjectDescription is a short description of the API
	ProjectDescription string

	// OutputDir is the base directory for generated documentation
	OutputDir string

	// Formats specifies which formats to generate
	Formats []Format

	// BaseURL is the base URL for the API (used in OpenAPI spec)
	BaseURL string

	// ServerURLs are additional server URLs for the API
	ServerURLs []ServerURL

	// Prefix is prepended to every resource base path, e.g. "/api/v1"
	Prefix string
}

// Format represents a documentation output format
type Format string

const (
	// FormatOpenAPI generates an OpenAPI 3.0 document
	FormatOpenAPI Format = "openapi"

	// FormatMarkdown generates Markdown documentation
	FormatMarkdown Format = "markdown"
)

// ServerURL represents an API server URL in OpenAPI spec
type ServerURL struct {
	URL         string
	Description string
}

// NewGenerator creates a documentation generator
func NewGenerator(config *Config) *Generator {
	if config == nil {
		config = &Config{}
	}
	if config.ProjectName == "" {
		config.ProjectName = "API"
	}
	if config.ProjectVersion == "" {
		config.ProjectVersion = "1.0.0"
	}
	if len(config.Formats) == 0 {
		config.Formats = []Format{FormatOpenAPI}
	}

	return &Generator{
		config:   config,
		openapi:  NewOpenAPIGenerator(config),
		markdown: NewMarkdownGenerator(config),
	}
}

// Build returns the validated OpenAPI document without writing anything
func (g *Generator) Build(ctx context.Context, resources []*scaffold.Resource) (*openapi3.T, error) {
	return g.openapi.Build(ctx, resources)
}

// Generate writes every configured format to the output directory
func (g *Generator) Generate(ctx context.Context, resources []*scaffold.Resource) error {
	doc, err := g.Build(ctx, resources)
	if err != nil {
		return err
	}

	for _, format := range g.config.Formats {
		switch format {
		case FormatOpenAPI:
			if err := g.openapi.Write(doc); err != nil {
				return err
			}
		case FormatMarkdown:
			if err := g.markdown.Generate(doc, resources); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported format: %s", format)
		}
	}

	return nil
}

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatOpenAPI, FormatMarkdown:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}
