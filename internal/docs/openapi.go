package docs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/conduit-lang/scaffold/internal/web/query"
	"github.com/conduit-lang/scaffold/internal/web/router"
	"github.com/conduit-lang/scaffold/internal/web/scaffold"
)

// OpenAPIVersion is the version of the generated documents
const OpenAPIVersion = "3.0.3"

// OpenAPIGenerator generates OpenAPI 3.0 specifications
type OpenAPIGenerator struct {
	config *Config
}

// NewOpenAPIGenerator creates a new OpenAPI generator
func NewOpenAPIGenerator(config *Config) *OpenAPIGenerator {
	return &OpenAPIGenerator{
		config: config,
	}
}

// Build describes every enabled operation of resources. The document is
// validated before it is returned.
func (g *OpenAPIGenerator) Build(ctx context.Context, resources []*scaffold.Resource) (*openapi3.T, error) {
	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{
		errorSchemaName:           errorSchema().NewRef(),
		validationErrorSchemaName: validationErrorSchema().NewRef(),
	}

	doc := &openapi3.T{
		OpenAPI: OpenAPIVersion,
		Info: &openapi3.Info{
			Title:       g.config.ProjectName,
			Version:     g.config.ProjectVersion,
			Description: g.config.ProjectDescription,
		},
		Paths:      openapi3.NewPaths(),
		Components: &components,
		Servers:    g.createServers(),
	}

	for _, res := range resources {
		if err := g.addResource(doc, res); err != nil {
			return nil, err
		}
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	return doc, nil
}

// Write stores doc as openapi.json under the output directory
func (g *OpenAPIGenerator) Write(doc *openapi3.T) error {
	outputDir, err := resolveOutputDir(g.config.OutputDir)
	if err != nil {
		return err
	}

	outputPath := filepath.Join(outputDir, "openapi.json")
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal OpenAPI spec: %w", err)
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write OpenAPI spec: %w", err)
	}

	return nil
}

// createServers creates the servers section
func (g *OpenAPIGenerator) createServers() openapi3.Servers {
	var servers openapi3.Servers

	if g.config.BaseURL != "" {
		servers = append(servers, &openapi3.Server{
			URL:         g.config.BaseURL,
			Description: "Primary server",
		})
	}
	for _, server := range g.config.ServerURLs {
		servers = append(servers, &openapi3.Server{
			URL:         server.URL,
			Description: server.Description,
		})
	}

	return servers
}

func (g *OpenAPIGenerator) addResource(doc *openapi3.T, res *scaffold.Resource) error {
	name := res.Name()
	shapes := res.Shapes()

	for _, component := range []string{name, shapes.Create.Name, shapes.Update.Name} {
		if _, exists := doc.Components.Schemas[component]; exists {
			return fmt.Errorf("docs: duplicate schema name %q", component)
		}
	}

	doc.Components.Schemas[name] = recordSchema(res.Schema()).NewRef()
	record := schemaRef(name, doc.Components.Schemas[name].Value)

	create, update := record, record
	if res.Enabled(router.OpCreate) || res.Enabled(router.OpImport) || res.Enabled(router.OpReplace) {
		doc.Components.Schemas[shapes.Create.Name] = shapeSchema(shapes.Create).NewRef()
		create = schemaRef(shapes.Create.Name, doc.Components.Schemas[shapes.Create.Name].Value)
	}
	if res.Enabled(router.OpUpdate) {
		doc.Components.Schemas[shapes.Update.Name] = shapeSchema(shapes.Update).NewRef()
		update = schemaRef(shapes.Update.Name, doc.Components.Schemas[shapes.Update.Name].Value)
	}

	def := res.Definition()
	base := strings.TrimSuffix(g.config.Prefix, "/") + def.BasePath
	idParam := openapi3.NewPathParameter(def.IDParamName).
		WithDescription(fmt.Sprintf("%s identifier", name)).
		WithSchema(paramSchema(res.Store().PrimaryKey().Type))

	for _, op := range res.Operations() {
		operation := openapi3.NewOperation()
		operation.OperationID = fmt.Sprintf("%s.%s", name, op)
		operation.Tags = []string{name}
		operation.Responses = openapi3.NewResponses(
			openapi3.WithStatus(http.StatusInternalServerError, errorResponse("Internal error")),
		)
		if op.HasID() {
			operation.AddParameter(idParam)
			operation.AddResponse(http.StatusBadRequest, errorResponse("Malformed identifier or body").Value)
			operation.AddResponse(http.StatusNotFound, errorResponse(fmt.Sprintf("%s not found", name)).Value)
		}

		switch op {
		case router.OpList:
			operation.Summary = fmt.Sprintf("List %s records", name)
			g.addListParams(operation, res)
			body := arrayOf(record)
			if res.Paginated() {
				body = pageSchema(record)
			}
			operation.AddResponse(http.StatusOK, openapi3.NewResponse().WithDescription("Matching records").WithJSONSchema(body))
			operation.AddResponse(http.StatusBadRequest, errorResponse("Invalid query parameter").Value)

		case router.OpExport:
			operation.Summary = fmt.Sprintf("Export %s records", name)
			operation.Description = "Streams every matching record. Send Accept: text/csv for CSV, JSON otherwise."
			g.addFilterParams(operation, res)
			content := openapi3.NewContentWithJSONSchema(arrayOf(record))
			content["text/csv"] = openapi3.NewMediaType().WithSchema(openapi3.NewStringSchema())
			operation.AddResponse(http.StatusOK, openapi3.NewResponse().WithDescription("Matching records").WithContent(content))
			operation.AddResponse(http.StatusBadRequest, errorResponse("Invalid query parameter").Value)

		case router.OpShow:
			operation.Summary = fmt.Sprintf("Get a %s", name)
			operation.AddResponse(http.StatusOK, openapi3.NewResponse().WithDescription("The record").WithJSONSchemaRef(record))

		case router.OpCreate:
			operation.Summary = fmt.Sprintf("Create a %s", name)
			operation.RequestBody = &openapi3.RequestBodyRef{
				Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchemaRef(create),
			}
			operation.AddResponse(http.StatusCreated, openapi3.NewResponse().WithDescription("Created").WithJSONSchemaRef(record))
			addWriteErrors(operation)

		case router.OpImport:
			operation.Summary = fmt.Sprintf("Create many %s records in one transaction", name)
			operation.RequestBody = &openapi3.RequestBodyRef{
				Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(arrayOf(create)),
			}
			operation.AddResponse(http.StatusCreated, openapi3.NewResponse().WithDescription("Created").WithJSONSchema(arrayOf(record)))
			addWriteErrors(operation)

		case router.OpReplace:
			operation.Summary = fmt.Sprintf("Replace a %s", name)
			operation.RequestBody = &openapi3.RequestBodyRef{
				Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchemaRef(create),
			}
			operation.AddResponse(http.StatusOK, openapi3.NewResponse().WithDescription("Updated").WithJSONSchemaRef(record))
			addWriteErrors(operation)

		case router.OpUpdate:
			operation.Summary = fmt.Sprintf("Update a %s", name)
			operation.RequestBody = &openapi3.RequestBodyRef{
				Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchemaRef(update),
			}
			operation.AddResponse(http.StatusOK, openapi3.NewResponse().WithDescription("Updated").WithJSONSchemaRef(record))
			addWriteErrors(operation)

		case router.OpDelete:
			operation.Summary = fmt.Sprintf("Delete a %s", name)
			operation.AddResponse(http.StatusNoContent, openapi3.NewResponse().WithDescription("Deleted"))
		}

		doc.AddOperation(op.Pattern(base, def.IDParamName), op.Method(), operation)
	}

	return nil
}

// addListParams documents filters, sort and, for paginated lists, page and limit
func (g *OpenAPIGenerator) addListParams(operation *openapi3.Operation, res *scaffold.Resource) {
	g.addFilterParams(operation, res)
	if !res.Paginated() {
		return
	}
	operation.AddParameter(openapi3.NewQueryParameter(query.PageParam).
		WithDescription("1-based page number").
		WithSchema(openapi3.NewInt64Schema().WithMin(1)))
	operation.AddParameter(openapi3.NewQueryParameter(query.LimitParam).
		WithDescription("Page size, clamped to the configured maximum").
		WithSchema(openapi3.NewInt64Schema().WithMin(1)))
}

func (g *OpenAPIGenerator) addFilterParams(operation *openapi3.Operation, res *scaffold.Resource) {
	for _, param := range res.Filters().DocParams() {
		operation.AddParameter(openapi3.NewQueryParameter(param.Name).
			WithDescription(param.Description).
			WithSchema(paramSchema(param.Type)))
	}
	operation.AddParameter(openapi3.NewQueryParameter(query.SortParam).
		WithDescription("Comma-separated fields, prefix with - for descending order").
		WithSchema(openapi3.NewStringSchema()))
}

func addWriteErrors(operation *openapi3.Operation) {
	if operation.Responses.Status(http.StatusBadRequest) == nil {
		operation.AddResponse(http.StatusBadRequest, errorResponse("Malformed body").Value)
	}
	operation.AddResponse(http.StatusConflict, errorResponse("Conflicts with an existing record").Value)
	operation.AddResponse(http.StatusUnprocessableEntity, openapi3.NewResponse().
		WithDescription("Validation failed").
		WithJSONSchemaRef(schemaRef(validationErrorSchemaName, validationErrorSchema())))
}

func errorResponse(description string) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{
		Value: openapi3.NewResponse().
			WithDescription(description).
			WithJSONSchemaRef(schemaRef(errorSchemaName, errorSchema())),
	}
}

// resolveOutputDir rejects traversal and makes dir absolute
func resolveOutputDir(dir string) (string, error) {
	// Validate the output directory BEFORE making it absolute
	if containsPathTraversal(dir) {
		return "", fmt.Errorf("invalid output directory: path traversal detected")
	}

	outputDir := filepath.Clean(dir)
	if !filepath.IsAbs(outputDir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to resolve output directory: %w", err)
		}
		outputDir = filepath.Join(cwd, outputDir)
	}
	return outputDir, nil
}

// containsPathTraversal reports whether any element of path is ".."
func containsPathTraversal(path string) bool {
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return true
		}
	}
	return false
}
