package docs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/conduit-lang/scaffold/internal/dto"
	"github.com/conduit-lang/scaffold/internal/orm/schema"
	"github.com/conduit-lang/scaffold/internal/web/scaffold"
)

// MarkdownGenerator generates Markdown documentation
type MarkdownGenerator struct {
	config *Config
}

// NewMarkdownGenerator creates a new Markdown generator
func NewMarkdownGenerator(config *Config) *MarkdownGenerator {
	return &MarkdownGenerator{
		config: config,
	}
}

// Generate writes README.md and one page per resource under markdown/
func (g *MarkdownGenerator) Generate(doc *openapi3.T, resources []*scaffold.Resource) error {
	root, err := resolveOutputDir(g.config.OutputDir)
	if err != nil {
		return err
	}
	outputDir := filepath.Join(root, "markdown")
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(outputDir, "README.md"), []byte(g.Index(doc, resources)), 0644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}

	for _, res := range resources {
		page := g.Resource(doc, res)
		path := filepath.Join(outputDir, pageName(res))
		if err := os.WriteFile(path, []byte(page), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", res.Name(), err)
		}
	}

	return nil
}

// Index renders the table of contents
func (g *MarkdownGenerator) Index(doc *openapi3.T, resources []*scaffold.Resource) string {
	var buf strings.Builder

	buf.WriteString(fmt.Sprintf("# %s API Documentation\n\n", doc.Info.Title))
	if doc.Info.Description != "" {
		buf.WriteString(fmt.Sprintf("%s\n\n", doc.Info.Description))
	}
	buf.WriteString(fmt.Sprintf("**Version:** v%s\n\n", doc.Info.Version))

	buf.WriteString("## Resources\n\n")
	for _, res := range resources {
		buf.WriteString(fmt.Sprintf("- [%s](%s)\n", res.Name(), pageName(res)))
	}
	buf.WriteString("\n")

	buf.WriteString("### Base URL\n\n")
	if len(doc.Servers) > 0 {
		buf.WriteString(fmt.Sprintf("```\n%s\n```\n\n", doc.Servers[0].URL))
	} else {
		buf.WriteString("```\nhttp://localhost:3000\n```\n\n")
	}

	return buf.String()
}

// Resource renders the page of one resource
func (g *MarkdownGenerator) Resource(doc *openapi3.T, res *scaffold.Resource) string {
	var buf strings.Builder
	resource := res.Schema()

	buf.WriteString(fmt.Sprintf("# %s\n\n", res.Name()))
	if resource.Documentation != "" {
		buf.WriteString(fmt.Sprintf("> %s\n\n", resource.Documentation))
	}

	buf.WriteString("## Fields\n\n")
	buf.WriteString("| Name | Type | Writable | Description |\n")
	buf.WriteString("|------|------|----------|-------------|\n")
	for _, field := range resource.OrderedFields() {
		name := field.PublicName()
		if name == "" {
			continue
		}
		writable := "No"
		if dto.Writable(field) {
			writable = "Yes"
		}
		buf.WriteString(fmt.Sprintf("| `%s` | `%s` | %s | %s |\n",
			name, field.Type, writable, orDash(field.Documentation)))
	}
	buf.WriteString("\n")

	if rels := relationships(resource); len(rels) > 0 {
		buf.WriteString("## Relationships\n\n")
		for _, rel := range rels {
			buf.WriteString(fmt.Sprintf("- `%s`: %s %s", rel.FieldName, rel.Type, rel.TargetResource))
			if rel.ForeignKey != "" {
				buf.WriteString(fmt.Sprintf(" via `%s`", rel.ForeignKey))
			}
			buf.WriteString("\n")
		}
		buf.WriteString("\n")
	}

	buf.WriteString("## Endpoints\n\n")
	def := res.Definition()
	base := strings.TrimSuffix(g.config.Prefix, "/") + def.BasePath
	for _, op := range res.Operations() {
		path := op.Pattern(base, def.IDParamName)
		item := doc.Paths.Value(path)
		if item == nil {
			continue
		}
		operation := item.GetOperation(op.Method())
		if operation == nil {
			continue
		}
		g.writeEndpoint(&buf, op.Method(), path, operation)
	}

	return buf.String()
}

// writeEndpoint writes a single endpoint to the buffer
func (g *MarkdownGenerator) writeEndpoint(buf *strings.Builder, method, path string, operation *openapi3.Operation) {
	buf.WriteString(fmt.Sprintf("### %s\n\n", operation.Summary))

	buf.WriteString("```http\n")
	buf.WriteString(fmt.Sprintf("%s %s\n", method, path))
	buf.WriteString("```\n\n")

	if operation.Description != "" {
		buf.WriteString(fmt.Sprintf("%s\n\n", operation.Description))
	}

	if len(operation.Parameters) > 0 {
		buf.WriteString("**Parameters:**\n\n")
		buf.WriteString("| Name | In | Type | Required | Description |\n")
		buf.WriteString("|------|-------|------|----------|-------------|\n")
		for _, ref := range operation.Parameters {
			param := ref.Value
			required := "No"
			if param.Required {
				required = "Yes"
			}
			buf.WriteString(fmt.Sprintf("| `%s` | %s | `%s` | %s | %s |\n",
				param.Name, param.In, schemaLabel(param.Schema), required, orDash(param.Description)))
		}
		buf.WriteString("\n")
	}

	if body := operation.RequestBody; body != nil && body.Value != nil {
		if media := body.Value.Content.Get("application/json"); media != nil {
			buf.WriteString(fmt.Sprintf("**Request Body:** `%s`\n\n", schemaLabel(media.Schema)))
		}
	}

	buf.WriteString("**Responses:**\n\n")
	responses := operation.Responses.Map()
	codes := make([]string, 0, len(responses))
	for code := range responses {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		description := ""
		if d := responses[code].Value.Description; d != nil {
			description = *d
		}
		buf.WriteString(fmt.Sprintf("- **%s** %s\n", code, description))
	}
	buf.WriteString("\n")
}

// schemaLabel names a schema the way a reader scans it: the component name
// for references, the type and format otherwise
func schemaLabel(ref *openapi3.SchemaRef) string {
	if ref == nil {
		return "-"
	}
	if ref.Ref != "" {
		return strings.TrimPrefix(ref.Ref, "#/components/schemas/")
	}
	s := ref.Value
	if s == nil || s.Type == nil || len(s.Type.Slice()) == 0 {
		return "any"
	}
	label := s.Type.Slice()[0]
	if s.Type.Is(openapi3.TypeArray) && s.Items != nil {
		label = schemaLabel(s.Items) + "[]"
	}
	if s.Format != "" {
		label += " (" + s.Format + ")"
	}
	return label
}

func relationships(resource *schema.ResourceSchema) []*schema.Relationship {
	rels := make([]*schema.Relationship, 0, len(resource.Relationships))
	for _, rel := range resource.Relationships {
		rels = append(rels, rel)
	}
	sort.Slice(rels, func(i, j int) bool { return rels[i].FieldName < rels[j].FieldName })
	return rels
}

func pageName(res *scaffold.Resource) string {
	return schema.ToSnakeCase(res.Name()) + ".md"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
