package codegen

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/conduit-lang/scaffold/internal/orm/schema"
)

// DDLGenerator generates DDL statements from resource schemas
type DDLGenerator struct {
	dialect    Dialect
	typeMapper *TypeMapper
	registry   *schema.Registry
}

// NewDDLGenerator creates a generator. The registry resolves foreign key
// targets and table order.
func NewDDLGenerator(dialect Dialect, registry *schema.Registry) *DDLGenerator {
	return &DDLGenerator{
		dialect:    dialect,
		typeMapper: NewTypeMapper(dialect),
		registry:   registry,
	}
}

// GenerateCreateTable generates a CREATE TABLE statement for a resource
func (g *DDLGenerator) GenerateCreateTable(resource *schema.ResourceSchema) (string, error) {
	if resource == nil {
		return "", fmt.Errorf("resource cannot be nil")
	}

	var defs []string
	for _, field := range g.orderFields(resource) {
		def, err := g.generateColumnDefinition(field)
		if err != nil {
			return "", fmt.Errorf("resource %s: field %s: %w", resource.Name, field.Name, err)
		}
		defs = append(defs, def)
	}

	foreignKeys, err := g.generateForeignKeys(resource)
	if err != nil {
		return "", fmt.Errorf("resource %s: %w", resource.Name, err)
	}
	defs = append(defs, foreignKeys...)

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", QuoteIdentifier(resource.TableName))
	for i, def := range defs {
		b.WriteString("  ")
		b.WriteString(def)
		if i < len(defs)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(");")

	return b.String(), nil
}

// generateColumnDefinition generates a column definition for a field
func (g *DDLGenerator) generateColumnDefinition(field *schema.Field) (string, error) {
	column := QuoteIdentifier(field.ColumnName())

	if field.IsPrimary() && field.IsAuto() {
		if def, ok := g.typeMapper.MapAutoPrimaryKey(field.Type); ok {
			return column + " " + def, nil
		}
	}

	columnType, err := g.typeMapper.MapType(field.Type)
	if err != nil {
		return "", err
	}
	parts := []string{column, columnType, g.typeMapper.MapNullability(field.Type)}

	if field.IsAuto() && field.Type.BaseType == schema.TypeTimestamp {
		parts = append(parts, "DEFAULT CURRENT_TIMESTAMP")
	}

	if len(field.Type.EnumValues) > 0 {
		values := make([]string, len(field.Type.EnumValues))
		for i, v := range field.Type.EnumValues {
			values[i] = quoteLiteral(v)
		}
		parts = append(parts, fmt.Sprintf("CHECK (%s IN (%s))", column, strings.Join(values, ", ")))
	}

	switch {
	case field.IsPrimary():
		parts = append(parts, "PRIMARY KEY")
	case field.HasAnnotation(schema.AnnotationUnique):
		parts = append(parts, "UNIQUE")
	}

	return strings.Join(parts, " "), nil
}

// generateForeignKeys emits one table constraint per belongs_to relationship.
// Optional references are cleared when the target row goes away, required
// ones block the delete.
func (g *DDLGenerator) generateForeignKeys(resource *schema.ResourceSchema) ([]string, error) {
	names := make([]string, 0, len(resource.Relationships))
	for name, rel := range resource.Relationships {
		if rel.Type == schema.RelationshipBelongsTo {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	constraints := make([]string, 0, len(names))
	for _, name := range names {
		rel := resource.Relationships[name]
		local, ok := resource.Fields[rel.ForeignKey]
		if !ok {
			return nil, fmt.Errorf("relationship %s: unknown foreign key field %s", name, rel.ForeignKey)
		}

		target, ok := g.registry.Get(rel.TargetResource)
		if !ok {
			return nil, fmt.Errorf("relationship %s: unknown resource %s", name, rel.TargetResource)
		}
		targetKey, err := target.GetPrimaryKey()
		if err != nil {
			return nil, err
		}

		onDelete := "RESTRICT"
		if local.Type.Nullable {
			onDelete = "SET NULL"
		}
		constraints = append(constraints, fmt.Sprintf(
			"FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s",
			QuoteIdentifier(local.ColumnName()),
			QuoteIdentifier(target.TableName),
			QuoteIdentifier(targetKey.ColumnName()),
			onDelete,
		))
	}
	return constraints, nil
}

// orderFields puts the primary key first and keeps declaration order otherwise
func (g *DDLGenerator) orderFields(resource *schema.ResourceSchema) []*schema.Field {
	fields := resource.OrderedFields()
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].IsPrimary() && !fields[j].IsPrimary()
	})
	return fields
}

// GenerateSchema returns CREATE TABLE statements for every registered
// resource, referenced tables first
func (g *DDLGenerator) GenerateSchema() ([]string, error) {
	order, err := g.registry.GetDependencyOrder()
	if err != nil {
		return nil, fmt.Errorf("failed to order tables: %w", err)
	}

	statements := make([]string, 0, len(order))
	for _, name := range order {
		resource, _ := g.registry.Get(name)
		stmt, err := g.GenerateCreateTable(resource)
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	return statements, nil
}

// GenerateDropTable generates a DROP TABLE statement
func (g *DDLGenerator) GenerateDropTable(resource *schema.ResourceSchema) string {
	stmt := "DROP TABLE IF EXISTS " + QuoteIdentifier(resource.TableName)
	if g.dialect == DialectPostgres {
		stmt += " CASCADE"
	}
	return stmt + ";"
}

// GenerateDropSchema drops every registered table, dependents first
func (g *DDLGenerator) GenerateDropSchema() ([]string, error) {
	order, err := g.registry.GetDependencyOrder()
	if err != nil {
		return nil, fmt.Errorf("failed to order tables: %w", err)
	}

	statements := make([]string, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		resource, _ := g.registry.Get(order[i])
		statements = append(statements, g.GenerateDropTable(resource))
	}
	return statements, nil
}

// Apply runs statements in one transaction
func Apply(ctx context.Context, db *sql.DB, statements []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute %q: %w", firstLine(stmt), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}

func firstLine(stmt string) string {
	line, _, _ := strings.Cut(stmt, "\n")
	return line
}
