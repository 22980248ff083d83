package schema

import (
	"fmt"
	"strings"
)

// ValidationError represents a schema validation error with context
type ValidationError struct {
	Resource string
	Field    string
	Message  string
	Hint     string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	var b strings.Builder

	if e.Resource != "" {
		b.WriteString(e.Resource)
		if e.Field != "" {
			b.WriteString(".")
			b.WriteString(e.Field)
		}
		b.WriteString(": ")
	}

	b.WriteString(e.Message)

	if e.Hint != "" {
		b.WriteString("\n  hint: ")
		b.WriteString(e.Hint)
	}

	return b.String()
}

// SchemaValidator validates resource schemas
type SchemaValidator struct {
	errors   []*ValidationError
	warnings []string
}

// NewSchemaValidator creates a new schema validator
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{
		errors:   make([]*ValidationError, 0),
		warnings: make([]string, 0),
	}
}

// ValidateStructural validates a single resource schema without cross-resource checks.
// This is used during registration to allow forward references.
func (v *SchemaValidator) ValidateStructural(schema *ResourceSchema) error {
	v.errors = make([]*ValidationError, 0)
	v.warnings = make([]string, 0)

	if schema.TableName == "" {
		v.errors = append(v.errors, &ValidationError{
			Resource: schema.Name,
			Message:  "table name must not be empty",
		})
	}

	v.validateFieldOrder(schema)
	v.validatePrimaryKey(schema)
	v.validateFields(schema)
	v.validateExposedNames(schema)
	v.validateRelationships(schema)

	if len(v.errors) > 0 {
		var errMsgs []string
		for _, err := range v.errors {
			errMsgs = append(errMsgs, err.Error())
		}
		return fmt.Errorf("schema validation failed with %d errors:\n%s",
			len(v.errors), strings.Join(errMsgs, "\n"))
	}

	return nil
}

// validateFieldOrder makes sure every field is reachable through FieldOrder
func (v *SchemaValidator) validateFieldOrder(schema *ResourceSchema) {
	if len(schema.FieldOrder) == len(schema.Fields) {
		return
	}
	seen := make(map[string]bool, len(schema.FieldOrder))
	for _, name := range schema.FieldOrder {
		seen[name] = true
	}
	for name := range schema.Fields {
		if !seen[name] {
			schema.FieldOrder = append(schema.FieldOrder, name)
		}
	}
}

// validatePrimaryKey ensures the resource has exactly one primary key
func (v *SchemaValidator) validatePrimaryKey(schema *ResourceSchema) {
	primaryKeys := make([]*Field, 0)

	for _, field := range schema.OrderedFields() {
		if field.IsPrimary() {
			primaryKeys = append(primaryKeys, field)
		}
	}

	switch {
	case len(primaryKeys) == 0:
		v.errors = append(v.errors, &ValidationError{
			Resource: schema.Name,
			Message:  "resource must have a primary key",
			Hint:     `Tag one field as primary, e.g. crud:"primary,auto"`,
		})
	case len(primaryKeys) > 1:
		v.errors = append(v.errors, &ValidationError{
			Resource: schema.Name,
			Message:  fmt.Sprintf("resource has %d primary keys, expected 1", len(primaryKeys)),
			Hint:     "Only one field should be marked primary",
		})
	default:
		pk := primaryKeys[0]
		if pk.Type.Nullable {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    pk.Name,
				Message:  "primary key must be non-nullable",
			})
		}
		if pk.Type.IsStructured() || pk.Type.BaseType == TypeBool {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    pk.Name,
				Message:  fmt.Sprintf("%s cannot be used as a primary key", pk.Type.BaseType),
			})
		}
	}
}

// validateFields validates per-field type details
func (v *SchemaValidator) validateFields(schema *ResourceSchema) {
	for _, field := range schema.OrderedFields() {
		if field.Type == nil {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    field.Name,
				Message:  "field has no type",
			})
			continue
		}

		if field.Type.BaseType == TypeEnum && len(field.Type.EnumValues) == 0 {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    field.Name,
				Message:  "enum field must declare its values",
			})
		}

		if field.Type.BaseType == TypeArray && field.Type.ArrayElement == nil {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    field.Name,
				Message:  "array field must declare its element type",
			})
		}

		if field.Type.Length != nil && !field.Type.IsText() {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    field.Name,
				Message:  "length only applies to text types",
			})
		}

		if field.IsReadonly() && !field.Type.Nullable && !field.IsAuto() && !field.IsPrimary() {
			v.warnings = append(v.warnings,
				fmt.Sprintf("%s.%s is readonly and required; creates will rely on defaults", schema.Name, field.Name))
		}
	}
}

// validateExposedNames rejects two fields serializing to the same name
func (v *SchemaValidator) validateExposedNames(schema *ResourceSchema) {
	seen := make(map[string]string)
	for _, field := range schema.OrderedFields() {
		public := field.PublicName()
		if public == "" {
			continue
		}
		if other, exists := seen[public]; exists {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    field.Name,
				Message:  fmt.Sprintf("exposed name %q is already used by %s", public, other),
			})
			continue
		}
		seen[public] = field.Name
	}
}

// validateRelationships validates relationship definitions local to the schema
func (v *SchemaValidator) validateRelationships(schema *ResourceSchema) {
	for name, rel := range schema.Relationships {
		if rel.TargetResource == "" {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    name,
				Message:  "relationship has no target resource",
			})
			continue
		}

		if rel.Type != RelationshipBelongsTo {
			continue
		}

		fk, exists := schema.Fields[rel.ForeignKey]
		if !exists {
			v.errors = append(v.errors, &ValidationError{
				Resource: schema.Name,
				Field:    name,
				Message:  fmt.Sprintf("belongs_to foreign key %q is not a field", rel.ForeignKey),
				Hint:     "Declare the foreign key column as a field of the resource",
			})
			continue
		}

		if rel.Nullable != fk.Type.Nullable {
			v.warnings = append(v.warnings,
				fmt.Sprintf("%s.%s nullability differs from foreign key %s", schema.Name, name, fk.Name))
		}
	}
}

// Errors returns all validation errors
func (v *SchemaValidator) Errors() []*ValidationError {
	return v.errors
}

// Warnings returns all validation warnings
func (v *SchemaValidator) Warnings() []string {
	return v.warnings
}
