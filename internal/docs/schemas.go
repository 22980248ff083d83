package docs

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/conduit-lang/scaffold/internal/dto"
	"github.com/conduit-lang/scaffold/internal/orm/schema"
)

// Component schema names shared by every resource
const (
	errorSchemaName           = "Error"
	validationErrorSchemaName = "ValidationError"
)

func schemaRef(name string, value *openapi3.Schema) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, value)
}

// typeSchema maps a field type to its JSON schema
func typeSchema(t *schema.TypeSpec) *openapi3.Schema {
	var s *openapi3.Schema

	switch t.BaseType {
	case schema.TypeString, schema.TypeText:
		s = openapi3.NewStringSchema()
		if t.Length != nil {
			s.WithMaxLength(int64(*t.Length))
		}
	case schema.TypeEmail:
		s = openapi3.NewStringSchema().WithFormat("email")
	case schema.TypeURL:
		s = openapi3.NewStringSchema().WithFormat("uri")
	case schema.TypeUUID:
		s = openapi3.NewUUIDSchema()
	case schema.TypeInt:
		s = openapi3.NewIntegerSchema()
	case schema.TypeBigInt:
		s = openapi3.NewInt64Schema()
	case schema.TypeFloat, schema.TypeDecimal:
		s = openapi3.NewFloat64Schema()
	case schema.TypeBool:
		s = openapi3.NewBoolSchema()
	case schema.TypeTimestamp:
		s = openapi3.NewDateTimeSchema()
	case schema.TypeDate:
		s = openapi3.NewStringSchema().WithFormat("date")
	case schema.TypeEnum:
		s = openapi3.NewStringSchema().WithEnum(enumValues(t.EnumValues)...)
	case schema.TypeArray:
		s = openapi3.NewArraySchema()
		if t.ArrayElement != nil {
			s.WithItems(typeSchema(t.ArrayElement))
		} else {
			s.WithItems(openapi3.NewSchema())
		}
	default:
		// json holds any value
		s = openapi3.NewSchema()
	}

	if t.Nullable {
		s.WithNullable()
	}
	return s
}

// recordSchema describes a record as clients see it
func recordSchema(resource *schema.ResourceSchema) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	if resource.Documentation != "" {
		s.Description = resource.Documentation
	}

	var required []string
	for _, field := range resource.OrderedFields() {
		name := field.PublicName()
		if name == "" {
			continue
		}
		prop := typeSchema(field.Type)
		prop.Description = field.Documentation
		if field.IsPrimary() || field.IsAuto() || field.IsReadonly() {
			prop.ReadOnly = true
		}
		s.WithProperty(name, prop)
		if !field.Type.Nullable {
			required = append(required, name)
		}
	}
	if len(required) > 0 {
		s.WithRequired(required)
	}
	return s
}

// ruleSchema maps a body rule to its JSON schema
func ruleSchema(rule dto.Rule) *openapi3.Schema {
	var s *openapi3.Schema

	switch rule.Kind {
	case dto.KindString:
		s = openapi3.NewStringSchema()
		switch rule.Format {
		case dto.FormatURL:
			s.WithFormat("uri")
		case "":
		default:
			s.WithFormat(rule.Format)
		}
	case dto.KindInteger:
		s = openapi3.NewInt64Schema()
	case dto.KindNumber:
		s = openapi3.NewFloat64Schema()
	case dto.KindBoolean:
		s = openapi3.NewBoolSchema()
	case dto.KindDate:
		s = openapi3.NewStringSchema().WithFormat(rule.Format)
	case dto.KindEnum:
		s = openapi3.NewStringSchema().WithEnum(enumValues(rule.Enum)...)
	case dto.KindArray:
		s = openapi3.NewArraySchema()
		if rule.Items != nil {
			s.WithItems(ruleSchema(*rule.Items))
		} else {
			s.WithItems(openapi3.NewSchema())
		}
	default:
		s = openapi3.NewSchema()
	}

	s.Description = rule.Description
	if rule.Nullable {
		s.WithNullable()
	}
	return s
}

// shapeSchema describes a create or update body
func shapeSchema(shape *dto.Shape) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	var required []string
	for _, rule := range shape.Rules {
		s.WithProperty(rule.Name, ruleSchema(rule))
		if rule.Required {
			required = append(required, rule.Name)
		}
	}
	if len(required) > 0 {
		s.WithRequired(required)
	}
	return s
}

// paramSchema is the schema of a query parameter. Range bounds and contains
// terms are plain values of the field type, never null.
func paramSchema(t *schema.TypeSpec) *openapi3.Schema {
	plain := *t
	plain.Nullable = false
	return typeSchema(&plain)
}

func errorSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema()).
		WithProperty("message", openapi3.NewStringSchema()).
		WithRequired([]string{"error", "message"})
}

func validationErrorSchema() *openapi3.Schema {
	fields := openapi3.NewObjectSchema().
		WithAdditionalProperties(openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema()))
	return openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema()).
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("fields", fields).
		WithRequired([]string{"error", "message", "fields"})
}

func pageSchema(item *openapi3.SchemaRef) *openapi3.Schema {
	data := openapi3.NewArraySchema()
	data.Items = item
	return openapi3.NewObjectSchema().
		WithProperty("data", data).
		WithProperty("page", openapi3.NewInt64Schema()).
		WithProperty("limit", openapi3.NewInt64Schema()).
		WithProperty("total", openapi3.NewInt64Schema()).
		WithProperty("totalPages", openapi3.NewInt64Schema()).
		WithRequired([]string{"data", "page", "limit", "total", "totalPages"})
}

func arrayOf(item *openapi3.SchemaRef) *openapi3.Schema {
	s := openapi3.NewArraySchema()
	s.Items = item
	return s
}

func enumValues(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
