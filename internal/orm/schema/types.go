// Package schema provides type definitions for the resource schemas that drive CRUD scaffolding.
// A ResourceSchema describes one persisted entity: its fields with explicit nullability,
// its primary key, auto-generated and readonly markers, exposure rules and relationships.
package schema

import (
	"fmt"
	"strings"
)

// PrimitiveType represents the built-in primitive types a field can hold
type PrimitiveType int

const (
	// Text types
	TypeString PrimitiveType = iota
	TypeText

	// Numeric types
	TypeInt
	TypeBigInt
	TypeFloat
	TypeDecimal

	// Boolean
	TypeBool

	// Time types
	TypeTimestamp
	TypeDate

	// Unique identifiers
	TypeUUID

	// Validated types
	TypeEmail
	TypeURL

	// Structured types
	TypeJSON
	TypeArray

	// Enum
	TypeEnum
)

// String returns the string representation of the primitive type
func (p PrimitiveType) String() string {
	switch p {
	case TypeString:
		return "string"
	case TypeText:
		return "text"
	case TypeInt:
		return "int"
	case TypeBigInt:
		return "bigint"
	case TypeFloat:
		return "float"
	case TypeDecimal:
		return "decimal"
	case TypeBool:
		return "bool"
	case TypeTimestamp:
		return "timestamp"
	case TypeDate:
		return "date"
	case TypeUUID:
		return "uuid"
	case TypeEmail:
		return "email"
	case TypeURL:
		return "url"
	case TypeJSON:
		return "json"
	case TypeArray:
		return "array"
	case TypeEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// ParsePrimitiveType converts a string to a PrimitiveType
func ParsePrimitiveType(s string) (PrimitiveType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string":
		return TypeString, nil
	case "text":
		return TypeText, nil
	case "int", "integer":
		return TypeInt, nil
	case "bigint":
		return TypeBigInt, nil
	case "float", "number":
		return TypeFloat, nil
	case "decimal":
		return TypeDecimal, nil
	case "bool", "boolean":
		return TypeBool, nil
	case "timestamp", "datetime":
		return TypeTimestamp, nil
	case "date":
		return TypeDate, nil
	case "uuid":
		return TypeUUID, nil
	case "email":
		return TypeEmail, nil
	case "url":
		return TypeURL, nil
	case "json", "jsonb":
		return TypeJSON, nil
	case "array":
		return TypeArray, nil
	case "enum":
		return TypeEnum, nil
	default:
		return 0, fmt.Errorf("unknown primitive type: %s", s)
	}
}

// TypeSpec represents a complete type specification with nullability
type TypeSpec struct {
	BaseType PrimitiveType // The base primitive type
	Nullable bool          // true when NULL is an accepted value

	ArrayElement *TypeSpec // For array<T>
	EnumValues   []string  // For enum types

	Length *int // For string(N)
}

// String returns a string representation of the TypeSpec
func (t *TypeSpec) String() string {
	var s string

	switch {
	case t.ArrayElement != nil:
		s = fmt.Sprintf("array<%s>", t.ArrayElement.String())
	case len(t.EnumValues) > 0:
		s = fmt.Sprintf("enum%v", t.EnumValues)
	default:
		s = t.BaseType.String()
		if t.Length != nil {
			s = fmt.Sprintf("%s(%d)", s, *t.Length)
		}
	}

	if t.Nullable {
		s += "?"
	} else {
		s += "!"
	}

	return s
}

// IsNumeric returns true if the type is a numeric type
func (t *TypeSpec) IsNumeric() bool {
	return t.BaseType == TypeInt ||
		t.BaseType == TypeBigInt ||
		t.BaseType == TypeFloat ||
		t.BaseType == TypeDecimal
}

// IsInteger returns true if the type only holds whole numbers
func (t *TypeSpec) IsInteger() bool {
	return t.BaseType == TypeInt || t.BaseType == TypeBigInt
}

// IsText returns true if the type is stored as free text
func (t *TypeSpec) IsText() bool {
	return t.BaseType == TypeString ||
		t.BaseType == TypeText ||
		t.BaseType == TypeEmail ||
		t.BaseType == TypeURL
}

// IsTemporal returns true for date and timestamp types
func (t *TypeSpec) IsTemporal() bool {
	return t.BaseType == TypeTimestamp || t.BaseType == TypeDate
}

// IsStructured returns true for types that cannot be compared in a WHERE clause
func (t *TypeSpec) IsStructured() bool {
	return t.BaseType == TypeJSON || t.BaseType == TypeArray || t.ArrayElement != nil
}

// Well-known annotation names
const (
	AnnotationPrimary  = "primary"
	AnnotationAuto     = "auto"
	AnnotationReadonly = "readonly"
	AnnotationHidden   = "hidden"
	AnnotationUnique   = "unique"
)

// Annotation represents field annotations like @primary, @auto, @readonly
type Annotation struct {
	Name string
	Args []interface{}
}

// Field represents a field in a resource schema
type Field struct {
	Name        string // internal name, used as the record key
	Column      string // database column, defaults to Name
	Type        *TypeSpec
	Annotations []Annotation

	// ExposedName is the externally serialized name. Empty means Name.
	ExposedName string

	Documentation string
}

// HasAnnotation reports whether the field carries the named annotation
func (f *Field) HasAnnotation(name string) bool {
	for _, annotation := range f.Annotations {
		if annotation.Name == name {
			return true
		}
	}
	return false
}

// IsPrimary reports whether the field is the primary key
func (f *Field) IsPrimary() bool { return f.HasAnnotation(AnnotationPrimary) }

// IsAuto reports whether the value is generated by the database or the data layer
func (f *Field) IsAuto() bool { return f.HasAnnotation(AnnotationAuto) }

// IsReadonly reports whether clients may never write the field
func (f *Field) IsReadonly() bool { return f.HasAnnotation(AnnotationReadonly) }

// IsHidden reports whether the field is excluded from serialization entirely
func (f *Field) IsHidden() bool { return f.HasAnnotation(AnnotationHidden) }

// ColumnName returns the database column backing the field
func (f *Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

// PublicName returns the exposed name, or an empty string for hidden fields
func (f *Field) PublicName() string {
	if f.IsHidden() {
		return ""
	}
	if f.ExposedName != "" {
		return f.ExposedName
	}
	return f.Name
}

// RelationType represents the type of relationship
type RelationType int

const (
	RelationshipBelongsTo RelationType = iota
	RelationshipHasMany
	RelationshipHasOne
)

// String returns the string representation of the relationship type
func (r RelationType) String() string {
	switch r {
	case RelationshipBelongsTo:
		return "belongs_to"
	case RelationshipHasMany:
		return "has_many"
	case RelationshipHasOne:
		return "has_one"
	default:
		return "unknown"
	}
}

// ParseRelationType converts a string to a RelationType
func ParseRelationType(s string) (RelationType, error) {
	switch s {
	case "belongs_to":
		return RelationshipBelongsTo, nil
	case "has_many":
		return RelationshipHasMany, nil
	case "has_one":
		return RelationshipHasOne, nil
	default:
		return 0, fmt.Errorf("unknown relationship type: %s", s)
	}
}

// Relationship represents a relationship between resources
type Relationship struct {
	Type           RelationType
	TargetResource string
	FieldName      string
	Nullable       bool

	// ForeignKey is the local field holding the target's primary key (belongs_to only)
	ForeignKey string
}

// ResourceSchema represents the complete schema for a resource
type ResourceSchema struct {
	Name          string
	Documentation string
	TableName     string

	Fields        map[string]*Field
	FieldOrder    []string
	Relationships map[string]*Relationship
}

// NewResourceSchema creates a new ResourceSchema
func NewResourceSchema(name string) *ResourceSchema {
	return &ResourceSchema{
		Name:          name,
		Fields:        make(map[string]*Field),
		FieldOrder:    make([]string, 0),
		Relationships: make(map[string]*Relationship),
		TableName:     Pluralize(ToSnakeCase(name)),
	}
}

// AddField adds a field, keeping declaration order. Re-adding a name replaces the field.
func (r *ResourceSchema) AddField(field *Field) {
	if _, exists := r.Fields[field.Name]; !exists {
		r.FieldOrder = append(r.FieldOrder, field.Name)
	}
	r.Fields[field.Name] = field
}

// OrderedFields returns fields in declaration order
func (r *ResourceSchema) OrderedFields() []*Field {
	fields := make([]*Field, 0, len(r.FieldOrder))
	for _, name := range r.FieldOrder {
		if field, ok := r.Fields[name]; ok {
			fields = append(fields, field)
		}
	}
	return fields
}

// GetPrimaryKey returns the primary key field
func (r *ResourceSchema) GetPrimaryKey() (*Field, error) {
	for _, field := range r.OrderedFields() {
		if field.IsPrimary() {
			return field, nil
		}
	}
	return nil, fmt.Errorf("resource %s has no primary key", r.Name)
}

// HasField returns true if the resource has a field with the given name
func (r *ResourceSchema) HasField(name string) bool {
	_, exists := r.Fields[name]
	return exists
}

// HasRelationship returns true if the resource has a relationship with the given name
func (r *ResourceSchema) HasRelationship(name string) bool {
	_, exists := r.Relationships[name]
	return exists
}

// ForeignKeyRelationship returns the belongs_to relationship backed by the given field
func (r *ResourceSchema) ForeignKeyRelationship(field string) (*Relationship, bool) {
	for _, rel := range r.Relationships {
		if rel.Type == RelationshipBelongsTo && rel.ForeignKey == field {
			return rel, true
		}
	}
	return nil, false
}

// Columns returns the column names of all fields in declaration order
func (r *ResourceSchema) Columns() []string {
	columns := make([]string, 0, len(r.FieldOrder))
	for _, field := range r.OrderedFields() {
		columns = append(columns, field.ColumnName())
	}
	return columns
}

// ToSnakeCase converts a string to snake_case
func ToSnakeCase(s string) string {
	var result []rune
	runes := []rune(s)

	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := runes[i-1]
			// camelCase boundary, or the end of an acronym ("HTTPServer" -> "http_server")
			if prev >= 'a' && prev <= 'z' || prev >= '0' && prev <= '9' {
				result = append(result, '_')
			} else if i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z' {
				result = append(result, '_')
			}
		}
		if r >= 'A' && r <= 'Z' {
			result = append(result, r+('a'-'A'))
		} else {
			result = append(result, r)
		}
	}
	return string(result)
}

// Pluralize returns the plural form of a word (simple implementation)
func Pluralize(word string) string {
	if word == "" {
		return word
	}

	specialCases := map[string]string{
		"person": "people",
		"child":  "children",
		"man":    "men",
		"woman":  "women",
		"mouse":  "mice",
	}

	if plural, ok := specialCases[strings.ToLower(word)]; ok {
		return plural
	}

	switch {
	case strings.HasSuffix(word, "y"):
		if len(word) > 1 && !strings.ContainsRune("aeiouAEIOU", rune(word[len(word)-2])) {
			return word[:len(word)-1] + "ies"
		}
		return word + "s"
	case strings.HasSuffix(word, "s") || strings.HasSuffix(word, "x") ||
		strings.HasSuffix(word, "z") || strings.HasSuffix(word, "ch") ||
		strings.HasSuffix(word, "sh"):
		return word + "es"
	default:
		return word + "s"
	}
}
