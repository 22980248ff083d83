// Package dto derives request body shapes from resource schemas.
//
// A create shape lists every field a client may send when creating a record,
// with the validator tags and required flags inferred from the field type. An
// update shape is the same list with every field optional. Shapes are derived
// once per resource and are immutable afterwards.
package dto

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/conduit-lang/scaffold/internal/orm/schema"
)

// Kind is the JSON-level type a rule accepts
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
	KindDate    Kind = "date"
	KindEnum    Kind = "enum"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

// Formats carried alongside KindString and KindDate
const (
	FormatEmail    = "email"
	FormatURL      = "url"
	FormatUUID     = "uuid"
	FormatDate     = "date"
	FormatDateTime = "date-time"
)

// Rule is the validation rule for one body member
type Rule struct {
	Field    string // internal field name
	Name     string // exposed name, the body member key
	Kind     Kind
	Format   string
	Required bool
	Nullable bool
	Enum     []string
	Items    *Rule  // element rule for arrays
	Tag      string // go-playground/validator tag

	Description string
}

// Shape is an ordered set of rules
type Shape struct {
	Name     string
	Optional bool // every rule optional, as on updates
	Rules    []Rule

	index map[string]int
}

// Options control derivation
type Options struct {
	// Name of the shape, defaults to "Create<Resource>"
	Name string
	// Exclude removes fields by internal or exposed name
	Exclude []string
}

func (o Options) key() string {
	exclude := append([]string(nil), o.Exclude...)
	sort.Strings(exclude)
	return o.Name + "|" + strings.Join(exclude, ",")
}

// Derive builds the create shape for resource. Primary keys, auto-generated,
// readonly and hidden fields never appear in it, and neither do has_many or
// has_one relations.
func Derive(resource *schema.ResourceSchema, opts Options) (*Shape, error) {
	if resource == nil {
		return nil, fmt.Errorf("dto: resource is nil")
	}

	excluded := make(map[string]bool, len(opts.Exclude))
	for _, name := range opts.Exclude {
		if !knownField(resource, name) {
			return nil, fmt.Errorf("dto: %s has no field %q to exclude", resource.Name, name)
		}
		excluded[name] = true
	}

	name := opts.Name
	if name == "" {
		name = "Create" + resource.Name
	}
	shape := &Shape{Name: name}

	for _, field := range resource.OrderedFields() {
		if !Writable(field) || excluded[field.Name] || excluded[field.PublicName()] {
			continue
		}

		rule, err := ruleFor(field.Type)
		if err != nil {
			return nil, fmt.Errorf("dto: %s.%s: %w", resource.Name, field.Name, err)
		}
		rule.Field = field.Name
		rule.Name = field.PublicName()
		rule.Nullable = field.Type.Nullable
		rule.Required = !field.Type.Nullable
		rule.Description = field.Documentation
		shape.Rules = append(shape.Rules, rule)
	}

	shape.reindex()
	return shape, nil
}

// Writable reports whether clients may ever send the field
func Writable(field *schema.Field) bool {
	return !field.IsPrimary() && !field.IsAuto() && !field.IsReadonly() && !field.IsHidden()
}

// Partial returns an update shape: the same rules with nothing required
func (s *Shape) Partial(name string) *Shape {
	if name == "" {
		name = strings.Replace(s.Name, "Create", "Update", 1)
	}
	partial := &Shape{
		Name:     name,
		Optional: true,
		Rules:    make([]Rule, len(s.Rules)),
	}
	for i, rule := range s.Rules {
		rule.Required = false
		partial.Rules[i] = rule
	}
	partial.reindex()
	return partial
}

// Rule looks a rule up by exposed name
func (s *Shape) Rule(name string) (Rule, bool) {
	i, ok := s.index[name]
	if !ok {
		return Rule{}, false
	}
	return s.Rules[i], true
}

// Names returns the exposed names of the shape in order
func (s *Shape) Names() []string {
	names := make([]string, len(s.Rules))
	for i, rule := range s.Rules {
		names[i] = rule.Name
	}
	return names
}

func (s *Shape) reindex() {
	s.index = make(map[string]int, len(s.Rules))
	for i, rule := range s.Rules {
		s.index[rule.Name] = i
	}
}

func knownField(resource *schema.ResourceSchema, name string) bool {
	for _, field := range resource.OrderedFields() {
		if field.Name == name || field.PublicName() == name {
			return true
		}
	}
	return false
}

func ruleFor(t *schema.TypeSpec) (Rule, error) {
	var rule Rule

	switch t.BaseType {
	case schema.TypeString, schema.TypeText:
		rule.Kind = KindString
		if t.Length != nil {
			rule.Tag = "max=" + strconv.Itoa(*t.Length)
		}
	case schema.TypeEmail:
		rule.Kind = KindString
		rule.Format = FormatEmail
		rule.Tag = joinTags("email", lengthTag(t))
	case schema.TypeURL:
		rule.Kind = KindString
		rule.Format = FormatURL
		rule.Tag = joinTags("url", lengthTag(t))
	case schema.TypeUUID:
		rule.Kind = KindString
		rule.Format = FormatUUID
		rule.Tag = "uuid"
	case schema.TypeInt, schema.TypeBigInt:
		rule.Kind = KindInteger
	case schema.TypeFloat, schema.TypeDecimal:
		rule.Kind = KindNumber
	case schema.TypeBool:
		rule.Kind = KindBoolean
	case schema.TypeDate:
		rule.Kind = KindDate
		rule.Format = FormatDate
	case schema.TypeTimestamp:
		rule.Kind = KindDate
		rule.Format = FormatDateTime
	case schema.TypeEnum:
		if len(t.EnumValues) == 0 {
			return rule, fmt.Errorf("enum without values")
		}
		rule.Kind = KindEnum
		rule.Enum = append([]string(nil), t.EnumValues...)
		rule.Tag = oneOfTag(t.EnumValues)
	case schema.TypeArray:
		rule.Kind = KindArray
		if t.ArrayElement != nil {
			items, err := ruleFor(t.ArrayElement)
			if err != nil {
				return rule, err
			}
			rule.Items = &items
		}
	case schema.TypeJSON:
		rule.Kind = KindObject
	default:
		return rule, fmt.Errorf("unsupported type %s", t.BaseType)
	}

	return rule, nil
}

func lengthTag(t *schema.TypeSpec) string {
	if t.Length == nil {
		return ""
	}
	return "max=" + strconv.Itoa(*t.Length)
}

func joinTags(tags ...string) string {
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag != "" {
			parts = append(parts, tag)
		}
	}
	return strings.Join(parts, ",")
}

// oneOfTag quotes values containing spaces and escapes the tag separators
func oneOfTag(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		v = strings.ReplaceAll(v, ",", "0x2C")
		v = strings.ReplaceAll(v, "|", "0x7C")
		if strings.Contains(v, " ") {
			v = "'" + v + "'"
		}
		quoted[i] = v
	}
	return "oneof=" + strings.Join(quoted, " ")
}
