// Package query translates query-string parameters into typed predicates.
//
// Every filterable field accepts an exact match under its exposed name. Text
// fields also accept name.contains, and numeric and temporal fields accept
// name.min and name.max, which combine into one inclusive range. A plain date
// as the max of a timestamp covers the whole day.
package query

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/conduit-lang/scaffold/internal/orm/schema"
)

// ErrInvalidFilter is returned for query parameters that cannot be applied
var ErrInvalidFilter = errors.New("invalid query parameter")

// Operator suffixes
const (
	SuffixContains = ".contains"
	SuffixMin      = ".min"
	SuffixMax      = ".max"
)

// Op is the comparison a predicate performs
type Op int

const (
	OpEq Op = iota
	OpContains
	OpRange
)

// String returns the operator name
func (o Op) String() string {
	switch o {
	case OpEq:
		return "eq"
	case OpContains:
		return "contains"
	case OpRange:
		return "range"
	default:
		return "unknown"
	}
}

// Predicate is one typed comparison against a column
type Predicate struct {
	Field  string // internal field name
	Column string
	Op     Op
	Value  interface{} // OpEq and OpContains
	Min    interface{} // OpRange, nil when open
	Max    interface{} // OpRange, nil when open
}

// Sqlizer renders the predicate as a squirrel expression
func (p Predicate) Sqlizer() sq.Sqlizer {
	switch p.Op {
	case OpContains:
		return sq.Expr(p.Column+` LIKE ? ESCAPE '\'`, "%"+escapeLike(fmt.Sprint(p.Value))+"%")
	case OpRange:
		switch {
		case p.Min != nil && p.Max != nil:
			return sq.Expr(p.Column+" BETWEEN ? AND ?", p.Min, p.Max)
		case p.Min != nil:
			return sq.GtOrEq{p.Column: p.Min}
		default:
			return sq.LtOrEq{p.Column: p.Max}
		}
	default:
		return sq.Eq{p.Column: p.Value}
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// CustomFilter is a query parameter backed by caller-supplied SQL
type CustomFilter struct {
	Name        string
	Type        schema.PrimitiveType
	Description string
	// Apply receives the value parsed according to Type
	Apply func(value interface{}) (sq.Sqlizer, error)
}

// Filter is the parsed set of predicates of one request
type Filter struct {
	Predicates []Predicate
	Custom     []sq.Sqlizer
}

// Empty reports whether the filter constrains nothing
func (f *Filter) Empty() bool {
	return f == nil || len(f.Predicates) == 0 && len(f.Custom) == 0
}

// Sqlizer returns the conjunction of all predicates, or nil when empty
func (f *Filter) Sqlizer() sq.Sqlizer {
	if f.Empty() {
		return nil
	}
	and := make(sq.And, 0, len(f.Predicates)+len(f.Custom))
	for _, p := range f.Predicates {
		and = append(and, p.Sqlizer())
	}
	and = append(and, f.Custom...)
	return and
}

// Param documents one accepted query parameter
type Param struct {
	Name        string
	Field       string // empty for custom filters
	Op          Op
	Type        *schema.TypeSpec
	Description string
}

// FieldSet is the immutable set of filterable fields of a resource
type FieldSet struct {
	resource *schema.ResourceSchema
	fields   map[string]*schema.Field // exposed name -> field
	order    []string
	custom   map[string]CustomFilter
	customs  []string
}

// Filterable reports whether a field can be filtered and sorted on
func Filterable(field *schema.Field) bool {
	return field.PublicName() != "" && field.Type != nil && !field.Type.IsStructured()
}

// NewFieldSet resolves the filterable fields of resource. names restricts the
// set to the given exposed names; nil allows every filterable field.
func NewFieldSet(resource *schema.ResourceSchema, names []string, custom []CustomFilter) (*FieldSet, error) {
	set := &FieldSet{
		resource: resource,
		fields:   make(map[string]*schema.Field),
		custom:   make(map[string]CustomFilter, len(custom)),
	}

	byName := make(map[string]*schema.Field)
	for _, field := range resource.OrderedFields() {
		if public := field.PublicName(); public != "" {
			byName[public] = field
		}
	}

	if names == nil {
		for _, field := range resource.OrderedFields() {
			if Filterable(field) {
				names = append(names, field.PublicName())
			}
		}
	}

	for _, name := range names {
		field, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("query: %s has no exposed field %q", resource.Name, name)
		}
		if !Filterable(field) {
			return nil, fmt.Errorf("query: %s.%s (%s) cannot be filtered", resource.Name, name, field.Type.BaseType)
		}
		if _, dup := set.fields[name]; dup {
			continue
		}
		set.fields[name] = field
		set.order = append(set.order, name)
	}

	for _, cf := range custom {
		if cf.Name == "" || cf.Apply == nil {
			return nil, fmt.Errorf("query: custom filter on %s needs a name and an Apply function", resource.Name)
		}
		if _, clash := set.fields[cf.Name]; clash {
			return nil, fmt.Errorf("query: custom filter %q shadows field of %s", cf.Name, resource.Name)
		}
		if _, dup := set.custom[cf.Name]; dup {
			return nil, fmt.Errorf("query: custom filter %q declared twice", cf.Name)
		}
		set.custom[cf.Name] = cf
		set.customs = append(set.customs, cf.Name)
	}

	return set, nil
}

// Names returns the filterable exposed names in declaration order
func (s *FieldSet) Names() []string {
	return append([]string(nil), s.order...)
}

// Field returns the field behind an exposed name
func (s *FieldSet) Field(name string) (*schema.Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

func supportsContains(t *schema.TypeSpec) bool {
	return t.IsText()
}

func supportsRange(t *schema.TypeSpec) bool {
	return t.IsNumeric() || t.IsTemporal()
}

// DocParams lists every query parameter the set accepts
func (s *FieldSet) DocParams() []Param {
	var params []Param
	for _, name := range s.order {
		field := s.fields[name]
		params = append(params, Param{
			Name:        name,
			Field:       field.Name,
			Op:          OpEq,
			Type:        field.Type,
			Description: fmt.Sprintf("Filter by exact %s", name),
		})
		if supportsContains(field.Type) {
			params = append(params, Param{
				Name:        name + SuffixContains,
				Field:       field.Name,
				Op:          OpContains,
				Type:        field.Type,
				Description: fmt.Sprintf("Filter by %s containing the value", name),
			})
		}
		if supportsRange(field.Type) {
			params = append(params,
				Param{
					Name:        name + SuffixMin,
					Field:       field.Name,
					Op:          OpRange,
					Type:        field.Type,
					Description: fmt.Sprintf("Minimum %s (inclusive)", name),
				},
				Param{
					Name:        name + SuffixMax,
					Field:       field.Name,
					Op:          OpRange,
					Type:        field.Type,
					Description: fmt.Sprintf("Maximum %s (inclusive)", name),
				},
			)
		}
	}

	for _, name := range s.customs {
		cf := s.custom[name]
		params = append(params, Param{
			Name:        name,
			Op:          OpEq,
			Type:        &schema.TypeSpec{BaseType: cf.Type},
			Description: cf.Description,
		})
	}

	return params
}

// Parse converts values into a Filter. Parameters the set does not know are ignored.
func (s *FieldSet) Parse(values url.Values) (*Filter, error) {
	filter := &Filter{}

	for _, name := range s.order {
		field := s.fields[name]
		column := field.ColumnName()

		if raw, ok := lookup(values, name); ok {
			value, err := schema.ParseValue(field.Type, raw)
			if err != nil {
				return nil, invalid(name, err)
			}
			filter.Predicates = append(filter.Predicates, Predicate{
				Field: field.Name, Column: column, Op: OpEq, Value: value,
			})
		}

		if supportsContains(field.Type) {
			if raw, ok := lookup(values, name+SuffixContains); ok {
				filter.Predicates = append(filter.Predicates, Predicate{
					Field: field.Name, Column: column, Op: OpContains, Value: raw,
				})
			}
		}

		if supportsRange(field.Type) {
			pred := Predicate{Field: field.Name, Column: column, Op: OpRange}
			if raw, ok := lookup(values, name+SuffixMin); ok {
				v, err := schema.ParseValue(field.Type, raw)
				if err != nil {
					return nil, invalid(name+SuffixMin, err)
				}
				pred.Min = v
			}
			if raw, ok := lookup(values, name+SuffixMax); ok {
				v, err := schema.ParseValue(field.Type, raw)
				if err != nil {
					return nil, invalid(name+SuffixMax, err)
				}
				pred.Max = endOfDay(field.Type, raw, v)
			}
			if pred.Min != nil || pred.Max != nil {
				filter.Predicates = append(filter.Predicates, pred)
			}
		}
	}

	for _, name := range s.customs {
		raw, ok := lookup(values, name)
		if !ok {
			continue
		}
		cf := s.custom[name]
		value, err := schema.ParseValue(&schema.TypeSpec{BaseType: cf.Type}, raw)
		if err != nil {
			return nil, invalid(name, err)
		}
		clause, err := cf.Apply(value)
		if err != nil {
			return nil, invalid(name, err)
		}
		if clause != nil {
			filter.Custom = append(filter.Custom, clause)
		}
	}

	return filter, nil
}

// endOfDay widens a date-only upper bound on a timestamp to the last
// microsecond of that day
func endOfDay(t *schema.TypeSpec, raw string, v interface{}) interface{} {
	ts, ok := v.(time.Time)
	if !ok || t.BaseType != schema.TypeTimestamp {
		return v
	}
	if _, err := time.Parse(schema.DateLayout, strings.TrimSpace(raw)); err != nil {
		return v
	}
	return ts.AddDate(0, 0, 1).Add(-time.Microsecond)
}

func lookup(values url.Values, key string) (string, bool) {
	raw := values.Get(key)
	if raw == "" {
		return "", false
	}
	return raw, true
}

func invalid(param string, err error) error {
	return fmt.Errorf("%w %s: %v", ErrInvalidFilter, param, err)
}
