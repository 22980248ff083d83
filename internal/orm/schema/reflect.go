package schema

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Struct tags read by FromStruct:
//
//	db:"column"      column and internal field name; "-" skips the field
//	json:"name"      exposed name; "-" hides the field from clients
//	crud:"..."       comma separated options: primary, auto, readonly, hidden, unique,
//	                 nullable, type=email, enum=a|b|c, length=120, belongs_to=Author, doc=text
const (
	TagDB   = "db"
	TagJSON = "json"
	TagCRUD = "crud"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	rawJSONType = reflect.TypeOf(json.RawMessage{})
	nullString  = reflect.TypeOf(sql.NullString{})
	nullInt64   = reflect.TypeOf(sql.NullInt64{})
	nullInt32   = reflect.TypeOf(sql.NullInt32{})
	nullFloat64 = reflect.TypeOf(sql.NullFloat64{})
	nullBool    = reflect.TypeOf(sql.NullBool{})
	nullTime    = reflect.TypeOf(sql.NullTime{})
	byteSlice   = reflect.TypeOf([]byte(nil))
)

// tableNamer lets a model override the table name derived from the resource name
type tableNamer interface {
	TableName() string
}

// FromStruct builds a ResourceSchema by reflecting over a struct's fields and tags.
// model may be a struct value or a pointer to one.
func FromStruct(name string, model interface{}) (*ResourceSchema, error) {
	t := reflect.TypeOf(model)
	if t == nil {
		return nil, fmt.Errorf("resource %s: model must not be nil", name)
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("resource %s: model must be a struct, got %s", name, t.Kind())
	}

	if name == "" {
		name = t.Name()
	}

	resource := NewResourceSchema(name)
	if namer, ok := model.(tableNamer); ok {
		resource.TableName = namer.TableName()
	}

	if err := collectFields(resource, t); err != nil {
		return nil, err
	}

	return resource, nil
}

func collectFields(resource *ResourceSchema, t reflect.Type) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)

		if sf.Anonymous && sf.Type.Kind() == reflect.Struct && sf.Tag.Get(TagDB) == "" {
			if err := collectFields(resource, sf.Type); err != nil {
				return err
			}
			continue
		}
		if !sf.IsExported() {
			continue
		}

		dbName := tagName(sf.Tag.Get(TagDB))
		if dbName == "-" {
			continue
		}
		if dbName == "" {
			dbName = ToSnakeCase(sf.Name)
		}

		typeSpec, err := typeSpecFor(sf.Type)
		if err != nil {
			return fmt.Errorf("resource %s: field %s: %w", resource.Name, sf.Name, err)
		}

		field := &Field{
			Name: dbName,
			Type: typeSpec,
		}

		jsonName := tagName(sf.Tag.Get(TagJSON))
		switch jsonName {
		case "-":
			field.Annotations = append(field.Annotations, Annotation{Name: AnnotationHidden})
		case "", dbName:
		default:
			field.ExposedName = jsonName
		}

		if err := applyCRUDTag(resource, field, sf.Tag.Get(TagCRUD)); err != nil {
			return fmt.Errorf("resource %s: field %s: %w", resource.Name, sf.Name, err)
		}

		resource.AddField(field)
	}
	return nil
}

func applyCRUDTag(resource *ResourceSchema, field *Field, tag string) error {
	if tag == "" {
		return nil
	}

	for _, option := range strings.Split(tag, ",") {
		option = strings.TrimSpace(option)
		if option == "" {
			continue
		}

		key, value, hasValue := strings.Cut(option, "=")
		switch key {
		case AnnotationPrimary, AnnotationAuto, AnnotationReadonly, AnnotationHidden, AnnotationUnique:
			if !field.HasAnnotation(key) {
				field.Annotations = append(field.Annotations, Annotation{Name: key})
			}
		case "nullable":
			field.Type.Nullable = true
		case "type":
			base, err := ParsePrimitiveType(value)
			if err != nil {
				return err
			}
			field.Type.BaseType = base
		case "enum":
			if !hasValue || value == "" {
				return fmt.Errorf("enum option needs values, e.g. enum=draft|published")
			}
			field.Type.BaseType = TypeEnum
			field.Type.EnumValues = strings.Split(value, "|")
		case "length":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid length %q", value)
			}
			field.Type.Length = &n
		case "belongs_to":
			if value == "" {
				return fmt.Errorf("belongs_to option needs a target resource")
			}
			relName := strings.TrimSuffix(field.Name, "_id")
			resource.Relationships[relName] = &Relationship{
				Type:           RelationshipBelongsTo,
				TargetResource: value,
				FieldName:      relName,
				ForeignKey:     field.Name,
				Nullable:       field.Type.Nullable,
			}
		case "doc":
			field.Documentation = value
		default:
			return fmt.Errorf("unknown crud tag option %q", key)
		}
	}

	return nil
}

func typeSpecFor(t reflect.Type) (*TypeSpec, error) {
	if t.Kind() == reflect.Ptr {
		spec, err := typeSpecFor(t.Elem())
		if err != nil {
			return nil, err
		}
		spec.Nullable = true
		return spec, nil
	}

	switch t {
	case timeType:
		return &TypeSpec{BaseType: TypeTimestamp}, nil
	case uuidType:
		return &TypeSpec{BaseType: TypeUUID}, nil
	case rawJSONType, byteSlice:
		return &TypeSpec{BaseType: TypeJSON}, nil
	case nullString:
		return &TypeSpec{BaseType: TypeString, Nullable: true}, nil
	case nullInt64:
		return &TypeSpec{BaseType: TypeBigInt, Nullable: true}, nil
	case nullInt32:
		return &TypeSpec{BaseType: TypeInt, Nullable: true}, nil
	case nullFloat64:
		return &TypeSpec{BaseType: TypeFloat, Nullable: true}, nil
	case nullBool:
		return &TypeSpec{BaseType: TypeBool, Nullable: true}, nil
	case nullTime:
		return &TypeSpec{BaseType: TypeTimestamp, Nullable: true}, nil
	}

	switch t.Kind() {
	case reflect.String:
		return &TypeSpec{BaseType: TypeString}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return &TypeSpec{BaseType: TypeInt}, nil
	case reflect.Int64, reflect.Uint64:
		return &TypeSpec{BaseType: TypeBigInt}, nil
	case reflect.Float32, reflect.Float64:
		return &TypeSpec{BaseType: TypeFloat}, nil
	case reflect.Bool:
		return &TypeSpec{BaseType: TypeBool}, nil
	case reflect.Slice, reflect.Array:
		elem, err := typeSpecFor(t.Elem())
		if err != nil {
			return nil, err
		}
		return &TypeSpec{BaseType: TypeArray, ArrayElement: elem}, nil
	case reflect.Map, reflect.Struct, reflect.Interface:
		return &TypeSpec{BaseType: TypeJSON}, nil
	default:
		return nil, fmt.Errorf("unsupported Go type %s", t)
	}
}

func tagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	return name
}
