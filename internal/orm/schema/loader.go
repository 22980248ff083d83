package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModelFile is the YAML form of a resource:
//
//	name: Post
//	table: posts
//	fields:
//	  - {name: id, type: int, primary: true, auto: true}
//	  - {name: title, type: string, length: 200}
//	  - {name: status, type: enum, values: [draft, published]}
//	  - {name: author_id, type: int, belongs_to: Author}
//	relationships:
//	  - {name: comments, type: has_many, target: Comment}
type ModelFile struct {
	Name          string             `yaml:"name"`
	Table         string             `yaml:"table"`
	Doc           string             `yaml:"doc"`
	Fields        []FieldFile        `yaml:"fields"`
	Relationships []RelationshipFile `yaml:"relationships"`
}

// FieldFile is one field entry of a ModelFile
type FieldFile struct {
	Name      string   `yaml:"name"`
	Column    string   `yaml:"column"`
	Type      string   `yaml:"type"`
	Of        string   `yaml:"of"` // array element type
	Values    []string `yaml:"values"`
	Length    *int     `yaml:"length"`
	Nullable  bool     `yaml:"nullable"`
	Primary   bool     `yaml:"primary"`
	Auto      bool     `yaml:"auto"`
	Readonly  bool     `yaml:"readonly"`
	Hidden    bool     `yaml:"hidden"`
	Unique    bool     `yaml:"unique"`
	Expose    string   `yaml:"expose"`
	BelongsTo string   `yaml:"belongs_to"`
	Doc       string   `yaml:"doc"`
}

// RelationshipFile is one has_many/has_one/belongs_to entry of a ModelFile
type RelationshipFile struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Target     string `yaml:"target"`
	ForeignKey string `yaml:"foreign_key"`
	Nullable   bool   `yaml:"nullable"`
}

// Parse decodes one YAML model document into a ResourceSchema.
// fallbackName is used when the document does not name the resource.
func Parse(data []byte, fallbackName string) (*ResourceSchema, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("yaml parse error: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("empty model document")
	}

	var model ModelFile
	if err := root.Decode(&model); err != nil {
		return nil, fmt.Errorf("model decode error: %w", err)
	}
	if model.Name == "" {
		model.Name = fallbackName
	}

	return model.Build()
}

// Build converts the file representation into a ResourceSchema
func (m *ModelFile) Build() (*ResourceSchema, error) {
	if m.Name == "" {
		return nil, fmt.Errorf("model has no name")
	}

	resource := NewResourceSchema(m.Name)
	resource.Documentation = m.Doc
	if m.Table != "" {
		resource.TableName = m.Table
	}

	for i, f := range m.Fields {
		if f.Name == "" {
			return nil, fmt.Errorf("resource %s: field #%d has no name", m.Name, i+1)
		}
		if resource.HasField(f.Name) {
			return nil, fmt.Errorf("resource %s: field %s declared twice", m.Name, f.Name)
		}

		typeSpec, err := f.typeSpec()
		if err != nil {
			return nil, fmt.Errorf("resource %s: field %s: %w", m.Name, f.Name, err)
		}

		field := &Field{
			Name:          f.Name,
			Column:        f.Column,
			Type:          typeSpec,
			ExposedName:   f.Expose,
			Documentation: f.Doc,
		}
		for name, set := range map[string]bool{
			AnnotationPrimary:  f.Primary,
			AnnotationAuto:     f.Auto,
			AnnotationReadonly: f.Readonly,
			AnnotationHidden:   f.Hidden,
			AnnotationUnique:   f.Unique,
		} {
			if set {
				field.Annotations = append(field.Annotations, Annotation{Name: name})
			}
		}
		sort.Slice(field.Annotations, func(a, b int) bool {
			return field.Annotations[a].Name < field.Annotations[b].Name
		})

		resource.AddField(field)

		if f.BelongsTo != "" {
			relName := strings.TrimSuffix(f.Name, "_id")
			resource.Relationships[relName] = &Relationship{
				Type:           RelationshipBelongsTo,
				TargetResource: f.BelongsTo,
				FieldName:      relName,
				ForeignKey:     f.Name,
				Nullable:       typeSpec.Nullable,
			}
		}
	}

	for _, r := range m.Relationships {
		relType, err := ParseRelationType(r.Type)
		if err != nil {
			return nil, fmt.Errorf("resource %s: relationship %s: %w", m.Name, r.Name, err)
		}
		if r.Name == "" {
			return nil, fmt.Errorf("resource %s: relationship to %s has no name", m.Name, r.Target)
		}
		rel := &Relationship{
			Type:           relType,
			TargetResource: r.Target,
			FieldName:      r.Name,
			ForeignKey:     r.ForeignKey,
			Nullable:       r.Nullable,
		}
		if relType == RelationshipBelongsTo && rel.ForeignKey == "" {
			rel.ForeignKey = r.Name + "_id"
		}
		resource.Relationships[r.Name] = rel
	}

	return resource, nil
}

func (f *FieldFile) typeSpec() (*TypeSpec, error) {
	kind := f.Type
	if kind == "" {
		kind = "string"
	}
	base, err := ParsePrimitiveType(kind)
	if err != nil {
		return nil, err
	}

	spec := &TypeSpec{
		BaseType:   base,
		Nullable:   f.Nullable,
		EnumValues: f.Values,
		Length:     f.Length,
	}

	if base == TypeArray {
		if f.Of == "" {
			return nil, fmt.Errorf("array field needs an element type (of:)")
		}
		elem, err := ParsePrimitiveType(f.Of)
		if err != nil {
			return nil, err
		}
		spec.ArrayElement = &TypeSpec{BaseType: elem}
	}

	return spec, nil
}

// LoadFile reads and parses a single model file
func LoadFile(path string) (*ResourceSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	resource, err := Parse(data, toResourceName(name))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return resource, nil
}

// LoadDir registers every *.yml and *.yaml model in dir and validates the
// resulting set as a whole.
func LoadDir(dir string, registry *Registry) error {
	var files []string
	for _, pattern := range []string{"*.yml", "*.yaml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	for _, path := range files {
		resource, err := LoadFile(path)
		if err != nil {
			return err
		}
		if err := registry.Register(resource); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	return registry.ValidateAll()
}

// toResourceName turns a file stem like "blog_post" into "BlogPost"
func toResourceName(stem string) string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(stem, func(r rune) bool { return r == '_' || r == '-' }) {
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
