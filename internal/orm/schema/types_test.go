package schema

import (
	"testing"
)

func TestTypeSpecString(t *testing.T) {
	length := 80
	tests := []struct {
		spec *TypeSpec
		want string
	}{
		{&TypeSpec{BaseType: TypeString}, "string!"},
		{&TypeSpec{BaseType: TypeString, Length: &length}, "string(80)!"},
		{&TypeSpec{BaseType: TypeInt, Nullable: true}, "int?"},
		{&TypeSpec{BaseType: TypeArray, ArrayElement: &TypeSpec{BaseType: TypeUUID}}, "array<uuid!>!"},
		{&TypeSpec{BaseType: TypeEnum, EnumValues: []string{"a", "b"}}, "enum[a b]!"},
	}

	for _, tt := range tests {
		if got := tt.spec.String(); got != tt.want {
			t.Errorf("expected %s, got %s", tt.want, got)
		}
	}
}

func TestParsePrimitiveType(t *testing.T) {
	for input, want := range map[string]PrimitiveType{
		"integer":  TypeInt,
		"Boolean":  TypeBool,
		"datetime": TypeTimestamp,
		"jsonb":    TypeJSON,
		" uuid ":   TypeUUID,
	} {
		got, err := ParsePrimitiveType(input)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("%q: expected %s, got %s", input, want, got)
		}
	}

	if _, err := ParsePrimitiveType("money"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestFieldPublicName(t *testing.T) {
	plain := &Field{Name: "title"}
	renamed := &Field{Name: "created_at", ExposedName: "createdAt"}
	hidden := &Field{Name: "password_hash", ExposedName: "hash", Annotations: []Annotation{{Name: AnnotationHidden}}}

	if plain.PublicName() != "title" {
		t.Errorf("expected title, got %s", plain.PublicName())
	}
	if renamed.PublicName() != "createdAt" {
		t.Errorf("expected createdAt, got %s", renamed.PublicName())
	}
	if hidden.PublicName() != "" {
		t.Errorf("hidden field must have no public name, got %s", hidden.PublicName())
	}
}

func TestToSnakeCase(t *testing.T) {
	for input, want := range map[string]string{
		"BlogPost":   "blog_post",
		"UserID":     "user_id",
		"HTTPServer": "http_server",
		"title":      "title",
		"Address2":   "address2",
	} {
		if got := ToSnakeCase(input); got != want {
			t.Errorf("ToSnakeCase(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestPluralize(t *testing.T) {
	for input, want := range map[string]string{
		"post":     "posts",
		"category": "categories",
		"day":      "days",
		"box":      "boxes",
		"person":   "people",
	} {
		if got := Pluralize(input); got != want {
			t.Errorf("Pluralize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestResourceSchemaColumns(t *testing.T) {
	s := resourceWithID("Post", TypeInt)
	s.AddField(&Field{Name: "title", Type: &TypeSpec{BaseType: TypeString}})
	s.AddField(&Field{Name: "body", Column: "content", Type: &TypeSpec{BaseType: TypeText}})

	cols := s.Columns()
	if len(cols) != 3 || cols[0] != "id" || cols[2] != "content" {
		t.Errorf("unexpected columns %v", cols)
	}

	pk, err := s.GetPrimaryKey()
	if err != nil || pk.Name != "id" {
		t.Errorf("expected id primary key, got %v, %v", pk, err)
	}
}
