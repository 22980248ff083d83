package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const authorYAML = `
name: Author
fields:
  - {name: id, type: int, primary: true, auto: true}
  - {name: name, type: string, length: 80}
  - {name: email, type: email, unique: true}
relationships:
  - {name: posts, type: has_many, target: Post}
`

const postYAML = `
table: blog_posts
doc: A published article
fields:
  - {name: id, type: int, primary: true, auto: true}
  - {name: title, type: string}
  - {name: status, type: enum, values: [draft, published]}
  - {name: tags, type: array, of: string, nullable: true}
  - {name: author_id, type: bigint, belongs_to: Author}
  - {name: created_at, type: timestamp, auto: true, expose: createdAt}
`

func writeModel(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeModel(t, dir, "post.yml", postYAML)

	resource, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "Post", resource.Name)
	assert.Equal(t, "blog_posts", resource.TableName)
	assert.Equal(t, "A published article", resource.Documentation)
	assert.Equal(t, []string{"id", "title", "status", "tags", "author_id", "created_at"}, resource.FieldOrder)

	assert.Equal(t, TypeArray, resource.Fields["tags"].Type.BaseType)
	assert.Equal(t, TypeString, resource.Fields["tags"].Type.ArrayElement.BaseType)
	assert.True(t, resource.Fields["tags"].Type.Nullable)
	assert.Equal(t, "createdAt", resource.Fields["created_at"].PublicName())

	rel, ok := resource.ForeignKeyRelationship("author_id")
	require.True(t, ok)
	assert.Equal(t, "Author", rel.TargetResource)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "author.yaml", authorYAML)
	writeModel(t, dir, "post.yml", postYAML)
	writeModel(t, dir, "README.md", "not a model")

	registry := NewRegistry()
	require.NoError(t, LoadDir(dir, registry))

	assert.Equal(t, []string{"Author", "Post"}, registry.List())

	author, _ := registry.Get("Author")
	assert.Equal(t, RelationshipHasMany, author.Relationships["posts"].Type)
}

func TestLoadDirReportsBrokenModels(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "post.yml", postYAML)

	err := LoadDir(dir, NewRegistry())
	assert.ErrorContains(t, err, "Author")
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"invalid yaml":   "fields: [",
		"unknown type":   "name: X\nfields:\n  - {name: id, type: money, primary: true}",
		"array no elem":  "name: X\nfields:\n  - {name: tags, type: array}",
		"duplicate":      "name: X\nfields:\n  - {name: id}\n  - {name: id}",
		"bad relation":   "name: X\nrelationships:\n  - {name: y, type: many_to_many, target: Y}",
		"unnamed field":  "name: X\nfields:\n  - {type: int}",
		"empty document": "",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc), "X")
			assert.Error(t, err)
		})
	}
}

func TestToResourceName(t *testing.T) {
	assert.Equal(t, "BlogPost", toResourceName("blog_post"))
	assert.Equal(t, "LineItem", toResourceName("line-item"))
	assert.Equal(t, "Post", toResourceName("post"))
}
