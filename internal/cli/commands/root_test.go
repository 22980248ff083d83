package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/scaffold/internal/db"
)

const postModel = `
name: Post
fields:
  - {name: id, type: int, primary: true, auto: true}
  - {name: title, type: string, length: 80}
  - {name: views, type: int, nullable: true}
`

const commentModel = `
name: Comment
fields:
  - {name: id, type: int, primary: true, auto: true}
  - {name: body, type: text}
  - {name: post_id, type: int, belongs_to: Post}
`

// writeProject creates a config file and a models directory and returns the
// config path
func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	models := filepath.Join(dir, "models")
	require.NoError(t, os.MkdirAll(models, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(models, "post.yml"), []byte(postModel), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(models, "comment.yml"), []byte(commentModel), 0o644))

	config := fmt.Sprintf(`
server:
  api_prefix: /api
database:
  driver: sqlite3
  url: %s
models:
  dir: %s
log:
  level: error
`, filepath.Join(dir, "app.db"), models)
	path := filepath.Join(dir, "scaffold.yaml")
	require.NoError(t, os.WriteFile(path, []byte(config), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "scaffold", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, expected := range []string{"version", "serve", "routes", "models", "docs", "db", "completion"} {
		assert.Contains(t, names, expected)
	}
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"
	BuildDate = "2025-01-01"
	GoVersion = "go1.23"

	out, err := execute(t, "version")
	require.NoError(t, err)

	assert.Contains(t, out, "Scaffold version: 1.0.0-test")
	assert.Contains(t, out, "Git commit: abc123")
	assert.Contains(t, out, "Build date: 2025-01-01")
	assert.Contains(t, out, "Go version: go1.23")
}

func TestRoutesCommand(t *testing.T) {
	path := writeProject(t)

	out, err := execute(t, "routes", "--config", path, "--no-color")
	require.NoError(t, err)

	assert.Contains(t, out, "METHOD")
	assert.Contains(t, out, "/api/posts/{id}")
	assert.Contains(t, out, "Comment.export")
	assert.Contains(t, out, "/openapi.json")

	out, err = execute(t, "routes", "--config", path, "--resource", "post")
	require.NoError(t, err)
	assert.Contains(t, out, "Post.list")
	assert.NotContains(t, out, "Comment")
}

func TestModelsCommand(t *testing.T) {
	path := writeProject(t)

	out, err := execute(t, "models", "Post", "--config", path, "--no-color")
	require.NoError(t, err)

	assert.Contains(t, out, "Post (/api/posts)")
	assert.Contains(t, out, "title.contains")
	assert.Contains(t, out, "views views.min views.max")
	assert.NotContains(t, out, "Comment")

	_, err = execute(t, "models", "Missing", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no model named Missing")
}

func TestDocsGenerateCommand(t *testing.T) {
	path := writeProject(t)
	output := filepath.Join(t.TempDir(), "docs")

	out, err := execute(t, "docs", "generate", "--config", path,
		"--format", "openapi,markdown", "--output", output, "--name", "Blog")
	require.NoError(t, err)
	assert.Contains(t, out, "Documentation generated")

	data, err := os.ReadFile(filepath.Join(output, "openapi.json"))
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "Blog", doc["info"].(map[string]interface{})["title"])
	assert.Contains(t, doc["paths"], "/api/comments/{id}")

	assert.FileExists(t, filepath.Join(output, "markdown", "README.md"))
	assert.FileExists(t, filepath.Join(output, "markdown", "comment.md"))
}

func TestDocsGenerateRejectsUnknownFormat(t *testing.T) {
	path := writeProject(t)

	_, err := execute(t, "docs", "generate", "--config", path, "--format", "html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestDBSchemaCommand(t *testing.T) {
	path := writeProject(t)

	out, err := execute(t, "db", "schema", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"id" INTEGER PRIMARY KEY AUTOINCREMENT`)
	assert.Contains(t, out, `REFERENCES "posts" ("id")`)
	assert.Less(t, strings.Index(out, `"posts"`), strings.Index(out, `"comments"`))
	assert.NotContains(t, out, "DROP TABLE")

	out, err = execute(t, "db", "schema", "--config", path, "--drop")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `DROP TABLE IF EXISTS "comments";`), out)
}

func TestDBSetupCommand(t *testing.T) {
	path := writeProject(t)

	out, err := execute(t, "db", "setup", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Schema ready for 2 models")

	database, err := db.Open(context.Background(), db.Config{
		Driver: db.DriverSQLite,
		URL:    filepath.Join(filepath.Dir(path), "app.db"),
	})
	require.NoError(t, err)
	defer database.Close()

	_, err = database.Exec(`INSERT INTO posts (title) VALUES ('Hello')`)
	require.NoError(t, err)

	_, err = execute(t, "db", "setup", "--config", path, "--reset")
	require.NoError(t, err)

	var count int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM posts`).Scan(&count))
	assert.Zero(t, count)
}

func TestServeReportsConfigErrors(t *testing.T) {
	_, err := execute(t, "serve", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestCompletionCommand(t *testing.T) {
	out, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "scaffold")

	_, err = execute(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestParseFormats(t *testing.T) {
	formats, err := parseFormats("openapi, markdown")
	require.NoError(t, err)
	assert.Len(t, formats, 2)

	_, err = parseFormats(" , ")
	assert.Error(t, err)
}
