package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"METHOD", "PATTERN", "NAME"}, &TableOptions{NoColor: true})

	table.AddRow("GET", "/posts", "Post.list")
	table.AddRow("DELETE", "/posts/{id}", "Post.delete")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "METHOD  PATTERN      NAME", lines[0])
	assert.Equal(t, "──────  ───────────  ───────────", lines[1])
	assert.Equal(t, "GET     /posts       Post.list", lines[2])
	assert.Equal(t, "DELETE  /posts/{id}  Post.delete", lines[3])
	assert.Equal(t, 2, table.Len())
}

func TestTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{}, &TableOptions{NoColor: true})

	table.Render()

	assert.Empty(t, buf.String())
}

func TestTableHighlight(t *testing.T) {
	var calls []string
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"A", "B"}, &TableOptions{
		NoColor: true,
		Highlight: func(column int, cell string) *color.Color {
			calls = append(calls, cell)
			if column == 0 {
				return color.New(color.FgGreen)
			}
			return nil
		},
	})
	table.AddRow("x", "y")
	table.Render()

	assert.Equal(t, []string{"x", "y"}, calls)
	assert.Contains(t, buf.String(), "x  y")
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	Header(&buf, "Post", true)
	assert.Equal(t, "Post\n────\n", buf.String())
}
