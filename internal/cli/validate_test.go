package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanFlowYAML = `
name: clean
initial_message:
  response: "Hello"
  next:
    - when: "go"
      to: "work"
branches:
  work:
    response: "Working."
`

const brokenFlowYAML = `
name: broken
initial_message:
  response: "Hello"
  next:
    - when: "go"
      to: "ghost"
branches:
  orphan:
    response: "Nobody reaches me."
`

func writeFlowDir(t *testing.T, docs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestValidate_CleanDirectory(t *testing.T) {
	dir := writeFlowDir(t, map[string]string{"clean.yaml": cleanFlowYAML})

	var out strings.Builder
	err := Validate(dir, &out, false)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "✓ clean")
	assert.Contains(t, out.String(), "1 flows validated")
}

func TestValidate_ReportsProblems(t *testing.T) {
	dir := writeFlowDir(t, map[string]string{
		"clean.yaml":  cleanFlowYAML,
		"broken.yaml": brokenFlowYAML,
	})

	var out strings.Builder
	err := Validate(dir, &out, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 flows failed validation")

	report := out.String()
	assert.Contains(t, report, "✗ broken")
	assert.Contains(t, report, "dangling destination: ghost")
	assert.Contains(t, report, "unreachable branch: orphan")
	assert.Contains(t, report, "✓ clean")
}

func TestGraph_WritesMermaid(t *testing.T) {
	dir := writeFlowDir(t, map[string]string{"clean.yaml": cleanFlowYAML})

	var out strings.Builder
	err := Graph(dir, "clean", &out, false)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "graph TD")
	assert.Contains(t, out.String(), `__entry__ -- "go" --> work`)
}

func TestGraph_AmbiguousFlow(t *testing.T) {
	dir := writeFlowDir(t, map[string]string{
		"clean.yaml":  cleanFlowYAML,
		"broken.yaml": brokenFlowYAML,
	})

	var out strings.Builder
	err := Graph(dir, "", &out, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--flow")
}
