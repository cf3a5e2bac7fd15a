package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchInFilesTool(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "code.go"), []byte("package main\n// TODO: fix bug\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("TODO later\n"), 0o644))

	tool := &SearchInFilesTool{Workspace: dir}
	out, err := tool.Run(context.Background(), map[string]interface{}{"pattern": `TODO:?\s`})
	require.NoError(t, err)
	assert.Equal(t, "code.go:2: // TODO: fix bug\nnotes.md:1: TODO later", out)

	out, err = tool.Run(context.Background(), map[string]interface{}{"pattern": "TODO", "file_pattern": "*.go"})
	require.NoError(t, err)
	assert.Equal(t, "code.go:2: // TODO: fix bug", out)

	out, err = tool.Run(context.Background(), map[string]interface{}{"pattern": "nothing here"})
	require.NoError(t, err)
	assert.Equal(t, `No matches for "nothing here".`, out)

	_, err = tool.Run(context.Background(), map[string]interface{}{"pattern": "("})
	assert.Error(t, err)
}

func TestSearchInFilesToolCapsResults(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "hit %d\n", i)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "many.txt"), []byte(b.String()), 0o644))

	tool := &SearchInFilesTool{Workspace: dir, MaxResults: 3}
	out, err := tool.Run(context.Background(), map[string]interface{}{"pattern": "hit"})
	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "... (showing the first 3 matches)", lines[3])
}

func TestFindFilesTool(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))
	for _, name := range []string{"a_test.go", "pkg/b_test.go", "pkg/b.go", "node_modules/c_test.go"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	tool := &FindFilesTool{Workspace: dir}
	out, err := tool.Run(context.Background(), map[string]interface{}{"pattern": "*_test.go"})
	require.NoError(t, err)
	assert.Equal(t, "a_test.go\npkg/b_test.go", out)

	capped := &FindFilesTool{Workspace: dir, MaxFiles: 1}
	out, err = capped.Run(context.Background(), map[string]interface{}{"pattern": "*.go"})
	require.NoError(t, err)
	assert.Equal(t, "a_test.go\n... (showing the first 1 files)", out)

	_, err = tool.Run(context.Background(), map[string]interface{}{"pattern": "[", "path": "."})
	assert.Error(t, err)
}
