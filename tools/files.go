package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lexcodex/reagent/framework"
)

var errBinaryFile = errors.New("binary file detected")

// maxListEntries bounds list_files output.
const maxListEntries = 500

// ReadFileTool reads files from the workspace.
type ReadFileTool struct {
	Workspace string
}

func (t *ReadFileTool) Name() string        { return "read_file" }
func (t *ReadFileTool) Description() string { return "Reads a UTF-8 text file and returns its content." }
func (t *ReadFileTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "path", Type: "string", Description: "file path, relative to the working directory or absolute", Required: true},
	}
}
func (t *ReadFileTool) Run(ctx context.Context, params map[string]interface{}) (string, error) {
	path, err := resolveParam(t.Workspace, params, "path")
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !isText(data) {
		return "", errBinaryFile
	}
	if len(data) == 0 {
		return fmt.Sprintf("%s is empty.", framework.RelativeToWorkspace(t.Workspace, path)), nil
	}
	return string(data), nil
}

// WriteFileTool writes or appends content, creating parent directories.
type WriteFileTool struct {
	Workspace string
	Lock      *FileLock
}

func (t *WriteFileTool) Name() string { return "write_file" }
func (t *WriteFileTool) Description() string {
	return "Writes content to a file, creating it and its parent directories when missing."
}
func (t *WriteFileTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "path", Type: "string", Description: "file path", Required: true},
		{Name: "content", Type: "string", Description: "text to write", Required: true},
		{Name: "append", Type: "boolean", Description: "append instead of overwrite", Default: false},
	}
}
func (t *WriteFileTool) Run(ctx context.Context, params map[string]interface{}) (string, error) {
	path, err := resolveParam(t.Workspace, params, "path")
	if err != nil {
		return "", err
	}
	content, err := framework.RequireString(params, "content")
	if err != nil {
		return "", err
	}
	appendMode := framework.OptionalBool(params, "append", false)
	err = t.Lock.Run(func() error {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		if appendMode {
			flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		}
		f, err := os.OpenFile(path, flags, 0o644)
		if err != nil {
			return err
		}
		if _, err := f.WriteString(content); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
	if err != nil {
		return "", err
	}
	verb := "Wrote"
	if appendMode {
		verb = "Appended"
	}
	return fmt.Sprintf("%s %d bytes to %s", verb, len(content), framework.RelativeToWorkspace(t.Workspace, path)), nil
}

// EditFileTool replaces exact text inside a file.
type EditFileTool struct {
	Workspace string
	Lock      *FileLock
}

func (t *EditFileTool) Name() string { return "edit_file" }
func (t *EditFileTool) Description() string {
	return "Replaces an exact substring in a file. Fails when the text is not found or is ambiguous without replace_all."
}
func (t *EditFileTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "path", Type: "string", Description: "file path", Required: true},
		{Name: "old_string", Type: "string", Description: "exact text to replace", Required: true},
		{Name: "new_string", Type: "string", Description: "replacement text", Required: true},
		{Name: "replace_all", Type: "boolean", Description: "replace every occurrence", Default: false},
	}
}
func (t *EditFileTool) Run(ctx context.Context, params map[string]interface{}) (string, error) {
	path, err := resolveParam(t.Workspace, params, "path")
	if err != nil {
		return "", err
	}
	oldText, err := framework.RequireString(params, "old_string")
	if err != nil {
		return "", err
	}
	if oldText == "" {
		return "", errors.New("old_string must not be empty")
	}
	newText, err := framework.RequireString(params, "new_string")
	if err != nil {
		return "", err
	}
	replaceAll := framework.OptionalBool(params, "replace_all", false)

	var count int
	err = t.Lock.Run(func() error {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		content := string(data)
		count = strings.Count(content, oldText)
		switch {
		case count == 0:
			return fmt.Errorf("old_string not found in %s", framework.RelativeToWorkspace(t.Workspace, path))
		case count > 1 && !replaceAll:
			return fmt.Errorf("old_string occurs %d times in %s; add context or set replace_all", count, framework.RelativeToWorkspace(t.Workspace, path))
		}
		if !replaceAll {
			count = 1
		}
		updated := strings.Replace(content, oldText, newText, count)
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		return os.WriteFile(path, []byte(updated), info.Mode().Perm())
	})
	if err != nil {
		return "", err
	}
	noun := "occurrence"
	if count != 1 {
		noun = "occurrences"
	}
	return fmt.Sprintf("Replaced %d %s in %s", count, noun, framework.RelativeToWorkspace(t.Workspace, path)), nil
}

// ListFilesTool lists a directory, optionally recursively.
type ListFilesTool struct {
	Workspace string
}

func (t *ListFilesTool) Name() string        { return "list_files" }
func (t *ListFilesTool) Description() string { return "Lists files and directories under a path." }
func (t *ListFilesTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "path", Type: "string", Description: "directory to list", Default: "."},
		{Name: "recursive", Type: "boolean", Description: "descend into subdirectories", Default: false},
	}
}
func (t *ListFilesTool) Run(ctx context.Context, params map[string]interface{}) (string, error) {
	dir, err := framework.ResolveWorkspacePath(t.Workspace, framework.OptionalString(params, "path", "."))
	if err != nil {
		return "", err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", framework.RelativeToWorkspace(t.Workspace, dir))
	}
	recursive := framework.OptionalBool(params, "recursive", false)

	var entries []string
	truncated := false
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		if d.IsDir() && skipDir(d.Name()) {
			return fs.SkipDir
		}
		if len(entries) >= maxListEntries {
			truncated = true
			return fs.SkipAll
		}
		rel, _ := filepath.Rel(dir, path)
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			rel += "/"
		}
		entries = append(entries, rel)
		if d.IsDir() && !recursive {
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return fmt.Sprintf("%s is empty.", framework.RelativeToWorkspace(t.Workspace, dir)), nil
	}
	sort.Strings(entries)
	out := strings.Join(entries, "\n")
	if truncated {
		out += fmt.Sprintf("\n... (stopped after %d entries)", maxListEntries)
	}
	return out, nil
}

// DeleteFileTool removes a file or directory tree.
type DeleteFileTool struct {
	Workspace string
	Lock      *FileLock
}

func (t *DeleteFileTool) Name() string        { return "delete_file" }
func (t *DeleteFileTool) Description() string { return "Deletes a file or directory inside the working directory." }
func (t *DeleteFileTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "path", Type: "string", Description: "file or directory to delete", Required: true},
	}
}
func (t *DeleteFileTool) Run(ctx context.Context, params map[string]interface{}) (string, error) {
	path, err := resolveParam(t.Workspace, params, "path")
	if err != nil {
		return "", err
	}
	root, err := framework.ResolveWorkspacePath(t.Workspace, "")
	if err != nil {
		return "", err
	}
	if path == root {
		return "", errors.New("refusing to delete the working directory")
	}
	if _, err := os.Lstat(path); err != nil {
		return "", err
	}
	if err := t.Lock.Run(func() error { return os.RemoveAll(path) }); err != nil {
		return "", err
	}
	return fmt.Sprintf("Deleted %s", framework.RelativeToWorkspace(t.Workspace, path)), nil
}

func resolveParam(workspace string, params map[string]interface{}, key string) (string, error) {
	raw, err := framework.RequireString(params, key)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("parameter %q must not be empty", key)
	}
	return framework.ResolveWorkspacePath(workspace, raw)
}

func skipDir(name string) bool {
	switch name {
	case ".git", "node_modules", "__pycache__", ".venv":
		return true
	}
	return false
}

func isText(data []byte) bool {
	for _, b := range data {
		if b == 0 {
			return false
		}
	}
	return true
}

// FileLock serializes mutations (write, edit, delete). A nil lock runs fn
// directly.
type FileLock struct {
	mu sync.Mutex
}

func (l *FileLock) Run(fn func() error) error {
	if l == nil {
		return fn()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn()
}
