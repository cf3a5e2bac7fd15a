package tools

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lexcodex/reagent/framework"
)

const (
	DefaultMaxSearchResults = 50
	DefaultMaxFindFiles     = 100
	maxSearchLineLength     = 300
)

// SearchInFilesTool runs a regular expression over text files.
type SearchInFilesTool struct {
	Workspace  string
	MaxResults int
}

func (t *SearchInFilesTool) Name() string { return "search_in_files" }
func (t *SearchInFilesTool) Description() string {
	return "Searches file contents with a regular expression and returns path:line: text matches."
}
func (t *SearchInFilesTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "pattern", Type: "string", Description: "regular expression (RE2 syntax)", Required: true},
		{Name: "path", Type: "string", Description: "directory or file to search", Default: "."},
		{Name: "file_pattern", Type: "string", Description: "glob on file names, e.g. *.go", Default: "*"},
	}
}
func (t *SearchInFilesTool) Run(ctx context.Context, params map[string]interface{}) (string, error) {
	pattern, err := framework.RequireString(params, "pattern")
	if err != nil {
		return "", err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid regular expression %q: %w", pattern, err)
	}
	root, err := framework.ResolveWorkspacePath(t.Workspace, framework.OptionalString(params, "path", "."))
	if err != nil {
		return "", err
	}
	filePattern := framework.OptionalString(params, "file_pattern", "*")
	if _, err := filepath.Match(filePattern, ""); err != nil {
		return "", fmt.Errorf("invalid file_pattern %q: %w", filePattern, err)
	}
	limit := t.MaxResults
	if limit <= 0 {
		limit = DefaultMaxSearchResults
	}

	var matches []string
	truncated := false
	err = walkFiles(ctx, root, func(path string) error {
		if ok, _ := filepath.Match(filePattern, filepath.Base(path)); !ok {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil || !isText(data) {
			return nil
		}
		scanner := bufio.NewScanner(bytes.NewReader(data))
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			text := scanner.Text()
			if !re.MatchString(text) {
				continue
			}
			if len(matches) >= limit {
				truncated = true
				return fs.SkipAll
			}
			if len(text) > maxSearchLineLength {
				text = text[:maxSearchLineLength] + "..."
			}
			matches = append(matches, fmt.Sprintf("%s:%d: %s", framework.RelativeToWorkspace(t.Workspace, path), line, strings.TrimSpace(text)))
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return fmt.Sprintf("No matches for %q.", pattern), nil
	}
	out := strings.Join(matches, "\n")
	if truncated {
		out += fmt.Sprintf("\n... (showing the first %d matches)", limit)
	}
	return out, nil
}

// FindFilesTool matches a glob against file base names.
type FindFilesTool struct {
	Workspace string
	MaxFiles  int
}

func (t *FindFilesTool) Name() string        { return "find_files" }
func (t *FindFilesTool) Description() string { return "Finds files whose names match a glob such as *_test.go." }
func (t *FindFilesTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "pattern", Type: "string", Description: "glob matched against file names", Required: true},
		{Name: "path", Type: "string", Description: "directory to search", Default: "."},
	}
}
func (t *FindFilesTool) Run(ctx context.Context, params map[string]interface{}) (string, error) {
	pattern, err := framework.RequireString(params, "pattern")
	if err != nil {
		return "", err
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return "", fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	root, err := framework.ResolveWorkspacePath(t.Workspace, framework.OptionalString(params, "path", "."))
	if err != nil {
		return "", err
	}
	limit := t.MaxFiles
	if limit <= 0 {
		limit = DefaultMaxFindFiles
	}
	var found []string
	truncated := false
	err = walkFiles(ctx, root, func(path string) error {
		if ok, _ := filepath.Match(pattern, filepath.Base(path)); !ok {
			return nil
		}
		if len(found) >= limit {
			truncated = true
			return fs.SkipAll
		}
		found = append(found, framework.RelativeToWorkspace(t.Workspace, path))
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return fmt.Sprintf("No files match %q.", pattern), nil
	}
	out := strings.Join(found, "\n")
	if truncated {
		out += fmt.Sprintf("\n... (showing the first %d files)", limit)
	}
	return out, nil
}

// walkFiles visits regular files under root in lexical order, skipping
// vendored and VCS directories. fn may return fs.SkipAll to stop early.
func walkFiles(ctx context.Context, root string, fn func(path string) error) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return fn(path)
	})
	if err == fs.SkipAll {
		return nil
	}
	return err
}
