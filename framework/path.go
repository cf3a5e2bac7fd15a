package framework

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ResolveWorkspacePath maps a tool path argument onto the filesystem. Relative
// paths are joined to workspace. The result must stay inside workspace after
// cleaning and after resolving symlinks of the longest existing prefix.
func ResolveWorkspacePath(workspace, path string) (string, error) {
	if workspace == "" {
		return "", errors.New("workspace not configured")
	}
	root, err := canonical(workspace)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(path) == "" {
		return root, nil
	}
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(root, candidate)
	}
	candidate = filepath.Clean(candidate)
	resolved, err := resolveExisting(candidate)
	if err != nil {
		return "", err
	}
	if !within(root, resolved) {
		return "", &PathSecurityError{Path: path, Workspace: root}
	}
	return resolved, nil
}

// RelativeToWorkspace renders p relative to the workspace for display.
func RelativeToWorkspace(workspace, p string) string {
	root, err := canonical(workspace)
	if err != nil {
		return p
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}

func canonical(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}
	return filepath.Clean(abs), nil
}

// resolveExisting evaluates symlinks on the deepest existing ancestor so that
// paths which do not exist yet are still checked against real locations.
func resolveExisting(p string) (string, error) {
	var missing []string
	current := p
	for {
		real, err := filepath.EvalSymlinks(current)
		if err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				real = filepath.Join(real, missing[i])
			}
			return real, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return p, nil
		}
		missing = append(missing, filepath.Base(current))
		current = parent
	}
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
