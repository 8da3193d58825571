package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// resolveWorkspace picks the project root. An explicit value wins; otherwise
// the nearest ancestor of the working directory that holds the project
// metadata dir or a .git entry. No match means no active project.
func resolveWorkspace(explicit, projectFile string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", fmt.Errorf("resolve workspace: %w", err)
		}
		return abs, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve workspace: %w", err)
	}
	return findProjectRoot(cwd, metadataDir(projectFile)), nil
}

// metadataDir is the first path segment of the project file, e.g. ".vscode"
// for ".vscode/todos.json". A bare file name has none.
func metadataDir(projectFile string) string {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(projectFile)), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}

func findProjectRoot(start, metaDir string) string {
	dir := filepath.Clean(start)
	for {
		if metaDir != "" && isDir(filepath.Join(dir, metaDir)) {
			return dir
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
