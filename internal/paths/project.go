// Package paths provides path resolution utilities.
package paths

import (
	"os"
	"path/filepath"
)

// PubspecFile marks the root of a Flutter project.
const PubspecFile = "pubspec.yaml"

// ResolveProjectDir resolves the Flutter project root from user input.
// It normalizes the input (accepting the project dir, its pubspec.yaml, or
// any directory inside the project) and walks up to the nearest directory
// containing pubspec.yaml, the way flutter itself locates a project.
//
// Input normalization:
//   - "/path/to/app" -> "/path/to/app"
//   - "/path/to/app/pubspec.yaml" -> "/path/to/app"
//   - "/path/to/app/lib/src" -> "/path/to/app"
//   - "" -> working directory (or its enclosing project)
//
// When no pubspec.yaml is found the cleaned absolute input is returned, so
// the toolchain reports the missing project itself.
func ResolveProjectDir(path string) (string, error) {
	if path == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	if filepath.Base(abs) == PubspecFile {
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			return filepath.Dir(abs), nil
		}
	}

	for dir := abs; ; {
		if IsProjectDir(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		dir = parent
	}
}

// IsProjectDir reports whether dir contains a pubspec.yaml file.
func IsProjectDir(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, PubspecFile))
	return err == nil && !info.IsDir()
}
