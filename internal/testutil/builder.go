// Package testutil provides fixtures for tests: throwaway Flutter project
// trees and SQLite databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Project accumulates files of a fake Flutter project and writes them
// under a temp dir.
type Project struct {
	t     *testing.T
	dir   string
	files []fileData
	dirs  []string
}

type fileData struct {
	path    string
	content string
	mode    os.FileMode
}

// NewProject creates a builder rooted at a fresh temp dir.
func NewProject(t *testing.T) *Project {
	t.Helper()
	return &Project{t: t, dir: t.TempDir()}
}

// WithFile adds a file relative to the project root.
func (p *Project) WithFile(rel, content string, opts ...FileOption) *Project {
	f := fileData{path: rel, content: content, mode: 0o644}
	for _, opt := range opts {
		opt(&f)
	}
	p.files = append(p.files, f)
	return p
}

// WithDir adds an empty directory relative to the project root.
func (p *Project) WithDir(rel string) *Project {
	p.dirs = append(p.dirs, rel)
	return p
}

// WithPubspec adds a minimal pubspec.yaml for an app named name.
func (p *Project) WithPubspec(name string) *Project {
	return p.WithFile("pubspec.yaml", "name: "+name+"\nversion: 1.0.0+1\n")
}

// Dir returns the project root without writing anything.
func (p *Project) Dir() string {
	return p.dir
}

// Build writes all accumulated directories and files and returns the root.
func (p *Project) Build() string {
	p.t.Helper()
	for _, d := range p.dirs {
		require.NoError(p.t, os.MkdirAll(filepath.Join(p.dir, d), 0o755))
	}
	for _, f := range p.files {
		path := filepath.Join(p.dir, f.path)
		require.NoError(p.t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(p.t, os.WriteFile(path, []byte(f.content), f.mode))
	}
	return p.dir
}
