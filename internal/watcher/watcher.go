// Package watcher watches a Flutter project's sources with debouncing so
// `mobuild watch` can rebuild once per burst of edits.
package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/mobuild/internal/log"
)

// DefaultPaths are the project-relative paths watched when none are configured.
var DefaultPaths = []string{"lib", "pubspec.yaml", "android", "ios", "assets"}

// skipDirs are never watched: toolchain output and tool caches would
// otherwise retrigger a build on every build.
var skipDirs = map[string]bool{
	"build":        true,
	"build_output": true,
	".dart_tool":   true,
	".git":         true,
	".gradle":      true,
	".mobuild":     true,
	".symlinks":    true,
	"Pods":         true,
	"ephemeral":    true,
}

// generatedFiles are rewritten by flutter itself during a build.
var generatedFiles = map[string]bool{
	"GeneratedPluginRegistrant.java":  true,
	"GeneratedPluginRegistrant.kt":    true,
	"GeneratedPluginRegistrant.h":     true,
	"GeneratedPluginRegistrant.m":     true,
	"GeneratedPluginRegistrant.swift": true,
	"Generated.xcconfig":              true,
	"flutter_export_environment.sh":   true,
	"local.properties":                true,
	"Podfile.lock":                    true,
}

// Watcher monitors project sources and signals when they change.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	root      string
	paths     []string // clean, relative to root
	debounce  time.Duration
	onChange  chan struct{}
	flush     chan chan struct{}
	done      chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	// ProjectDir is the project root; Paths are resolved against it.
	ProjectDir  string
	Paths       []string
	DebounceDur time.Duration
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig(projectDir string) Config {
	return Config{
		ProjectDir:  projectDir,
		Paths:       DefaultPaths,
		DebounceDur: 500 * time.Millisecond,
	}
}

// New creates a new project watcher.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	configured := cfg.Paths
	if len(configured) == 0 {
		configured = DefaultPaths
	}

	root, err := filepath.Abs(cfg.ProjectDir)
	if err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("resolving project dir: %w", err)
	}

	paths := make([]string, 0, len(configured))
	for _, p := range configured {
		rel, err := relativePath(root, p)
		if err != nil {
			_ = fsw.Close()
			return nil, err
		}
		paths = append(paths, rel)
	}

	return &Watcher{
		fsWatcher: fsw,
		root:      root,
		paths:     paths,
		debounce:  cfg.DebounceDur,
		onChange:  make(chan struct{}, 1),
		flush:     make(chan chan struct{}),
		done:      make(chan struct{}),
	}, nil
}

// relativePath normalizes a configured path ("lib", "lib/", "./lib" or an
// absolute path) to its clean form relative to root.
func relativePath(root, p string) (string, error) {
	abs := filepath.Clean(p)
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, abs)
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", fmt.Errorf("watch path %s: %w", p, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("watch path %s is outside %s", p, root)
	}
	return rel, nil
}

// Start registers every existing configured path (directories recursively,
// files via their parent) and begins watching. Returns a channel that
// receives a signal after each debounced burst of changes.
func (w *Watcher) Start() (<-chan struct{}, error) {
	watched := 0
	for _, p := range w.paths {
		abs := filepath.Join(w.root, p)
		info, err := os.Stat(abs)
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug(log.CatWatcher, "Skipping missing path", "path", abs)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("watching %s: %w", abs, err)
		}

		if info.IsDir() {
			n, err := w.addTree(abs)
			if err != nil {
				return nil, err
			}
			watched += n
			continue
		}
		// Editors replace files via rename, so watch the parent directory.
		if err := w.fsWatcher.Add(filepath.Dir(abs)); err != nil {
			return nil, fmt.Errorf("watching directory %s: %w", filepath.Dir(abs), err)
		}
		watched++
	}

	if watched == 0 {
		return nil, fmt.Errorf("no watchable paths under %s", w.root)
	}
	log.Info(log.CatWatcher, "Watching project", "root", w.root, "directories", watched)

	go w.loop()

	return w.onChange, nil
}

// Flush discards changes seen so far: a pending debounce and any queued
// signal. Call it after a build so the build's own writes do not trigger
// the next one. Must only be called after Start.
func (w *Watcher) Flush() {
	ack := make(chan struct{})
	select {
	case w.flush <- ack:
		<-ack
	case <-w.done:
	}
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// addTree watches dir and every subdirectory not in skipDirs.
func (w *Watcher) addTree(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			return fmt.Errorf("watching directory %s: %w", path, err)
		}
		count++
		return nil
	})
	return count, err
}

// loop processes file system events with debouncing.
func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending bool
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if !w.isRelevantEvent(event) {
				continue
			}

			// New directories are watched as they appear.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !skipDirs[info.Name()] {
					if _, err := w.addTree(event.Name); err != nil {
						log.Warn(log.CatWatcher, "Failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}

			log.Debug(log.CatWatcher, "Change detected", "path", event.Name, "op", event.Op.String())

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			pending = true

		case <-func() <-chan time.Time {
			if timer != nil {
				return timer.C
			}
			return nil
		}():
			if pending {
				// Non-blocking send - drop if a rebuild is already queued
				select {
				case w.onChange <- struct{}{}:
				default:
				}
				pending = false
			}

		case ack := <-w.flush:
			if timer != nil && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			pending = false
			select {
			case <-w.onChange:
			default:
			}
			close(ack)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn(log.CatWatcher, "Watcher error", "error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// isRelevantEvent reports whether event should trigger a rebuild.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	base := filepath.Base(event.Name)
	// Editor swap files and backups
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return false
	}
	if generatedFiles[base] {
		return false
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return true
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if skipDirs[part] {
			return false
		}
	}
	// Files watched through their parent only count when they were configured.
	for _, p := range w.paths {
		if rel == p || strings.HasPrefix(rel, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
