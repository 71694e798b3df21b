package watcher_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/mobuild/internal/testutil"
	"github.com/zjrosen/mobuild/internal/watcher"
)

func newProject(t *testing.T) string {
	t.Helper()
	return testutil.NewProject(t).WithStandardLayout().Build()
}

func startWatcher(t *testing.T, dir string, paths ...string) <-chan struct{} {
	t.Helper()
	w, err := watcher.New(watcher.Config{
		ProjectDir:  dir,
		Paths:       paths,
		DebounceDur: 50 * time.Millisecond,
	})
	require.NoError(t, err, "failed to create watcher")
	t.Cleanup(func() { _ = w.Stop() })

	onChange, err := w.Start()
	require.NoError(t, err, "failed to start watcher")
	return onChange
}

func TestWatcher_DebounceMultipleWrites(t *testing.T) {
	dir := newProject(t)
	onChange := startWatcher(t, dir, "lib", "pubspec.yaml")
	mainPath := filepath.Join(dir, "lib", "main.dart")

	// Rapid writes should coalesce into single notification
	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(mainPath, []byte(fmt.Sprintf("// %d\n", i)), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-onChange:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification but got timeout")
	}

	select {
	case <-onChange:
		t.Fatal("unexpected second notification")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_NestedDirectory(t *testing.T) {
	dir := newProject(t)
	onChange := startWatcher(t, dir, "lib")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib", "src", "widget.dart"), []byte("class W {}\n"), 0o644))

	select {
	case <-onChange:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification for nested file")
	}
}

func TestWatcher_FileWatchedThroughParent(t *testing.T) {
	dir := newProject(t)
	onChange := startWatcher(t, dir, "pubspec.yaml")

	// Sibling of a watched file: not relevant.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("changed\n"), 0o644))
	select {
	case <-onChange:
		t.Fatal("unexpected notification for unwatched sibling")
	case <-time.After(150 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "pubspec.yaml"), []byte("name: app2\n"), 0o644))
	select {
	case <-onChange:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification for pubspec.yaml")
	}
}

func TestWatcher_IgnoresSwapFiles(t *testing.T) {
	dir := newProject(t)
	onChange := startWatcher(t, dir, "lib")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib", ".main.dart.swp"), []byte("x"), 0o644))

	select {
	case <-onChange:
		t.Fatal("unexpected notification for swap file")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_PathForms(t *testing.T) {
	for name, path := range map[string]func(dir string) string{
		"absolute":       func(dir string) string { return filepath.Join(dir, "lib") },
		"trailing slash": func(string) string { return "lib/" },
		"dot prefix":     func(string) string { return "./lib" },
	} {
		t.Run(name, func(t *testing.T) {
			dir := newProject(t)
			onChange := startWatcher(t, dir, path(dir))

			require.NoError(t, os.WriteFile(filepath.Join(dir, "lib", "main.dart"), []byte("void main() { }\n"), 0o644))

			select {
			case <-onChange:
			case <-time.After(500 * time.Millisecond):
				t.Fatal("expected notification for lib/main.dart")
			}
		})
	}
}

func TestWatcher_AbsolutePubspec(t *testing.T) {
	dir := newProject(t)
	onChange := startWatcher(t, dir, filepath.Join(dir, "pubspec.yaml"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "pubspec.yaml"), []byte("name: app2\n"), 0o644))

	select {
	case <-onChange:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification for pubspec.yaml")
	}
}

func TestWatcher_PathOutsideProject(t *testing.T) {
	_, err := watcher.New(watcher.Config{ProjectDir: newProject(t), Paths: []string{"../elsewhere"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "outside")
}

func TestWatcher_IgnoresToolchainGeneratedFiles(t *testing.T) {
	dir := newProject(t)
	onChange := startWatcher(t, dir, "android", "ios")

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "android", "app", "src", "main", "java", "io", "flutter", "plugins", "GeneratedPluginRegistrant.java"),
		[]byte("class GeneratedPluginRegistrant {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ios", "Flutter", "Generated.xcconfig"), []byte("FLUTTER_ROOT=/sdk\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "ios", "Flutter", "ephemeral"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ios", "Flutter", "ephemeral", "flutter_lldbinit"), []byte("x"), 0o644))

	select {
	case <-onChange:
		t.Fatal("unexpected notification for toolchain-generated files")
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "android", "app", "build.gradle"), []byte("android { }\n"), 0o644))
	select {
	case <-onChange:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification for build.gradle")
	}
}

func TestWatcher_FlushDiscardsPendingChanges(t *testing.T) {
	dir := newProject(t)
	w, err := watcher.New(watcher.Config{ProjectDir: dir, Paths: []string{"lib"}, DebounceDur: 200 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	onChange, err := w.Start()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib", "main.dart"), []byte("// build\n"), 0o644))
	time.Sleep(50 * time.Millisecond)
	w.Flush()

	select {
	case <-onChange:
		t.Fatal("flushed change still signalled")
	case <-time.After(400 * time.Millisecond):
	}

	// Changes after a flush still signal.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib", "main.dart"), []byte("// edit\n"), 0o644))
	select {
	case <-onChange:
	case <-time.After(time.Second):
		t.Fatal("expected notification after flush")
	}
}

func TestWatcher_NoWatchablePaths(t *testing.T) {
	w, err := watcher.New(watcher.Config{ProjectDir: t.TempDir(), Paths: []string{"lib"}, DebounceDur: time.Millisecond})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	_, err = w.Start()
	require.Error(t, err)
	require.Contains(t, err.Error(), "no watchable paths")
}

func TestDefaultConfig(t *testing.T) {
	cfg := watcher.DefaultConfig("/app")
	require.Equal(t, "/app", cfg.ProjectDir)
	require.Equal(t, watcher.DefaultPaths, cfg.Paths)
	require.Equal(t, 500*time.Millisecond, cfg.DebounceDur)
}
