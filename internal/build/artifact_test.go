package build

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocateArtifact_Android(t *testing.T) {
	loc := LocateArtifact(DefaultAndroidConfig("/app"))

	require.Equal(t, filepath.Join("/app", "build", "app", "outputs", "flutter-apk", "app-release.apk"), loc.Expected)
	require.Equal(t, filepath.Join("/app", "build_output", "apk", "app-release.apk"), loc.Destination)
}

func TestLocateArtifact_AndroidFlavor(t *testing.T) {
	cfg := DefaultAndroidConfig("/app")
	cfg.Flavor = "dev"
	cfg.Mode = ModeDebug

	loc := LocateArtifact(cfg)

	require.Equal(t, "app-dev-debug.apk", filepath.Base(loc.Expected))
	require.Equal(t, "app-dev-debug.apk", filepath.Base(loc.Destination))
}

func TestLocateArtifact_IOS(t *testing.T) {
	loc := LocateArtifact(DefaultIOSConfig("/app"))

	require.Equal(t, filepath.Join("/app", "build", "ios", "ipa", "Runner.ipa"), loc.Expected)
	require.Equal(t, filepath.Join("/app", "build_output", "ios", "Runner.ipa"), loc.Destination)
}

func TestLocateArtifact_CustomOutputDir(t *testing.T) {
	cfg := DefaultIOSConfig("/app")
	cfg.OutputDir = "/dist"

	require.Equal(t, filepath.Join("/dist", "ios", "Runner.ipa"), LocateArtifact(cfg).Destination)
}

func TestEnsureOutputDir_Idempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "build_output", "apk")

	require.NoError(t, EnsureOutputDir(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())

	marker := filepath.Join(dir, "keep.txt")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0o644))

	require.NoError(t, EnsureOutputDir(dir))
	_, err = os.Stat(marker)
	require.NoError(t, err, "second call must not disturb existing contents")
}

func TestEnsureOutputDir_FileCollision(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build_output")
	require.NoError(t, os.WriteFile(path, []byte("not a dir"), 0o644))

	err := EnsureOutputDir(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "creating output directory")
}

func TestRelocateArtifact_Moves(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app-release.apk")
	dst := filepath.Join(dir, "out", "app-release.apk")
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
	require.NoError(t, os.WriteFile(src, []byte("apk-bytes"), 0o644))

	got, err := RelocateArtifact(src, dst)
	require.NoError(t, err)
	require.Equal(t, dst, got)

	_, err = os.Stat(src)
	require.True(t, os.IsNotExist(err), "source must be gone after a move")
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "apk-bytes", string(data))
}

func TestRelocateArtifact_OverwritesDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "Runner.ipa")
	dst := filepath.Join(dir, "old.ipa")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))

	_, err := RelocateArtifact(src, dst)
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "new", string(data))
}

func TestRelocateArtifact_Missing(t *testing.T) {
	dir := t.TempDir()

	got, err := RelocateArtifact(filepath.Join(dir, "missing.apk"), filepath.Join(dir, "dst.apk"))

	require.ErrorIs(t, err, ErrArtifactNotFound)
	require.Empty(t, got)
}

func TestRelocateArtifact_DirectoryIsNotAnArtifact(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "Runner.ipa")
	require.NoError(t, os.Mkdir(src, 0o755))

	_, err := RelocateArtifact(src, filepath.Join(dir, "dst.ipa"))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrArtifactNotFound))
}

func TestCopyAndRemove(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.apk")
	dst := filepath.Join(dir, "b.apk")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o600))

	require.NoError(t, copyAndRemove(src, dst, 0o640))

	_, err := os.Stat(src)
	require.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
}

func TestIsCrossDevice(t *testing.T) {
	require.False(t, isCrossDevice(errors.New("boom")))
	require.False(t, isCrossDevice(&os.LinkError{Op: "rename", Err: os.ErrPermission}))
}
