package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProject_StandardLayout(t *testing.T) {
	dir := NewProject(t).WithStandardLayout().Build()

	require.FileExists(t, filepath.Join(dir, "pubspec.yaml"))
	require.FileExists(t, filepath.Join(dir, "lib", "main.dart"))
	require.DirExists(t, filepath.Join(dir, "lib", "src"))
	require.DirExists(t, filepath.Join(dir, "build"))
}

func TestProject_Artifacts(t *testing.T) {
	dir := NewProject(t).WithAPK("app-release.apk").WithIPA("Runner.ipa").Build()

	data, err := os.ReadFile(filepath.Join(dir, APKOutputDir, "app-release.apk"))
	require.NoError(t, err)
	require.Equal(t, "apk:app-release.apk", string(data))
	require.FileExists(t, filepath.Join(dir, IPAOutputDir, "Runner.ipa"))
}

func TestProject_FileMode(t *testing.T) {
	dir := NewProject(t).WithFile("tool/build.sh", "#!/bin/sh\n", Mode(0o755)).Build()

	info, err := os.Stat(filepath.Join(dir, "tool", "build.sh"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestNewTestDB(t *testing.T) {
	db := NewTestDB(t)

	_, err := db.Exec(`CREATE TABLE t (id INTEGER)`)
	require.NoError(t, err)
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n))
	require.Zero(t, n)
}
