package build

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/zjrosen/mobuild/internal/log"
)

// ArtifactLocation pairs the toolchain's conventional output path with the
// stable destination the artifact is moved to.
type ArtifactLocation struct {
	Expected    string
	Destination string
}

// ArtifactName returns the file name the toolchain writes for cfg.
func ArtifactName(cfg Config) string {
	switch cfg.Platform {
	case PlatformIOS:
		scheme := cfg.Scheme
		if scheme == "" {
			scheme = DefaultScheme
		}
		return scheme + ".ipa"
	default:
		mode := cfg.Mode
		if mode == "" {
			mode = ModeRelease
		}
		if cfg.Flavor != "" {
			return fmt.Sprintf("app-%s-%s.apk", cfg.Flavor, mode)
		}
		return fmt.Sprintf("app-%s.apk", mode)
	}
}

// LocateArtifact derives the expected and destination paths for cfg.
func LocateArtifact(cfg Config) ArtifactLocation {
	name := ArtifactName(cfg)

	var expected string
	switch cfg.Platform {
	case PlatformIOS:
		expected = filepath.Join(cfg.ProjectDir, "build", "ios", "ipa", name)
	default:
		expected = filepath.Join(cfg.ProjectDir, "build", "app", "outputs", "flutter-apk", name)
	}

	return ArtifactLocation{
		Expected:    expected,
		Destination: filepath.Join(cfg.PlatformOutputDir(), name),
	}
}

// EnsureOutputDir creates path and any missing parents. It is idempotent and
// fails when path exists as a non-directory or cannot be created.
func EnsureOutputDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		log.ErrorErr(log.CatBuild, "Failed to create output directory", err, "path", path)
		return fmt.Errorf("creating output directory %s: %w", path, err)
	}
	log.Debug(log.CatBuild, "Output directory ready", "path", path)
	return nil
}

// RelocateArtifact moves expected to dest and returns dest. The move is a
// rename when both paths share a filesystem, otherwise copy then delete.
// Returns ErrArtifactNotFound when expected does not exist.
func RelocateArtifact(expected, dest string) (string, error) {
	info, err := os.Stat(expected)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn(log.CatBuild, "Artifact not found", "path", expected)
		return "", ErrArtifactNotFound
	}
	if err != nil {
		return "", fmt.Errorf("checking artifact %s: %w", expected, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("artifact %s is a directory", expected)
	}

	if err := os.Rename(expected, dest); err != nil {
		if !isCrossDevice(err) {
			log.ErrorErr(log.CatBuild, "Failed to move artifact", err, "from", expected, "to", dest)
			return "", fmt.Errorf("moving artifact: %w", err)
		}
		log.Debug(log.CatBuild, "Cross-device rename, copying artifact", "from", expected, "to", dest)
		if err := copyAndRemove(expected, dest, info.Mode().Perm()); err != nil {
			log.ErrorErr(log.CatBuild, "Failed to copy artifact", err, "from", expected, "to", dest)
			return "", fmt.Errorf("moving artifact: %w", err)
		}
	}

	log.Info(log.CatBuild, "Artifact relocated", "from", expected, "to", dest)
	return dest, nil
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	return errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV)
}

// copyAndRemove writes src to a temp file beside dst, renames it into place,
// then removes src. dst is never left half-written.
func copyAndRemove(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src) //nolint:gosec // G304: src is the toolchain's output path
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	temp, err := os.CreateTemp(filepath.Dir(dst), ".mobuild-artifact.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := io.Copy(temp, in); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("copying artifact: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tempPath, perm); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("setting artifact permissions: %w", err)
	}
	if err := os.Rename(tempPath, dst); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	if err := in.Close(); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("removing original artifact: %w", err)
	}
	return nil
}
