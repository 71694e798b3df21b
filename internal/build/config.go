package build

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Platform identifies the package format a build produces.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// ArtifactKind returns the short package name used in console output.
func (p Platform) ArtifactKind() string {
	switch p {
	case PlatformAndroid:
		return "APK"
	case PlatformIOS:
		return "IPA"
	default:
		return "artifact"
	}
}

// outputSubdir is the directory under the output root that receives the artifact.
func (p Platform) outputSubdir() string {
	switch p {
	case PlatformAndroid:
		return "apk"
	default:
		return string(p)
	}
}

// ParsePlatform converts a string to a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case PlatformAndroid, "apk":
		return PlatformAndroid, nil
	case PlatformIOS, "ipa":
		return PlatformIOS, nil
	default:
		return "", fmt.Errorf("invalid platform %q (must be \"android\" or \"ios\")", s)
	}
}

// Mode is the compilation profile passed to the toolchain.
type Mode string

const (
	ModeDebug   Mode = "debug"
	ModeProfile Mode = "profile"
	ModeRelease Mode = "release"
)

// ValidModes lists the accepted build modes.
var ValidModes = []Mode{ModeDebug, ModeProfile, ModeRelease}

// ParseMode converts a string to a Mode. The empty string is accepted and
// leaves the mode to the toolchain's default.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m == "" || slices.Contains(ValidModes, m) {
		return m, nil
	}
	return "", fmt.Errorf("invalid build mode %q (must be \"debug\", \"profile\" or \"release\")", s)
}

// ValidExportMethods lists the IPA export methods flutter accepts.
var ValidExportMethods = []string{"ad-hoc", "app-store", "development", "enterprise"}

// DefaultTargetPlatforms are the Android ABIs built when none are configured.
var DefaultTargetPlatforms = []string{"android-arm", "android-arm64", "android-x64"}

const (
	// DefaultExecutable is the toolchain binary looked up on PATH.
	DefaultExecutable = "flutter"

	// DefaultOutputDirName is the directory under the project root receiving artifacts.
	DefaultOutputDirName = "build_output"

	// DefaultScheme is the Xcode scheme of a stock Flutter app.
	DefaultScheme = "Runner"
)

// Config is the immutable configuration of one build invocation.
// It is passed by value; callers must not share TargetPlatforms slices.
type Config struct {
	ProjectDir string
	// OutputDir is the root receiving artifacts; the platform subdirectory
	// ("apk" or "ios") is appended. Defaults to <ProjectDir>/build_output.
	OutputDir  string
	Platform   Platform
	Executable string
	Mode       Mode

	// Android
	Flavor          string
	TargetPlatforms []string

	// iOS
	Scheme        string
	Workspace     string // informational; flutter resolves the workspace itself
	Configuration string
	ExportMethod  string

	// Clean runs "flutter clean" before the build.
	Clean   bool
	Timeout time.Duration
}

// DefaultAndroidConfig returns the stock release APK configuration.
func DefaultAndroidConfig(projectDir string) Config {
	return Config{
		ProjectDir:      projectDir,
		Platform:        PlatformAndroid,
		Executable:      DefaultExecutable,
		Mode:            ModeRelease,
		TargetPlatforms: slices.Clone(DefaultTargetPlatforms),
		Clean:           true,
	}
}

// DefaultIOSConfig returns the stock ad-hoc IPA configuration.
func DefaultIOSConfig(projectDir string) Config {
	return Config{
		ProjectDir:    projectDir,
		Platform:      PlatformIOS,
		Executable:    DefaultExecutable,
		Scheme:        DefaultScheme,
		Workspace:     filepath.Join("ios", "Runner.xcworkspace"),
		Configuration: "Release",
		ExportMethod:  "ad-hoc",
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.ProjectDir == "" {
		return fmt.Errorf("project directory is required")
	}
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}

	switch c.Platform {
	case PlatformAndroid:
		if len(c.TargetPlatforms) == 0 {
			return fmt.Errorf("android: at least one target platform is required")
		}
		for i, tp := range c.TargetPlatforms {
			if strings.TrimSpace(tp) == "" || strings.Contains(tp, ",") {
				return fmt.Errorf("android: target platform %d is invalid: %q", i, tp)
			}
		}
	case PlatformIOS:
		if c.ExportMethod != "" && !slices.Contains(ValidExportMethods, c.ExportMethod) {
			return fmt.Errorf("ios: invalid export method %q (must be one of %s)",
				c.ExportMethod, strings.Join(ValidExportMethods, ", "))
		}
	default:
		return fmt.Errorf("invalid platform %q (must be \"android\" or \"ios\")", c.Platform)
	}
	return nil
}

// executable returns the toolchain binary, defaulting to "flutter".
func (c Config) executable() string {
	if c.Executable == "" {
		return DefaultExecutable
	}
	return c.Executable
}

// OutputRoot returns the configured output root or <ProjectDir>/build_output.
func (c Config) OutputRoot() string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	return filepath.Join(c.ProjectDir, DefaultOutputDirName)
}

// PlatformOutputDir returns the directory that receives this platform's artifact.
func (c Config) PlatformOutputDir() string {
	return filepath.Join(c.OutputRoot(), c.Platform.outputSubdir())
}
