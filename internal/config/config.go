// Package config provides configuration types and defaults for mobuild.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/zjrosen/mobuild/internal/build"
	"github.com/zjrosen/mobuild/internal/log"
	"github.com/zjrosen/mobuild/internal/paths"
	"github.com/zjrosen/mobuild/internal/tracing"
)

// Config holds all configuration options for mobuild.
type Config struct {
	ProjectDir string        `mapstructure:"project_dir"`
	OutputDir  string        `mapstructure:"output_dir"`
	Executable string        `mapstructure:"executable"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Debug      bool          `mapstructure:"debug"`
	NoColor    bool          `mapstructure:"no_color"`

	Android AndroidConfig `mapstructure:"android"`
	IOS     IOSConfig     `mapstructure:"ios"`
	Tracing TracingConfig `mapstructure:"tracing"`
	History HistoryConfig `mapstructure:"history"`
	Watch   WatchConfig   `mapstructure:"watch"`
}

// AndroidConfig holds the APK build settings.
type AndroidConfig struct {
	Mode            string   `mapstructure:"mode"`
	Flavor          string   `mapstructure:"flavor"`
	TargetPlatforms []string `mapstructure:"target_platforms"`
	Clean           bool     `mapstructure:"clean"`
}

// IOSConfig holds the IPA build settings.
type IOSConfig struct {
	Scheme        string `mapstructure:"scheme"`
	Workspace     string `mapstructure:"workspace"`
	Configuration string `mapstructure:"configuration"`
	ExportMethod  string `mapstructure:"export_method"` // "ad-hoc" (default), "app-store", "development", "enterprise"
	Clean         bool   `mapstructure:"clean"`
}

// TracingConfig holds build pipeline tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter is "none", "file", "stdout" or "otlp".
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is where the "file" exporter writes JSONL spans.
	// Default: <project>/.mobuild/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector address for the "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate is the fraction of runs traced.
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// HistoryConfig controls the build-run history database.
type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Path defaults to <project>/.mobuild/history.db; relative paths are
	// resolved against the project root.
	Path string `mapstructure:"path"`
}

// WatchConfig controls `mobuild watch`.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
	Paths    []string      `mapstructure:"paths"`
}

// StateDirName is the per-project directory holding config, history and logs.
const StateDirName = ".mobuild"

// DefaultConfigPath is the project-local config file written by `mobuild init`.
var DefaultConfigPath = filepath.Join(StateDirName, "config.yaml")

// UserConfigDir returns ~/.config/mobuild or empty string if home dir unavailable.
func UserConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "mobuild")
}

// Defaults returns the default configuration.
func Defaults() Config {
	android := build.DefaultAndroidConfig("")
	ios := build.DefaultIOSConfig("")
	return Config{
		Executable: build.DefaultExecutable,
		Android: AndroidConfig{
			Mode:            string(android.Mode),
			TargetPlatforms: android.TargetPlatforms,
			Clean:           android.Clean,
		},
		IOS: IOSConfig{
			Scheme:        ios.Scheme,
			Workspace:     ios.Workspace,
			Configuration: ios.Configuration,
			ExportMethod:  ios.ExportMethod,
			Clean:         ios.Clean,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Validate checks the whole configuration, returning the first error found.
func Validate(c Config) error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if err := ValidateAndroid(c.Android); err != nil {
		return err
	}
	if err := ValidateIOS(c.IOS); err != nil {
		return err
	}
	if err := ValidateTracing(c.Tracing); err != nil {
		return err
	}
	return ValidateWatch(c.Watch)
}

// ValidateAndroid checks Android build configuration for errors.
func ValidateAndroid(a AndroidConfig) error {
	if _, err := build.ParseMode(a.Mode); err != nil {
		return fmt.Errorf("android.mode: %w", err)
	}
	if len(a.TargetPlatforms) == 0 {
		return fmt.Errorf("android.target_platforms must list at least one platform")
	}
	for i, tp := range a.TargetPlatforms {
		if strings.TrimSpace(tp) == "" {
			return fmt.Errorf("android.target_platforms[%d] is empty", i)
		}
	}
	return nil
}

// ValidateIOS checks iOS build configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateIOS(i IOSConfig) error {
	if i.ExportMethod != "" && !slices.Contains(build.ValidExportMethods, i.ExportMethod) {
		return fmt.Errorf("ios.export_method must be one of %s, got %q",
			strings.Join(build.ValidExportMethods, ", "), i.ExportMethod)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// file_path falls back to the project state dir, so only the endpoint is required.
	if tracing.Enabled && tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
		return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
	}

	return nil
}

// ValidateWatch checks watch configuration for errors.
func ValidateWatch(w WatchConfig) error {
	if w.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", w.Debounce)
	}
	for i, p := range w.Paths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("watch.paths[%d] is empty", i)
		}
	}
	return nil
}

// ResolveProjectDir returns the absolute project root: the nearest
// directory at or above project_dir (default: working directory) that
// contains pubspec.yaml.
func (c Config) ResolveProjectDir() (string, error) {
	dir, err := paths.ResolveProjectDir(c.ProjectDir)
	if err != nil {
		return "", fmt.Errorf("resolving project directory: %w", err)
	}
	return dir, nil
}

// StateDir returns <project>/.mobuild.
func StateDir(projectDir string) string {
	return filepath.Join(projectDir, StateDirName)
}

// BuildConfig produces the immutable build configuration for one platform.
// projectDir must already be resolved.
func (c Config) BuildConfig(platform build.Platform, projectDir string) (build.Config, error) {
	var bc build.Config
	switch platform {
	case build.PlatformAndroid:
		mode, err := build.ParseMode(c.Android.Mode)
		if err != nil {
			return build.Config{}, err
		}
		bc = build.DefaultAndroidConfig(projectDir)
		bc.Mode = mode
		bc.Flavor = c.Android.Flavor
		if len(c.Android.TargetPlatforms) > 0 {
			bc.TargetPlatforms = slices.Clone(c.Android.TargetPlatforms)
		}
		bc.Clean = c.Android.Clean
	case build.PlatformIOS:
		bc = build.DefaultIOSConfig(projectDir)
		if c.IOS.Scheme != "" {
			bc.Scheme = c.IOS.Scheme
		}
		if c.IOS.Workspace != "" {
			bc.Workspace = c.IOS.Workspace
		}
		if c.IOS.Configuration != "" {
			bc.Configuration = c.IOS.Configuration
		}
		if c.IOS.ExportMethod != "" {
			bc.ExportMethod = c.IOS.ExportMethod
		}
		bc.Clean = c.IOS.Clean
	default:
		return build.Config{}, fmt.Errorf("invalid platform %q", platform)
	}

	if c.Executable != "" {
		bc.Executable = c.Executable
	}
	if c.OutputDir != "" {
		bc.OutputDir = projectPath(projectDir, c.OutputDir)
	}
	bc.Timeout = c.Timeout

	if err := bc.Validate(); err != nil {
		return build.Config{}, err
	}
	return bc, nil
}

// TracingProviderConfig converts the tracing section into a tracing.Config,
// placing the trace file under the project state dir when unset.
func (c Config) TracingProviderConfig(projectDir string) tracing.Config {
	tc := tracing.DefaultConfig()
	tc.Enabled = c.Tracing.Enabled
	if c.Tracing.Exporter != "" {
		tc.Exporter = c.Tracing.Exporter
	}
	tc.FilePath = filepath.Join(StateDir(projectDir), "traces.jsonl")
	if c.Tracing.FilePath != "" {
		tc.FilePath = projectPath(projectDir, c.Tracing.FilePath)
	}
	if c.Tracing.OTLPEndpoint != "" {
		tc.OTLPEndpoint = c.Tracing.OTLPEndpoint
	}
	tc.SampleRate = c.Tracing.SampleRate
	tc.Project = projectDir
	return tc
}

// HistoryPath returns the history database path for projectDir.
func (c Config) HistoryPath(projectDir string) string {
	if c.History.Path != "" {
		return projectPath(projectDir, c.History.Path)
	}
	return filepath.Join(StateDir(projectDir), "history.db")
}

// projectPath resolves a configured path against the project root unless
// it is already absolute.
func projectPath(projectDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(projectDir, p)
}

// DefaultConfigTemplate returns a well-documented config template for new users.
func DefaultConfigTemplate() string {
	return `# mobuild configuration
#
# Lookup order: --config, .mobuild/config.yaml, ~/.config/mobuild/config.yaml.
# Every key can be overridden with a MOBUILD_ environment variable,
# e.g. MOBUILD_ANDROID_MODE=debug or MOBUILD_TIMEOUT=45m.

# Flutter project root (default: current directory)
# project_dir: /path/to/app

# Artifact output root, relative to the project (default: build_output)
# output_dir: build_output

# Toolchain binary looked up on PATH
executable: flutter

# Abort a build that runs longer than this (0 disables)
# timeout: 30m

android:
  mode: release          # debug, profile or release
  # flavor: staging      # product flavor; the APK becomes app-<flavor>-<mode>.apk
  target_platforms:
    - android-arm
    - android-arm64
    - android-x64
  clean: true            # run "flutter clean" before building

ios:
  scheme: Runner
  workspace: ios/Runner.xcworkspace
  configuration: Release
  export_method: ad-hoc  # ad-hoc, app-store, development or enterprise
  clean: false

# Build-run history, listed with "mobuild history"
history:
  enabled: true
  # path: .mobuild/history.db   # relative to the project root

# Pipeline tracing (OpenTelemetry)
tracing:
  enabled: false
  exporter: file         # none, file, stdout or otlp
  # file_path: .mobuild/traces.jsonl   # relative to the project root
  otlp_endpoint: localhost:4317
  sample_rate: 1.0

# mobuild watch
watch:
  debounce: 500ms
  # paths: [lib, pubspec.yaml, android, ios, assets]
`
}

// WriteDefaultConfig creates a config file with default settings.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	// O_EXCL keeps an existing, possibly hand-edited config intact.
	f, err := os.OpenFile(configPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("config file already exists: %s", configPath)
		}
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}
	if _, err := f.WriteString(DefaultConfigTemplate()); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing config file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
