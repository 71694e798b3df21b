package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/mobuild/internal/build"
	"github.com/zjrosen/mobuild/internal/testutil"
)

func TestDefaults_Valid(t *testing.T) {
	require.NoError(t, Validate(Defaults()))
}

func TestDefaults_MatchBuildDefaults(t *testing.T) {
	d := Defaults()

	require.Equal(t, "release", d.Android.Mode)
	require.Equal(t, build.DefaultTargetPlatforms, d.Android.TargetPlatforms)
	require.True(t, d.Android.Clean)
	require.Equal(t, "Runner", d.IOS.Scheme)
	require.Equal(t, "ad-hoc", d.IOS.ExportMethod)
	require.False(t, d.IOS.Clean)
	require.True(t, d.History.Enabled)
	require.False(t, d.Tracing.Enabled)
}

func TestValidateAndroid(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AndroidConfig
		wantErr string
	}{
		{name: "valid", cfg: AndroidConfig{Mode: "debug", TargetPlatforms: []string{"android-arm64"}}},
		{name: "empty mode uses toolchain default", cfg: AndroidConfig{TargetPlatforms: []string{"android-arm64"}}},
		{name: "unknown mode", cfg: AndroidConfig{Mode: "fast", TargetPlatforms: []string{"android-arm64"}}, wantErr: "android.mode"},
		{name: "no platforms", cfg: AndroidConfig{Mode: "release"}, wantErr: "at least one platform"},
		{name: "blank platform", cfg: AndroidConfig{Mode: "release", TargetPlatforms: []string{"android-arm", " "}}, wantErr: "target_platforms[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAndroid(tt.cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateIOS(t *testing.T) {
	require.NoError(t, ValidateIOS(IOSConfig{}))
	require.NoError(t, ValidateIOS(IOSConfig{ExportMethod: "app-store"}))

	err := ValidateIOS(IOSConfig{ExportMethod: "sideload"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "ios.export_method")
}

func TestValidateTracing(t *testing.T) {
	require.NoError(t, ValidateTracing(TracingConfig{}))
	require.NoError(t, ValidateTracing(TracingConfig{Enabled: true, Exporter: "file"}), "file path has a default")

	err := ValidateTracing(TracingConfig{SampleRate: 1.5})
	require.Error(t, err)
	require.Contains(t, err.Error(), "sample_rate")

	err = ValidateTracing(TracingConfig{Exporter: "jaeger"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "tracing.exporter")

	err = ValidateTracing(TracingConfig{Enabled: true, Exporter: "otlp"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "otlp_endpoint")
}

func TestValidate_NegativeDurations(t *testing.T) {
	cfg := Defaults()
	cfg.Timeout = -time.Second
	require.ErrorContains(t, Validate(cfg), "timeout")

	cfg = Defaults()
	cfg.Watch.Debounce = -time.Second
	require.ErrorContains(t, Validate(cfg), "watch.debounce")
}

func TestBuildConfig_AndroidDefaults(t *testing.T) {
	bc, err := Defaults().BuildConfig(build.PlatformAndroid, "/app")
	require.NoError(t, err)

	require.Equal(t, build.DefaultAndroidConfig("/app"), bc)
	require.Equal(t,
		"flutter build apk --release --target-platform android-arm,android-arm64,android-x64",
		build.ComposeBuildCommand(bc).String())
}

func TestBuildConfig_IOSDefaults(t *testing.T) {
	bc, err := Defaults().BuildConfig(build.PlatformIOS, "/app")
	require.NoError(t, err)

	require.Equal(t, build.DefaultIOSConfig("/app"), bc)
	require.Equal(t,
		"flutter build ipa --export-method ad-hoc --scheme Runner --configuration Release",
		build.ComposeBuildCommand(bc).String())
}

func TestBuildConfig_Overrides(t *testing.T) {
	cfg := Defaults()
	cfg.Executable = "fvm"
	cfg.OutputDir = "dist"
	cfg.Timeout = 10 * time.Minute
	cfg.Android.Mode = "profile"
	cfg.Android.Flavor = "staging"
	cfg.Android.TargetPlatforms = []string{"android-arm64"}
	cfg.Android.Clean = false

	bc, err := cfg.BuildConfig(build.PlatformAndroid, "/app")
	require.NoError(t, err)

	require.Equal(t, "fvm", bc.Executable)
	require.Equal(t, filepath.Join("/app", "dist"), bc.OutputDir)
	require.Equal(t, 10*time.Minute, bc.Timeout)
	require.Equal(t, build.ModeProfile, bc.Mode)
	require.Equal(t, "staging", bc.Flavor)
	require.False(t, bc.Clean)

	// The build config must not alias the config's slice.
	bc.TargetPlatforms[0] = "changed"
	require.Equal(t, "android-arm64", cfg.Android.TargetPlatforms[0])
}

func TestBuildConfig_AbsoluteOutputDir(t *testing.T) {
	cfg := Defaults()
	cfg.OutputDir = "/srv/artifacts"

	bc, err := cfg.BuildConfig(build.PlatformIOS, "/app")
	require.NoError(t, err)
	require.Equal(t, "/srv/artifacts", bc.OutputDir)
}

func TestBuildConfig_Invalid(t *testing.T) {
	cfg := Defaults()
	cfg.Android.Mode = "turbo"
	_, err := cfg.BuildConfig(build.PlatformAndroid, "/app")
	require.Error(t, err)

	_, err = Defaults().BuildConfig(build.Platform("windows"), "/app")
	require.Error(t, err)
}

func TestTracingProviderConfig_DefaultFilePath(t *testing.T) {
	cfg := Defaults()
	cfg.Tracing.Enabled = true

	tc := cfg.TracingProviderConfig("/app")
	require.True(t, tc.Enabled)
	require.Equal(t, "file", tc.Exporter)
	require.Equal(t, filepath.Join("/app", ".mobuild", "traces.jsonl"), tc.FilePath)
	require.Equal(t, "mobuild", tc.ServiceName)
	require.Equal(t, "/app", tc.Project)
}

func TestHistoryPath(t *testing.T) {
	cfg := Defaults()
	require.Equal(t, filepath.Join("/app", ".mobuild", "history.db"), cfg.HistoryPath("/app"))

	cfg.History.Path = "/tmp/h.db"
	require.Equal(t, "/tmp/h.db", cfg.HistoryPath("/app"))

	cfg.History.Path = "var/history.db"
	require.Equal(t, filepath.Join("/app", "var", "history.db"), cfg.HistoryPath("/app"),
		"relative paths resolve against the project like output_dir")
}

func TestTracingProviderConfig_RelativeFilePath(t *testing.T) {
	cfg := Defaults()
	cfg.Tracing.FilePath = "traces/run.jsonl"
	require.Equal(t, filepath.Join("/app", "traces", "run.jsonl"), cfg.TracingProviderConfig("/app").FilePath)

	cfg.Tracing.FilePath = "/var/log/run.jsonl"
	require.Equal(t, "/var/log/run.jsonl", cfg.TracingProviderConfig("/app").FilePath)
}

func TestResolveProjectDir(t *testing.T) {
	project := testutil.NewProject(t).WithStandardLayout().Build()

	got, err := Config{ProjectDir: project}.ResolveProjectDir()
	require.NoError(t, err)
	require.Equal(t, project, got)

	got, err = Config{ProjectDir: filepath.Join(project, "lib", "src")}.ResolveProjectDir()
	require.NoError(t, err)
	require.Equal(t, project, got, "walks up to pubspec.yaml")
}

func TestDefaultConfigTemplate_ParsesAndMatchesDefaults(t *testing.T) {
	var raw map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(DefaultConfigTemplate()), &raw))

	android, ok := raw["android"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "release", android["mode"])
	require.Equal(t, true, android["clean"])

	ios, ok := raw["ios"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "ad-hoc", ios["export_method"])
	require.Equal(t, false, ios["clean"])
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".mobuild", "config.yaml")

	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfigTemplate(), string(data))
}

func TestWriteDefaultConfig_DoesNotOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("executable: fvm\n"), 0o600))

	err := WriteDefaultConfig(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "already exists")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "executable: fvm\n", string(data))
}
