package build

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestComposeBuildCommand_AndroidRelease(t *testing.T) {
	cfg := Config{
		ProjectDir:      "/app",
		Platform:        PlatformAndroid,
		Mode:            ModeRelease,
		TargetPlatforms: []string{"android-arm", "android-arm64", "android-x64"},
	}

	cmd := ComposeBuildCommand(cfg)

	require.Equal(t, "flutter build apk --release --target-platform android-arm,android-arm64,android-x64", cmd.String())
	require.Equal(t, "flutter", cmd.Name)
	require.Equal(t, []string{"build", "apk", "--release", "--target-platform", "android-arm,android-arm64,android-x64"}, cmd.Args)
}

func TestComposeBuildCommand_AndroidFlavor(t *testing.T) {
	cfg := DefaultAndroidConfig("/app")
	cfg.Flavor = "prod"
	cfg.Mode = ModeProfile

	cmd := ComposeBuildCommand(cfg)

	require.Equal(t, "flutter build apk --profile --flavor prod --target-platform android-arm,android-arm64,android-x64", cmd.String())
}

func TestComposeBuildCommand_AndroidNoMode(t *testing.T) {
	cfg := DefaultAndroidConfig("/app")
	cfg.Mode = ""
	cfg.TargetPlatforms = []string{"android-arm64"}

	require.Equal(t, "flutter build apk --target-platform android-arm64", ComposeBuildCommand(cfg).String())
}

func TestComposeBuildCommand_IOS(t *testing.T) {
	cfg := Config{
		ProjectDir:    "/app",
		Platform:      PlatformIOS,
		Scheme:        "Runner",
		Configuration: "Release",
		ExportMethod:  "ad-hoc",
	}

	cmd := ComposeBuildCommand(cfg)

	require.Equal(t, "flutter build ipa --export-method ad-hoc --scheme Runner --configuration Release", cmd.String())
}

func TestComposeBuildCommand_IOSDefaults(t *testing.T) {
	cmd := ComposeBuildCommand(DefaultIOSConfig("/app"))
	require.Equal(t, "flutter build ipa --export-method ad-hoc --scheme Runner --configuration Release", cmd.String())
}

func TestComposeBuildCommand_CustomExecutable(t *testing.T) {
	cfg := DefaultAndroidConfig("/app")
	cfg.Executable = "/opt/flutter/bin/flutter"

	require.Equal(t, "/opt/flutter/bin/flutter", ComposeBuildCommand(cfg).Name)
	require.Equal(t, "/opt/flutter/bin/flutter", ComposeCleanCommand(cfg).Name)
}

func TestComposeCleanCommand(t *testing.T) {
	require.Equal(t, "flutter clean", ComposeCleanCommand(DefaultIOSConfig("/app")).String())
}

func TestCommand_StringQuotesWhitespace(t *testing.T) {
	cmd := Command{Name: "flutter", Args: []string{"build", "ipa", "--scheme", "My App", ""}}
	require.Equal(t, `flutter build ipa --scheme "My App" ""`, cmd.String())
}

func TestCommand_ArgvDoesNotAliasArgs(t *testing.T) {
	cmd := Command{Name: "flutter", Args: []string{"clean"}}
	argv := cmd.Argv()
	argv[1] = "changed"
	require.Equal(t, "clean", cmd.Args[0])
}

// TestComposeBuildCommand_Deterministic checks that equal configs always
// compose byte-identical commands.
func TestComposeBuildCommand_Deterministic(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		cfg := Config{
			ProjectDir:      "/app",
			Platform:        rapid.SampledFrom([]Platform{PlatformAndroid, PlatformIOS}).Draw(r, "platform"),
			Mode:            rapid.SampledFrom([]Mode{"", ModeDebug, ModeProfile, ModeRelease}).Draw(r, "mode"),
			Flavor:          rapid.StringMatching(`[a-z]{0,8}`).Draw(r, "flavor"),
			TargetPlatforms: rapid.SliceOfN(rapid.StringMatching(`android-[a-z0-9]{1,6}`), 1, 4).Draw(r, "targets"),
			Scheme:          rapid.StringMatching(`[A-Za-z]{0,10}`).Draw(r, "scheme"),
			Configuration:   rapid.SampledFrom([]string{"", "Debug", "Release"}).Draw(r, "configuration"),
			ExportMethod:    rapid.SampledFrom(append([]string{""}, ValidExportMethods...)).Draw(r, "exportMethod"),
		}
		clone := cfg
		clone.TargetPlatforms = append([]string(nil), cfg.TargetPlatforms...)

		first := ComposeBuildCommand(cfg)
		second := ComposeBuildCommand(clone)

		if first.String() != second.String() {
			r.Fatalf("non-deterministic command: %q vs %q", first, second)
		}
		if cfg.Platform == PlatformAndroid && cfg.Flavor != "" &&
			!strings.Contains(first.String(), "--flavor "+cfg.Flavor) {
			r.Fatalf("flavor missing from %q", first)
		}
	})
}
