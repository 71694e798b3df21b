package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/mobuild/internal/build"
	"github.com/zjrosen/mobuild/internal/config"
	"github.com/zjrosen/mobuild/internal/log"
	"github.com/zjrosen/mobuild/internal/paths"
)

var version = "dev"

// RunnerFactory builds the toolchain runner for a command's output streams.
type RunnerFactory func(stdout, stderr io.Writer) build.Runner

func defaultRunnerFactory(stdout, stderr io.Writer) build.Runner {
	return build.NewExecRunner(build.WithStdio(os.Stdin, stdout, stderr))
}

// app holds the state shared by every command of one invocation.
type app struct {
	v         *viper.Viper
	cfgFile   string
	cfg       config.Config
	newRunner RunnerFactory

	// projectDir is resolved once the config is loaded.
	projectDir string
	logCleanup func()
}

// NewRootCmd creates the mobuild command tree. A nil newRunner uses the
// real toolchain.
func NewRootCmd(newRunner RunnerFactory) *cobra.Command {
	root, _ := newRootCmd(newRunner)
	return root
}

func newRootCmd(newRunner RunnerFactory) (*cobra.Command, *app) {
	if newRunner == nil {
		newRunner = defaultRunnerFactory
	}
	a := &app{v: viper.New(), newRunner: newRunner}

	root := &cobra.Command{
		Use:   "mobuild",
		Short: "Build Flutter release artifacts",
		Long: `Build a Flutter project's Android APK or iOS IPA and move the result
into a predictable output directory (build_output/apk or build_output/ios).`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.loadConfig,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "",
		"config file (default: .mobuild/config.yaml, then ~/.config/mobuild/config.yaml)")
	flags.StringP("project", "p", "", "Flutter project directory (default: current directory)")
	flags.StringP("output", "o", "", "artifact output root (default: <project>/build_output)")
	flags.Bool("debug", false, "write debug log to <project>/.mobuild/debug.log")
	flags.Bool("no-color", false, "disable colored output")
	flags.Duration("timeout", 0, "abort the build after this duration (0 disables)")

	_ = a.v.BindPFlag("project_dir", flags.Lookup("project"))
	_ = a.v.BindPFlag("output_dir", flags.Lookup("output"))
	_ = a.v.BindPFlag("debug", flags.Lookup("debug"))
	_ = a.v.BindPFlag("no_color", flags.Lookup("no-color"))
	_ = a.v.BindPFlag("timeout", flags.Lookup("timeout"))

	root.AddCommand(
		newAndroidCmd(a),
		newIOSCmd(a),
		newWatchCmd(a),
		newHistoryCmd(a),
		newInitCmd(a),
		newConfigCmd(a),
	)
	return root, a
}

func setDefaults(v *viper.Viper) {
	defaults := config.Defaults()
	v.SetDefault("project_dir", "")
	v.SetDefault("output_dir", "")
	v.SetDefault("executable", defaults.Executable)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("debug", false)
	v.SetDefault("no_color", false)
	v.SetDefault("android.mode", defaults.Android.Mode)
	v.SetDefault("android.flavor", "")
	v.SetDefault("android.target_platforms", defaults.Android.TargetPlatforms)
	v.SetDefault("android.clean", defaults.Android.Clean)
	v.SetDefault("ios.scheme", defaults.IOS.Scheme)
	v.SetDefault("ios.workspace", defaults.IOS.Workspace)
	v.SetDefault("ios.configuration", defaults.IOS.Configuration)
	v.SetDefault("ios.export_method", defaults.IOS.ExportMethod)
	v.SetDefault("ios.clean", defaults.IOS.Clean)
	v.SetDefault("history.enabled", defaults.History.Enabled)
	v.SetDefault("history.path", "")
	v.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	v.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	v.SetDefault("tracing.file_path", "")
	v.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
	v.SetDefault("watch.paths", []string{})
}

// loadConfig reads defaults, the config file, MOBUILD_* env vars and flags
// (lowest to highest precedence) into a.cfg.
func (a *app) loadConfig(cmd *cobra.Command, _ []string) error {
	setDefaults(a.v)
	a.v.SetEnvPrefix("MOBUILD")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	// init creates the file --config names, so it may not exist yet.
	path, err := a.configFile(cmd.Name() == "init")
	if err != nil {
		return err
	}
	if path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := a.v.Unmarshal(&a.cfg); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	if err := config.Validate(a.cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.projectDir, err = a.cfg.ResolveProjectDir()
	if err != nil {
		return err
	}

	if a.cfg.Debug {
		cleanup, err := log.Init(filepath.Join(config.StateDir(a.projectDir), "debug.log"))
		if err != nil {
			return fmt.Errorf("initializing debug log: %w", err)
		}
		a.logCleanup = cleanup
	}
	log.Debug(log.CatConfig, "Loaded config", "file", path, "project", a.projectDir, "command", cmd.Name())
	return nil
}

// configFile returns the config file to read, or "" when none exists.
// Lookup order:
//  1. --config
//  2. .mobuild/config.yaml in the --project root
//  3. .mobuild/config.yaml (current directory)
//  4. ~/.config/mobuild/config.yaml (user config)
func (a *app) configFile(allowMissing bool) (string, error) {
	if a.cfgFile != "" {
		if _, err := os.Stat(a.cfgFile); err != nil {
			if allowMissing && os.IsNotExist(err) {
				return "", nil
			}
			return "", fmt.Errorf("config file: %w", err)
		}
		return a.cfgFile, nil
	}

	var candidates []string
	if project := a.v.GetString("project_dir"); project != "" {
		if root, err := paths.ResolveProjectDir(project); err == nil {
			candidates = append(candidates, filepath.Join(root, config.DefaultConfigPath))
		}
	}
	candidates = append(candidates, config.DefaultConfigPath)
	if dir := config.UserConfigDir(); dir != "" {
		candidates = append(candidates, filepath.Join(dir, "config.yaml"))
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", nil
}

// writableConfigFile is where `init` and `config set` write: the loaded
// file, else the project-local default.
func (a *app) writableConfigFile() string {
	if used := a.v.ConfigFileUsed(); used != "" {
		return used
	}
	return filepath.Join(a.projectDir, config.DefaultConfigPath)
}

func (a *app) close() {
	if a.logCleanup != nil {
		a.logCleanup()
		a.logCleanup = nil
	}
}

// Execute runs the root command. Interrupts cancel a running build.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, a := newRootCmd(nil)
	defer a.close()

	err := root.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, build.ErrBuildCommandFailed) {
		// Toolchain failures were already reported as "Build failed".
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	}
	return err
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
}

// shutdownTimeout bounds span flushing after a run.
const shutdownTimeout = 5 * time.Second
