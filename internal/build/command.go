package build

import (
	"strconv"
	"strings"
)

// Command is an argument vector for the toolchain. It is never interpreted
// by a shell.
type Command struct {
	Name string
	Args []string
}

// Argv returns the full argument vector including the executable.
func (c Command) Argv() []string {
	argv := make([]string, 0, len(c.Args)+1)
	argv = append(argv, c.Name)
	return append(argv, c.Args...)
}

// String renders the command as a single line for display and logging.
// Arguments containing whitespace or quotes are quoted.
func (c Command) String() string {
	parts := c.Argv()
	for i, p := range parts {
		if p == "" || strings.ContainsAny(p, " \t\n\"'") {
			parts[i] = strconv.Quote(p)
		}
	}
	return strings.Join(parts, " ")
}

// ComposeBuildCommand maps a Config to the toolchain invocation.
// Flags are appended in a fixed order: verb, mode, flavor, configuration,
// target platforms. The same Config always yields the same Command.
func ComposeBuildCommand(cfg Config) Command {
	switch cfg.Platform {
	case PlatformIOS:
		return composeIOS(cfg)
	default:
		return composeAndroid(cfg)
	}
}

// ComposeCleanCommand returns the optional cleanup run before a build.
func ComposeCleanCommand(cfg Config) Command {
	return Command{Name: cfg.executable(), Args: []string{"clean"}}
}

// composeAndroid builds: flutter build apk [--<mode>] [--flavor <f>] --target-platform <a,b,c>
func composeAndroid(cfg Config) Command {
	args := []string{"build", "apk"}
	if cfg.Mode != "" {
		args = append(args, "--"+string(cfg.Mode))
	}
	if cfg.Flavor != "" {
		args = append(args, "--flavor", cfg.Flavor)
	}
	if len(cfg.TargetPlatforms) > 0 {
		args = append(args, "--target-platform", strings.Join(cfg.TargetPlatforms, ","))
	}
	return Command{Name: cfg.executable(), Args: args}
}

// composeIOS builds: flutter build ipa --export-method <m> --scheme <s> --configuration <c>
func composeIOS(cfg Config) Command {
	args := []string{"build", "ipa"}
	if cfg.ExportMethod != "" {
		args = append(args, "--export-method", cfg.ExportMethod)
	}
	if cfg.Scheme != "" {
		args = append(args, "--scheme", cfg.Scheme)
	}
	if cfg.Configuration != "" {
		args = append(args, "--configuration", cfg.Configuration)
	}
	return Command{Name: cfg.executable(), Args: args}
}
