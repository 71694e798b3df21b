package presentation

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/zjrosen/mobuild/internal/build"
)

var (
	mutedColor   = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"}
	successColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	warningColor = lipgloss.AdaptiveColor{Light: "#C48A00", Dark: "#FECA57"}
	errorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}
)

// Console prints run progress as plain, human-readable lines.
// It implements build.Reporter.
type Console struct {
	out io.Writer

	labelStyle   lipgloss.Style
	commandStyle lipgloss.Style
	successStyle lipgloss.Style
	warningStyle lipgloss.Style
	errorStyle   lipgloss.Style
	mutedStyle   lipgloss.Style
}

// Compile-time check that Console implements build.Reporter.
var _ build.Reporter = (*Console)(nil)

// ConsoleOption configures a Console.
type ConsoleOption func(*consoleOptions)

type consoleOptions struct {
	noColor bool
	profile *termenv.Profile
}

// WithNoColor disables ANSI styling regardless of the terminal.
func WithNoColor(noColor bool) ConsoleOption {
	return func(o *consoleOptions) {
		o.noColor = noColor
	}
}

// WithColorProfile forces a color profile instead of detecting it from out.
func WithColorProfile(p termenv.Profile) ConsoleOption {
	return func(o *consoleOptions) {
		o.profile = &p
	}
}

// NewConsole creates a Console writing to out. Styling follows the
// terminal's color profile; NO_COLOR and non-TTY writers get plain text.
func NewConsole(out io.Writer, opts ...ConsoleOption) *Console {
	var o consoleOptions
	for _, opt := range opts {
		opt(&o)
	}

	renderer := lipgloss.NewRenderer(out, termenv.WithColorCache(true))
	switch {
	case o.noColor || termenv.EnvNoColor():
		renderer.SetColorProfile(termenv.Ascii)
	case o.profile != nil:
		renderer.SetColorProfile(*o.profile)
	}

	return &Console{
		out:          out,
		labelStyle:   renderer.NewStyle().Bold(true),
		commandStyle: renderer.NewStyle(),
		successStyle: renderer.NewStyle().Foreground(successColor).Bold(true),
		warningStyle: renderer.NewStyle().Foreground(warningColor),
		errorStyle:   renderer.NewStyle().Foreground(errorColor).Bold(true),
		mutedStyle:   renderer.NewStyle().Foreground(mutedColor),
	}
}

// NewStdoutConsole is NewConsole(os.Stdout).
func NewStdoutConsole(opts ...ConsoleOption) *Console {
	return NewConsole(os.Stdout, opts...)
}

// Running prints "Running: <cmd>".
func (c *Console) Running(cmd build.Command) {
	c.printf("%s %s\n", c.labelStyle.Render("Running:"), c.commandStyle.Render(cmd.String()))
}

// Failed prints "Build failed" followed by the reason.
func (c *Console) Failed(cmd build.Command, err error) {
	c.printf("%s %s\n", c.errorStyle.Render("Build failed"), c.mutedStyle.Render("("+reason(err)+")"))
}

// Generated prints "<APK|IPA> generated: <path>".
func (c *Console) Generated(platform build.Platform, path string) {
	c.printf("%s %s\n", c.successStyle.Render(platform.ArtifactKind()+" generated:"), path)
}

// NotFound prints the missing-artifact warning.
func (c *Console) NotFound(platform build.Platform) {
	c.printf("%s\n", c.warningStyle.Render(platform.ArtifactKind()+" not found, build may have failed"))
}

// Errorf prints a failure unrelated to a specific command.
func (c *Console) Errorf(format string, args ...any) {
	c.printf("%s\n", c.errorStyle.Render(fmt.Sprintf(format, args...)))
}

// Infof prints a muted informational line.
func (c *Console) Infof(format string, args ...any) {
	c.printf("%s\n", c.mutedStyle.Render(fmt.Sprintf(format, args...)))
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

// reason returns the short cause of a command failure.
func reason(err error) string {
	var failed *build.CommandFailedError
	if errors.As(err, &failed) {
		if failed.Err != nil {
			return failed.Err.Error()
		}
		return fmt.Sprintf("exit status %d", failed.ExitCode)
	}
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
