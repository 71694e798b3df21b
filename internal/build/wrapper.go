package build

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/mobuild/internal/log"
	"github.com/zjrosen/mobuild/internal/tracing"
)

// Reporter receives the human-readable progress of a run.
type Reporter interface {
	Running(cmd Command)
	Failed(cmd Command, err error)
	Generated(platform Platform, path string)
	NotFound(platform Platform)
}

type nopReporter struct{}

func (nopReporter) Running(Command)            {}
func (nopReporter) Failed(Command, error)      {}
func (nopReporter) Generated(Platform, string) {}
func (nopReporter) NotFound(Platform)          {}

// Result describes one run of the pipeline.
type Result struct {
	Platform Platform
	Command  Command
	ExitCode int
	Artifact ArtifactLocation
	// ArtifactPath is the final artifact path, empty unless relocated.
	ArtifactPath string
	// Warning is ErrArtifactNotFound when the toolchain produced nothing.
	Warning   error
	StartedAt time.Time
	Duration  time.Duration
}

// Relocated reports whether the artifact reached its destination.
func (r *Result) Relocated() bool {
	return r != nil && r.ArtifactPath != ""
}

// Option configures a Wrapper.
type Option func(*Wrapper)

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) Option {
	return func(w *Wrapper) {
		if r != nil {
			w.reporter = r
		}
	}
}

// WithTracer sets the tracer used for per-step spans.
func WithTracer(t trace.Tracer) Option {
	return func(w *Wrapper) {
		if t != nil {
			w.tracer = t
		}
	}
}

// WithClock overrides time.Now for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(w *Wrapper) {
		if now != nil {
			w.now = now
		}
	}
}

// Wrapper runs the build pipeline against a Runner.
type Wrapper struct {
	runner   Runner
	reporter Reporter
	tracer   trace.Tracer
	now      func() time.Time
}

// NewWrapper creates a Wrapper. Without options it reports nothing and
// traces to a no-op tracer.
func NewWrapper(runner Runner, opts ...Option) *Wrapper {
	w := &Wrapper{
		runner:   runner,
		reporter: nopReporter{},
		tracer:   noop.NewTracerProvider().Tracer("noop"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run executes the pipeline for cfg.
//
// On a toolchain failure Run returns both a partial Result (command and exit
// code) and a *CommandFailedError; the artifact is not touched. A missing
// artifact after a successful build is reported through Result.Warning and
// Run returns a nil error.
func (w *Wrapper) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res := &Result{
		Platform:  cfg.Platform,
		Artifact:  LocateArtifact(cfg),
		StartedAt: w.now(),
	}

	ctx, span := tracing.StartStep(ctx, w.tracer, tracing.SpanRun,
		attribute.String(tracing.AttrPlatform, string(cfg.Platform)),
		attribute.String(tracing.AttrMode, string(cfg.Mode)),
		attribute.String(tracing.AttrFlavor, cfg.Flavor),
		attribute.String(tracing.AttrScheme, cfg.Scheme),
	)

	err := w.run(ctx, cfg, res)
	res.Duration = w.now().Sub(res.StartedAt)
	tracing.EndStep(span, err)

	if err != nil {
		log.ErrorErr(log.CatBuild, "Build failed", err, "platform", cfg.Platform, "duration", res.Duration)
		return res, err
	}
	log.Info(log.CatBuild, "Build finished", "platform", cfg.Platform,
		"artifact", res.ArtifactPath, "duration", res.Duration)
	return res, nil
}

func (w *Wrapper) run(ctx context.Context, cfg Config, res *Result) error {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	outputDir := filepath.Dir(res.Artifact.Destination)
	_, dirSpan := tracing.StartStep(ctx, w.tracer, tracing.SpanEnsureOutputDir,
		attribute.String(tracing.AttrOutputDir, outputDir))
	err := EnsureOutputDir(outputDir)
	tracing.EndStep(dirSpan, err)
	if err != nil {
		return err
	}

	if cfg.Clean {
		clean := ComposeCleanCommand(cfg)
		if code, err := w.exec(ctx, tracing.SpanClean, clean, cfg.ProjectDir); err != nil {
			res.Command = clean
			res.ExitCode = code
			return err
		}
	}

	cmd := ComposeBuildCommand(cfg)
	res.Command = cmd
	code, err := w.exec(ctx, tracing.SpanCommand, cmd, cfg.ProjectDir)
	res.ExitCode = code
	if err != nil {
		return err
	}

	_, relSpan := tracing.StartStep(ctx, w.tracer, tracing.SpanRelocate,
		attribute.String(tracing.AttrArtifactFrom, res.Artifact.Expected),
		attribute.String(tracing.AttrArtifactTo, res.Artifact.Destination))
	path, err := RelocateArtifact(res.Artifact.Expected, res.Artifact.Destination)
	if errors.Is(err, ErrArtifactNotFound) {
		relSpan.AddEvent(tracing.EventArtifactMissing)
		relSpan.SetAttributes(attribute.Bool(tracing.AttrArtifactFound, false))
		tracing.EndStep(relSpan, nil)
		res.Warning = err
		w.reporter.NotFound(cfg.Platform)
		return nil
	}
	relSpan.SetAttributes(attribute.Bool(tracing.AttrArtifactFound, err == nil))
	tracing.EndStep(relSpan, err)
	if err != nil {
		return err
	}

	res.ArtifactPath = path
	w.reporter.Generated(cfg.Platform, path)
	return nil
}

// exec runs one toolchain command inside its own span and converts a
// non-zero exit or start failure into a *CommandFailedError.
func (w *Wrapper) exec(ctx context.Context, spanName string, cmd Command, dir string) (int, error) {
	ctx, span := tracing.StartStep(ctx, w.tracer, spanName,
		attribute.String(tracing.AttrCommand, cmd.String()))

	w.reporter.Running(cmd)
	code, runErr := w.runner.Run(ctx, cmd, dir)
	span.SetAttributes(attribute.Int(tracing.AttrExitCode, code))

	var err error
	if runErr != nil || code != 0 {
		err = &CommandFailedError{Command: cmd, ExitCode: code, Err: runErr}
		w.reporter.Failed(cmd, err)
	}
	tracing.EndStep(span, err)
	return code, err
}
