package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names, one per pipeline step.
const (
	SpanRun             = "build.run"
	SpanEnsureOutputDir = "build.ensure_output_dir"
	SpanClean           = "build.clean"
	SpanCommand         = "build.command"
	SpanRelocate        = "build.relocate"
)

// Span attribute keys.
const (
	AttrProject       = "build.project"
	AttrPlatform      = "build.platform"
	AttrMode          = "build.mode"
	AttrFlavor        = "build.flavor"
	AttrScheme        = "build.scheme"
	AttrCommand       = "process.command"
	AttrExitCode      = "process.exit_code"
	AttrOutputDir     = "artifact.output_dir"
	AttrArtifactFrom  = "artifact.expected"
	AttrArtifactTo    = "artifact.destination"
	AttrArtifactFound = "artifact.found"
	AttrErrorMessage  = "error.message"
)

// Event names.
const (
	EventArtifactMissing = "artifact.missing"
)

// StartStep starts a child span for one pipeline step.
func StartStep(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndStep records err on span (if any) and ends it.
func EndStep(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
