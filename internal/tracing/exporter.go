package tracing

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// FileExporter appends one StepRecord per finished pipeline step to a JSONL
// file. All steps of one build share a run_id:
//
//	jq 'select(.run_id == "...")' .mobuild/traces.jsonl
type FileExporter struct {
	path string

	mu   sync.Mutex
	file *os.File
}

var _ sdktrace.SpanExporter = (*FileExporter)(nil)

// NewFileExporter opens path for appending, creating parent directories.
func NewFileExporter(path string) (*FileExporter, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) // #nosec G304 -- path comes from config
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return &FileExporter{path: path, file: file}, nil
}

// Path returns the trace file.
func (e *FileExporter) Path() string {
	return e.path
}

// ExportSpans writes one line per span.
func (e *FileExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	if len(spans) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.file == nil {
		return fmt.Errorf("trace exporter is shut down")
	}

	enc := json.NewEncoder(e.file)
	for _, span := range spans {
		if err := enc.Encode(NewStepRecord(span)); err != nil {
			return fmt.Errorf("encode step %s: %w", span.Name(), err)
		}
	}
	return nil
}

// Shutdown closes the file. Calling it twice is a no-op.
func (e *FileExporter) Shutdown(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.file == nil {
		return nil
	}
	err := e.file.Close()
	e.file = nil
	return err
}

// StepRecord is one pipeline step as written to the trace file. Well-known
// build attributes are lifted into fields; anything else lands in Extra.
type StepRecord struct {
	RunID    string `json:"run_id"`
	StepID   string `json:"step_id"`
	ParentID string `json:"parent_id,omitempty"`
	Step     string `json:"step"`
	Project  string `json:"project,omitempty"`

	Platform string `json:"platform,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Flavor   string `json:"flavor,omitempty"`
	Scheme   string `json:"scheme,omitempty"`

	Command  string `json:"command,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`

	OutputDir     string `json:"output_dir,omitempty"`
	ArtifactFrom  string `json:"artifact_from,omitempty"`
	ArtifactTo    string `json:"artifact_to,omitempty"`
	ArtifactFound *bool  `json:"artifact_found,omitempty"`

	Started    time.Time `json:"started"`
	DurationMs float64   `json:"duration_ms"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`

	Events []string       `json:"events,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewStepRecord flattens a finished span into a StepRecord.
func NewStepRecord(span sdktrace.ReadOnlySpan) StepRecord {
	sc := span.SpanContext()
	rec := StepRecord{
		RunID:      sc.TraceID().String(),
		StepID:     sc.SpanID().String(),
		Step:       span.Name(),
		Started:    span.StartTime().UTC(),
		DurationMs: float64(span.EndTime().Sub(span.StartTime()).Microseconds()) / 1000,
		OK:         span.Status().Code != codes.Error,
	}
	if span.Parent().IsValid() {
		rec.ParentID = span.Parent().SpanID().String()
	}
	if span.Status().Code == codes.Error {
		rec.Error = span.Status().Description
	}
	if res := span.Resource(); res != nil {
		if v, ok := res.Set().Value(AttrProject); ok {
			rec.Project = v.AsString()
		}
	}

	for _, kv := range span.Attributes() {
		rec.setAttr(kv)
	}
	for _, evt := range span.Events() {
		// RecordError's exception event duplicates Error.
		if evt.Name != "exception" {
			rec.Events = append(rec.Events, evt.Name)
		}
	}
	return rec
}

func (r *StepRecord) setAttr(kv attribute.KeyValue) {
	switch string(kv.Key) {
	case AttrPlatform:
		r.Platform = kv.Value.AsString()
	case AttrMode:
		r.Mode = kv.Value.AsString()
	case AttrFlavor:
		r.Flavor = kv.Value.AsString()
	case AttrScheme:
		r.Scheme = kv.Value.AsString()
	case AttrCommand:
		r.Command = kv.Value.AsString()
	case AttrExitCode:
		code := int(kv.Value.AsInt64())
		r.ExitCode = &code
	case AttrOutputDir:
		r.OutputDir = kv.Value.AsString()
	case AttrArtifactFrom:
		r.ArtifactFrom = kv.Value.AsString()
	case AttrArtifactTo:
		r.ArtifactTo = kv.Value.AsString()
	case AttrArtifactFound:
		found := kv.Value.AsBool()
		r.ArtifactFound = &found
	case AttrErrorMessage:
		r.Error = kv.Value.AsString()
	default:
		if r.Extra == nil {
			r.Extra = make(map[string]any)
		}
		r.Extra[string(kv.Key)] = kv.Value.AsInterface()
	}
}
