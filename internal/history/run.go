// Package history records build runs in a local SQLite database so past
// builds (command, exit status, artifact) can be listed with `mobuild history`.
package history

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/zjrosen/mobuild/internal/build"
)

// Status is the outcome of a run.
type Status string

const (
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusNoArtifact Status = "no_artifact"
)

// Run is one recorded invocation of the build pipeline.
type Run struct {
	ID           string
	Project      string
	Platform     build.Platform
	Mode         build.Mode
	Command      string
	ExitCode     int
	Status       Status
	ArtifactPath string
	Error        string
	StartedAt    time.Time
	Duration     time.Duration
}

// NewRun converts a pipeline result and its error into a Run with a fresh ID.
// res may be nil when the run never started (invalid configuration).
func NewRun(cfg build.Config, res *build.Result, runErr error) Run {
	run := Run{
		ID:       uuid.NewString(),
		Project:  cfg.ProjectDir,
		Platform: cfg.Platform,
		Mode:     cfg.Mode,
		Status:   StatusSucceeded,
	}

	if res != nil {
		run.Command = res.Command.String()
		run.ExitCode = res.ExitCode
		run.ArtifactPath = res.ArtifactPath
		run.StartedAt = res.StartedAt
		run.Duration = res.Duration
		if errors.Is(res.Warning, build.ErrArtifactNotFound) {
			run.Status = StatusNoArtifact
		}
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	if runErr != nil {
		run.Status = StatusFailed
		run.Error = runErr.Error()
		if res == nil {
			run.ExitCode = -1
		}
	}
	return run
}
