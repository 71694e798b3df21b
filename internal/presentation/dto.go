package presentation

import (
	"time"

	"github.com/zjrosen/mobuild/internal/history"
)

// RunDTO represents a recorded build run for presentation.
type RunDTO struct {
	ID           string  `json:"id"`
	Project      string  `json:"project"`
	Platform     string  `json:"platform"`
	Mode         string  `json:"mode,omitempty"`
	Command      string  `json:"command"`
	ExitCode     int     `json:"exit_code"`
	Status       string  `json:"status"`
	ArtifactPath string  `json:"artifact_path,omitempty"`
	Error        string  `json:"error,omitempty"`
	StartedAt    string  `json:"started_at"`
	DurationSec  float64 `json:"duration_seconds"`
}

// FromRun converts a history run to a DTO.
func FromRun(run history.Run) RunDTO {
	return RunDTO{
		ID:           run.ID,
		Project:      run.Project,
		Platform:     string(run.Platform),
		Mode:         string(run.Mode),
		Command:      run.Command,
		ExitCode:     run.ExitCode,
		Status:       string(run.Status),
		ArtifactPath: run.ArtifactPath,
		Error:        run.Error,
		StartedAt:    run.StartedAt.UTC().Format(time.RFC3339),
		DurationSec:  run.Duration.Seconds(),
	}
}

// FromRuns converts a list of runs, always returning a non-nil slice.
func FromRuns(runs []history.Run) []RunDTO {
	dtos := make([]RunDTO, 0, len(runs))
	for _, r := range runs {
		dtos = append(dtos, FromRun(r))
	}
	return dtos
}
