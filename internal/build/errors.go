package build

import (
	"errors"
	"fmt"
)

var (
	// ErrBuildCommandFailed matches any *CommandFailedError via errors.Is.
	ErrBuildCommandFailed = errors.New("build command failed")

	// ErrArtifactNotFound means the toolchain reported success but the
	// expected artifact does not exist. It is a warning, never fatal.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrTimeout is returned when a process exceeds the configured timeout.
	ErrTimeout = errors.New("process timed out")
)

// CommandFailedError reports a toolchain process that exited non-zero or
// could not be started.
type CommandFailedError struct {
	Command  Command
	ExitCode int   // -1 when the process never produced an exit status
	Err      error // start or wait error, nil for a plain non-zero exit
}

func (e *CommandFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
}

// Is reports ErrBuildCommandFailed as a match.
func (e *CommandFailedError) Is(target error) bool {
	return target == ErrBuildCommandFailed
}

func (e *CommandFailedError) Unwrap() error {
	return e.Err
}
