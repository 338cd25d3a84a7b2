package errors

import (
	"errors"
)

// Process exit codes
const (
	ExitOK          = 0
	ExitError       = 1
	ExitIssuesFound = 2
)

// CommandError carries the exit code a failed command should terminate with.
type CommandError struct {
	ExitCode int
	Err      error
}

// Error implements the error interface, returning the message of the wrapped error.
func (e *CommandError) Error() string {
	if e.Err == nil {
		return "command failed"
	}
	return e.Err.Error()
}

func (e *CommandError) Unwrap() error { return e.Err }

// NewCommandError creates a new CommandError with the given exit code.
func NewCommandError(err error, code int) *CommandError {
	return &CommandError{ExitCode: code, Err: err}
}

// ExitCode returns the exit code for err: ExitOK for nil, the code of a
// wrapped CommandError, or ExitError otherwise.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return ExitError
}
