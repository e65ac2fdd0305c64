package model

import "fmt"

// ExitCode defines the CLI exit codes. Scripts and CI jobs use them to
// tell an install failure apart from a broken driver or a missing fixture.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitManifestInvalid indicates the manifest could not be read or
	// failed validation.
	ExitManifestInvalid ExitCode = 2

	// ExitDockerNotRunning indicates the Docker daemon is not accessible.
	ExitDockerNotRunning ExitCode = 3

	// ExitEnvironmentFailed indicates the isolated environment could not
	// be created or its tooling could not be upgraded.
	ExitEnvironmentFailed ExitCode = 4

	// ExitInstallFailed indicates pip failed to install a pinned release.
	ExitInstallFailed ExitCode = 5

	// ExitDriverFailed indicates a driver script exited non-zero, or a
	// generated file could not be relocated.
	ExitDriverFailed ExitCode = 6

	// ExitFixturesInvalid indicates verification found missing, empty,
	// or unexpected fixture files.
	ExitFixturesInvalid ExitCode = 7
)

// CLIError is an error that carries an exit code, so the CLI layer can
// translate domain failures into process exit statuses.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error returns the message, followed by the underlying error if present.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
