package model

import (
	"fmt"
	"strings"
)

// CommandResult captures the outcome of one subprocess run inside an
// isolated environment.
type CommandResult struct {
	// Args is the full argument vector, starting with the binary.
	Args []string `json:"args"`

	// ExitCode is the process exit status. -1 means the process could
	// not be started or was killed by a signal.
	ExitCode int `json:"exitCode"`

	// Stderr holds the tail of the process's standard error, kept for
	// error messages.
	Stderr string `json:"stderr,omitempty"`
}

// Succeeded reports whether the command exited with status 0.
func (r *CommandResult) Succeeded() bool {
	return r.ExitCode == 0
}

// String renders the command line in a shell-like form for logs.
func (r *CommandResult) String() string {
	return strings.Join(r.Args, " ")
}

// ReleaseStatus is the outcome of one release iteration.
type ReleaseStatus string

const (
	// ReleaseGenerated means install, driver, and relocation all succeeded.
	ReleaseGenerated ReleaseStatus = "generated"

	// ReleaseFailed means one of the steps failed.
	ReleaseFailed ReleaseStatus = "failed"

	// ReleaseSkipped means the run stopped before reaching the release.
	ReleaseSkipped ReleaseStatus = "skipped"
)

// String returns the string representation of ReleaseStatus.
func (s ReleaseStatus) String() string {
	return string(s)
}

// ReleaseReport records what happened to a release during a run.
type ReleaseReport struct {
	Version string        `json:"version"`
	Status  ReleaseStatus `json:"status"`

	// Relocated lists destination paths of files moved out of the
	// working directory after the driver exited.
	Relocated []string `json:"relocated,omitempty"`

	// Driver is the driver invocation result, nil if it never ran.
	Driver *CommandResult `json:"driver,omitempty"`

	// Err is the failure, if any. It is rendered into Error for JSON output.
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

// RunReport is the result of a whole orchestrator run.
type RunReport struct {
	Package  string          `json:"package"`
	Releases []ReleaseReport `json:"releases"`
}

// Failed returns the reports whose status is ReleaseFailed.
func (r *RunReport) Failed() []ReleaseReport {
	var failed []ReleaseReport
	for _, rr := range r.Releases {
		if rr.Status == ReleaseFailed {
			failed = append(failed, rr)
		}
	}
	return failed
}

// FixtureReport is the result of checking one release's asset directory.
type FixtureReport struct {
	Version string `json:"version"`
	Dir     string `json:"dir"`

	// Present lists expected fixture file names found with content.
	Present []string `json:"present"`

	// Missing lists expected fixture file names that do not exist.
	Missing []string `json:"missing,omitempty"`

	// Empty lists expected fixture file names that exist with zero bytes.
	Empty []string `json:"empty,omitempty"`

	// Unexpected lists .seq files in the directory that no fixture names.
	Unexpected []string `json:"unexpected,omitempty"`
}

// OK reports whether the directory holds exactly the expected fixtures.
func (r *FixtureReport) OK() bool {
	return len(r.Missing) == 0 && len(r.Empty) == 0 && len(r.Unexpected) == 0
}

// Summary returns a one-line description of the report.
func (r *FixtureReport) Summary() string {
	if r.OK() {
		return fmt.Sprintf("%s: %d fixture(s) ok", r.Version, len(r.Present))
	}
	var parts []string
	if len(r.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing %s", strings.Join(r.Missing, ", ")))
	}
	if len(r.Empty) > 0 {
		parts = append(parts, fmt.Sprintf("empty %s", strings.Join(r.Empty, ", ")))
	}
	if len(r.Unexpected) > 0 {
		parts = append(parts, fmt.Sprintf("unexpected %s", strings.Join(r.Unexpected, ", ")))
	}
	return fmt.Sprintf("%s: %s", r.Version, strings.Join(parts, "; "))
}
