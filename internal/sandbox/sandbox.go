// Package sandbox defines the contract between the version orchestrator
// and an isolated Python environment.
//
// Two backends implement Environment: pyenv (a virtual environment on the
// host) and docker (a long-lived container with the project bind-mounted).
// Both capture exit codes in a model.CommandResult instead of failing
// silently, and both stream subprocess output to the configured Streams.
package sandbox

import (
	"context"
	"fmt"
	"io"

	"github.com/shinji-kodama/seqfixtures/internal/model"
)

// Environment is an isolated interpreter plus package manager.
//
// Implementations run each command to completion before returning. A
// non-zero exit status is reported through CommandResult.ExitCode with a
// nil error; the error return is reserved for failures to start or wait
// for the process (missing binary, cancelled context, Docker API errors).
type Environment interface {
	// Ensure creates the environment if it does not exist and upgrades
	// its core tooling. It is safe to call on an existing environment.
	Ensure(ctx context.Context) error

	// Install runs the package manager for req.
	Install(ctx context.Context, req InstallRequest) (*model.CommandResult, error)

	// Run executes script with the environment's interpreter. dir is the
	// working directory; both are host paths.
	Run(ctx context.Context, script, dir string) (*model.CommandResult, error)

	// Describe returns a short human-readable location for logs,
	// e.g. the venv path or the container name.
	Describe() string
}

// PlanChecker is implemented by environments that can only reach part of
// the host filesystem. CheckPlan reports paths in plan the environment
// could not read or write, before anything is installed.
type PlanChecker interface {
	CheckPlan(plan *model.Plan) error
}

// InstallRequest describes one "pip install <package>==<version>" call.
type InstallRequest struct {
	Package string
	Version string

	// ForceReinstall adds --force-reinstall.
	ForceReinstall bool

	// NoDeps adds --no-deps, skipping transitive dependencies.
	NoDeps bool
}

// Args returns the pip arguments for the request, without the pip binary.
func (r InstallRequest) Args() []string {
	args := []string{"install", model.Requirement(r.Package, r.Version)}
	if r.ForceReinstall {
		args = append(args, "--force-reinstall")
	}
	if r.NoDeps {
		args = append(args, "--no-deps")
	}
	return args
}

// Streams are the writers subprocess output is copied to.
type Streams struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Discard returns Streams that drop everything. Used by --json output,
// where stdout is reserved for the final report.
func Discard() Streams {
	return Streams{Stdout: io.Discard, Stderr: io.Discard}
}

// OrDiscard replaces nil writers with io.Discard.
func (s Streams) OrDiscard() Streams {
	if s.Stdout == nil {
		s.Stdout = io.Discard
	}
	if s.Stderr == nil {
		s.Stderr = io.Discard
	}
	return s
}

// CommandError describes a command that exited non-zero, including the
// tail of its stderr when there is one.
func CommandError(res *model.CommandResult) error {
	if res.Stderr != "" {
		return fmt.Errorf("%s exited with status %d: %s", res.String(), res.ExitCode, res.Stderr)
	}
	return fmt.Errorf("%s exited with status %d", res.String(), res.ExitCode)
}
