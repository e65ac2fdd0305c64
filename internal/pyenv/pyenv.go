// Package pyenv implements the venv backend of sandbox.Environment.
//
// The environment is a Python virtual environment on the host, created
// with "python -m venv --upgrade-deps". Package installs go through the
// environment's own pip binary, and drivers run with its interpreter.
//
// Design decisions:
//   - We shell out to the interpreter and pip rather than embedding any
//     Python tooling, because the whole point is to exercise the exact pip
//     resolution behavior the library's users get.
//   - Subprocess failures are captured as exit codes in
//     model.CommandResult; the caller decides whether they are fatal.
package pyenv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/shinji-kodama/seqfixtures/internal/model"
	"github.com/shinji-kodama/seqfixtures/internal/sandbox"
)

// markerFile exists at the root of every virtual environment.
const markerFile = "pyvenv.cfg"

// Env is a Python virtual environment rooted at Dir.
type Env struct {
	// Dir is the absolute path of the virtual environment.
	Dir string

	// HostPython is the interpreter used to create the environment.
	HostPython string

	streams sandbox.Streams
}

// New returns an Env rooted at dir. Nothing is created until Ensure.
func New(dir, hostPython string, streams sandbox.Streams) *Env {
	return &Env{Dir: dir, HostPython: hostPython, streams: streams.OrDiscard()}
}

var _ sandbox.Environment = (*Env)(nil)

// binDir returns the directory holding the environment's executables.
// Windows venvs use Scripts\ with .exe suffixes; everything else uses bin/.
func (e *Env) binDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(e.Dir, "Scripts")
	}
	return filepath.Join(e.Dir, "bin")
}

func executable(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

// Python returns the path of the environment's interpreter.
func (e *Env) Python() string {
	return filepath.Join(e.binDir(), executable("python"))
}

// Pip returns the path of the environment's pip binary.
func (e *Env) Pip() string {
	return filepath.Join(e.binDir(), executable("pip"))
}

// Exists reports whether a virtual environment is present at Dir.
func (e *Env) Exists() bool {
	_, err := os.Stat(filepath.Join(e.Dir, markerFile))
	return err == nil
}

// Describe returns the environment location for logs.
func (e *Env) Describe() string {
	return "venv " + e.Dir
}

// upgradeToolingArgs upgrades pip and setuptools in an existing
// environment.
var upgradeToolingArgs = []string{"-m", "pip", "install", "--upgrade", "pip", "setuptools"}

// Ensure creates the virtual environment if it does not exist, then makes
// sure its core tooling (pip, setuptools) is current.
//
// A fresh environment is created with --upgrade-deps, which upgrades the
// tooling in the same step. An existing environment is reused and only
// its tooling is upgraded.
//
// Returns a model.CLIError with ExitEnvironmentFailed on any failure.
func (e *Env) Ensure(ctx context.Context) error {
	var (
		res *model.CommandResult
		err error
	)

	if e.Exists() {
		// pip cannot replace its own running executable on Windows, so the
		// upgrade goes through the interpreter.
		res, err = runCommand(ctx, "", e.streams, e.Python(), upgradeToolingArgs...)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(e.Dir), 0o755); mkErr != nil {
			return model.WrapCLIError(model.ExitEnvironmentFailed, "failed to create environment parent directory", mkErr)
		}
		res, err = runCommand(ctx, "", e.streams, e.HostPython, "-m", "venv", "--upgrade-deps", e.Dir)
	}

	if err != nil {
		return model.WrapCLIError(model.ExitEnvironmentFailed, fmt.Sprintf("failed to prepare %s", e.Describe()), err)
	}
	if !res.Succeeded() {
		return model.WrapCLIError(
			model.ExitEnvironmentFailed,
			fmt.Sprintf("failed to prepare %s", e.Describe()),
			sandbox.CommandError(res),
		)
	}
	return nil
}

// Install runs the environment's pip for req.
func (e *Env) Install(ctx context.Context, req sandbox.InstallRequest) (*model.CommandResult, error) {
	return runCommand(ctx, "", e.streams, e.Pip(), req.Args()...)
}

// Run executes script with the environment's interpreter in dir.
func (e *Env) Run(ctx context.Context, script, dir string) (*model.CommandResult, error) {
	return runCommand(ctx, dir, e.streams, e.Python(), script)
}

// Remove deletes the virtual environment. It refuses to delete a directory
// that does not look like a virtual environment, so a misconfigured
// env_dir cannot wipe unrelated files. A missing directory is not an error.
func (e *Env) Remove() error {
	if _, err := os.Stat(e.Dir); os.IsNotExist(err) {
		return nil
	}
	if !e.Exists() {
		return fmt.Errorf("refusing to remove %s: no %s found, not a virtual environment", e.Dir, markerFile)
	}
	if err := os.RemoveAll(e.Dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", e.Dir, err)
	}
	return nil
}
