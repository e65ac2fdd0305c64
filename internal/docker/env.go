package docker

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/shinji-kodama/seqfixtures/internal/model"
	"github.com/shinji-kodama/seqfixtures/internal/sandbox"
)

const (
	// WorkDir is where the project root is mounted inside the container.
	WorkDir = "/work"

	// VenvDir is the virtual environment inside the container.
	VenvDir = "/opt/seqfixtures/venv"

	// containerPython creates the virtual environment. Official python
	// images put it on PATH.
	containerPython = "python"

	// execPollInterval is how often an exec is re-inspected while Docker
	// still reports it running after its output stream closed.
	execPollInterval = 50 * time.Millisecond
)

// Env runs the environment contract inside a labelled container with the
// project root bind-mounted at WorkDir.
type Env struct {
	// Project is the absolute host path of the project root.
	Project string

	// Image is the base image for a newly created container.
	Image string

	cli         *Client
	streams     sandbox.Streams
	containerID string
}

var _ sandbox.Environment = (*Env)(nil)

// NewEnv returns an Env for project. Nothing is created until Ensure.
func NewEnv(cli *Client, project, image string, streams sandbox.Streams) *Env {
	return &Env{
		Project: project,
		Image:   image,
		cli:     cli,
		streams: streams.OrDiscard(),
	}
}

// Describe returns the container name and image for logs.
func (e *Env) Describe() string {
	return fmt.Sprintf("container %s (%s)", ContainerName(e.Project), e.Image)
}

// Ensure finds or creates the project's container, starts it if needed,
// then creates or upgrades the virtual environment inside it.
//
// Returns a model.CLIError with ExitDockerNotRunning when the daemon is
// unreachable and ExitEnvironmentFailed for any other failure.
func (e *Env) Ensure(ctx context.Context) error {
	if err := e.cli.Ping(ctx); err != nil {
		return err
	}

	existing, err := ListManagedContainers(ctx, e.cli, e.Project)
	if err != nil {
		return err
	}

	if len(existing) > 0 {
		c := existing[0]
		if !c.Running() {
			if err := StartContainer(ctx, e.cli, c.ID); err != nil {
				return err
			}
		}
		e.containerID = c.ID
	} else {
		id, err := CreateContainer(ctx, e.cli, e.Project, e.Image)
		if err != nil {
			return err
		}
		e.containerID = id
	}

	hasVenv, err := e.exec(ctx, WorkDir, "test", "-f", path.Join(VenvDir, "pyvenv.cfg"))
	if err != nil {
		return model.WrapCLIError(model.ExitEnvironmentFailed, fmt.Sprintf("failed to prepare %s", e.Describe()), err)
	}

	var res *model.CommandResult
	if hasVenv.Succeeded() {
		res, err = e.exec(ctx, WorkDir, venvPython, "-m", "pip", "install", "--upgrade", "pip", "setuptools")
	} else {
		res, err = e.exec(ctx, WorkDir, containerPython, "-m", "venv", "--upgrade-deps", VenvDir)
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

// CheckPlan rejects plans whose root, assets tree or external drivers lie
// outside the bind-mounted project root. Drivers run in the container
// would otherwise write fixtures to a path the host never sees.
func (e *Env) CheckPlan(plan *model.Plan) error {
	paths := []string{plan.RootDir, plan.AssetsDir}
	for _, r := range plan.Releases {
		if r.Driver == "" {
			continue
		}
		script := r.Driver
		if !filepath.IsAbs(script) {
			script = filepath.Join(plan.RootDir, script)
		}
		paths = append(paths, script)
	}

	for _, p := range paths {
		if _, err := ContainerPath(e.Project, p); err != nil {
			return err
		}
	}
	return nil
}

// Install runs the container venv's pip for req.
func (e *Env) Install(ctx context.Context, req sandbox.InstallRequest) (*model.CommandResult, error) {
	return e.exec(ctx, WorkDir, append([]string{e.pip()}, req.Args()...)...)
}

// Run executes script with the container venv's interpreter. script and
// dir are host paths and must lie inside the project root.
func (e *Env) Run(ctx context.Context, script, dir string) (*model.CommandResult, error) {
	containerScript, err := ContainerPath(e.Project, script)
	if err != nil {
		return nil, err
	}
	containerDir, err := ContainerPath(e.Project, dir)
	if err != nil {
		return nil, err
	}
	return e.exec(ctx, containerDir, venvPython, containerScript)
}

// Remove force-removes every managed container for the project. It
// returns the names of the removed containers.
func (e *Env) Remove(ctx context.Context) ([]string, error) {
	if err := e.cli.Ping(ctx); err != nil {
		return nil, err
	}
	existing, err := ListManagedContainers(ctx, e.cli, e.Project)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, c := range existing {
		if err := RemoveContainer(ctx, e.cli, c.ID); err != nil {
			return removed, err
		}
		removed = append(removed, c.Name)
	}
	e.containerID = ""
	return removed, nil
}

// venvPython is the container venv's interpreter.
var venvPython = path.Join(VenvDir, "bin", "python")

func (e *Env) pip() string {
	return path.Join(VenvDir, "bin", "pip")
}

// exec runs cmd in the container and waits for it to exit.
//
// Output is demultiplexed into the configured Streams while the tail of
// stderr is kept for error messages. As with the venv backend, a non-zero
// exit status is returned in the result, not as an error.
func (e *Env) exec(ctx context.Context, workDir string, cmd ...string) (*model.CommandResult, error) {
	result := &model.CommandResult{Args: cmd, ExitCode: -1}
	if e.containerID == "" {
		return result, fmt.Errorf("%s: container not started", result.String())
	}
	inner := e.cli.Inner()

	created, err := inner.ContainerExecCreate(ctx, e.containerID, container.ExecOptions{
		Cmd:          cmd,
		WorkingDir:   workDir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return result, fmt.Errorf("failed to create exec for %s: %w", result.String(), err)
	}

	attach, err := inner.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return result, fmt.Errorf("failed to attach to %s: %w", result.String(), err)
	}
	defer attach.Close()

	// The hijacked connection ignores ctx once established.
	stop := context.AfterFunc(ctx, attach.Close)
	defer stop()

	tail := sandbox.NewTail(sandbox.DefaultTailSize)
	_, copyErr := stdcopy.StdCopy(e.streams.Stdout, io.MultiWriter(e.streams.Stderr, tail), attach.Reader)
	result.Stderr = tail.String()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("%s interrupted: %w", result.String(), ctxErr)
	}
	if copyErr != nil {
		return result, fmt.Errorf("failed to read output of %s: %w", result.String(), copyErr)
	}

	for {
		inspect, err := inner.ContainerExecInspect(ctx, created.ID)
		if err != nil {
			return result, fmt.Errorf("failed to inspect %s: %w", result.String(), err)
		}
		if !inspect.Running {
			result.ExitCode = inspect.ExitCode
			return result, nil
		}

		select {
		case <-ctx.Done():
			return result, fmt.Errorf("%s interrupted: %w", result.String(), ctx.Err())
		case <-time.After(execPollInterval):
		}
	}
}

// ContainerPath translates a host path inside project into the matching
// path under WorkDir. Paths outside the project are not visible in the
// container and are rejected.
func ContainerPath(project, hostPath string) (string, error) {
	rel, err := filepath.Rel(project, hostPath)
	if err != nil {
		return "", fmt.Errorf("cannot map %s into the container: %w", hostPath, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("cannot map %s into the container: outside project root %s", hostPath, project)
	}
	return path.Join(WorkDir, filepath.ToSlash(rel)), nil
}
