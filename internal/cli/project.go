package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/seqfixtures/internal/docker"
	"github.com/shinji-kodama/seqfixtures/internal/manifest"
	"github.com/shinji-kodama/seqfixtures/internal/model"
	"github.com/shinji-kodama/seqfixtures/internal/pyenv"
	"github.com/shinji-kodama/seqfixtures/internal/sandbox"
)

// project is the resolved project root together with its manifest.
type project struct {
	Root     string
	Manifest *manifest.Manifest
}

// loadProject resolves --root and loads --manifest. The manifest path is
// taken relative to the current directory, like any other CLI argument;
// paths inside the manifest are relative to the project root.
func loadProject() (*project, error) {
	root := rootDir
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, model.WrapCLIError(model.ExitGeneralError, "failed to determine current directory", err)
		}
		root = wd
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("invalid project root %q", root), err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("project root %s is not accessible", abs), err)
	}
	if !info.IsDir() {
		return nil, model.NewCLIError(model.ExitGeneralError, fmt.Sprintf("project root %s is not a directory", abs))
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}
	VerboseLog("Project root %s, manifest %s", abs, m.Source)

	return &project{Root: abs, Manifest: m}, nil
}

// EnvDir returns the absolute venv location.
func (p *project) EnvDir() string {
	return manifest.Resolve(p.Root, p.Manifest.EnvDir)
}

// AssetsDir returns the absolute assets tree.
func (p *project) AssetsDir() string {
	return manifest.Resolve(p.Root, p.Manifest.AssetsDir)
}

// Rel returns path relative to the project root for display, or path
// unchanged when it lies elsewhere.
func (p *project) Rel(path string) string {
	rel, err := filepath.Rel(p.Root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

// newEnvironment opens the isolated environment for backend. The returned
// close function releases backend resources and is never nil.
func newEnvironment(p *project, backend model.Backend, streams sandbox.Streams) (sandbox.Environment, func(), error) {
	switch backend {
	case model.BackendVenv:
		return pyenv.New(p.EnvDir(), p.Manifest.Python, streams), func() {}, nil

	case model.BackendDocker:
		cli, err := docker.NewClient()
		if err != nil {
			return nil, func() {}, err
		}
		VerboseLog("Connected to Docker")
		return docker.NewEnv(cli, p.Root, p.Manifest.Image, streams), func() { _ = cli.Close() }, nil

	default:
		return nil, func() {}, model.NewCLIError(model.ExitGeneralError, fmt.Sprintf("unsupported backend %q", backend))
	}
}

// subprocessStreams picks where pip and driver output goes. In JSON mode
// stdout is reserved for the result document, so everything goes to
// stderr; quiet drops it entirely.
func subprocessStreams(stdout, stderr io.Writer, quiet bool) sandbox.Streams {
	switch {
	case quiet:
		return sandbox.Discard()
	case IsJSONOutput():
		return sandbox.Streams{Stdout: stderr, Stderr: stderr}
	default:
		return sandbox.Streams{Stdout: stdout, Stderr: stderr}
	}
}
