package model

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// FixtureMode describes how a library example generator is driven.
type FixtureMode string

const (
	// ModeImport runs the generator at import time. The generator writes
	// its default output file (Fixture.Source) into the working directory,
	// and the file is relocated afterwards.
	ModeImport FixtureMode = "import"

	// ModeMain calls the generator's main(plot, write_seq, seq_filename)
	// entry point with the destination path, so no relocation is needed.
	ModeMain FixtureMode = "main"
)

// String returns the string representation of FixtureMode.
func (m FixtureMode) String() string {
	return string(m)
}

// IsValid checks whether the FixtureMode is one of the predefined modes.
func (m FixtureMode) IsValid() bool {
	switch m {
	case ModeImport, ModeMain:
		return true
	default:
		return false
	}
}

// ParseFixtureMode converts a string to a FixtureMode.
// An empty string defaults to ModeImport, which is how the oldest
// releases ship their examples.
func ParseFixtureMode(s string) (FixtureMode, error) {
	if s == "" {
		return ModeImport, nil
	}
	mode := FixtureMode(strings.ToLower(s))
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid fixture mode: %q (valid: import, main)", s)
	}
	return mode, nil
}

// Backend selects the kind of isolated environment used to run drivers.
type Backend string

const (
	// BackendVenv uses a Python virtual environment on the host.
	BackendVenv Backend = "venv"

	// BackendDocker uses a long-lived, labelled container with the
	// project root bind-mounted into it.
	BackendDocker Backend = "docker"
)

// String returns the string representation of Backend.
func (b Backend) String() string {
	return string(b)
}

// ParseBackend converts a string to a Backend.
func ParseBackend(s string) (Backend, error) {
	b := Backend(strings.ToLower(s))
	switch b {
	case BackendVenv, BackendDocker:
		return b, nil
	default:
		return "", fmt.Errorf("invalid backend: %q (valid: venv, docker)", s)
	}
}

// SeqExtension is the file extension of generated pulse sequence files.
const SeqExtension = ".seq"

// Fixture is one generated pulse sequence file.
type Fixture struct {
	// Name is the canonical file stem. The fixture lives at
	// <assets>/<version>/<Name>.seq.
	Name string `json:"name" yaml:"name"`

	// Module is the Python module path of the example generator,
	// e.g. "pypulseq.seq_examples.scripts.write_epi".
	Module string `json:"module" yaml:"module"`

	// Mode selects import-time execution or an explicit main() call.
	Mode FixtureMode `json:"mode,omitempty" yaml:"mode,omitempty"`

	// Source is the default output name written by import-mode generators
	// into the working directory (e.g. "epi_pypulseq.seq").
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// FileName returns the canonical file name including the .seq extension.
func (f Fixture) FileName() string {
	return f.Name + SeqExtension
}

// Release is one published library version and the fixtures generated
// from it.
type Release struct {
	// Version is the exact PyPI release string, e.g. "1.3.1.post1".
	Version string `json:"version" yaml:"version"`

	// Driver optionally names an external driver script, relative to the
	// project root. When empty, a driver is rendered from Fixtures.
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"`

	// Fixtures lists every file this release is expected to produce.
	Fixtures []Fixture `json:"fixtures" yaml:"fixtures"`
}

// Dir returns the release's output directory under assetsDir.
func (r Release) Dir(assetsDir string) string {
	return filepath.Join(assetsDir, r.Version)
}

// FixturePath returns the destination of fixture f under assetsDir.
func (r Release) FixturePath(assetsDir string, f Fixture) string {
	return filepath.Join(r.Dir(assetsDir), f.FileName())
}

// versionRegex accepts PyPI-style release strings such as "1.4.0",
// "1.3.1.post1" or "1.2.0rc1". It deliberately rejects path separators
// because the version doubles as a directory name.
var versionRegex = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*([._-]?(a|b|rc|post|dev)[0-9]*)*$`)

// ValidateVersion checks that a version identifier is usable both as a
// pip requirement pin and as a directory name.
func ValidateVersion(version string) error {
	if version == "" {
		return fmt.Errorf("version must not be empty")
	}
	if !versionRegex.MatchString(version) {
		return fmt.Errorf("invalid version %q: expected a release string like 1.4.0 or 1.3.1.post1", version)
	}
	return nil
}

// Plan is the input of a single orchestrator run.
type Plan struct {
	// Package is the PyPI package name pinned at each release.
	Package string

	// Releases is ordered oldest to newest.
	Releases []Release

	// Baseline is the manifest's newest version, installed once with its
	// dependencies before any release runs. It is set even when Releases
	// is a filtered subset, so every run uses the same dependency set.
	// Empty means the last entry of Releases.
	Baseline string

	// RootDir is the working directory drivers run in. Relative asset
	// paths inside drivers resolve against it.
	RootDir string

	// AssetsDir is the absolute path of the assets tree.
	AssetsDir string
}

// Newest returns the last release in the plan. ok is false for an empty plan.
func (p *Plan) Newest() (Release, bool) {
	if len(p.Releases) == 0 {
		return Release{}, false
	}
	return p.Releases[len(p.Releases)-1], true
}

// BaselineVersion returns the version to install with dependencies before
// the per-release loop. ok is false for an empty plan.
func (p *Plan) BaselineVersion() (string, bool) {
	newest, ok := p.Newest()
	if !ok {
		return "", false
	}
	if p.Baseline != "" {
		return p.Baseline, true
	}
	return newest.Version, true
}

// Requirement formats a pip requirement pinning pkg to version.
func Requirement(pkg, version string) string {
	return pkg + "==" + version
}
