// Package manifest loads the release manifest that drives fixture
// generation.
//
// A manifest names the PyPI package, the isolated environment settings,
// and the ordered list of releases with the fixtures each one produces.
// Two formats are accepted:
//   - YAML (.yaml, .yml), parsed with gopkg.in/yaml.v3
//   - JSON with comments (.json, .jsonc), stripped with
//     github.com/tidwall/jsonc and parsed with encoding/json
//
// When no manifest path is given, the embedded default.yaml is used. It
// lists the two releases that bracket the 1.3 → 1.4 file format change.
package manifest

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/seqfixtures/internal/model"
)

//go:embed default.yaml
var defaultManifest []byte

// DefaultName is shown in logs when the embedded manifest is used.
const DefaultName = "(embedded default)"

// Defaults applied to fields left empty in a manifest file.
const (
	DefaultPython    = "python3"
	DefaultImage     = "python:3.11-slim"
	DefaultAssetsDir = "assets"
	DefaultEnvDir    = ".seqfixtures/venv"
)

// Manifest is the parsed release manifest.
//
// Both json and yaml tags are declared so that the same struct serves the
// YAML and JSONC formats.
type Manifest struct {
	// Package is the PyPI package pinned at each release (e.g. "pypulseq").
	Package string `json:"package" yaml:"package"`

	// Python is the host interpreter used to create the venv backend.
	Python string `json:"python,omitempty" yaml:"python,omitempty"`

	// Image is the container image used by the docker backend.
	Image string `json:"image,omitempty" yaml:"image,omitempty"`

	// AssetsDir is the assets tree, relative to the project root unless absolute.
	AssetsDir string `json:"assets_dir,omitempty" yaml:"assets_dir,omitempty"`

	// EnvDir is the venv location, relative to the project root unless absolute.
	EnvDir string `json:"env_dir,omitempty" yaml:"env_dir,omitempty"`

	// Releases is ordered oldest to newest.
	Releases []model.Release `json:"releases" yaml:"releases"`

	// Source records where the manifest was loaded from. Not serialized.
	Source string `json:"-" yaml:"-"`
}

// Default returns the embedded manifest.
func Default() (*Manifest, error) {
	m, err := Parse(defaultManifest, ".yaml")
	if err != nil {
		return nil, fmt.Errorf("embedded manifest is broken: %w", err)
	}
	m.Source = DefaultName
	return m, nil
}

// Load reads a manifest from path, choosing the decoder by file extension.
// An empty path returns the embedded default.
//
// Returns a CLIError with ExitManifestInvalid if the file cannot be read
// or parsed, or if validation fails.
func Load(path string) (*Manifest, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(
				model.ExitManifestInvalid,
				fmt.Sprintf("manifest not found: %s", path),
				err,
			)
		}
		return nil, model.WrapCLIError(model.ExitManifestInvalid, "failed to read manifest", err)
	}

	m, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitManifestInvalid,
			fmt.Sprintf("failed to load manifest %s", path),
			err,
		)
	}
	m.Source = path
	return m, nil
}

// Parse decodes manifest bytes. ext selects the format (".yaml", ".yml",
// ".json", ".jsonc"); anything else is tried as YAML, which is a superset
// of JSON. The result has defaults applied and has been validated.
func Parse(data []byte, ext string) (*Manifest, error) {
	var m Manifest

	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		// Strip comments and trailing commas first; encoding/json rejects both.
		if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
			return nil, fmt.Errorf("invalid JSON manifest: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("invalid YAML manifest: %w", err)
		}
	}

	m.applyDefaults()

	if errs := Validate(&m); len(errs) > 0 {
		return nil, joinValidationErrors(errs)
	}
	return &m, nil
}

// applyDefaults fills empty settings and normalizes fixture modes.
func (m *Manifest) applyDefaults() {
	if m.Python == "" {
		m.Python = DefaultPython
	}
	if m.Image == "" {
		m.Image = DefaultImage
	}
	if m.AssetsDir == "" {
		m.AssetsDir = DefaultAssetsDir
	}
	if m.EnvDir == "" {
		m.EnvDir = DefaultEnvDir
	}
	for i := range m.Releases {
		for j := range m.Releases[i].Fixtures {
			f := &m.Releases[i].Fixtures[j]
			// Unknown modes are kept as-is so Validate can report them.
			if mode, err := model.ParseFixtureMode(string(f.Mode)); err == nil {
				f.Mode = mode
			}
		}
	}
}

// Versions returns the release versions in manifest order.
func (m *Manifest) Versions() []string {
	versions := make([]string, 0, len(m.Releases))
	for _, r := range m.Releases {
		versions = append(versions, r.Version)
	}
	return versions
}

// Select returns the releases matching versions, in manifest order.
// With no versions it returns every release. Asking for a version the
// manifest does not list is an error: only listed compatibility points
// are supported.
func (m *Manifest) Select(versions ...string) ([]model.Release, error) {
	if len(versions) == 0 {
		return append([]model.Release(nil), m.Releases...), nil
	}

	wanted := make(map[string]bool, len(versions))
	for _, v := range versions {
		wanted[v] = true
	}

	var selected []model.Release
	for _, r := range m.Releases {
		if wanted[r.Version] {
			selected = append(selected, r)
			delete(wanted, r.Version)
		}
	}

	if len(wanted) > 0 {
		unknown := make([]string, 0, len(wanted))
		for _, v := range versions {
			if wanted[v] {
				unknown = append(unknown, v)
			}
		}
		return nil, model.NewCLIError(
			model.ExitManifestInvalid,
			fmt.Sprintf("version(s) not in manifest: %s (available: %s)",
				strings.Join(unknown, ", "), strings.Join(m.Versions(), ", ")),
		)
	}
	return selected, nil
}

// Resolve turns a manifest-relative path into an absolute path under root.
func Resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// Plan builds the orchestrator input for the selected releases. The
// baseline is always the manifest's newest release, whatever the filter.
func (m *Manifest) Plan(root string, versions ...string) (*model.Plan, error) {
	releases, err := m.Select(versions...)
	if err != nil {
		return nil, err
	}
	var baseline string
	if n := len(m.Releases); n > 0 {
		baseline = m.Releases[n-1].Version
	}
	return &model.Plan{
		Package:   m.Package,
		Releases:  releases,
		Baseline:  baseline,
		RootDir:   root,
		AssetsDir: Resolve(root, m.AssetsDir),
	}, nil
}
