package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/seqfixtures/internal/model"
)

// writeManifest writes content into a temp file with the given name and
// returns its path.
func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestDefault checks the embedded manifest lists the two compatibility
// points in order, with the fixture names the parser tests rely on.
func TestDefault(t *testing.T) {
	m, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "pypulseq", m.Package)
	assert.Equal(t, DefaultName, m.Source)
	assert.Equal(t, []string{"1.3.1.post1", "1.4.0"}, m.Versions())

	names := func(r model.Release) []string {
		var out []string
		for _, f := range r.Fixtures {
			out = append(out, f.Name)
		}
		return out
	}

	assert.Equal(t,
		[]string{"epi", "epi_se", "epi_se_rs", "gre", "gre_label", "haste", "tse", "ute"},
		names(m.Releases[0]))
	assert.Equal(t,
		[]string{"mprage", "epi", "epi_label", "epi_se", "epi_se_rs", "gre", "gre_label", "haste", "gre_radial", "tse", "ute"},
		names(m.Releases[1]))

	for _, f := range m.Releases[0].Fixtures {
		assert.Equal(t, model.ModeImport, f.Mode, f.Name)
		assert.NotEmpty(t, f.Source, f.Name)
	}
	for _, f := range m.Releases[1].Fixtures {
		assert.Equal(t, model.ModeMain, f.Mode, f.Name)
	}
}

// TestLoad_EmptyPathUsesDefault verifies Load falls back to the embedded manifest.
func TestLoad_EmptyPathUsesDefault(t *testing.T) {
	m, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultName, m.Source)
}

// TestLoad_YAMLAndJSONCAgree loads the same manifest in both formats and
// checks they decode to identical structures, with defaults applied.
func TestLoad_YAMLAndJSONCAgree(t *testing.T) {
	yamlPath := writeManifest(t, "fixtures.yaml", `
package: pypulseq
releases:
  - version: 1.4.0
    fixtures:
      - name: epi
        module: pypulseq.seq_examples.scripts.write_epi
        mode: main
      - name: gre
        module: pypulseq.seq_examples.scripts.write_gre
        source: gre_pypulseq.seq
`)

	jsoncPath := writeManifest(t, "fixtures.jsonc", `{
  // Same content as the YAML variant.
  "package": "pypulseq",
  "releases": [
    {
      "version": "1.4.0",
      "fixtures": [
        {"name": "epi", "module": "pypulseq.seq_examples.scripts.write_epi", "mode": "main"},
        /* mode defaults to import */
        {"name": "gre", "module": "pypulseq.seq_examples.scripts.write_gre", "source": "gre_pypulseq.seq"},
      ],
    },
  ],
}`)

	fromYAML, err := Load(yamlPath)
	require.NoError(t, err)
	fromJSONC, err := Load(jsoncPath)
	require.NoError(t, err)

	assert.Equal(t, yamlPath, fromYAML.Source)
	assert.Equal(t, jsoncPath, fromJSONC.Source)

	// Source differs; compare everything else.
	fromJSONC.Source = fromYAML.Source
	if diff := cmp.Diff(fromYAML, fromJSONC); diff != "" {
		t.Errorf("YAML and JSONC manifests differ (-yaml +jsonc):\n%s", diff)
	}

	assert.Equal(t, DefaultPython, fromYAML.Python)
	assert.Equal(t, DefaultImage, fromYAML.Image)
	assert.Equal(t, DefaultAssetsDir, fromYAML.AssetsDir)
	assert.Equal(t, DefaultEnvDir, fromYAML.EnvDir)
	assert.Equal(t, model.ModeImport, fromYAML.Releases[0].Fixtures[1].Mode)
}

// TestLoad_NotFound verifies a missing manifest maps to ExitManifestInvalid.
func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitManifestInvalid, cliErr.Code)
	assert.Contains(t, cliErr.Message, "manifest not found")
}

// TestLoad_InvalidReportsAllProblems checks that validation reports every
// problem at once and that each one is reachable with errors.As.
func TestLoad_InvalidReportsAllProblems(t *testing.T) {
	path := writeManifest(t, "bad.yaml", `
releases:
  - version: 1.4.0
    fixtures:
      - {name: epi, module: m.write_epi, mode: main}
      - {name: epi, module: m.write_epi, mode: main}
      - {name: ../gre, module: m.write_gre, mode: main}
      - {name: tse, module: m.write_tse, mode: import}
      - {name: ute, module: m.write_ute, mode: exec}
  - version: 1.4.0
    fixtures:
      - {name: epi, module: m.write_epi, mode: main}
`)

	_, err := Load(path)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitManifestInvalid, cliErr.Code)

	msg := err.Error()
	assert.Contains(t, msg, "package: package name is required")
	assert.Contains(t, msg, `releases[0].fixtures[1].name: fixture "epi" is listed more than once`)
	assert.Contains(t, msg, "releases[0].fixtures[2].name")
	assert.Contains(t, msg, "releases[0].fixtures[3].source")
	assert.Contains(t, msg, `releases[0].fixtures[4].mode: invalid mode "exec"`)
	assert.Contains(t, msg, "releases[1].version: version 1.4.0 is listed more than once")

	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
}

// TestValidate_ExternalDriver verifies that fixtures of a release with an
// external driver only need a name.
func TestValidate_ExternalDriver(t *testing.T) {
	m := &Manifest{
		Package: "pypulseq",
		Releases: []model.Release{{
			Version:  "1.2.0.post4",
			Driver:   "drivers/1.2.0.post4.py",
			Fixtures: []model.Fixture{{Name: "epi_rs"}, {Name: "gre"}},
		}},
	}
	assert.Empty(t, Validate(m))
}

func TestValidate_ReleaseWithoutFixtures(t *testing.T) {
	m := &Manifest{
		Package:  "pypulseq",
		Releases: []model.Release{{Version: "1.4.0"}},
	}
	errs := Validate(m)
	require.Len(t, errs, 1)
	assert.Equal(t, "releases[0].fixtures", errs[0].Field)
}

// TestSelect covers filtering, manifest-order preservation, and unknown versions.
// TestValidate_Sources verifies a source on a main fixture and a source
// shared by two fixtures are rejected up front; either would otherwise
// surface only after the driver ran.
func TestValidate_Sources(t *testing.T) {
	m := &Manifest{
		Package: "pypulseq",
		Releases: []model.Release{{
			Version: "1.3.1.post1",
			Fixtures: []model.Fixture{
				{Name: "epi", Module: "write_epi", Mode: model.ModeImport, Source: "out.seq"},
				{Name: "gre", Module: "write_gre", Mode: model.ModeImport, Source: "out.seq"},
				{Name: "tse", Module: "write_tse", Mode: model.ModeMain, Source: "tse_pypulseq.seq"},
			},
		}},
	}

	errs := Validate(m)
	require.Len(t, errs, 2)
	assert.Equal(t, "releases[0].fixtures[1].source", errs[0].Field)
	assert.Contains(t, errs[0].Message, `already used by fixture "epi"`)
	assert.Equal(t, "releases[0].fixtures[2].source", errs[1].Field)
	assert.Contains(t, errs[1].Message, "main fixtures")
}

// TestValidate_ExternalDriverSharedSource verifies the shared-source rule
// also holds when the release brings its own driver.
func TestValidate_ExternalDriverSharedSource(t *testing.T) {
	m := &Manifest{
		Package: "pypulseq",
		Releases: []model.Release{{
			Version: "1.2.0.post4",
			Driver:  "drivers/1.2.0.post4.py",
			Fixtures: []model.Fixture{
				{Name: "epi", Source: "out.seq"},
				{Name: "gre", Source: "out.seq"},
			},
		}},
	}

	errs := Validate(m)
	require.Len(t, errs, 1)
	assert.Equal(t, "releases[0].fixtures[1].source", errs[0].Field)
}

func TestSelect(t *testing.T) {
	m, err := Default()
	require.NoError(t, err)

	all, err := m.Select()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Requested out of order; result keeps manifest order.
	both, err := m.Select("1.4.0", "1.3.1.post1")
	require.NoError(t, err)
	require.Len(t, both, 2)
	assert.Equal(t, "1.3.1.post1", both[0].Version)
	assert.Equal(t, "1.4.0", both[1].Version)

	one, err := m.Select("1.4.0")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "1.4.0", one[0].Version)

	_, err = m.Select("1.4.0", "0.9.0")
	require.Error(t, err)
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitManifestInvalid, cliErr.Code)
	assert.Contains(t, cliErr.Message, "0.9.0")
}

// TestPlan verifies asset paths resolve against the project root.
func TestPlan(t *testing.T) {
	m, err := Default()
	require.NoError(t, err)

	root := t.TempDir()
	plan, err := m.Plan(root)
	require.NoError(t, err)

	assert.Equal(t, "pypulseq", plan.Package)
	assert.Equal(t, root, plan.RootDir)
	assert.Equal(t, filepath.Join(root, "assets"), plan.AssetsDir)

	newest, ok := plan.Newest()
	require.True(t, ok)
	assert.Equal(t, "1.4.0", newest.Version)
	assert.Equal(t, "1.4.0", plan.Baseline)
}

// TestPlan_FilteredKeepsNewestBaseline verifies a --version filter narrows
// the releases but not the dependency baseline.
func TestPlan_FilteredKeepsNewestBaseline(t *testing.T) {
	m, err := Default()
	require.NoError(t, err)

	plan, err := m.Plan(t.TempDir(), "1.3.1.post1")
	require.NoError(t, err)

	require.Len(t, plan.Releases, 1)
	assert.Equal(t, "1.3.1.post1", plan.Releases[0].Version)

	baseline, ok := plan.BaselineVersion()
	require.True(t, ok)
	assert.Equal(t, "1.4.0", baseline)
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	abs := filepath.Join(root, "elsewhere")
	assert.Equal(t, abs, Resolve(root, abs))
	assert.Equal(t, filepath.Join(root, "assets"), Resolve(root, "assets"))
}
