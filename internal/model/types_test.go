package model

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFixtureMode_IsValid checks that only defined modes pass validation.
func TestFixtureMode_IsValid(t *testing.T) {
	assert.True(t, ModeImport.IsValid())
	assert.True(t, ModeMain.IsValid())
	assert.False(t, FixtureMode("exec").IsValid())
	assert.False(t, FixtureMode("").IsValid())
}

// TestParseFixtureMode verifies string-to-mode conversion, including the
// empty default and case normalization.
func TestParseFixtureMode(t *testing.T) {
	tests := []struct {
		input    string
		expected FixtureMode
		hasError bool
	}{
		{"import", ModeImport, false},
		{"main", ModeMain, false},
		{"MAIN", ModeMain, false},
		{"", ModeImport, false}, // default
		{"exec", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseFixtureMode(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("Docker")
	require.NoError(t, err)
	assert.Equal(t, BackendDocker, b)

	b, err = ParseBackend("venv")
	require.NoError(t, err)
	assert.Equal(t, BackendVenv, b)

	_, err = ParseBackend("conda")
	assert.Error(t, err)
}

// TestValidateVersion covers release strings that must be accepted as both
// pip pins and directory names, and strings that must not.
func TestValidateVersion(t *testing.T) {
	tests := []struct {
		version string
		valid   bool
	}{
		{"1.4.0", true},
		{"1.3.1.post1", true},
		{"1.2.0.post4", true},
		{"2.0.0rc1", true},
		{"1", true},
		{"", false},
		{"latest", false},
		{"../1.4.0", false},
		{"1.4.0/evil", false},
		{"1.4.0 ", false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			err := ValidateVersion(tt.version)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

// TestRelease_FixturePath verifies the deterministic destination layout
// assets/<version>/<name>.seq.
func TestRelease_FixturePath(t *testing.T) {
	r := Release{Version: "1.4.0"}
	f := Fixture{Name: "epi", Module: "pypulseq.seq_examples.scripts.write_epi", Mode: ModeMain}

	assert.Equal(t, "epi.seq", f.FileName())
	assert.Equal(t, filepath.Join("assets", "1.4.0"), r.Dir("assets"))
	assert.Equal(t, filepath.Join("assets", "1.4.0", "epi.seq"), r.FixturePath("assets", f))
}

func TestPlan_Newest(t *testing.T) {
	p := &Plan{}
	_, ok := p.Newest()
	assert.False(t, ok, "empty plan has no newest release")

	p.Releases = []Release{{Version: "1.3.1.post1"}, {Version: "1.4.0"}}
	newest, ok := p.Newest()
	require.True(t, ok)
	assert.Equal(t, "1.4.0", newest.Version)
}

func TestPlan_BaselineVersion(t *testing.T) {
	p := &Plan{Baseline: "1.4.0"}
	_, ok := p.BaselineVersion()
	assert.False(t, ok, "empty plan has nothing to install")

	p.Releases = []Release{{Version: "1.3.1.post1"}}
	v, ok := p.BaselineVersion()
	require.True(t, ok)
	assert.Equal(t, "1.4.0", v, "explicit baseline wins over the selected releases")

	p.Baseline = ""
	v, ok = p.BaselineVersion()
	require.True(t, ok)
	assert.Equal(t, "1.3.1.post1", v)
}

func TestRequirement(t *testing.T) {
	assert.Equal(t, "pypulseq==1.3.1.post1", Requirement("pypulseq", "1.3.1.post1"))
}

func TestRunReport_Failed(t *testing.T) {
	report := &RunReport{Releases: []ReleaseReport{
		{Version: "1.3.1.post1", Status: ReleaseGenerated},
		{Version: "1.4.0", Status: ReleaseFailed},
	}}
	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "1.4.0", failed[0].Version)
}

// TestFixtureReport_Summary checks both the OK and the failure rendering.
func TestFixtureReport_Summary(t *testing.T) {
	ok := &FixtureReport{Version: "1.4.0", Present: []string{"epi.seq", "gre.seq"}}
	assert.True(t, ok.OK())
	assert.Equal(t, "1.4.0: 2 fixture(s) ok", ok.Summary())

	bad := &FixtureReport{
		Version:    "1.3.1.post1",
		Missing:    []string{"ute.seq"},
		Empty:      []string{"tse.seq"},
		Unexpected: []string{"stray.seq"},
	}
	assert.False(t, bad.OK())
	assert.Equal(t, "1.3.1.post1: missing ute.seq; empty tse.seq; unexpected stray.seq", bad.Summary())
}

func TestCommandResult(t *testing.T) {
	r := &CommandResult{Args: []string{"pip", "install", "pypulseq==1.4.0"}, ExitCode: 0}
	assert.True(t, r.Succeeded())
	assert.Equal(t, "pip install pypulseq==1.4.0", r.String())

	r.ExitCode = 2
	assert.False(t, r.Succeeded())
}

// TestCLIError verifies the custom error type used for exit code mapping.
func TestCLIError(t *testing.T) {
	t.Run("simple error", func(t *testing.T) {
		err := NewCLIError(ExitDriverFailed, "driver exited with status 1")
		assert.Equal(t, ExitDriverFailed, err.Code)
		assert.Equal(t, "driver exited with status 1", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("wrapped error", func(t *testing.T) {
		inner := errors.New("no matching distribution")
		err := WrapCLIError(ExitInstallFailed, "pip install failed", inner)
		assert.Equal(t, ExitInstallFailed, err.Code)
		assert.Contains(t, err.Error(), "no matching distribution")
		assert.Equal(t, inner, err.Unwrap())
	})

	t.Run("errors.Is chain", func(t *testing.T) {
		inner := errors.New("no matching distribution")
		err := WrapCLIError(ExitInstallFailed, "pip install failed", inner)
		assert.True(t, errors.Is(err, inner))
	})
}
