package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/seqfixtures/internal/model"
)

// TestClean_Venv verifies clean removes the venv and the rendered drivers
// but not the fixtures.
func TestClean_Venv(t *testing.T) {
	root, m := setupProject(t)
	venv := filepath.Join(root, ".seqfixtures", "venv")
	drivers := filepath.Join(root, ".seqfixtures", "drivers")
	require.NoError(t, os.MkdirAll(venv, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(venv, "pyvenv.cfg"), nil, 0o644))
	require.NoError(t, os.MkdirAll(drivers, 0o755))
	writeFixture(t, root, "1.4.0", "epi.seq", "x")

	out, err := execute(t, "", "clean", "--root", root, "--manifest", m, "--yes")
	require.NoError(t, err)

	assert.Contains(t, out, "Removed "+filepath.Join(".seqfixtures", "venv"))
	assert.Contains(t, out, "Removed "+filepath.Join(".seqfixtures", "drivers"))
	assert.NoDirExists(t, venv)
	assert.NoDirExists(t, drivers)
	assert.FileExists(t, filepath.Join(root, "assets", "1.4.0", "epi.seq"))
}

func TestClean_Declined(t *testing.T) {
	root, m := setupProject(t)
	venv := filepath.Join(root, ".seqfixtures", "venv")
	require.NoError(t, os.MkdirAll(venv, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(venv, "pyvenv.cfg"), nil, 0o644))

	out, err := execute(t, "n\n", "clean", "--root", root, "--manifest", m)
	require.NoError(t, err)
	assert.Contains(t, out, "Continue? [y/N]")
	assert.Contains(t, out, "Aborted.")
	assert.DirExists(t, venv)
}

func TestClean_RefusesNonVenv(t *testing.T) {
	root, m := setupProject(t)
	venv := filepath.Join(root, ".seqfixtures", "venv")
	require.NoError(t, os.MkdirAll(venv, 0o755))

	_, err := execute(t, "", "clean", "--root", root, "--manifest", m, "--yes")
	requireExitCode(t, err, model.ExitEnvironmentFailed)
	assert.DirExists(t, venv)
}

func TestClean_NothingToRemove(t *testing.T) {
	root, m := setupProject(t)
	out, err := execute(t, "", "clean", "--root", root, "--manifest", m, "-y")
	require.NoError(t, err)
	assert.Equal(t, "Nothing to remove.\n", out)
}
