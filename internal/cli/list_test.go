package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/seqfixtures/internal/model"
)

// TestList_EmbeddedDefault verifies the default manifest lists both
// compatibility releases with their destinations.
func TestList_EmbeddedDefault(t *testing.T) {
	root := t.TempDir()
	out, err := execute(t, "", "list", "--root", root, "--json")
	require.NoError(t, err)

	var result listResultJSON
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	assert.Equal(t, "pypulseq", result.Package)
	require.Len(t, result.Releases, 2)
	assert.Equal(t, "1.3.1.post1", result.Releases[0].Version)
	assert.Len(t, result.Releases[0].Fixtures, 8)
	assert.Equal(t, "1.4.0", result.Releases[1].Version)
	assert.Len(t, result.Releases[1].Fixtures, 11)

	first := result.Releases[0].Fixtures[0]
	assert.Equal(t, "import", first.Mode)
	assert.Equal(t, filepath.Join("assets", "1.3.1.post1", first.Name+".seq"), first.Destination)
	assert.NotEmpty(t, first.Source)
}

func TestList_Text(t *testing.T) {
	root, m := setupProject(t)
	out, err := execute(t, "", "list", "--root", root, "--manifest", m)
	require.NoError(t, err)

	want := strings.Join([]string{
		"pypulseq 1.3.1.post1  driver (rendered)",
		"  epi          import  " + filepath.Join("assets", "1.3.1.post1", "epi.seq") + "  <- epi_pypulseq.seq",
		"",
		"pypulseq 1.4.0  driver (rendered)",
		"  epi          main    " + filepath.Join("assets", "1.4.0", "epi.seq"),
		"  gre          main    " + filepath.Join("assets", "1.4.0", "gre.seq"),
		"",
	}, "\n")
	assert.Equal(t, want, out)
}

func TestPrintContainersText(t *testing.T) {
	var buf bytes.Buffer
	printContainersText(&buf, nil)
	assert.Equal(t, "No managed containers found.\n", buf.String())

	buf.Reset()
	printContainersText(&buf, []model.ContainerInfo{
		{Name: "seqfixtures-pulseq-0a1b2c3d", State: "running", Image: "python:3.11-slim", Project: "/home/user/pulseq", CreatedAt: time.Now()},
		{Name: "seqfixtures-broken", State: "exited"},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, lines[1], "/home/user/pulseq")
	assert.Contains(t, lines[2], "exited    -")
}
