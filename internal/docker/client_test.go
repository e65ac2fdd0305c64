package docker

import (
	"errors"
	"testing"

	"github.com/docker/docker/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/seqfixtures/internal/model"
)

func envOf(vars map[string]string) func(string) string {
	return func(name string) string { return vars[name] }
}

func noSocketLookup(t *testing.T) func() (string, error) {
	return func() (string, error) {
		t.Fatal("socket looked up although DOCKER_* is set")
		return "", nil
	}
}

// TestConnectOptions_Environment verifies any DOCKER_* connection variable
// selects the SDK's environment configuration over socket probing.
func TestConnectOptions_Environment(t *testing.T) {
	for _, name := range []string{
		client.EnvOverrideHost,
		client.EnvOverrideAPIVersion,
		client.EnvOverrideCertPath,
		client.EnvTLSVerify,
	} {
		t.Run(name, func(t *testing.T) {
			opts, target, err := connectOptions(envOf(map[string]string{name: "x"}), noSocketLookup(t))
			require.NoError(t, err)
			assert.Len(t, opts, 2)
			assert.Equal(t, "DOCKER_* environment", target)
		})
	}
}

func TestConnectOptions_FindsSocket(t *testing.T) {
	lookup := func() (string, error) { return "unix:///var/run/docker.sock", nil }

	opts, target, err := connectOptions(envOf(nil), lookup)
	require.NoError(t, err)
	assert.Len(t, opts, 2)
	assert.Contains(t, target, "unix:///var/run/docker.sock")
}

func TestConnectOptions_NoSocket(t *testing.T) {
	lookup := func() (string, error) { return "", errors.New("no Docker socket") }

	_, _, err := connectOptions(envOf(nil), lookup)
	assert.EqualError(t, err, "no Docker socket")
}

// clearDockerEnv blanks every connection variable for the test.
func clearDockerEnv(t *testing.T) {
	t.Helper()
	for _, name := range envVars {
		t.Setenv(name, "")
	}
}

func TestNewClient_HostFromEnvironment(t *testing.T) {
	clearDockerEnv(t)
	t.Setenv(client.EnvOverrideHost, "tcp://127.0.0.1:2375")

	c, err := NewClient()
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	assert.Equal(t, "tcp://127.0.0.1:2375", c.Host())
}

// TestNewClient_TLSFromEnvironment verifies DOCKER_TLS_VERIFY and
// DOCKER_CERT_PATH are honoured: a certificate directory without
// certificates must fail instead of silently falling back to plain HTTP.
func TestNewClient_TLSFromEnvironment(t *testing.T) {
	clearDockerEnv(t)
	t.Setenv(client.EnvOverrideHost, "tcp://127.0.0.1:2376")
	t.Setenv(client.EnvTLSVerify, "1")
	t.Setenv(client.EnvOverrideCertPath, t.TempDir())

	_, err := NewClient()
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitDockerNotRunning, cliErr.Code)
}

func TestFirstSocket(t *testing.T) {
	dir := t.TempDir()

	_, err := firstSocket(dir+"/missing.sock")
	assert.Error(t, err)

	host, err := firstSocket(dir+"/missing.sock", dir)
	require.NoError(t, err)
	assert.Equal(t, "unix://"+dir, host)
}

func TestClient_CloseNil(t *testing.T) {
	assert.NoError(t, (&Client{}).Close())
}
