package docker

import (
	"context"
	"fmt"
	"net"
	"os"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/shinji-kodama/seqfixtures/internal/model"
)

// pingTimeout bounds how long Ping waits for the daemon. Docker Desktop on
// macOS can take a few seconds to answer after waking.
const pingTimeout = 5 * time.Second

// envVars are the variables the Docker CLI reads to find a daemon. When any
// of them is set the client is configured the same way the CLI would be,
// including TLS for remote tcp:// hosts.
var envVars = []string{
	client.EnvOverrideHost,
	client.EnvOverrideAPIVersion,
	client.EnvOverrideCertPath,
	client.EnvTLSVerify,
}

// Client wraps the Docker Engine SDK client used by the docker backend.
//
//	c, err := docker.NewClient()
//	if err != nil { /* exit 3 */ }
//	defer c.Close()
type Client struct {
	inner *client.Client
}

// NewClient connects to the Docker daemon configured for this host.
//
// If any DOCKER_* connection variable is set the SDK's environment
// configuration is used as-is (host, API version, certificates). Otherwise
// the platform's default socket is used:
//   - Linux: /var/run/docker.sock
//   - macOS: /var/run/docker.sock, then ~/.docker/run/docker.sock
//   - Windows: npipe:////./pipe/docker_engine
//
// Failures are reported as ExitDockerNotRunning.
func NewClient() (*Client, error) {
	opts, target, err := connectOptions(os.Getenv, findSocket)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning, "Docker socket not found", err)
	}

	c, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create Docker client from %s", target),
			err,
		)
	}
	return &Client{inner: c}, nil
}

// connectOptions picks how to reach the daemon. target describes the
// choice for error messages.
func connectOptions(getenv func(string) string, lookup func() (string, error)) (opts []client.Opt, target string, err error) {
	for _, name := range envVars {
		if getenv(name) != "" {
			return []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}, "DOCKER_* environment", nil
		}
	}

	host, err := lookup()
	if err != nil {
		return nil, "", err
	}
	return []client.Opt{client.WithHost(host), client.WithAPIVersionNegotiation()}, fmt.Sprintf("host %q", host), nil
}

// findSocket returns the URI of the first default daemon socket present on
// this platform. It only checks existence; Ping checks the daemon.
func findSocket() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return firstSocket("/var/run/docker.sock")

	case "darwin":
		paths := []string{"/var/run/docker.sock"}
		if home, err := os.UserHomeDir(); err == nil {
			paths = append(paths, home+"/.docker/run/docker.sock")
		}
		return firstSocket(paths...)

	case "windows":
		// os.Stat does not work on named pipes.
		const pipe = `//./pipe/docker_engine`
		conn, err := net.DialTimeout("pipe", pipe, time.Second)
		if err != nil {
			return "", fmt.Errorf("no Docker named pipe at %s: %w", pipe, err)
		}
		_ = conn.Close()
		return "npipe://" + pipe, nil

	default:
		return "", fmt.Errorf("unsupported platform %s: set DOCKER_HOST", runtime.GOOS)
	}
}

// firstSocket returns "unix://<path>" for the first of paths that exists.
func firstSocket(paths ...string) (string, error) {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return "unix://" + p, nil
		}
	}
	return "", fmt.Errorf("no Docker socket at %v (is Docker running?)", paths)
}

// Ping checks the daemon answers within pingTimeout.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(ctx); err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("Docker daemon at %s is not responding (is Docker running?)", c.inner.DaemonHost()),
			err,
		)
	}
	return nil
}

// Host returns the daemon address the client talks to.
func (c *Client) Host() string {
	return c.inner.DaemonHost()
}

// Close releases the client's connections. It is safe to call twice.
func (c *Client) Close() error {
	if c.inner == nil {
		return nil
	}
	return c.inner.Close()
}

// Inner returns the underlying SDK client.
func (c *Client) Inner() *client.Client {
	return c.inner
}
