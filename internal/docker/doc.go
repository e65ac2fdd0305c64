// Package docker implements the container backend of sandbox.Environment.
//
// This package handles:
//   - Docker client initialization from the DOCKER_* environment, falling
//     back to the platform's default socket (Linux, macOS, Windows)
//   - Container labels, which are the only record of which container
//     belongs to which project
//   - The container lifecycle: find or create, start, exec, remove
//
// The project root is bind-mounted at /work, so drivers write fixtures
// straight into the host's assets tree. The virtual environment lives
// inside the container at /opt/seqfixtures/venv and survives between runs
// for as long as the container does.
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker
