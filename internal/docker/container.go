// container.go implements the lifecycle of managed containers: listing,
// creation, start, and removal. All managed containers carry the
// "seqfixtures.managed-by" label, which separates them from unrelated
// containers on the same host.
package docker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"

	"github.com/shinji-kodama/seqfixtures/internal/model"
)

// ListManagedContainers returns the managed containers for project, or
// for every project when project is empty. Stopped containers are
// included, since Ensure restarts them and clean removes them.
func ListManagedContainers(ctx context.Context, cli *Client, project string) ([]model.ContainerInfo, error) {
	containers, err := cli.Inner().ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: FilterArgs(project),
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}

	result := make([]model.ContainerInfo, 0, len(containers))
	for _, c := range containers {
		result = append(result, containerToInfo(c))
	}
	return result, nil
}

// containerToInfo converts a Docker API container summary to a
// ContainerInfo. Label parse errors leave the project fields empty rather
// than hiding the container, so clean can still remove it.
func containerToInfo(c container.Summary) model.ContainerInfo {
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}

	info := model.ContainerInfo{
		ID:    c.ID,
		Name:  name,
		State: c.State,
	}
	_ = ParseLabels(c.Labels, &info)
	return info
}

var nameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

// ContainerName derives a stable container name from the project root:
// the sanitized base name plus a short hash of the full path, so two
// checkouts with the same directory name get different containers.
func ContainerName(project string) string {
	sum := sha256.Sum256([]byte(project))
	base := strings.Trim(nameUnsafe.ReplaceAllString(filepath.Base(project), "-"), "-.")
	if base == "" {
		base = "project"
	}
	return fmt.Sprintf("seqfixtures-%s-%s", strings.ToLower(base), hex.EncodeToString(sum[:4]))
}

// CreateContainer creates and starts a long-lived container for project
// from img, bind-mounting project at WorkDir. The image is pulled when the
// daemon does not have it. Returns the new container's ID.
func CreateContainer(ctx context.Context, cli *Client, project, img string) (string, error) {
	cfg := &container.Config{
		Image:      img,
		Cmd:        []string{"sleep", "infinity"},
		WorkingDir: WorkDir,
		Labels:     BuildLabels(project, img, time.Now()),
	}
	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{{
			Type:   mount.TypeBind,
			Source: project,
			Target: WorkDir,
		}},
	}
	name := ContainerName(project)

	created, err := cli.Inner().ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	if client.IsErrNotFound(err) {
		if pullErr := PullImage(ctx, cli, img); pullErr != nil {
			return "", pullErr
		}
		created, err = cli.Inner().ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	}
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitEnvironmentFailed,
			fmt.Sprintf("failed to create container %q", name),
			err,
		)
	}

	if err := StartContainer(ctx, cli, created.ID); err != nil {
		return "", err
	}
	return created.ID, nil
}

// PullImage pulls ref and waits for the pull to finish. The daemon
// reports progress as a JSON stream that must be drained to completion.
func PullImage(ctx context.Context, cli *Client, ref string) error {
	rc, err := cli.Inner().ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return model.WrapCLIError(
			model.ExitEnvironmentFailed,
			fmt.Sprintf("failed to pull image %q", ref),
			err,
		)
	}
	defer rc.Close()

	if _, err := io.Copy(io.Discard, rc); err != nil {
		return model.WrapCLIError(
			model.ExitEnvironmentFailed,
			fmt.Sprintf("failed to pull image %q", ref),
			err,
		)
	}
	return nil
}

// StartContainer starts a stopped container by ID.
func StartContainer(ctx context.Context, cli *Client, containerID string) error {
	if err := cli.Inner().ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return model.WrapCLIError(
			model.ExitEnvironmentFailed,
			fmt.Sprintf("failed to start container %q", containerID),
			err,
		)
	}
	return nil
}

// RemoveContainer force-removes a container by ID, killing it first if it
// is running.
func RemoveContainer(ctx context.Context, cli *Client, containerID string) error {
	err := cli.Inner().ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force: true,
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to remove container %q", containerID),
			err,
		)
	}
	return nil
}
