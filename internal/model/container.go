package model

import "time"

// ContainerInfo describes a Docker container managed by the docker
// backend. It is rebuilt from the container's labels and runtime state on
// every listing; nothing is persisted outside Docker.
type ContainerInfo struct {
	// ID is the full Docker container ID.
	ID string `json:"id"`

	// Name is the container name without Docker's leading "/".
	Name string `json:"name"`

	// State is Docker's short state string, e.g. "running" or "exited".
	State string `json:"state"`

	// Project is the absolute host path of the project root the container
	// bind-mounts.
	Project string `json:"project"`

	// Image is the base image the container was created from.
	Image string `json:"image"`

	// CreatedAt is when the container was created by this tool.
	CreatedAt time.Time `json:"createdAt"`
}

// Running reports whether Docker considers the container running.
func (c ContainerInfo) Running() bool {
	return c.State == "running"
}
