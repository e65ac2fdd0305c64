package docker

import (
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types/filters"

	"github.com/shinji-kodama/seqfixtures/internal/model"
)

// Label keys persisted on every managed container. Labels are the only
// record of which container serves which project; there is no state file.
const (
	// LabelPrefix namespaces all seqfixtures labels.
	LabelPrefix = "seqfixtures."

	// LabelManagedBy identifies containers created by this tool.
	// Value: always ManagedByValue.
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelProject stores the absolute host path of the bind-mounted
	// project root. One container serves one project.
	LabelProject = LabelPrefix + "project"

	// LabelImage stores the base image the container was created from.
	LabelImage = LabelPrefix + "image"

	// LabelCreatedAt stores the RFC3339 creation timestamp.
	LabelCreatedAt = LabelPrefix + "created-at"
)

// ManagedByValue is the value of LabelManagedBy on every managed container.
const ManagedByValue = "seqfixtures"

// BuildLabels returns the labels for a new container serving project.
func BuildLabels(project, image string, createdAt time.Time) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelProject:   project,
		LabelImage:     image,
		LabelCreatedAt: createdAt.UTC().Format(time.RFC3339),
	}
}

// ParseLabels reads the project metadata back from container labels into
// info. It is the inverse of BuildLabels.
//
// All labels written by BuildLabels are required; missing ones are
// reported together in a single error.
func ParseLabels(labels map[string]string, info *model.ContainerInfo) error {
	requiredKeys := []string{
		LabelManagedBy,
		LabelProject,
		LabelImage,
		LabelCreatedAt,
	}

	var missing []string
	for _, key := range requiredKeys {
		if _, ok := labels[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required Docker labels: %s", strings.Join(missing, ", "))
	}

	if labels[LabelManagedBy] != ManagedByValue {
		return fmt.Errorf(
			"label %s has unexpected value %q (expected %q)",
			LabelManagedBy, labels[LabelManagedBy], ManagedByValue,
		)
	}

	createdAt, err := time.Parse(time.RFC3339, labels[LabelCreatedAt])
	if err != nil {
		return fmt.Errorf("invalid label %s: %w", LabelCreatedAt, err)
	}

	info.Project = labels[LabelProject]
	info.Image = labels[LabelImage]
	info.CreatedAt = createdAt
	return nil
}

// FilterArgs returns the Docker API filter selecting managed containers.
// A non-empty project narrows the filter to that project's container.
func FilterArgs(project string) filters.Args {
	args := filters.NewArgs(
		filters.Arg("label", LabelManagedBy+"="+ManagedByValue),
	)
	if project != "" {
		args.Add("label", LabelProject+"="+project)
	}
	return args
}
