package docker

import (
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types/filters"
)

// Label keys persisted on every container brick creates. All keys share the
// "brick." prefix so they never collide with labels set by other tools.
const (
	// LabelPrefix is the common prefix for all brick labels.
	LabelPrefix = "brick."

	// LabelManagedBy identifies containers created by brick.
	// Key: "brick.managed-by", Value: always "brick".
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelProject stores the absolute path of the project the container
	// works on.
	LabelProject = LabelPrefix + "project"

	// LabelPurpose stores what the container is for (e.g. "lint").
	LabelPurpose = LabelPrefix + "purpose"

	// LabelCreatedAt stores the RFC3339 creation timestamp.
	LabelCreatedAt = LabelPrefix + "created-at"
)

// ManagedByValue is the constant value for the LabelManagedBy label.
const ManagedByValue = "brick"

// Labels is the decoded form of a brick container's label set.
type Labels struct {
	Project   string
	Purpose   string
	CreatedAt time.Time
}

// BuildLabels constructs the Docker label map for a container working on
// project. createdAt is stored in UTC.
func BuildLabels(l Labels) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelProject:   l.Project,
		LabelPurpose:   l.Purpose,
		LabelCreatedAt: l.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ParseLabels is the inverse of BuildLabels. All keys are required and the
// container must be managed by brick.
func ParseLabels(labels map[string]string) (Labels, error) {
	required := []string{LabelManagedBy, LabelProject, LabelPurpose, LabelCreatedAt}

	var missing []string
	for _, key := range required {
		if _, ok := labels[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Labels{}, fmt.Errorf("missing required Docker labels: %s", strings.Join(missing, ", "))
	}

	if labels[LabelManagedBy] != ManagedByValue {
		return Labels{}, fmt.Errorf(
			"label %s has unexpected value %q (expected %q)",
			LabelManagedBy, labels[LabelManagedBy], ManagedByValue,
		)
	}

	createdAt, err := time.Parse(time.RFC3339, labels[LabelCreatedAt])
	if err != nil {
		return Labels{}, fmt.Errorf("invalid label %s: %w", LabelCreatedAt, err)
	}

	return Labels{
		Project:   labels[LabelProject],
		Purpose:   labels[LabelPurpose],
		CreatedAt: createdAt,
	}, nil
}

// ProjectFilter returns the Docker API filter matching brick containers of
// one project. An empty project matches every brick container.
func ProjectFilter(project string) filters.Args {
	args := filters.NewArgs(filters.Arg("label", LabelManagedBy+"="+ManagedByValue))
	if project != "" {
		args.Add("label", LabelProject+"="+project)
	}
	return args
}
