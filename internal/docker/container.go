package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/rotisserie/eris"
)

// API is the subset of the Docker SDK client used by this package.
// *client.Client satisfies it.
type API interface {
	ImageList(ctx context.Context, options image.ListOptions) ([]image.Summary, error)
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig,
		networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
}

// Bind is a host directory mounted into the container.
type Bind struct {
	HostPath      string
	ContainerPath string
	ReadOnly      bool
}

// RunSpec describes a one-shot container run.
type RunSpec struct {
	Image   string
	Cmd     []string
	WorkDir string
	Env     []string
	Binds   []Bind
	Labels  map[string]string
}

// RunResult is the outcome of a finished container.
type RunResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// RunOnce runs spec to completion and returns its exit code and
// demultiplexed output. The image is pulled when it is not present
// locally. The container is always removed, even when ctx is cancelled.
func RunOnce(ctx context.Context, api API, spec RunSpec) (*RunResult, error) {
	if err := ensureImage(ctx, api, spec.Image); err != nil {
		return nil, err
	}

	mounts := make([]mount.Mount, 0, len(spec.Binds))
	for _, b := range spec.Binds {
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   b.HostPath,
			Target:   b.ContainerPath,
			ReadOnly: b.ReadOnly,
		})
	}

	created, err := api.ContainerCreate(ctx,
		&container.Config{
			Image:      spec.Image,
			Cmd:        spec.Cmd,
			WorkingDir: spec.WorkDir,
			Env:        spec.Env,
			Labels:     spec.Labels,
		},
		&container.HostConfig{Mounts: mounts},
		nil, nil, "")
	if err != nil {
		return nil, eris.Wrapf(err, "create container from %s", spec.Image)
	}
	defer func() {
		// The run context may already be cancelled here.
		_ = api.ContainerRemove(context.WithoutCancel(ctx), created.ID, container.RemoveOptions{Force: true})
	}()

	if err := api.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return nil, eris.Wrapf(err, "start container %s", shortID(created.ID))
	}

	exitCode, err := wait(ctx, api, created.ID)
	if err != nil {
		return nil, err
	}

	logs, err := api.ContainerLogs(ctx, created.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return nil, eris.Wrapf(err, "read logs of container %s", shortID(created.ID))
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logs); err != nil {
		return nil, eris.Wrapf(err, "demultiplex logs of container %s", shortID(created.ID))
	}

	return &RunResult{ExitCode: exitCode, Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil
}

// ensureImage pulls ref unless a local image already matches it.
func ensureImage(ctx context.Context, api API, ref string) error {
	images, err := api.ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", ref)),
	})
	if err != nil {
		return eris.Wrap(err, "list local images")
	}
	if len(images) > 0 {
		return nil
	}

	progress, err := api.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return eris.Wrapf(err, "pull image %s", ref)
	}
	defer progress.Close()

	// The pull only completes once its progress stream is drained.
	if _, err := io.Copy(io.Discard, progress); err != nil {
		return eris.Wrapf(err, "pull image %s", ref)
	}
	return nil
}

// wait blocks until the container stops and returns its exit status.
func wait(ctx context.Context, api API, id string) (int, error) {
	statusCh, errCh := api.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return 0, eris.Wrapf(err, "wait for container %s", shortID(id))
	case status := <-statusCh:
		if status.Error != nil && status.Error.Message != "" {
			return 0, eris.Errorf("container %s failed: %s", shortID(id), status.Error.Message)
		}
		return int(status.StatusCode), nil
	case <-ctx.Done():
		return 0, eris.Wrap(ctx.Err(), "wait for container")
	}
}

// RemoveStale force-removes brick containers left behind for project, for
// example by a lint run that was killed. It returns how many were removed.
func RemoveStale(ctx context.Context, api API, project string) (int, error) {
	containers, err := api.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: ProjectFilter(project),
	})
	if err != nil {
		return 0, eris.Wrap(err, "list brick containers")
	}

	var failed []string
	removed := 0
	for _, c := range containers {
		if err := api.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true}); err != nil {
			failed = append(failed, shortID(c.ID))
			continue
		}
		removed++
	}
	if len(failed) > 0 {
		return removed, fmt.Errorf("failed to remove containers: %s", strings.Join(failed, ", "))
	}
	return removed, nil
}

// shortID returns the 12-character form of a container ID.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
