package lint

import (
	"context"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/shinji-kodama/brick/internal/docker"
	"github.com/shinji-kodama/brick/internal/model"
)

// containerWorkDir is where the project is mounted inside the container.
const containerWorkDir = "/workspace"

// defaultContainerCommand runs the project's ESLint from the mounted
// node_modules.
var defaultContainerCommand = []string{"npx", "--no-install", "eslint"}

// ContainerRunner runs ESLint inside a throwaway Node.js container with the
// project bind-mounted at /workspace. Reported paths are mapped back to the
// host.
type ContainerRunner struct {
	api        docker.API
	root       string
	configFile string
	image      string
	command    []string
	logger     zerolog.Logger
	now        func() time.Time
}

// NewContainerRunner creates a runner for the project in root using image.
func NewContainerRunner(api docker.API, root, configFile, image string, command []string, logger zerolog.Logger) *ContainerRunner {
	if len(command) == 0 {
		command = defaultContainerCommand
	}
	return &ContainerRunner{
		api:        api,
		root:       root,
		configFile: configFile,
		image:      image,
		command:    command,
		logger:     logger,
		now:        time.Now,
	}
}

// Lint runs ESLint in a fresh container. Containers left over from earlier
// interrupted runs of the same project are removed first.
func (r *ContainerRunner) Lint(ctx context.Context, patterns []string) ([]model.LintResult, error) {
	if n, err := docker.RemoveStale(ctx, r.api, r.root); err != nil {
		r.logger.Warn().Err(err).Msg("could not remove stale lint containers")
	} else if n > 0 {
		r.logger.Debug().Int("count", n).Msg("removed stale lint containers")
	}

	spec := docker.RunSpec{
		Image:   r.image,
		Cmd:     eslintCommand(r.command, r.configFile, patterns),
		WorkDir: containerWorkDir,
		Binds:   []docker.Bind{{HostPath: r.root, ContainerPath: containerWorkDir}},
		Labels: docker.BuildLabels(docker.Labels{
			Project:   r.root,
			Purpose:   "lint",
			CreatedAt: r.now(),
		}),
	}
	r.logger.Debug().Str("image", spec.Image).Strs("cmd", spec.Cmd).Msg("running eslint in container")

	res, err := docker.RunOnce(ctx, r.api, spec)
	if err != nil {
		return nil, err
	}

	results, err := decodeOutput(res.ExitCode, res.Stdout, res.Stderr)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].FilePath = r.hostPath(results[i].FilePath)
	}
	return results, nil
}

// hostPath maps a path reported inside the container to the host. Paths
// outside the mount are returned unchanged.
func (r *ContainerRunner) hostPath(p string) string {
	clean := path.Clean(p)
	if clean == containerWorkDir {
		return r.root
	}
	rel, ok := strings.CutPrefix(clean, containerWorkDir+"/")
	if !ok {
		return p
	}
	return filepath.Join(r.root, filepath.FromSlash(rel))
}
