package lint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/shinji-kodama/brick/internal/model"
)

// Engine lints the files matched by patterns and returns one result per
// file. An error means the engine itself failed, not that problems were
// found.
type Engine interface {
	Lint(ctx context.Context, patterns []string) ([]model.LintResult, error)
}

// ESLint exits 0 when no errors were found and 1 when errors were found.
// Any other status is a crash or a configuration problem.
const (
	eslintExitClean    = 0
	eslintExitProblems = 1
)

// ESLintRunner runs the project's local ESLint installation.
type ESLintRunner struct {
	root       string
	configFile string
	command    []string
	logger     zerolog.Logger
}

// NewESLintRunner creates a runner for the project in root. configFile is
// passed to --config. command overrides the executable and its leading
// arguments; when empty, node_modules/.bin/eslint is used if present and
// `npx --no-install eslint` otherwise.
func NewESLintRunner(root, configFile string, command []string, logger zerolog.Logger) *ESLintRunner {
	if len(command) == 0 {
		command = localCommand(root)
	}
	return &ESLintRunner{
		root:       root,
		configFile: configFile,
		command:    command,
		logger:     logger,
	}
}

// localCommand finds the ESLint executable installed in the project.
func localCommand(root string) []string {
	name := "eslint"
	if runtime.GOOS == "windows" {
		name = "eslint.cmd"
	}
	bin := filepath.Join(root, "node_modules", ".bin", name)
	if info, err := os.Stat(bin); err == nil && !info.IsDir() {
		return []string{bin}
	}
	return []string{"npx", "--no-install", "eslint"}
}

// Command returns the full command line Lint runs for patterns.
func (r *ESLintRunner) Command(patterns []string) []string {
	return eslintCommand(r.command, r.configFile, patterns)
}

// eslintCommand appends the JSON output and config flags to prefix.
func eslintCommand(prefix []string, configFile string, patterns []string) []string {
	args := append([]string(nil), prefix...)
	args = append(args, "--format", "json")
	if configFile != "" {
		args = append(args, "--config", configFile)
	}
	return append(args, patterns...)
}

// Lint runs ESLint in the project root.
func (r *ESLintRunner) Lint(ctx context.Context, patterns []string) ([]model.LintResult, error) {
	argv := r.Command(patterns)
	r.logger.Debug().Strs("argv", argv).Str("dir", r.root).Msg("running eslint")

	stdout, stderr, code, err := runCommand(ctx, r.root, argv)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, eris.Wrap(ctx.Err(), "eslint interrupted")
	}
	return decodeOutput(code, stdout, stderr)
}

// runCommand executes argv in dir and returns its output and exit status.
// A non-zero exit is not an error; failing to start the process is.
func runCommand(ctx context.Context, dir string, argv []string) ([]byte, []byte, int, error) {
	// #nosec G204 -- argv comes from configuration, not request input
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return stdout.Bytes(), stderr.Bytes(), 0, nil
	case errors.As(err, &exitErr):
		return stdout.Bytes(), stderr.Bytes(), exitErr.ExitCode(), nil
	default:
		return nil, nil, 0, eris.Wrapf(err, "run %s", strings.Join(argv, " "))
	}
}

// decodeOutput turns an ESLint exit status and its --format json output
// into results.
func decodeOutput(code int, stdout, stderr []byte) ([]model.LintResult, error) {
	if code != eslintExitClean && code != eslintExitProblems {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = strings.TrimSpace(string(stdout))
		}
		return nil, eris.Errorf("eslint exited with status %d: %s", code, msg)
	}
	return ParseResults(stdout)
}

// ParseResults decodes ESLint's JSON formatter output.
func ParseResults(data []byte) ([]model.LintResult, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, eris.New("eslint produced no output")
	}

	var results []model.LintResult
	if err := json.Unmarshal(trimmed, &results); err != nil {
		return nil, eris.Wrapf(err, "decode eslint output (%d bytes)", len(trimmed))
	}
	return results, nil
}
