package cli

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/shinji-kodama/brick/internal/bundle"
	"github.com/shinji-kodama/brick/internal/config"
	"github.com/shinji-kodama/brick/internal/devserver"
	"github.com/shinji-kodama/brick/internal/docker"
	"github.com/shinji-kodama/brick/internal/lint"
	"github.com/shinji-kodama/brick/internal/model"
	"github.com/shinji-kodama/brick/internal/network"
	"github.com/shinji-kodama/brick/internal/style"
)

// DevServer is the part of devserver.Server the serve operation uses.
type DevServer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Wait() error
	Port() int
	Subscribe(buf int) (<-chan devserver.Change, func())
}

// Env holds everything an invocation touches outside the process: output
// streams and the factories of the external engines. Each factory returns
// a cleanup function that releases what it started.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer

	// NoColor disables colour in diagnostic logs.
	NoColor bool

	Getwd func() (string, error)

	LintEngine func(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (lint.Engine, func(), error)
	Bundler    func(cfg *config.Config, logger zerolog.Logger) (bundle.Bundler, func(), error)
	DevServer  func(cfg *config.Config, logger zerolog.Logger) (DevServer, func(), error)

	// LocalIPv4 returns the LAN address printed as the Network URL.
	LocalIPv4 func() string

	OpenBrowser func(url string) error
}

// DefaultEnv returns the production environment writing to stdout and
// stderr.
func DefaultEnv(stdout, stderr io.Writer) Env {
	_, noColor := os.LookupEnv("NO_COLOR")
	return Env{
		Stdout:      stdout,
		Stderr:      stderr,
		NoColor:     noColor,
		Getwd:       os.Getwd,
		LintEngine:  newLintEngine,
		Bundler:     newBundler,
		DevServer:   newDevServer,
		LocalIPv4:   network.NewResolver().LocalIPv4,
		OpenBrowser: devserver.OpenBrowser,
	}
}

func noCleanup() {}

// newLintEngine creates the ESLint runner selected by cfg.Lint.Runtime.
func newLintEngine(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (lint.Engine, func(), error) {
	configFile := cfg.Lint.Config
	if configFile != "" {
		if _, err := os.Stat(cfg.Path(configFile)); err != nil {
			logger.Debug().Str("config", configFile).Msg("eslint config not found, using eslint's own lookup")
			configFile = ""
		}
	}

	if cfg.Lint.Runtime != config.RuntimeDocker {
		return lint.NewESLintRunner(cfg.Root, configFile, cfg.Lint.Command, logger), noCleanup, nil
	}

	client, err := docker.NewClient()
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, nil, model.EngineError("Docker is not available for the lint runtime", err)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Debug().Err(err).Msg("closing docker client")
		}
	}
	runner := lint.NewContainerRunner(client.API(), cfg.Root, configFile, cfg.Lint.Image, cfg.Lint.Command, logger)
	return runner, cleanup, nil
}

// newSassCompiler creates the Dart Sass compiler for cfg and its cleanup.
func newSassCompiler(cfg *config.Config, logger zerolog.Logger) (*style.SassCompiler, func()) {
	includePaths := make([]string, 0, len(cfg.Style.IncludePaths))
	for _, p := range cfg.Style.IncludePaths {
		includePaths = append(includePaths, cfg.Path(p))
	}
	compiler := style.NewSassCompiler(cfg.Style.SassBinary, includePaths, logger)
	return compiler, func() {
		if err := compiler.Close(); err != nil {
			logger.Debug().Err(err).Msg("closing sass compiler")
		}
	}
}

func newBundler(cfg *config.Config, logger zerolog.Logger) (bundle.Bundler, func(), error) {
	compiler, cleanup := newSassCompiler(cfg, logger)
	styles, err := style.ForBuild(compiler, cfg.Targets)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return bundle.NewESBuild(styles, logger), cleanup, nil
}

func newDevServer(cfg *config.Config, logger zerolog.Logger) (DevServer, func(), error) {
	compiler, cleanup := newSassCompiler(cfg, logger)
	styles, err := style.ForServe(compiler, cfg.Targets)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	modules, err := bundle.NewModuleBundler(cfg.Root, cfg.Targets)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return devserver.New(cfg.ServeConfig(), styles, modules, logger), cleanup, nil
}
