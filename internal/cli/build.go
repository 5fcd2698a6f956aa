package cli

import (
	"context"

	"github.com/shinji-kodama/brick/internal/model"
)

// runBuild runs the lint gate and, if the sources are clean, bundles the
// component once.
func (a *app) runBuild(ctx context.Context) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	a.printer.Banner("Setting up build and bundling process...")
	a.printer.Blank()

	valid, err := a.lintGate(ctx, cfg)
	if err != nil {
		return err
	}
	if !valid {
		return model.NewCLIError(model.ExitLintFailed, "Linting has found errors, fix it before continue.")
	}

	a.printer.Blank()
	a.printer.Step("Starting build and bundling process...")
	a.printer.Blank()

	bundler, cleanup, err := a.env.Bundler(cfg, a.logger)
	if err != nil {
		return model.EngineError("Build failed", err)
	}
	defer cleanup()

	buildCfg := cfg.BuildConfig()
	a.VerboseLog("bundling %s into %s", buildCfg.EntryPoint, buildCfg.OutDir)

	res, err := bundler.Bundle(ctx, buildCfg)
	if err != nil {
		return model.EngineError("Build failed", err)
	}
	for _, w := range res.Warnings {
		a.logger.Warn().Msg(w)
	}
	for _, out := range res.Outputs {
		a.VerboseLog("wrote %s", out)
	}

	a.printer.Success("Build process complete!")
	return nil
}
