package cli

import (
	"context"
	"errors"

	"github.com/shinji-kodama/brick/internal/config"
	"github.com/shinji-kodama/brick/internal/lint"
	"github.com/shinji-kodama/brick/internal/model"
)

// runLint runs the lint gate on its own.
func (a *app) runLint(ctx context.Context) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	valid, err := a.lintGate(ctx, cfg)
	if err != nil {
		return err
	}
	if !valid {
		return model.NewCLIError(model.ExitLintFailed, "Linting has found errors")
	}
	return nil
}

// lintGate builds the configured lint engine and runs the gate once.
func (a *app) lintGate(ctx context.Context, cfg *config.Config) (bool, error) {
	engine, cleanup, err := a.env.LintEngine(ctx, cfg, a.logger)
	if err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			return false, err
		}
		return false, model.EngineError("Error linting the component", err)
	}
	defer cleanup()

	a.VerboseLog("lint runtime %s, patterns %v", cfg.Lint.Runtime, cfg.Lint.Patterns)
	gate := lint.NewGate(engine, cfg.Lint.Patterns, a.printer, lint.ColorEnabled(a.printer.Writer()), a.logger)
	return gate.Run(ctx)
}
