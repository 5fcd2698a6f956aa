package lint

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/shinji-kodama/brick/internal/model"
	"github.com/shinji-kodama/brick/internal/ui"
)

// Gate runs an Engine over fixed patterns and reports the outcome.
type Gate struct {
	engine   Engine
	patterns []string
	printer  *ui.Printer
	color    bool
	logger   zerolog.Logger
}

// NewGate creates a Gate. color controls ANSI codes in the stylish report.
func NewGate(engine Engine, patterns []string, printer *ui.Printer, color bool, logger zerolog.Logger) *Gate {
	return &Gate{
		engine:   engine,
		patterns: patterns,
		printer:  printer,
		color:    color,
		logger:   logger,
	}
}

// Run lints the project, prints the report and returns whether the code is
// free of errors. An engine failure is returned as a fatal CLIError and
// the boolean is false.
func (g *Gate) Run(ctx context.Context) (bool, error) {
	g.printer.Notice("Checking code linting...")

	results, err := g.engine.Lint(ctx, g.patterns)
	if err != nil {
		return false, model.EngineError("Error linting the component", err)
	}

	totals := model.SumLintResults(results)
	g.logger.Debug().
		Int("files", len(results)).
		Int("errors", totals.Errors).
		Int("warnings", totals.Warnings).
		Msg("lint finished")

	g.printer.Raw(Stylish(results, g.color))

	valid := model.LintPassed(results)
	if valid {
		g.printer.Notice("Code looks good!")
	}
	return valid, nil
}
