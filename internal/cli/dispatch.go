package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/shinji-kodama/brick/internal/model"
)

// Runner executes one operation.
type Runner func(ctx context.Context) error

// Dispatcher maps each operation to its runner. The table is fixed when
// the dispatcher is created.
type Dispatcher struct {
	runners map[model.Operation]Runner
}

// NewDispatcher creates a dispatcher over a copy of runners.
func NewDispatcher(runners map[model.Operation]Runner) *Dispatcher {
	table := make(map[model.Operation]Runner, len(runners))
	for op, run := range runners {
		table[op] = run
	}
	return &Dispatcher{runners: table}
}

// Dispatch runs the runner of op exactly once.
//
// Failures always come back as a *model.CLIError: a cancelled context is
// reported as ExitInterrupted, and errors that carry no exit code are
// treated as engine failures.
func (d *Dispatcher) Dispatch(ctx context.Context, op model.Operation) error {
	run, ok := d.runners[op]
	if !ok || run == nil {
		return model.NewCLIError(model.ExitUsageError, fmt.Sprintf("unsupported operation %s", op))
	}

	err := run(ctx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return model.WrapCLIError(model.ExitInterrupted, fmt.Sprintf("%s interrupted", op), err)
	}
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return err
	}
	return model.EngineError(fmt.Sprintf("%s failed", op), err)
}

// operations returns the runner table of this invocation.
func (a *app) operations() map[model.Operation]Runner {
	return map[model.Operation]Runner{
		model.OpServe:   a.runServe,
		model.OpBuild:   a.runBuild,
		model.OpLint:    a.runLint,
		model.OpVersion: a.runVersion,
	}
}
