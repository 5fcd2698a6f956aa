package lint

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/brick/internal/model"
	"github.com/shinji-kodama/brick/internal/ui"
)

// stubEngine returns canned results and records the patterns it was given.
type stubEngine struct {
	results  []model.LintResult
	err      error
	patterns [][]string
}

func (s *stubEngine) Lint(_ context.Context, patterns []string) ([]model.LintResult, error) {
	s.patterns = append(s.patterns, patterns)
	return s.results, s.err
}

func newTestGate(engine Engine) (*Gate, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewGate(engine, []string{"./**/*.js"}, ui.NewPrinter(&buf), false, zerolog.Nop()), &buf
}

func TestGate_Clean(t *testing.T) {
	engine := &stubEngine{results: []model.LintResult{{FilePath: "a.js"}}}
	gate, buf := newTestGate(engine)

	valid, err := gate.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, valid)
	assert.Equal(t, [][]string{{"./**/*.js"}}, engine.patterns)
	assert.Equal(t, "  Checking code linting...\n  Code looks good!\n", buf.String())
}

// TestGate_WarningsOnly checks that warnings are reported but do not fail
// the gate.
func TestGate_WarningsOnly(t *testing.T) {
	engine := &stubEngine{results: []model.LintResult{{
		FilePath:     "a.js",
		Messages:     []model.LintMessage{{RuleID: "no-console", Severity: model.SeverityWarning, Message: "Unexpected console statement.", Line: 2, Column: 1}},
		WarningCount: 1,
	}}}
	gate, buf := newTestGate(engine)

	valid, err := gate.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, valid)
	assert.Contains(t, buf.String(), "✖ 1 problem (0 errors, 1 warning)")
	assert.Contains(t, buf.String(), "Code looks good!")
}

func TestGate_Errors(t *testing.T) {
	engine := &stubEngine{results: sampleResults()}
	gate, buf := newTestGate(engine)

	valid, err := gate.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, valid)
	assert.Contains(t, buf.String(), "/work/my-element/src/my-element.js")
	assert.Contains(t, buf.String(), "✖ 2 problems (1 error, 1 warning)")
	assert.NotContains(t, buf.String(), "Code looks good!")
}

func TestGate_EngineFailure(t *testing.T) {
	engine := &stubEngine{err: errors.New("eslint exited with status 2: config not found")}
	gate, buf := newTestGate(engine)

	valid, err := gate.Run(context.Background())
	require.Error(t, err)
	assert.False(t, valid)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.True(t, cliErr.IsFatal())
	assert.Equal(t, model.ExitEngineFailure, cliErr.Code)
	assert.Contains(t, cliErr.Error(), "config not found")
	assert.NotContains(t, buf.String(), "Code looks good!")
}
