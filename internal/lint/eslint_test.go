package lint

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `[
  {"filePath":"/work/a.js","messages":[],"errorCount":0,"warningCount":0,"fixableErrorCount":0,"fixableWarningCount":0},
  {"filePath":"/work/b.js","messages":[{"ruleId":"no-undef","severity":2,"message":"'x' is not defined.","line":3,"column":5}],
   "errorCount":1,"warningCount":0,"fixableErrorCount":0,"fixableWarningCount":0,"source":"x"}
]`

func TestParseResults(t *testing.T) {
	results, err := ParseResults([]byte(sampleJSON))
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "/work/b.js", results[1].FilePath)
	assert.Equal(t, 1, results[1].ErrorCount)
	require.Len(t, results[1].Messages, 1)
	assert.Equal(t, "no-undef", results[1].Messages[0].RuleID)
	assert.True(t, results[1].Messages[0].IsError())
}

func TestParseResults_Invalid(t *testing.T) {
	_, err := ParseResults([]byte("   \n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no output")

	_, err = ParseResults([]byte("Oops! Something went wrong!"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode eslint output")
}

func TestDecodeOutput(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		stdout  string
		stderr  string
		wantErr string
	}{
		{"clean", 0, "[]", "", ""},
		{"problems", 1, sampleJSON, "", ""},
		{"crash uses stderr", 2, "", "ESLint couldn't find the config", "status 2: ESLint couldn't find the config"},
		{"crash falls back to stdout", 127, "npx: command not found", "", "status 127: npx: command not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeOutput(tt.code, []byte(tt.stdout), []byte(tt.stderr))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestESLintRunner_Command(t *testing.T) {
	r := NewESLintRunner(t.TempDir(), "eslint.config.js", []string{"npx", "eslint"}, zerolog.Nop())

	assert.Equal(t,
		[]string{"npx", "eslint", "--format", "json", "--config", "eslint.config.js", "./**/*.js"},
		r.Command([]string{"./**/*.js"}))
}

func TestLocalCommand(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, []string{"npx", "--no-install", "eslint"}, localCommand(dir))

	name := "eslint"
	if runtime.GOOS == "windows" {
		name = "eslint.cmd"
	}
	bin := filepath.Join(dir, "node_modules", ".bin", name)
	require.NoError(t, os.MkdirAll(filepath.Dir(bin), 0o755))
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

	assert.Equal(t, []string{bin}, localCommand(dir))
}

// TestESLintRunner_Lint runs a shell script standing in for ESLint that
// prints JSON and exits 1, as ESLint does when it finds errors.
func TestESLintRunner_Lint(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	script := `printf '%s' '[{"filePath":"b.js","messages":[],"errorCount":1,"warningCount":0}]'; exit 1`
	r := NewESLintRunner(t.TempDir(), "eslint.config.js", []string{"sh", "-c", script, "eslint"}, zerolog.Nop())

	results, err := r.Lint(context.Background(), []string{"./**/*.js"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].ErrorCount)
}

func TestESLintRunner_Lint_Crash(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	r := NewESLintRunner(t.TempDir(), "", []string{"sh", "-c", "echo 'Invalid option' >&2; exit 2", "eslint"}, zerolog.Nop())

	_, err := r.Lint(context.Background(), []string{"./**/*.js"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 2: Invalid option")
}

func TestESLintRunner_Lint_MissingExecutable(t *testing.T) {
	r := NewESLintRunner(t.TempDir(), "", []string{"brick-test-no-such-eslint"}, zerolog.Nop())

	_, err := r.Lint(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run brick-test-no-such-eslint")
}
