package model

import (
	"fmt"
	"strings"
)

// Operation is the closed set of things a single brick invocation can do.
// The dispatcher selects exactly one Operation per process.
type Operation int

const (
	// OpServe starts the live-reload development server.
	OpServe Operation = iota + 1

	// OpBuild runs the lint gate and, if it passes, the production bundle.
	OpBuild

	// OpLint runs the lint gate on its own.
	OpLint

	// OpVersion prints the project version from package.json.
	OpVersion
)

// operationNames maps each Operation to its canonical subcommand name.
var operationNames = map[Operation]string{
	OpServe:   "serve",
	OpBuild:   "build",
	OpLint:    "lint",
	OpVersion: "version",
}

// String returns the canonical name of the operation ("serve", "build", ...).
func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("operation(%d)", int(o))
}

// IsValid checks whether the Operation value is one of the defined operations.
func (o Operation) IsValid() bool {
	_, ok := operationNames[o]
	return ok
}

// Operations returns every defined operation in declaration order.
func Operations() []Operation {
	return []Operation{OpServe, OpBuild, OpLint, OpVersion}
}

// ParseOperation converts a selector token into an Operation.
//
// Accepted tokens are the historic flag selectors (--serve, --build, --lint,
// --version, -v) and the bare subcommand names. Matching is case-insensitive.
// Any other token is an error rather than a panic at the call site.
func ParseOperation(token string) (Operation, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "--serve", "serve":
		return OpServe, nil
	case "--build", "build":
		return OpBuild, nil
	case "--lint", "lint":
		return OpLint, nil
	case "--version", "-v", "version":
		return OpVersion, nil
	default:
		return 0, fmt.Errorf("unrecognized operation %q (valid: --serve, --build, --lint, --version, -v)", token)
	}
}

// BuildConfig is the configuration handed to the bundling engine for a
// single production build. It is created fresh per build invocation and
// discarded after the bundler returns.
type BuildConfig struct {
	// RootDir is the absolute path of the project; relative paths below are
	// resolved against it.
	RootDir string `json:"rootDir"`

	// EntryPoint is the HTML document used as the single entry point.
	EntryPoint string `json:"entryPoint"`

	// OutDir is the directory the bundle is written to.
	OutDir string `json:"outDir"`

	// AssetNames is the naming template for emitted assets (e.g. "assets/[name]").
	AssetNames string `json:"assetNames"`

	// ChunkNames is the naming template for shared chunks (e.g. "[ext]/[name]").
	ChunkNames string `json:"chunkNames"`

	Bundle         bool `json:"bundle"`
	Minify         bool `json:"minify"`
	Write          bool `json:"write"`
	Metafile       bool `json:"metafile"`
	AllowOverwrite bool `json:"allowOverwrite"`

	// Loaders maps file extensions to bundler loader names ("css", "file", ...).
	Loaders map[string]string `json:"loaders,omitempty"`

	// Targets lists browser targets (e.g. "chrome64") used for syntax
	// lowering and CSS vendor prefixing.
	Targets []string `json:"targets,omitempty"`
}

// ServeConfig is the configuration of the development server. It lives for
// the duration of the serve operation.
type ServeConfig struct {
	// RootDir is the absolute path of the directory being served.
	RootDir string `json:"rootDir"`

	// AppIndex is the document served for unknown extension-less paths.
	AppIndex string `json:"appIndex"`

	// Hostname is the host the server binds to and advertises.
	Hostname string `json:"hostname"`

	// Port is the preferred TCP port. If it is taken, the server falls back
	// to the next free port.
	Port int `json:"port"`

	Watch      bool `json:"watch"`
	LiveReload bool `json:"liveReload"`
	Open       bool `json:"open"`

	// WatchExcludes are glob patterns (relative to RootDir) ignored by the watcher.
	WatchExcludes []string `json:"watchExcludes,omitempty"`

	// Targets mirrors BuildConfig.Targets for on-demand transforms.
	Targets []string `json:"targets,omitempty"`
}

// Severity values used by ESLint in its JSON output.
const (
	SeverityWarning = 1
	SeverityError   = 2
)

// LintMessage is a single problem reported by the lint engine.
type LintMessage struct {
	RuleID   string `json:"ruleId"`
	Severity int    `json:"severity"`
	Message  string `json:"message"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Fatal    bool   `json:"fatal,omitempty"`
}

// IsError reports whether the message is an error (as opposed to a warning).
func (m LintMessage) IsError() bool {
	return m.Fatal || m.Severity == SeverityError
}

// LintResult is the per-file record produced by the lint engine. A result
// set is consumed once to decide pass/fail and to render a report.
type LintResult struct {
	FilePath            string        `json:"filePath"`
	Messages            []LintMessage `json:"messages"`
	ErrorCount          int           `json:"errorCount"`
	WarningCount        int           `json:"warningCount"`
	FixableErrorCount   int           `json:"fixableErrorCount"`
	FixableWarningCount int           `json:"fixableWarningCount"`
}

// LintTotals aggregates the counters of a result set.
type LintTotals struct {
	Errors          int
	Warnings        int
	FixableErrors   int
	FixableWarnings int
}

// Problems returns the total number of reported problems.
func (t LintTotals) Problems() int {
	return t.Errors + t.Warnings
}

// SumLintResults adds up the counters of every result.
func SumLintResults(results []LintResult) LintTotals {
	var totals LintTotals
	for _, r := range results {
		totals.Errors += r.ErrorCount
		totals.Warnings += r.WarningCount
		totals.FixableErrors += r.FixableErrorCount
		totals.FixableWarnings += r.FixableWarningCount
	}
	return totals
}

// LintPassed reports whether no file in the result set has a nonzero error
// count. Warnings never fail the gate.
func LintPassed(results []LintResult) bool {
	for _, r := range results {
		if r.ErrorCount != 0 {
			return false
		}
	}
	return true
}
