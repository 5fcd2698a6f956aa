// Package model defines the domain types and value objects for the
// brick CLI.
//
// This package contains pure data structures with no external dependencies.
// All entities (BuildConfig, ServeConfig, LintResult, etc.) are transient:
// they are created fresh for a single operation invocation and discarded
// when it returns. Nothing here is persisted.
//
// The package also defines the Operation enumeration, exit codes (ExitCode),
// failure kinds, and a custom error type (CLIError) that carries exit codes
// for proper OS process exit handling.
package model
