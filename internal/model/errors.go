package model

import (
	"errors"
	"fmt"
)

// ExitCode defines the CLI exit codes. These codes allow scripts and CI
// systems to programmatically determine the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitEngineFailure indicates an external engine (lint engine, bundler,
	// style engine, dev server) malfunctioned. This is always fatal.
	ExitEngineFailure ExitCode = 1

	// ExitLintFailed indicates the lint gate found errors in the project
	// sources. The user can fix the code and retry.
	ExitLintFailed ExitCode = 2

	// ExitInterrupted indicates the command was cancelled by a signal
	// before it could complete.
	ExitInterrupted ExitCode = 3

	// ExitConfigError indicates a missing or malformed project file
	// (package.json, brick.config.*, .env).
	ExitConfigError ExitCode = 4

	// ExitUsageError indicates the command line could not be mapped to
	// an operation.
	ExitUsageError ExitCode = 5
)

// FailureKind separates failures the user can act on from engine
// malfunctions.
type FailureKind int

const (
	// KindRecoverable failures are reported and leave the process in a
	// normal state (lint violations, bad input, bad configuration).
	KindRecoverable FailureKind = iota

	// KindFatal failures come from a malfunctioning engine.
	KindFatal
)

// String returns "recoverable" or "fatal".
func (k FailureKind) String() string {
	if k == KindFatal {
		return "fatal"
	}
	return "recoverable"
}

// CLIError is a custom error type that carries an exit code and a failure
// kind. Every operation reports failure through a *CLIError so the CLI
// layer can translate it into a process exit code in one place.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Kind tells whether the failure is recoverable or fatal.
	Kind FailureKind

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the failure came from a malfunctioning engine.
func (e *CLIError) IsFatal() bool {
	return e.Kind == KindFatal
}

// NewCLIError creates a recoverable CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Kind: KindRecoverable, Message: message}
}

// WrapCLIError creates a recoverable CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Kind: KindRecoverable, Message: message, Err: err}
}

// EngineError creates a fatal CLIError for a malfunctioning external engine.
func EngineError(message string, err error) *CLIError {
	return &CLIError{Code: ExitEngineFailure, Kind: KindFatal, Message: message, Err: err}
}

// ExitCodeOf maps an error to the exit code the process should return.
// nil maps to ExitSuccess; errors that are not CLIErrors map to
// ExitEngineFailure.
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	return ExitEngineFailure
}
