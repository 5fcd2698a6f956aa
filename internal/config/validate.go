package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ValidationError represents a specific semantic problem in the effective
// configuration.
type ValidationError struct {
	// Field is the configuration field path that failed validation
	// (e.g., "serve.port").
	Field string

	// Message describes what's wrong with the field value.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("brick configuration error: %s: %s", e.Field, e.Message)
}

// targetPattern matches browser targets such as "chrome64" or "safari15.4".
var targetPattern = regexp.MustCompile(`^[a-z]+[0-9][0-9.]*$`)

// Validate checks things the schema cannot express, mostly values
// that also come from environment variables or relate two fields.
// It returns a list of validation errors (empty list = valid configuration).
//
// Checks performed:
//   - entryPoint must be an HTML document
//   - outDir must not be the project root or one of its ancestors
//   - serve.port must be a valid TCP port
//   - lint.runtime must be "local" or "docker"
//   - targets must look like "<engine><version>"
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	ext := strings.ToLower(filepath.Ext(cfg.EntryPoint))
	if ext != ".html" && ext != ".htm" {
		errs = append(errs, ValidationError{
			Field:   "entryPoint",
			Message: fmt.Sprintf("%q is not an HTML document", cfg.EntryPoint),
		})
	}

	if cfg.OutDir == "" {
		errs = append(errs, ValidationError{Field: "outDir", Message: "must not be empty"})
	} else if rel, err := filepath.Rel(cfg.Path(cfg.OutDir), cfg.Root); err == nil && !strings.HasPrefix(rel, "..") {
		// Root is inside (or equal to) outDir; an overwriting build would
		// clobber the sources.
		errs = append(errs, ValidationError{
			Field:   "outDir",
			Message: fmt.Sprintf("%q must be a subdirectory of the project", cfg.OutDir),
		})
	}

	if cfg.Serve.Port < 1 || cfg.Serve.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "serve.port",
			Message: fmt.Sprintf("port %d out of range (1-65535)", cfg.Serve.Port),
		})
	}

	if cfg.Lint.Runtime != RuntimeLocal && cfg.Lint.Runtime != RuntimeDocker {
		errs = append(errs, ValidationError{
			Field:   "lint.runtime",
			Message: fmt.Sprintf("invalid runtime %q (valid: local, docker)", cfg.Lint.Runtime),
		})
	}

	if len(cfg.Lint.Patterns) == 0 {
		errs = append(errs, ValidationError{Field: "lint.patterns", Message: "at least one pattern is required"})
	}

	for _, target := range cfg.Targets {
		if !targetPattern.MatchString(target) {
			errs = append(errs, ValidationError{
				Field:   "targets",
				Message: fmt.Sprintf("invalid browser target %q (expected e.g. chrome64)", target),
			})
		}
	}

	return errs
}
