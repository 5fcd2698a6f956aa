// Package config builds the effective brick configuration for a project.
//
// Sources, lowest precedence first:
//   - built-in defaults
//   - an optional project file: brick.config.json (JSONC) or brick.config.yaml
//   - an optional .env file in the project directory
//   - BRICK_* process environment variables
//
// Project files are converted to JSON and checked against an embedded JSON
// Schema before they are decoded, and the merged result goes through
// semantic validation (see Validate).
//
// The package also reads package.json, which is the source of the version
// printed by `brick --version`.
package config
