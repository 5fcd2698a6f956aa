// Package docker provides the container runtime used to run the lint
// engine inside a throwaway Node.js container.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows)
//   - Labels that mark containers as brick-managed, so leftovers from an
//     interrupted run can be found and removed
//   - One-shot container runs: pull, create, start, wait, collect logs,
//     remove
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker
