// Package lint runs ESLint over the project and decides whether the code
// is clean enough to build.
//
// An Engine produces per-file results; ESLintRunner runs the project's own
// ESLint installation and ContainerRunner runs the same command inside a
// Node.js container. Gate combines an Engine with the console: it prints
// the stylish report and turns the results into a pass/fail answer. Only
// errors fail the gate; warnings are reported but never block a build.
package lint
