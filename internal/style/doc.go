// Package style turns project style sheets into CSS and lit modules.
//
// A Transformer runs two stages: a Compiler (Dart Sass via the embedded
// protocol) that turns .scss/.sass into CSS, then a PostProcessor that adds
// vendor prefixes for the configured browser targets and optionally
// minifies. Build and serve use different Transformers; build output is
// compressed and minified, serve output is expanded and readable.
//
// LitModule wraps the resulting CSS in an ES module exporting a lit `css`
// tagged template, which is how components import their styles.
package style
