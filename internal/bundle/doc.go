// Package bundle produces the production build of a brick project with
// esbuild.
//
// esbuild has no HTML entry points, so the HTML document is loaded as a
// virtual JavaScript module that imports every local module script and
// style sheet the page references. After the build the page is rewritten
// to load the emitted index.js and index.css instead and written next to
// them. Style sheets imported from JavaScript become lit `css` modules;
// style sheets linked from the page stay plain CSS. Both go through a
// style.Transformer.
package bundle
