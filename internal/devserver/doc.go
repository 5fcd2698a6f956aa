// Package devserver implements the live-reload development server.
//
// The server serves the project directory over HTTP. Style sheets and
// JavaScript modules are transformed on request (see the style and bundle
// packages), HTML documents get a small reload client injected, and a file
// watcher tells connected browsers to reload whenever a file under the
// root changes.
package devserver
