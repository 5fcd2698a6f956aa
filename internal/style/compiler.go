package style

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bep/godartsass/v2"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// OutputStyle selects how the compiler formats CSS.
type OutputStyle int

const (
	// StyleExpanded writes one declaration per line.
	StyleExpanded OutputStyle = iota

	// StyleCompressed removes all optional whitespace.
	StyleCompressed
)

// Compiler turns a style sheet on disk into CSS text.
type Compiler interface {
	Compile(path string, style OutputStyle) (string, error)
}

// SassCompiler compiles .scss, .sass and .css files with Dart Sass.
//
// The Dart Sass process is started on the first Compile call and shared by
// every later call, including concurrent ones. Close stops it.
type SassCompiler struct {
	binary       string
	includePaths []string
	logger       zerolog.Logger

	mu         sync.Mutex
	transpiler *godartsass.Transpiler
	closed     bool
}

// NewSassCompiler creates a compiler that runs the given Dart Sass binary.
// includePaths are extra load paths for @use and @import.
func NewSassCompiler(binary string, includePaths []string, logger zerolog.Logger) *SassCompiler {
	return &SassCompiler{
		binary:       binary,
		includePaths: includePaths,
		logger:       logger,
	}
}

// start returns the running transpiler, starting it if needed.
func (c *SassCompiler) start() (*godartsass.Transpiler, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, eris.New("sass compiler is closed")
	}
	if c.transpiler != nil {
		return c.transpiler, nil
	}

	t, err := godartsass.Start(godartsass.Options{
		DartSassEmbeddedFilename: c.binary,
		LogEventHandler: func(ev godartsass.LogEvent) {
			c.logger.Warn().Str("component", "sass").Msg(ev.Message)
		},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "start dart sass (%s)", c.binary)
	}
	c.logger.Debug().Str("binary", c.binary).Msg("dart sass started")
	c.transpiler = t
	return t, nil
}

// Compile reads path and compiles it to CSS.
func (c *SassCompiler) Compile(path string, style OutputStyle) (string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "read %s", path)
	}

	t, err := c.start()
	if err != nil {
		return "", err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", eris.Wrapf(err, "resolve %s", path)
	}

	args := godartsass.Args{
		Source:       string(source),
		URL:          "file://" + filepath.ToSlash(abs),
		SourceSyntax: sourceSyntax(path),
		OutputStyle:  godartsass.OutputStyleExpanded,
		IncludePaths: append([]string{filepath.Dir(abs)}, c.includePaths...),
	}
	if style == StyleCompressed {
		args.OutputStyle = godartsass.OutputStyleCompressed
	}

	res, err := t.Execute(args)
	if err != nil {
		return "", eris.Wrapf(err, "compile %s", path)
	}
	return res.CSS, nil
}

// Close stops the Dart Sass process. It is safe to call more than once and
// on a compiler that never started.
func (c *SassCompiler) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.transpiler == nil {
		return nil
	}
	t := c.transpiler
	c.transpiler = nil
	if err := t.Close(); err != nil {
		return eris.Wrap(err, "stop dart sass")
	}
	return nil
}

// sourceSyntax picks the Sass syntax from the file extension.
func sourceSyntax(path string) godartsass.SourceSyntax {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sass":
		return godartsass.SourceSyntaxSASS
	case ".css":
		return godartsass.SourceSyntaxCSS
	default:
		return godartsass.SourceSyntaxSCSS
	}
}

// IsSass reports whether path is a Sass source rather than plain CSS.
func IsSass(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".scss", ".sass":
		return true
	}
	return false
}
