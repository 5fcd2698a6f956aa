package style

import (
	"github.com/evanw/esbuild/pkg/api"
	"github.com/rotisserie/eris"

	"github.com/shinji-kodama/brick/internal/esbuild"
)

// PostProcessor adds vendor prefixes for a set of browser targets and
// optionally minifies. It uses esbuild's CSS transform.
type PostProcessor struct {
	engines []api.Engine
	minify  bool
}

// NewPostProcessor creates a PostProcessor for targets such as "chrome64".
func NewPostProcessor(targets []string, minify bool) (*PostProcessor, error) {
	engines, err := esbuild.Engines(targets)
	if err != nil {
		return nil, err
	}
	return &PostProcessor{engines: engines, minify: minify}, nil
}

// Process transforms css. from names the source file in diagnostics.
func (p *PostProcessor) Process(css, from string) (string, error) {
	res := api.Transform(css, api.TransformOptions{
		Loader:            api.LoaderCSS,
		Sourcefile:        from,
		Engines:           p.engines,
		MinifyWhitespace:  p.minify,
		MinifySyntax:      p.minify,
		MinifyIdentifiers: p.minify,
		LogLevel:          api.LogLevelSilent,
	})
	if err := esbuild.Error(res.Errors); err != nil {
		return "", eris.Wrapf(err, "post-process %s", from)
	}
	return string(res.Code), nil
}
