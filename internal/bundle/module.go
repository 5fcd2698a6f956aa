package bundle

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rotisserie/eris"

	"github.com/shinji-kodama/brick/internal/esbuild"
)

// devAssetLoaders inline binary assets imported from JavaScript, since
// on-demand modules are never written to disk.
var devAssetLoaders = map[string]api.Loader{
	".png":   api.LoaderDataURL,
	".jpg":   api.LoaderDataURL,
	".jpeg":  api.LoaderDataURL,
	".gif":   api.LoaderDataURL,
	".svg":   api.LoaderDataURL,
	".webp":  api.LoaderDataURL,
	".woff":  api.LoaderDataURL,
	".woff2": api.LoaderDataURL,
}

// servedExts are the imports the dev server answers itself, so they are
// left as URLs instead of being inlined.
var servedExts = map[string]bool{
	".js":   true,
	".mjs":  true,
	".ts":   true,
	".scss": true,
	".sass": true,
	".css":  true,
}

var remoteImportRe = regexp.MustCompile(`^([a-z][a-z0-9+.-]*:|//)`)

// moduleResolving marks resolve calls issued by the module plugin itself.
type moduleResolving struct{}

// ModuleBundler transforms one JavaScript module at a time for the dev
// server. Imports of other modules and style sheets are rewritten to
// root-relative URLs, with bare imports resolved from node_modules, so
// every module is fetched and cached by the browser once.
type ModuleBundler struct {
	root    string
	engines []api.Engine
}

// NewModuleBundler creates a ModuleBundler for the project in root.
func NewModuleBundler(root string, targets []string) (*ModuleBundler, error) {
	engines, err := esbuild.Engines(targets)
	if err != nil {
		return nil, err
	}
	// esbuild reports resolved paths with symlinks evaluated.
	if real, err := filepath.EvalSymlinks(root); err == nil {
		root = real
	}
	return &ModuleBundler{root: root, engines: engines}, nil
}

// BundleModule returns the ES module for the file at path, with an inline
// source map.
func (m *ModuleBundler) BundleModule(ctx context.Context, path string) ([]byte, error) {
	res, err := run(ctx, api.BuildOptions{
		AbsWorkingDir: m.root,
		EntryPoints:   []string{path},
		Outdir:        filepath.Join(m.root, ".brick"),
		Bundle:        true,
		Write:         false,
		Format:        api.FormatESModule,
		Platform:      api.PlatformBrowser,
		Sourcemap:     api.SourceMapInline,
		Engines:       m.engines,
		Loader:        devAssetLoaders,
		Plugins:       []api.Plugin{urlImportPlugin(m.root)},
		LogLevel:      api.LogLevelSilent,
	})
	if err != nil {
		return nil, err
	}

	for _, f := range res.OutputFiles {
		if strings.HasSuffix(f.Path, ".js") {
			return f.Contents, nil
		}
	}
	return nil, eris.Errorf("esbuild produced no JavaScript for %s", path)
}

// urlImportPlugin keeps imports of modules and style sheets below root
// external, pointing at their URL on the dev server.
func urlImportPlugin(root string) api.Plugin {
	return api.Plugin{
		Name: "brick-url-imports",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `.*`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if _, self := args.PluginData.(moduleResolving); self || args.Kind == api.ResolveEntryPoint {
						return api.OnResolveResult{}, nil
					}
					if remoteImportRe.MatchString(args.Path) {
						return api.OnResolveResult{Path: args.Path, External: true}, nil
					}

					res := build.Resolve(args.Path, api.ResolveOptions{
						Importer:   args.Importer,
						Namespace:  "file",
						ResolveDir: args.ResolveDir,
						Kind:       args.Kind,
						PluginData: moduleResolving{},
					})
					if len(res.Errors) > 0 {
						return api.OnResolveResult{Errors: res.Errors}, nil
					}
					if res.External || !servedExts[strings.ToLower(filepath.Ext(res.Path))] {
						return api.OnResolveResult{}, nil
					}
					if !insideDir(root, res.Path) {
						// Hoisted packages outside the project are inlined.
						return api.OnResolveResult{}, nil
					}
					rel, err := filepath.Rel(root, res.Path)
					if err != nil {
						return api.OnResolveResult{}, nil
					}
					return api.OnResolveResult{Path: "/" + filepath.ToSlash(rel), External: true}, nil
				})
		},
	}
}
