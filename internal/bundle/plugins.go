package bundle

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rotisserie/eris"

	"github.com/shinji-kodama/brick/internal/style"
)

// Plugin namespaces.
const (
	nsInline = "brick-inline"
	nsStyle  = "brick-style"
	nsLit    = "brick-lit"
)

// litResolving marks resolve calls issued by the lit plugin itself so its
// own OnResolve callback lets them through.
type litResolving struct{}

var sassRe = regexp.MustCompile(`\.s[ac]ss$`)

// htmlPlugin loads entry as page.VirtualModule() and serves the page's
// inline scripts as separate modules.
func htmlPlugin(entry string, page *Page) api.Plugin {
	root := filepath.Dir(entry)
	isEntry := map[string]bool{entry: true}
	if real, err := filepath.EvalSymlinks(entry); err == nil {
		isEntry[real] = true
	}
	return api.Plugin{
		Name: "brick-html",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: `\.html?$`, Namespace: "file"},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					if !isEntry[filepath.Clean(args.Path)] {
						return api.OnLoadResult{}, nil
					}
					contents := page.VirtualModule()
					return api.OnLoadResult{
						Contents:   &contents,
						ResolveDir: root,
						Loader:     api.LoaderJS,
					}, nil
				})

			build.OnResolve(api.OnResolveOptions{Filter: "^" + regexp.QuoteMeta(inlinePrefix)},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{
						Path:      strings.TrimPrefix(args.Path, inlinePrefix),
						Namespace: nsInline,
					}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: nsInline},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					i, err := strconv.Atoi(args.Path)
					if err != nil || i < 0 || i >= len(page.InlineScripts) {
						return api.OnLoadResult{}, eris.Errorf("unknown inline script %q", args.Path)
					}
					contents := page.InlineScripts[i]
					return api.OnLoadResult{
						Contents:   &contents,
						ResolveDir: root,
						Loader:     api.LoaderJS,
					}, nil
				})
		},
	}
}

// StylePlugin routes style sheets through t.
//
// Sass sheets imported from JavaScript are loaded as lit `css` modules,
// while plain .css imports are bundled by esbuild. Style sheets referenced with the brick-style: prefix (the ones linked
// from the page) are loaded as plain CSS. Imports from CSS itself are
// left to esbuild.
func StylePlugin(t *style.Transformer) api.Plugin {
	return api.Plugin{
		Name: "brick-style",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: "^" + regexp.QuoteMeta(stylePrefix)},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					rel := strings.TrimPrefix(args.Path, stylePrefix)
					return api.OnResolveResult{
						Path:      filepath.Join(args.ResolveDir, filepath.FromSlash(rel)),
						Namespace: nsStyle,
					}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: nsStyle},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					css, err := t.Transform(args.Path)
					if err != nil {
						return api.OnLoadResult{}, err
					}
					return api.OnLoadResult{
						Contents:   &css,
						ResolveDir: filepath.Dir(args.Path),
						Loader:     api.LoaderCSS,
						WatchFiles: []string{args.Path},
					}, nil
				})

			build.OnResolve(api.OnResolveOptions{Filter: sassRe.String()},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if _, self := args.PluginData.(litResolving); self {
						return api.OnResolveResult{}, nil
					}
					if args.Kind != api.ResolveJSImportStatement && args.Kind != api.ResolveJSDynamicImport {
						return api.OnResolveResult{}, nil
					}
					res := build.Resolve(args.Path, api.ResolveOptions{
						Importer:   args.Importer,
						Namespace:  "file",
						ResolveDir: args.ResolveDir,
						Kind:       args.Kind,
						PluginData: litResolving{},
					})
					if len(res.Errors) > 0 {
						return api.OnResolveResult{Errors: res.Errors}, nil
					}
					return api.OnResolveResult{Path: res.Path, Namespace: nsLit}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: nsLit},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					module, err := t.TransformModule(args.Path)
					if err != nil {
						return api.OnLoadResult{}, err
					}
					return api.OnLoadResult{
						Contents:   &module,
						ResolveDir: filepath.Dir(args.Path),
						Loader:     api.LoaderJS,
						WatchFiles: []string{args.Path},
					}, nil
				})
		},
	}
}
