package bundle

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/shinji-kodama/brick/internal/esbuild"
	"github.com/shinji-kodama/brick/internal/model"
	"github.com/shinji-kodama/brick/internal/style"
)

// Bundler produces a production build.
type Bundler interface {
	Bundle(ctx context.Context, cfg model.BuildConfig) (*Result, error)
}

// Result describes a finished build.
type Result struct {
	// Outputs are the written files, relative to the output directory,
	// sorted.
	Outputs []string

	// Warnings are esbuild warnings formatted as "file:line:col: text".
	Warnings []string
}

// ESBuild is the esbuild-backed Bundler.
type ESBuild struct {
	styles *style.Transformer
	logger zerolog.Logger
}

// NewESBuild creates a bundler that compiles style sheets with styles.
func NewESBuild(styles *style.Transformer, logger zerolog.Logger) *ESBuild {
	return &ESBuild{styles: styles, logger: logger}
}

// metafile is the part of esbuild's metafile the page rewrite needs.
type metafile struct {
	Outputs map[string]struct {
		EntryPoint string `json:"entryPoint"`
		CSSBundle  string `json:"cssBundle"`
	} `json:"outputs"`
}

// Bundle builds cfg.EntryPoint into cfg.OutDir and writes the rewritten
// page next to the bundle.
func (b *ESBuild) Bundle(ctx context.Context, cfg model.BuildConfig) (*Result, error) {
	entry := filepath.Clean(filepath.Join(cfg.RootDir, cfg.EntryPoint))
	source, err := os.ReadFile(entry)
	if err != nil {
		return nil, eris.Wrapf(err, "read entry point %s", cfg.EntryPoint)
	}
	page, err := ParsePage(bytes.NewReader(source))
	if err != nil {
		return nil, err
	}

	opts, err := buildOptions(cfg, entry)
	if err != nil {
		return nil, err
	}
	opts.Plugins = []api.Plugin{htmlPlugin(entry, page), StylePlugin(b.styles)}

	b.logger.Debug().
		Str("entry", entry).
		Str("outdir", cfg.OutDir).
		Int("scripts", len(page.Scripts)+len(page.InlineScripts)).
		Int("styles", len(page.Styles)).
		Msg("starting esbuild")

	res, err := run(ctx, opts)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, esbuild.FormatMessage(w))
	}

	var meta metafile
	if err := json.Unmarshal([]byte(res.Metafile), &meta); err != nil {
		return nil, eris.Wrap(err, "decode esbuild metafile")
	}

	entryRel := filepath.ToSlash(cfg.EntryPoint)
	for out, info := range meta.Outputs {
		rel, err := filepath.Rel(cfg.OutDir, filepath.Join(cfg.RootDir, filepath.FromSlash(out)))
		if err != nil {
			return nil, eris.Wrapf(err, "locate output %s", out)
		}
		href := filepath.ToSlash(rel)
		result.Outputs = append(result.Outputs, href)

		if !strings.HasSuffix(out, ".js") || path.Clean(info.EntryPoint) != path.Clean(entryRel) {
			continue
		}
		if info.CSSBundle != "" {
			cssRel, err := filepath.Rel(cfg.OutDir, filepath.Join(cfg.RootDir, filepath.FromSlash(info.CSSBundle)))
			if err != nil {
				return nil, eris.Wrapf(err, "locate output %s", info.CSSBundle)
			}
			page.AddStylesheet(filepath.ToSlash(cssRel))
		}
		page.AddModuleScript(href)
	}
	page.StripBundled()

	if !cfg.Write {
		sort.Strings(result.Outputs)
		return result, nil
	}

	copied, err := copyAssets(page, cfg)
	if err != nil {
		return nil, err
	}
	result.Outputs = append(result.Outputs, copied...)

	htmlName := filepath.Base(entry)
	if err := writePage(page, filepath.Join(cfg.OutDir, htmlName)); err != nil {
		return nil, err
	}
	result.Outputs = append(result.Outputs, htmlName)

	sort.Strings(result.Outputs)
	return result, nil
}

// buildOptions maps a BuildConfig onto esbuild options.
func buildOptions(cfg model.BuildConfig, entry string) (api.BuildOptions, error) {
	engines, err := esbuild.Engines(cfg.Targets)
	if err != nil {
		return api.BuildOptions{}, err
	}
	loaders, err := loaderMap(cfg.Loaders)
	if err != nil {
		return api.BuildOptions{}, err
	}

	base := filepath.Base(entry)
	return api.BuildOptions{
		AbsWorkingDir: cfg.RootDir,
		EntryPointsAdvanced: []api.EntryPoint{{
			InputPath:  entry,
			OutputPath: strings.TrimSuffix(base, filepath.Ext(base)),
		}},
		Outdir:            cfg.OutDir,
		AssetNames:        cfg.AssetNames,
		ChunkNames:        cfg.ChunkNames,
		Bundle:            cfg.Bundle,
		MinifyWhitespace:  cfg.Minify,
		MinifyIdentifiers: cfg.Minify,
		MinifySyntax:      cfg.Minify,
		Write:             cfg.Write,
		Metafile:          true,
		AllowOverwrite:    cfg.AllowOverwrite,
		Format:            api.FormatESModule,
		Platform:          api.PlatformBrowser,
		Engines:           engines,
		Loader:            loaders,
		LogLevel:          api.LogLevelSilent,
	}, nil
}

// run executes one esbuild build and cancels it when ctx is done.
func run(ctx context.Context, opts api.BuildOptions) (api.BuildResult, error) {
	if err := ctx.Err(); err != nil {
		return api.BuildResult{}, eris.Wrap(err, "build cancelled")
	}

	bctx, cerr := api.Context(opts)
	if cerr != nil {
		err := esbuild.Error(cerr.Errors)
		if err == nil {
			err = eris.New("invalid build options")
		}
		return api.BuildResult{}, eris.Wrap(err, "configure esbuild")
	}
	defer bctx.Dispose()

	stop := context.AfterFunc(ctx, bctx.Cancel)
	defer stop()

	res := bctx.Rebuild()
	if err := ctx.Err(); err != nil {
		return api.BuildResult{}, eris.Wrap(err, "build cancelled")
	}
	if err := esbuild.Error(res.Errors); err != nil {
		return api.BuildResult{}, err
	}
	return res, nil
}

var loaderNames = map[string]api.Loader{
	"base64":  api.LoaderBase64,
	"binary":  api.LoaderBinary,
	"copy":    api.LoaderCopy,
	"css":     api.LoaderCSS,
	"dataurl": api.LoaderDataURL,
	"empty":   api.LoaderEmpty,
	"file":    api.LoaderFile,
	"js":      api.LoaderJS,
	"json":    api.LoaderJSON,
	"jsx":     api.LoaderJSX,
	"text":    api.LoaderText,
	"ts":      api.LoaderTS,
	"tsx":     api.LoaderTSX,
}

// loaderMap converts loader names such as "css" into esbuild loaders.
func loaderMap(names map[string]string) (map[string]api.Loader, error) {
	loaders := make(map[string]api.Loader, len(names))
	for ext, name := range names {
		l, ok := loaderNames[name]
		if !ok {
			return nil, eris.Errorf("unknown loader %q for %s", name, ext)
		}
		loaders[ext] = l
	}
	return loaders, nil
}

// copyAssets copies local images and icons referenced by the page into the
// output directory, named by cfg.AssetNames, and updates the references.
func copyAssets(page *Page, cfg model.BuildConfig) ([]string, error) {
	var outputs []string
	seen := make(map[string]string)

	for _, a := range page.Assets {
		src := filepath.Join(cfg.RootDir, filepath.FromSlash(strings.TrimPrefix(importSpecifier(a.URL), "./")))
		if !insideDir(cfg.RootDir, src) {
			return nil, eris.Errorf("asset %s is outside the project", a.URL)
		}
		if rel, ok := seen[src]; ok {
			page.SetAssetURL(a, rel)
			continue
		}

		data, err := os.ReadFile(src)
		if err != nil {
			return nil, eris.Wrapf(err, "read asset %s", a.URL)
		}
		rel := assetName(cfg.AssetNames, src, data)
		dst := filepath.Join(cfg.OutDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return nil, eris.Wrapf(err, "create %s", filepath.Dir(dst))
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return nil, eris.Wrapf(err, "write asset %s", rel)
		}

		seen[src] = rel
		page.SetAssetURL(a, rel)
		outputs = append(outputs, rel)
	}
	return outputs, nil
}

// insideDir reports whether path lies within dir.
func insideDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// assetName expands an esbuild-style name template ([name], [ext], [hash])
// for src and appends the file extension.
func assetName(template, src string, data []byte) string {
	if template == "" {
		template = "[name]"
	}
	ext := filepath.Ext(src)
	sum := sha256.Sum256(data)
	name := strings.NewReplacer(
		"[name]", strings.TrimSuffix(filepath.Base(src), ext),
		"[ext]", strings.TrimPrefix(ext, "."),
		"[hash]", strings.ToUpper(fmt.Sprintf("%x", sum[:4])),
		"[dir]", "",
	).Replace(template)
	return path.Clean(name + ext)
}

// writePage renders page to dst.
func writePage(page *Page, dst string) error {
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return eris.Wrapf(err, "create %s", filepath.Dir(dst))
	}
	if err := os.WriteFile(dst, buf.Bytes(), 0o644); err != nil {
		return eris.Wrapf(err, "write %s", dst)
	}
	return nil
}
