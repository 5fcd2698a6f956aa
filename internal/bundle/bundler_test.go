package bundle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/brick/internal/model"
	"github.com/shinji-kodama/brick/internal/style"
)

// fixedCSS is a style.Compiler that returns canned CSS per file name, so
// builds run without a Dart Sass binary.
type fixedCSS map[string]string

func (f fixedCSS) Compile(path string, _ style.OutputStyle) (string, error) {
	return f[filepath.Base(path)], nil
}

var testTargets = []string{"chrome64", "edge79", "firefox67", "safari12"}

// writeProject lays out a minimal web component project, including a
// stand-in for the lit package so generated style modules resolve.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	base := map[string]string{
		"node_modules/lit/package.json": `{"name": "lit", "type": "module", "main": "index.js"}`,
		"node_modules/lit/index.js":     "export const css = (strings) => strings.join('');\n",
	}
	for name, content := range files {
		base[name] = content
	}
	for name, content := range base {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func componentProject(t *testing.T) string {
	return writeProject(t, map[string]string{
		"index.html": `<!DOCTYPE html>
<html>
<head>
  <link rel="stylesheet" href="styles/main.scss">
  <link rel="icon" href="/favicon.png">
</head>
<body>
  <my-element></my-element>
  <script type="module" src="./src/my-element.js"></script>
  <script type="module">console.log("booted");</script>
</body>
</html>`,
		"src/my-element.js": `import styles from './my-element.scss';
export class MyElement extends HTMLElement {
  static get styles() { return styles; }
}
customElements.define('my-element', MyElement);
`,
		"src/my-element.scss": "",
		"styles/main.scss":    "",
		"favicon.png":         "\x89PNG",
	})
}

func buildConfig(root string) model.BuildConfig {
	return model.BuildConfig{
		RootDir:        root,
		EntryPoint:     "index.html",
		OutDir:         filepath.Join(root, "build"),
		AssetNames:     "assets/[name]",
		ChunkNames:     "[ext]/[name]",
		Bundle:         true,
		Minify:         true,
		Write:          true,
		Metafile:       true,
		AllowOverwrite: true,
		Loaders:        map[string]string{".scss": "css", ".png": "file"},
		Targets:        testTargets,
	}
}

func newTestBundler(t *testing.T) *ESBuild {
	t.Helper()
	tr, err := style.ForBuild(fixedCSS{
		"my-element.scss": ":host { display: block; }",
		"main.scss":       "body { margin: 0px; }",
	}, testTargets)
	require.NoError(t, err)
	return NewESBuild(tr, zerolog.Nop())
}

func TestESBuild_Bundle(t *testing.T) {
	root := componentProject(t)
	cfg := buildConfig(root)

	res, err := newTestBundler(t).Bundle(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"assets/favicon.png", "index.css", "index.html", "index.js"}, res.Outputs)

	js, err := os.ReadFile(filepath.Join(cfg.OutDir, "index.js"))
	require.NoError(t, err)
	assert.Contains(t, string(js), ":host{display:block}", "component styles are inlined as a lit module")
	assert.Contains(t, string(js), "booted", "inline module scripts are bundled")
	assert.Contains(t, string(js), "my-element")

	css, err := os.ReadFile(filepath.Join(cfg.OutDir, "index.css"))
	require.NoError(t, err)
	assert.Contains(t, string(css), "body{margin:0}")

	page, err := os.ReadFile(filepath.Join(cfg.OutDir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), `<link rel="stylesheet" href="index.css"/>`)
	assert.Contains(t, string(page), `<script type="module" src="index.js"></script>`)
	assert.Contains(t, string(page), `href="assets/favicon.png"`)
	assert.NotContains(t, string(page), "src/my-element.js")
	assert.NotContains(t, string(page), "styles/main.scss")

	_, err = os.Stat(filepath.Join(cfg.OutDir, "assets", "favicon.png"))
	assert.NoError(t, err)
}

func TestESBuild_Bundle_PlainCSSImport(t *testing.T) {
	root := writeProject(t, map[string]string{
		"index.html": `<script type="module" src="app.js"></script>`,
		"app.js":     "import './reset.css';\nconsole.log('app');\n",
		"reset.css":  "body { margin: 0px; }\n",
	})
	cfg := buildConfig(root)

	res, err := newTestBundler(t).Bundle(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"index.css", "index.html", "index.js"}, res.Outputs)

	css, err := os.ReadFile(filepath.Join(cfg.OutDir, "index.css"))
	require.NoError(t, err)
	assert.Contains(t, string(css), "body{margin:0}")

	js, err := os.ReadFile(filepath.Join(cfg.OutDir, "index.js"))
	require.NoError(t, err)
	assert.NotContains(t, string(js), "margin", "plain CSS stays out of the script")

	page, err := os.ReadFile(filepath.Join(cfg.OutDir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), `<link rel="stylesheet" href="index.css"/>`)
}

func TestESBuild_Bundle_AssetOutsideProject(t *testing.T) {
	tests := []struct {
		name string
		href string
	}{
		{"parent directory", "../secret.png"},
		{"nested escape", "icons/../../secret.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeProject(t, map[string]string{
				"index.html": `<html><head><link rel="icon" href="` + tt.href + `"></head><body></body></html>`,
			})
			require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(root), "secret.png"), []byte("x"), 0o644))
			cfg := buildConfig(root)

			_, err := newTestBundler(t).Bundle(context.Background(), cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "is outside the project")

			_, err = os.Stat(filepath.Join(cfg.OutDir, "assets", "secret.png"))
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestInsideDir(t *testing.T) {
	dir := filepath.Join("/srv", "app")
	assert.True(t, insideDir(dir, filepath.Join(dir, "favicon.png")))
	assert.True(t, insideDir(dir, filepath.Join(dir, "..foo", "a.png")))
	assert.False(t, insideDir(dir, filepath.Join("/srv", "secret.png")))
	assert.False(t, insideDir(dir, filepath.Dir(dir)))
}

func TestESBuild_Bundle_SyntaxError(t *testing.T) {
	root := writeProject(t, map[string]string{
		"index.html": `<script type="module" src="app.js"></script>`,
		"app.js":     "export const = ;\n",
	})

	_, err := newTestBundler(t).Bundle(context.Background(), buildConfig(root))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app.js")
}

func TestESBuild_Bundle_MissingEntry(t *testing.T) {
	root := t.TempDir()

	_, err := newTestBundler(t).Bundle(context.Background(), buildConfig(root))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read entry point index.html")
}

func TestESBuild_Bundle_Cancelled(t *testing.T) {
	root := componentProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestBundler(t).Bundle(ctx, buildConfig(root))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build cancelled")
}

func TestModuleBundler_BundleModule(t *testing.T) {
	root := componentProject(t)
	mb, err := NewModuleBundler(root, testTargets)
	require.NoError(t, err)

	out, err := mb.BundleModule(context.Background(), filepath.Join(root, "src", "my-element.js"))
	require.NoError(t, err)

	assert.Contains(t, string(out), `from "/src/my-element.scss"`)
	assert.NotContains(t, string(out), "display")
	assert.Contains(t, string(out), "customElements.define")
	assert.Contains(t, string(out), "sourceMappingURL=data:application/json")
}

func TestModuleBundler_SharedImports(t *testing.T) {
	root := writeProject(t, map[string]string{
		"a.js":     "import { tag } from './shared/comp.js';\nimport { css } from 'lit';\nexport const a = css`a` + tag;\n",
		"b.js":     "import { tag } from './shared/comp.js';\nexport const b = tag;\n",
		"logo.png": "\x89PNG",
		"c.js":     "import { tag } from './shared/comp.js';\nimport logo from './logo.png';\nimport 'https://cdn.example.com/x.js';\nexport const c = logo + tag;\n",
		"shared/comp.js": `export const tag = 'x-comp';
customElements.define(tag, class extends HTMLElement {});
`,
	})
	mb, err := NewModuleBundler(root, testTargets)
	require.NoError(t, err)
	bundle := func(name string) string {
		out, err := mb.BundleModule(context.Background(), filepath.Join(root, name))
		require.NoError(t, err)
		return string(out)
	}

	tests := []struct {
		file    string
		want    []string
		notWant []string
	}{
		{"a.js", []string{`from "/shared/comp.js"`, `from "/node_modules/lit/index.js"`}, []string{"customElements.define", "strings.join"}},
		{"b.js", []string{`from "/shared/comp.js"`}, []string{"customElements.define"}},
		{"c.js", []string{`from "/shared/comp.js"`, "data:image/png;base64", `"https://cdn.example.com/x.js"`}, []string{"customElements.define"}},
		{"shared/comp.js", []string{"customElements.define"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			out := bundle(tt.file)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, out, w)
			}
		})
	}
}
