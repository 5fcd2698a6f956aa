package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/shinji-kodama/brick/internal/model"
)

// ProjectFiles lists the project configuration file names in lookup order.
// The first file that exists is used; the rest are ignored.
var ProjectFiles = []string{
	"brick.config.json",
	"brick.config.yaml",
	"brick.config.yml",
}

// Lint runtimes.
const (
	RuntimeLocal  = "local"
	RuntimeDocker = "docker"
)

// Config is the effective configuration of a brick project.
type Config struct {
	// Root is the absolute project directory. It is never read from a file.
	Root string `json:"-" yaml:"root"`

	// Source is the project file the configuration was read from, or "" if
	// only defaults and environment variables apply.
	Source string `json:"-" yaml:"source,omitempty"`

	EntryPoint string   `json:"entryPoint" yaml:"entryPoint"`
	OutDir     string   `json:"outDir" yaml:"outDir"`
	AssetNames string   `json:"assetNames" yaml:"assetNames"`
	ChunkNames string   `json:"chunkNames" yaml:"chunkNames"`
	Minify     bool     `json:"minify" yaml:"minify"`
	Targets    []string `json:"targets" yaml:"targets"`

	Serve ServeSection `json:"serve" yaml:"serve"`
	Lint  LintSection  `json:"lint" yaml:"lint"`
	Style StyleSection `json:"style" yaml:"style"`
}

// ServeSection configures the development server.
type ServeSection struct {
	Hostname      string   `json:"hostname" yaml:"hostname"`
	Port          int      `json:"port" yaml:"port"`
	AppIndex      string   `json:"appIndex" yaml:"appIndex"`
	Open          bool     `json:"open" yaml:"open"`
	Watch         bool     `json:"watch" yaml:"watch"`
	LiveReload    bool     `json:"liveReload" yaml:"liveReload"`
	WatchExcludes []string `json:"watchExcludes" yaml:"watchExcludes"`
}

// LintSection configures the lint gate.
type LintSection struct {
	// Config is the ESLint configuration file, relative to the project root.
	Config string `json:"config" yaml:"config"`

	// Patterns are the file globs handed to ESLint.
	Patterns []string `json:"patterns" yaml:"patterns"`

	// Runtime selects where ESLint runs: "local" or "docker".
	Runtime string `json:"runtime" yaml:"runtime"`

	// Image is the container image used by the docker runtime.
	Image string `json:"image" yaml:"image"`

	// Command overrides the ESLint command line prefix (e.g. ["npx", "eslint"]).
	Command []string `json:"command,omitempty" yaml:"command,omitempty"`
}

// StyleSection configures the style engine.
type StyleSection struct {
	// SassBinary is the Dart Sass executable speaking the embedded protocol.
	SassBinary string `json:"sassBinary" yaml:"sassBinary"`

	// IncludePaths are extra load paths for @use/@import resolution.
	IncludePaths []string `json:"includePaths,omitempty" yaml:"includePaths,omitempty"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		EntryPoint: "index.html",
		OutDir:     "build",
		AssetNames: "assets/[name]",
		ChunkNames: "[ext]/[name]",
		Minify:     true,
		Targets:    []string{"chrome64", "edge79", "firefox67", "safari12"},
		Serve: ServeSection{
			Hostname:      "localhost",
			Port:          8000,
			AppIndex:      "index.html",
			Open:          true,
			Watch:         true,
			LiveReload:    true,
			WatchExcludes: []string{"node_modules/**", ".git/**"},
		},
		Lint: LintSection{
			Config:   "eslint.config.js",
			Patterns: []string{"./**/*.js"},
			Runtime:  RuntimeLocal,
			Image:    "node:20-alpine",
		},
		Style: StyleSection{
			SassBinary: "sass",
		},
	}
}

// Load builds the effective configuration for the project in dir.
//
// Returns a CLIError with ExitConfigError if a project file or the .env
// file cannot be read, fails schema validation, or the merged configuration
// is semantically invalid.
func Load(dir string) (*Config, error) {
	return load(dir, os.LookupEnv)
}

// load is Load with an injectable environment lookup for tests.
func load(dir string, lookupEnv func(string) (string, bool)) (*Config, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("cannot resolve project directory %q", dir), err)
	}

	cfg := Defaults()
	cfg.Root = root

	if err := applyProjectFile(&cfg); err != nil {
		return nil, err
	}

	dotenv, err := readDotEnv(root)
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := lookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return nil, err
	}

	if problems := Validate(&cfg); len(problems) > 0 {
		msgs := make([]string, 0, len(problems))
		for _, p := range problems {
			msgs = append(msgs, p.Field+": "+p.Message)
		}
		return nil, model.NewCLIError(model.ExitConfigError,
			"invalid brick configuration: "+strings.Join(msgs, "; "))
	}

	return &cfg, nil
}

// applyProjectFile overlays the first project file found in cfg.Root onto
// cfg. Fields absent from the file keep their current values.
func applyProjectFile(cfg *Config) error {
	path := findProjectFile(cfg.Root)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to read %s", filepath.Base(path)), err)
	}

	jsonData, err := toJSON(path, data)
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to parse %s", filepath.Base(path)), err)
	}

	if err := validateSchema(jsonData); err != nil {
		return model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("%s does not match the brick configuration schema", filepath.Base(path)), err)
	}

	if err := json.Unmarshal(jsonData, cfg); err != nil {
		return model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to decode %s", filepath.Base(path)), err)
	}
	cfg.Source = path
	return nil
}

// findProjectFile returns the path of the first existing project file.
func findProjectFile(root string) string {
	for _, name := range ProjectFiles {
		path := filepath.Join(root, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// toJSON normalises a project file to plain JSON. JSON files may contain
// comments and trailing commas (JSONC).
func toJSON(path string, data []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		out, err := sigsyaml.YAMLToJSON(data)
		if err != nil {
			return nil, eris.Wrap(err, "convert yaml to json")
		}
		return out, nil
	default:
		return jsonc.ToJSON(data), nil
	}
}

// readDotEnv reads the project's .env file without touching the process
// environment. A missing file is not an error.
func readDotEnv(root string) (map[string]string, error) {
	path := filepath.Join(root, ".env")
	if _, err := os.Stat(path); err != nil {
		return map[string]string{}, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "failed to read .env", err)
	}
	return values, nil
}

// applyEnv applies BRICK_* overrides.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("BRICK_ENTRY_POINT", &cfg.EntryPoint)
	str("BRICK_OUT_DIR", &cfg.OutDir)
	str("BRICK_HOSTNAME", &cfg.Serve.Hostname)
	str("BRICK_LINT_RUNTIME", &cfg.Lint.Runtime)
	str("BRICK_LINT_IMAGE", &cfg.Lint.Image)
	str("BRICK_SASS_BINARY", &cfg.Style.SassBinary)

	if v, ok := lookup("BRICK_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return model.WrapCLIError(model.ExitConfigError, "BRICK_PORT must be an integer", err)
		}
		cfg.Serve.Port = port
	}
	if v, ok := lookup("BRICK_OPEN"); ok && v != "" {
		open, err := strconv.ParseBool(v)
		if err != nil {
			return model.WrapCLIError(model.ExitConfigError, "BRICK_OPEN must be a boolean", err)
		}
		cfg.Serve.Open = open
	}
	return nil
}

// Path resolves a project-relative path against the project root.
func (c *Config) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.Root, rel)
}

// BuildConfig derives the bundler configuration for one build.
func (c *Config) BuildConfig() model.BuildConfig {
	return model.BuildConfig{
		RootDir:        c.Root,
		EntryPoint:     c.EntryPoint,
		OutDir:         c.Path(c.OutDir),
		AssetNames:     c.AssetNames,
		ChunkNames:     c.ChunkNames,
		Bundle:         true,
		Minify:         c.Minify,
		Write:          true,
		Metafile:       true,
		AllowOverwrite: true,
		Loaders: map[string]string{
			".scss":  "css",
			".png":   "file",
			".jpg":   "file",
			".jpeg":  "file",
			".gif":   "file",
			".svg":   "file",
			".webp":  "file",
			".woff":  "file",
			".woff2": "file",
		},
		Targets: append([]string(nil), c.Targets...),
	}
}

// ServeConfig derives the dev-server configuration.
func (c *Config) ServeConfig() model.ServeConfig {
	excludes := append([]string(nil), c.Serve.WatchExcludes...)
	if rel, err := filepath.Rel(c.Root, c.Path(c.OutDir)); err == nil && !strings.HasPrefix(rel, "..") {
		excludes = append(excludes, filepath.ToSlash(rel)+"/**")
	}
	return model.ServeConfig{
		RootDir:       c.Root,
		AppIndex:      c.Serve.AppIndex,
		Hostname:      c.Serve.Hostname,
		Port:          c.Serve.Port,
		Watch:         c.Serve.Watch,
		LiveReload:    c.Serve.LiveReload,
		Open:          c.Serve.Open,
		WatchExcludes: excludes,
		Targets:       append([]string(nil), c.Targets...),
	}
}

// Marshal renders the configuration as YAML, the format used by
// `brick config`.
func Marshal(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, eris.Wrap(err, "marshal configuration")
	}
	return out, nil
}
