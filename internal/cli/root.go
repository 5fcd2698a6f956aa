// Package cli implements the cobra-based command line of brick.
//
// The root command accepts exactly one operation selector (--serve,
// --build, --lint, --version or -v). Each operation is also available as a
// subcommand, next to `config`, which prints the effective configuration.
// This file defines the root command, the global flags and the exit code
// handling. The operations live in their own files.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/brick/internal/config"
	"github.com/shinji-kodama/brick/internal/model"
	"github.com/shinji-kodama/brick/internal/ui"
)

// Version, Commit and Date are set at build time via ldflags. They are
// injected from the main package and shown by --verbose runs.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	// dir is the project root. Empty means the working directory.
	dir string

	// verbose switches diagnostic logging to debug level.
	verbose bool
}

// app is one invocation of the CLI: its environment, output and logger.
// It is created by Run and discarded when the command returns.
type app struct {
	env     Env
	flags   globalFlags
	printer *ui.Printer
	logger  zerolog.Logger
}

// NewRootCommand creates the root cobra command for env.
func NewRootCommand(env Env) *cobra.Command {
	a := &app{
		env:     env,
		printer: ui.NewPrinter(env.Stdout),
		logger:  zerolog.Nop(),
	}
	return a.rootCommand()
}

func (a *app) rootCommand() *cobra.Command {
	selected := make(map[model.Operation]*bool, len(model.Operations()))

	rootCmd := &cobra.Command{
		Use:   "brick",
		Short: "Build, serve and lint web components",
		Long: `brick builds, serves and lints a web component project.

A project is a directory with an index.html entry point, ES module
components and .scss style sheets imported as lit css modules.

Examples:
  brick --serve
  brick --build
  brick --lint
  brick -v`,

		Args: cobra.NoArgs,

		// Errors are printed once by Run, in the error colour.
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			op, err := selectedOperation(selected)
			if err != nil {
				return err
			}
			return a.dispatch(cmd.Context(), op)
		},
	}

	rootCmd.SetOut(a.env.Stdout)
	rootCmd.SetErr(a.env.Stderr)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return model.WrapCLIError(model.ExitUsageError, "invalid arguments", err)
	})

	flags := rootCmd.Flags()
	selected[model.OpServe] = flags.Bool("serve", false, "Start the live-reload development server")
	selected[model.OpBuild] = flags.Bool("build", false, "Lint, then bundle the component for production")
	selected[model.OpLint] = flags.Bool("lint", false, "Lint the component sources")
	selected[model.OpVersion] = flags.BoolP("version", "v", false, "Print the project version from package.json")

	names := make([]string, 0, len(selected))
	for _, op := range model.Operations() {
		names = append(names, op.String())
	}
	rootCmd.MarkFlagsMutuallyExclusive(names...)
	rootCmd.MarkFlagsOneRequired(names...)

	rootCmd.PersistentFlags().StringVar(&a.flags.dir, "dir", "", "Project directory (default: current directory)")
	rootCmd.PersistentFlags().BoolVar(&a.flags.verbose, "verbose", false, "Enable verbose output")

	for _, op := range model.Operations() {
		rootCmd.AddCommand(a.operationCommand(op))
	}
	rootCmd.AddCommand(a.configCommand())

	return rootCmd
}

// selectedOperation returns the operation whose selector flag is set.
func selectedOperation(selected map[model.Operation]*bool) (model.Operation, error) {
	for _, op := range model.Operations() {
		if set := selected[op]; set != nil && *set {
			return model.ParseOperation("--" + op.String())
		}
	}
	return 0, model.NewCLIError(model.ExitUsageError,
		"no operation selected (use one of --serve, --build, --lint, --version, -v)")
}

// operationCommand creates the subcommand equivalent of a selector flag.
func (a *app) operationCommand(op model.Operation) *cobra.Command {
	return &cobra.Command{
		Use:   op.String(),
		Short: operationSummary[op],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.dispatch(cmd.Context(), op)
		},
	}
}

var operationSummary = map[model.Operation]string{
	model.OpServe:   "Start the live-reload development server",
	model.OpBuild:   "Lint, then bundle the component for production",
	model.OpLint:    "Lint the component sources",
	model.OpVersion: "Print the project version from package.json",
}

// setup resolves the project directory and configures logging. It runs
// once, before any command.
func (a *app) setup() error {
	dir := a.flags.dir
	if dir == "" {
		wd, err := a.env.Getwd()
		if err != nil {
			return model.WrapCLIError(model.ExitConfigError, "cannot determine the working directory", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError, "cannot resolve the project directory", err)
	}
	a.flags.dir = abs

	level := zerolog.WarnLevel
	if a.flags.verbose {
		level = zerolog.DebugLevel
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: a.env.Stderr, NoColor: a.env.NoColor}).
		Level(level).
		With().Timestamp().Logger()

	a.VerboseLog("brick %s (commit: %s, built: %s)", Version, Commit, Date)
	a.VerboseLog("project directory: %s", a.flags.dir)
	return nil
}

// dispatch runs op through a dispatcher built for this invocation.
// Engine failures are traced at debug level.
func (a *app) dispatch(ctx context.Context, op model.Operation) error {
	err := NewDispatcher(a.operations()).Dispatch(ctx, op)
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) && cliErr.IsFatal() {
		a.logger.Debug().Str("operation", op.String()).Msg(eris.ToString(err, true))
	}
	return err
}

// loadConfig loads the project configuration.
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.flags.dir)
	if err != nil {
		return nil, err
	}
	if cfg.Source != "" {
		a.VerboseLog("configuration: %s", cfg.Source)
	}
	return cfg, nil
}

// VerboseLog writes a debug message. It is shown only with --verbose.
func (a *app) VerboseLog(format string, args ...interface{}) {
	a.logger.Debug().Msgf(format, args...)
}

// Run executes the command line args with env and returns the process
// exit code. Failures are printed once, on env.Stderr.
func Run(ctx context.Context, args []string, env Env) int {
	rootCmd := NewRootCommand(env)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return int(model.ExitSuccess)
	}

	var cliErr *model.CLIError
	if !errors.As(err, &cliErr) {
		// Anything cobra rejects before an operation runs is a usage error.
		err = model.WrapCLIError(model.ExitUsageError, "invalid arguments", err)
	}
	ui.NewPrinter(env.Stderr).Error("Error: " + err.Error())
	return int(model.ExitCodeOf(err))
}

// Execute runs brick with the process arguments and exits. SIGINT and
// SIGTERM cancel the running operation.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Run(ctx, os.Args[1:], DefaultEnv(os.Stdout, os.Stderr))
	stop()
	os.Exit(code)
}
