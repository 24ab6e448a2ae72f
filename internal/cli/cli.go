package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/specialistvlad/implgrid/internal/app"
)

// Exit codes returned through ExitError.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error // underlying cause, if any
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *ExitError) Unwrap() error {
	return e.Err
}

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Message: err.Error(), Err: err}
}

// usageArgs turns argument validation failures into usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

// globalFlags are shared by every command.
type globalFlags struct {
	logLevel  string
	logFormat string
}

// env is what every command needs to build and run an App.
type env struct {
	outW   io.Writer
	errW   io.Writer
	global *globalFlags
}

// newApp validates cfg, applying the global flags, and builds the App.
func (e *env) newApp(cfg app.Config) (*app.App, error) {
	cfg.LogLevel = strings.ToLower(e.global.logLevel)
	cfg.LogFormat = strings.ToLower(e.global.logFormat)

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err)
	}
	slog.Debug("CLI parser finished successfully.", "config", config)
	return app.NewApp(e.outW, e.errW, config), nil
}

// NewRootCommand builds the implgrid command tree. Command output goes to
// outW, logs and diagnostics to errW.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	e := &env{outW: outW, errW: errW, global: &globalFlags{}}

	root := &cobra.Command{
		Use:   "implgrid",
		Short: "Implementor registries and CI matrices for generated documentation",
		Long: `implgrid builds per-trait implementor registries from HCL manifests and
hands them off as documentation fragments, either to a registration sink
(a directory or an S3 bucket) or to a pending slot served over HTTP.

It also expands appveyor-style CI templates into their build matrix and
can run the resulting jobs locally.`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&e.global.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&e.global.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")

	root.AddCommand(
		renderCmd(e),
		serveCmd(e),
		matrixCmd(e),
		versionCmd(),
	)
	return root
}

// Execute runs the command tree with args. Usage, configuration and input
// file problems are returned as *ExitError with ExitUsage; other failures are
// returned unchanged.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	slog.Debug("CLI parser started.")
	root := NewRootCommand(outW, errW)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err != nil && app.IsInputError(err) {
		return usageError(err)
	}
	return err
}

// parseVars turns repeated k=v flags into a map.
func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, usageError(fmt.Errorf("invalid --var %q: expected key=value", p))
		}
		vars[k] = v
	}
	return vars, nil
}
