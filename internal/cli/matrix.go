package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/specialistvlad/implgrid/internal/app"
)

func matrixCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Expand or run an appveyor-style CI template",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(matrixExpandCmd(e), matrixRunCmd(e))
	return cmd
}

func matrixExpandCmd(e *env) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "expand CI_FILE",
		Short: "Print the jobs a CI template expands to",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return usageError(fmt.Errorf("invalid format %q: must be 'text' or 'json'", format))
			}
			a, err := e.newApp(app.Config{CITemplatePath: args[0]})
			if err != nil {
				return err
			}
			return a.ExpandMatrix(cmd.Context(), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format. Options: 'text' or 'json'.")
	return cmd
}

func matrixRunCmd(e *env) *cobra.Command {
	var (
		workers int
		dryRun  bool
		port    int
	)

	cmd := &cobra.Command{
		Use:   "run CI_FILE",
		Short: "Run every job of a CI template locally",
		Long: `Expand CI_FILE and run each job's install, build and test steps through the
host shell. The first failing job cancels the jobs that have not finished.
Commented-out test steps are reported as inert and never run.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.newApp(app.Config{
				CITemplatePath: args[0],
				WorkerCount:    workers,
				DryRun:         dryRun,
				Port:           port,
			})
			if err != nil {
				return err
			}
			return a.RunMatrix(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.IntVarP(&workers, "workers", "w", 4, "Number of jobs run at once.")
	f.BoolVar(&dryRun, "dry-run", false, "Print the commands instead of running them.")
	f.IntVar(&port, "port", 0, "Serve /health and /metrics on this port while running. 0 is disabled.")
	return cmd
}
