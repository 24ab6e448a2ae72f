package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/specialistvlad/implgrid/internal/ctxlog"
	"github.com/specialistvlad/implgrid/internal/executor"
	"github.com/specialistvlad/implgrid/internal/matrix"
)

// loadJobs parses the configured CI template and expands its matrix.
func (a *App) loadJobs(ctx context.Context) ([]matrix.Job, error) {
	logger := ctxlog.FromContext(ctx)
	if a.config.CITemplatePath == "" {
		return nil, inputError(fmt.Errorf("CI template: %w", ErrMissingPath))
	}
	tpl, err := matrix.LoadFile(a.config.CITemplatePath)
	if err != nil {
		return nil, inputError(err)
	}
	jobs := matrix.Expand(tpl)
	logger.Debug("Matrix expanded.", "entries", len(tpl.Matrix), "jobs", len(jobs))
	return jobs, nil
}

// jobView is the JSON shape of an expanded job.
type jobView struct {
	ID            string   `json:"id"`
	Image         string   `json:"image,omitempty"`
	Channel       string   `json:"channel"`
	Target        string   `json:"target"`
	Bits          int      `json:"bits,omitempty"`
	Env           []string `json:"env"`
	Install       []string `json:"install"`
	BuildDisabled bool     `json:"build_disabled"`
	Build         []string `json:"build,omitempty"`
	Test          []string `json:"test,omitempty"`
	InertTest     []string `json:"inert_test,omitempty"`
}

func stepsToStrings(steps []matrix.Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = string(s)
	}
	return out
}

// ExpandMatrix prints the jobs the CI template expands to, as a table or JSON.
func (a *App) ExpandMatrix(ctx context.Context, format string) error {
	ctx = a.withLogger(ctx)
	jobs, err := a.loadJobs(ctx)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		views := make([]jobView, 0, len(jobs))
		for _, j := range jobs {
			views = append(views, jobView{
				ID:            j.ID,
				Image:         j.Image,
				Channel:       j.Entry.Channel,
				Target:        j.Entry.Target,
				Bits:          j.Entry.Bits,
				Env:           j.Environ(),
				Install:       stepsToStrings(j.Install),
				BuildDisabled: j.BuildDisabled,
				Build:         stepsToStrings(j.Build),
				Test:          stepsToStrings(j.Test),
				InertTest:     j.InertTest,
			})
		}
		enc := json.NewEncoder(a.outW)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	case "text", "":
		tw := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "JOB\tCHANNEL\tTARGET\tBITS\tINSTALL\tBUILD\tTEST")
		for _, j := range jobs {
			bits := "-"
			if j.Entry.Bits != 0 {
				bits = fmt.Sprint(j.Entry.Bits)
			}
			build := fmt.Sprintf("%d steps", len(j.Build))
			if j.BuildDisabled {
				build = "disabled"
			}
			test := fmt.Sprintf("%d steps", len(j.Test))
			if len(j.InertTest) > 0 {
				test += fmt.Sprintf(" (%d inert)", len(j.InertTest))
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d steps\t%s\t%s\n", j.ID, j.Entry.Channel, j.Entry.Target, bits, len(j.Install), build, test)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q: must be 'text' or 'json'", format)
	}
}

// RunMatrix expands the CI template and executes every job locally.
func (a *App) RunMatrix(ctx context.Context) error {
	ctx = a.withLogger(ctx)
	logger := ctxlog.FromContext(ctx)

	jobs, err := a.loadJobs(ctx)
	if err != nil {
		return err
	}

	if a.config.Port > 0 {
		if err := a.startServer(ctx); err != nil {
			return err
		}
		defer a.closeServer(context.WithoutCancel(ctx))
	}

	var shell executor.Shell = executor.ExecShell{}
	switch {
	case a.config.DryRun:
		logger.Info("Dry run enabled, commands will only be printed.")
		shell = executor.DryRunShell{}
	case a.shell != nil:
		shell = a.shell
	}

	exec := executor.New(shell,
		executor.WithWorkers(a.config.WorkerCount),
		executor.WithOutput(a.outW),
		executor.WithMetrics(a.metrics),
	)
	results, runErr := exec.Run(ctx, jobs)

	tw := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tSTATUS\tDURATION\tSTEPS")
	for _, r := range results {
		var parts []string
		for _, s := range r.Steps {
			parts = append(parts, s.Status.String())
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.JobID, r.Status, r.Duration.Round(time.Millisecond), strings.Join(parts, ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}
	return nil
}
