package executor

import (
	"context"

	"github.com/specialistvlad/implgrid/internal/ctxlog"
	"github.com/specialistvlad/implgrid/internal/matrix"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// runJob executes the phases of a single job.
func (e *Executor) runJob(ctx context.Context, job matrix.Job) Result {
	ctx, span := e.tracer.Start(ctx, "job "+job.ID, trace.WithAttributes(
		attribute.String("ci.channel", job.Entry.Channel),
		attribute.String("ci.target", job.Entry.Target),
		attribute.Int("ci.bits", job.Entry.Bits),
		attribute.String("ci.image", job.Image),
	))
	defer span.End()

	ctx = ctxlog.With(ctx, "job", job.ID)
	logger := ctxlog.FromContext(ctx)

	res := Result{JobID: job.ID, Status: StatusRunning}
	start := e.now()
	defer func() {
		res.Duration = e.now().Sub(start)
		e.metrics.Job(res.Status.String())
	}()

	if err := ctx.Err(); err != nil {
		logger.Debug("Job skipped before start.", "reason", err)
		res.Status = StatusSkipped
		res.Err = err
		return res
	}
	logger.Info("Job started.")

	phases := []struct {
		name  string
		steps []matrix.Step
		skip  bool
	}{
		{name: PhaseInstall, steps: job.Install},
		{name: PhaseBuild, steps: job.Build, skip: job.BuildDisabled},
		{name: PhaseTest, steps: job.Test},
	}

	w := e.jobWriter(job.ID)
	for _, phase := range phases {
		for _, step := range phase.steps {
			line := job.Resolve(step)
			if phase.skip || res.Status != StatusRunning {
				res.Steps = append(res.Steps, StepResult{Phase: phase.name, Line: line, Status: StatusSkipped})
				continue
			}

			logger.Debug("Running step.", "phase", phase.name, "line", line)
			stepStart := e.now()
			err := e.shell.Run(ctx, job, line, w)
			elapsed := e.now().Sub(stepStart)
			e.metrics.Step(phase.name, elapsed.Seconds())

			sr := StepResult{Phase: phase.name, Line: line, Status: StatusSucceeded, Duration: elapsed}
			switch {
			case err != nil && ctx.Err() != nil:
				// Another job failed first; this one was cancelled mid-flight.
				sr.Status = StatusSkipped
				sr.Err = ctx.Err()
				res.Status = StatusSkipped
				res.Err = ctx.Err()
				logger.Warn("Job cancelled.", "phase", phase.name, "line", line)
			case err != nil:
				sr.Status = StatusFailed
				sr.Err = err
				res.Status = StatusFailed
				res.Err = err
				logger.Error("Step failed.", "phase", phase.name, "line", line, "error", err)
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			res.Steps = append(res.Steps, sr)
		}
	}

	for _, inert := range job.InertTest {
		res.Steps = append(res.Steps, StepResult{Phase: PhaseTest, Line: inert, Status: StatusInert})
	}

	if res.Status == StatusRunning {
		res.Status = StatusSucceeded
		logger.Info("Job succeeded.")
	}
	return res
}

// jobWriter returns a writer that prefixes each output line with the job ID.
func (e *Executor) jobWriter(id string) *prefixWriter {
	return &prefixWriter{prefix: "[" + id + "] ", out: e.out, mu: &e.outMu, atLineStart: true}
}
