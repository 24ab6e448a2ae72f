// Package executor runs expanded matrix jobs locally through a bounded pool
// of workers.
//
// Each job runs its install steps in order, then its build script unless the
// build phase is disabled, then its active test steps. Inert (commented-out)
// test lines are reported but never executed. The first failing job cancels
// the rest: jobs that have not started are marked skipped.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/specialistvlad/implgrid/internal/ctxlog"
	"github.com/specialistvlad/implgrid/internal/matrix"
	"github.com/specialistvlad/implgrid/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/specialistvlad/implgrid/internal/executor"

// Executor orchestrates the execution of a set of jobs.
type Executor struct {
	shell   Shell
	workers int
	out     io.Writer
	outMu   sync.Mutex
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithWorkers bounds the number of jobs running at once.
func WithWorkers(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithOutput sets where step output is streamed, prefixed by job ID.
func WithOutput(w io.Writer) Option {
	return func(e *Executor) { e.out = w }
}

// WithMetrics records job and step metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Executor) { e.tracer = tp.Tracer(tracerName) }
}

// New creates an Executor that runs steps through shell.
func New(shell Shell, opts ...Option) *Executor {
	e := &Executor{
		shell:   shell,
		workers: 1,
		out:     io.Discard,
		tracer:  otel.Tracer(tracerName),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes jobs and returns one Result per job, in the order given. The
// returned error joins every job failure; cancellation of the parent context
// is reported as well.
func (e *Executor) Run(ctx context.Context, jobs []matrix.Job) ([]Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Starting matrix execution.", "jobs", len(jobs), "workers", e.workers)

	results := make([]Result, len(jobs))
	for i, job := range jobs {
		results[i] = Result{JobID: job.ID, Status: StatusPending}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := range jobs {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			results[i] = e.runJob(gctx, jobs[i])
			if results[i].Status == StatusFailed {
				return fmt.Errorf("job %s: %w", jobs[i].ID, results[i].Err)
			}
			return nil
		})
	}
	firstErr := g.Wait()

	var errs []error
	for i := range results {
		switch results[i].Status {
		case StatusPending:
			results[i].Status = StatusSkipped
			results[i].Err = context.Cause(gctx)
			e.metrics.Job(StatusSkipped.String())
		case StatusFailed:
			errs = append(errs, fmt.Errorf("job %s: %w", results[i].JobID, results[i].Err))
		}
	}
	if firstErr == nil && ctx.Err() != nil {
		errs = append(errs, ctx.Err())
	}

	err := errors.Join(errs...)
	if err != nil {
		logger.Error("Matrix execution failed.", "error", err)
	} else {
		logger.Info("Matrix execution finished.", "jobs", len(jobs))
	}
	return results, err
}
