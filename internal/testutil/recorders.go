package testutil

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/specialistvlad/implgrid/internal/implreg"
	"github.com/specialistvlad/implgrid/internal/matrix"
)

// ExecutionRecord holds the start and end times of one recorded call.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// RecordingShell is an executor shell that runs nothing. It records every
// line per job, optionally sleeps, and fails lines containing FailOn.
type RecordingShell struct {
	Sleep  time.Duration
	FailOn string

	mu    sync.Mutex
	lines map[string][]string
	times map[string]*ExecutionRecord
}

// Run implements executor.Shell.
func (s *RecordingShell) Run(ctx context.Context, job matrix.Job, line string, out io.Writer) error {
	start := time.Now()
	if s.Sleep > 0 {
		select {
		case <-time.After(s.Sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	end := time.Now()

	s.mu.Lock()
	if s.lines == nil {
		s.lines = make(map[string][]string)
		s.times = make(map[string]*ExecutionRecord)
	}
	s.lines[job.ID] = append(s.lines[job.ID], line)
	if rec, ok := s.times[job.ID]; ok {
		rec.End = end
	} else {
		s.times[job.ID] = &ExecutionRecord{Start: start, End: end}
	}
	s.mu.Unlock()

	fmt.Fprintln(out, line)
	if s.FailOn != "" && strings.Contains(line, s.FailOn) {
		return fmt.Errorf("step %q failed", line)
	}
	return nil
}

// Lines returns the lines run for a job, in order.
func (s *RecordingShell) Lines(jobID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines[jobID]...)
}

// Times returns the execution window of a job, if it ran any line.
func (s *RecordingShell) Times(jobID string) (ExecutionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.times[jobID]
	if !ok {
		return ExecutionRecord{}, false
	}
	return *rec, true
}

// RecordingReceiver is a handoff receiver that keeps every registry it gets.
type RecordingReceiver struct {
	Err error

	mu   sync.Mutex
	regs []*implreg.Registry
}

// Register implements handoff.Receiver.
func (r *RecordingReceiver) Register(_ context.Context, reg *implreg.Registry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regs = append(r.regs, reg)
	return r.Err
}

// Registries returns the received registries in arrival order.
func (r *RecordingReceiver) Registries() []*implreg.Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*implreg.Registry(nil), r.regs...)
}
