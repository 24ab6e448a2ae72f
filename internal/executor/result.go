package executor

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// Phase names used in step results and metrics.
const (
	PhaseInstall = "install"
	PhaseBuild   = "build"
	PhaseTest    = "test"
)

// Status is the execution state of a job or step.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
	StatusSkipped
	// StatusInert marks a commented-out step that is never run.
	StatusInert
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusInert:
		return "inert"
	default:
		return "unknown"
	}
}

// StepResult records the outcome of one step.
type StepResult struct {
	Phase    string
	Line     string
	Status   Status
	Duration time.Duration
	Err      error
}

// Result records the outcome of one job.
type Result struct {
	JobID    string
	Status   Status
	Steps    []StepResult
	Duration time.Duration
	Err      error
}

// prefixWriter serialises writes from concurrent jobs and tags every line.
type prefixWriter struct {
	prefix      string
	out         io.Writer
	mu          *sync.Mutex
	atLineStart bool
}

func (p *prefixWriter) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var buf bytes.Buffer
	for _, c := range b {
		if p.atLineStart {
			buf.WriteString(p.prefix)
			p.atLineStart = false
		}
		buf.WriteByte(c)
		if c == '\n' {
			p.atLineStart = true
		}
	}
	if _, err := p.out.Write(buf.Bytes()); err != nil {
		return 0, err
	}
	return len(b), nil
}
