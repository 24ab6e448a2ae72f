package executor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/specialistvlad/implgrid/internal/matrix"
	"github.com/specialistvlad/implgrid/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingShell records every line it is asked to run and fails on demand.
type recordingShell struct {
	mu     sync.Mutex
	lines  map[string][]string
	failOn string
	block  chan struct{}
}

func newRecordingShell() *recordingShell {
	return &recordingShell{lines: make(map[string][]string)}
}

func (s *recordingShell) Run(ctx context.Context, job matrix.Job, line string, out io.Writer) error {
	s.mu.Lock()
	s.lines[job.ID] = append(s.lines[job.ID], line)
	s.mu.Unlock()

	if s.failOn != "" && strings.Contains(line, s.failOn) {
		return errors.New("exit status 1")
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	_, err := io.WriteString(out, "ok\n")
	return err
}

func (s *recordingShell) linesFor(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines[id]...)
}

func templateJobs(t *testing.T) []matrix.Job {
	t.Helper()
	tpl, err := matrix.Parse([]byte(`os: Visual Studio 2015
environment:
  matrix:
    - {CHANNEL: stable, TARGET: x86_64-pc-windows-msvc}
    - {CHANNEL: nightly, TARGET: i686-pc-windows-gnu, MSYS_BITS: 32}
install:
  - rustup-init.exe -y --default-host %TARGET% --default-toolchain %CHANNEL%
  - rustc -Vv
build: false
build_script:
  - cargo build
test_script:
#  - cargo test --verbose
`))
	require.NoError(t, err)
	return matrix.Expand(tpl)
}

func TestRun_ExecutesInstallAndSkipsDisabledAndInert(t *testing.T) {
	shell := newRecordingShell()
	m := metrics.New(prometheus.NewRegistry())
	var out bytes.Buffer
	exec := New(shell, WithWorkers(2), WithMetrics(m), WithOutput(&out))

	results, err := exec.Run(context.Background(), templateJobs(t))
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, []string{
		"rustup-init.exe -y --default-host x86_64-pc-windows-msvc --default-toolchain stable",
		"rustc -Vv",
	}, shell.linesFor("stable-x86_64-pc-windows-msvc"))
	assert.Equal(t, []string{
		"rustup-init.exe -y --default-host i686-pc-windows-gnu --default-toolchain nightly",
		"rustc -Vv",
	}, shell.linesFor("nightly-i686-pc-windows-gnu-32"))

	for _, res := range results {
		assert.Equal(t, StatusSucceeded, res.Status)
		var statuses []Status
		for _, step := range res.Steps {
			statuses = append(statuses, step.Status)
		}
		assert.Equal(t, []Status{StatusSucceeded, StatusSucceeded, StatusSkipped, StatusInert}, statuses)
		assert.Equal(t, "cargo test --verbose", res.Steps[3].Line)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.JobCount("succeeded")))
	assert.Contains(t, out.String(), "[stable-x86_64-pc-windows-msvc] ok\n")
	assert.Contains(t, out.String(), "[nightly-i686-pc-windows-gnu-32] ok\n")
}

func TestRun_FailureStopsRemainingSteps(t *testing.T) {
	shell := newRecordingShell()
	shell.failOn = "rustup-init"
	exec := New(shell, WithWorkers(1))

	jobs := templateJobs(t)
	results, err := exec.Run(context.Background(), jobs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job stable-x86_64-pc-windows-msvc")

	first := results[0]
	assert.Equal(t, StatusFailed, first.Status)
	assert.Equal(t, StatusFailed, first.Steps[0].Status)
	assert.Equal(t, StatusSkipped, first.Steps[1].Status)

	// With a single worker the second job never starts.
	assert.Equal(t, StatusSkipped, results[1].Status)
	assert.Empty(t, shell.linesFor(jobs[1].ID))
}

func TestRun_FailFastCancelsRunningJobs(t *testing.T) {
	shell := newRecordingShell()
	shell.block = make(chan struct{})
	shell.failOn = "x86_64"
	exec := New(shell, WithWorkers(2))

	done := make(chan struct{})
	var results []Result
	var err error
	go func() {
		defer close(done)
		results, err = exec.Run(context.Background(), templateJobs(t))
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		close(shell.block)
		t.Fatal("executor did not cancel the blocked job")
	}

	require.Error(t, err)
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.Equal(t, StatusSkipped, results[1].Status)
}

func TestRun_ParentContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := New(newRecordingShell()).Run(ctx, templateJobs(t))
	assert.ErrorIs(t, err, context.Canceled)
	for _, res := range results {
		assert.Equal(t, StatusSkipped, res.Status)
	}
}

func TestRun_BoundedConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	shell := shellFunc(func(ctx context.Context, _ matrix.Job, _ string, _ io.Writer) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return nil
	})

	var jobs []matrix.Job
	for i := 0; i < 8; i++ {
		jobs = append(jobs, matrix.Job{ID: string(rune('a' + i)), Install: []matrix.Step{"step"}})
	}

	_, err := New(shell, WithWorkers(3)).Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

type shellFunc func(ctx context.Context, job matrix.Job, line string, out io.Writer) error

func (f shellFunc) Run(ctx context.Context, job matrix.Job, line string, out io.Writer) error {
	return f(ctx, job, line, out)
}

func TestDryRunShell(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, DryRunShell{}.Run(context.Background(), matrix.Job{}, "cargo -V", &out))
	assert.Equal(t, "$ cargo -V\n", out.String())
}

func TestExecShell(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX shell syntax")
	}
	job := matrix.Job{Env: []matrix.Var{{Name: "CHANNEL", Value: "beta"}}}

	var out bytes.Buffer
	require.NoError(t, ExecShell{}.Run(context.Background(), job, `echo "$CHANNEL"`, &out))
	assert.Equal(t, "beta\n", out.String())

	err := ExecShell{}.Run(context.Background(), job, "exit 3", &out)
	assert.Error(t, err)
}

func TestPrefixWriter(t *testing.T) {
	var out bytes.Buffer
	var mu sync.Mutex
	w := &prefixWriter{prefix: "[a] ", out: &out, mu: &mu, atLineStart: true}

	_, _ = w.Write([]byte("one\ntw"))
	_, _ = w.Write([]byte("o\nthree"))
	assert.Equal(t, "[a] one\n[a] two\n[a] three", out.String())
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "inert", StatusInert.String())
	assert.Equal(t, "unknown", Status(42).String())
}

func TestShellCommand(t *testing.T) {
	testCases := []struct {
		name     string
		goos     string
		image    string
		wantName string
		wantArgs []string
	}{
		{name: "windows host and image", goos: "windows", image: "Visual Studio 2015", wantName: "cmd", wantArgs: []string{"/C", "rustc -V"}},
		{name: "windows host without image", goos: "windows", wantName: "cmd", wantArgs: []string{"/C", "rustc -V"}},
		{name: "windows host with linux image", goos: "windows", image: "Ubuntu2204", wantName: "sh", wantArgs: []string{"-c", "rustc -V"}},
		{name: "linux host with windows image", goos: "linux", image: "windows-2022", wantName: "sh", wantArgs: []string{"-c", "rustc -V"}},
		{name: "linux host", goos: "linux", wantName: "sh", wantArgs: []string{"-c", "rustc -V"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			name, args := shellCommand(tc.goos, tc.image, "rustc -V")
			assert.Equal(t, tc.wantName, name)
			assert.Equal(t, tc.wantArgs, args)
		})
	}
}
