package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/specialistvlad/implgrid/internal/ctxlog"
	"github.com/specialistvlad/implgrid/internal/matrix"
)

// Shell runs one resolved step line for a job, streaming output to out.
type Shell interface {
	Run(ctx context.Context, job matrix.Job, line string, out io.Writer) error
}

// ExecShell runs steps through the host shell. `cmd /C` is used on a Windows
// host when the job's image is a Windows one (or unset), `sh -c` otherwise.
// The job's variables are added to the process environment.
type ExecShell struct {
	// Dir is the working directory; empty means the current one.
	Dir string
}

// Run implements Shell.
func (s ExecShell) Run(ctx context.Context, job matrix.Job, line string, out io.Writer) error {
	name, args := shellCommand(runtime.GOOS, job.Image, line)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = s.Dir
	cmd.Env = append(os.Environ(), job.Environ()...)
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("step %q: %w", line, err)
	}
	return nil
}

// shellCommand picks the interpreter for line.
func shellCommand(goos, image, line string) (string, []string) {
	if goos == "windows" && (image == "" || windowsImage(image)) {
		return "cmd", []string{"/C", line}
	}
	return "sh", []string{"-c", line}
}

// windowsImage reports whether a CI image name denotes a Windows agent,
// e.g. "Visual Studio 2015" or "windows-2022".
func windowsImage(image string) bool {
	image = strings.ToLower(image)
	return strings.Contains(image, "windows") || strings.Contains(image, "visual studio")
}

// DryRunShell only prints the commands it would run.
type DryRunShell struct{}

// Run implements Shell.
func (DryRunShell) Run(ctx context.Context, job matrix.Job, line string, out io.Writer) error {
	ctxlog.FromContext(ctx).Debug("Dry run, step not executed.", "line", line)
	_, err := fmt.Fprintf(out, "$ %s\n", line)
	return err
}
