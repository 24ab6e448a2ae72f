package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifest = `
trait "Clone" {
  library "libc" {
    implementor "timeval" {}
  }
}
`

const ciTemplate = `environment:
  matrix:
  - CHANNEL: stable
    TARGET: x86_64-unknown-linux-gnu
install:
  - rustup default %CHANNEL%
build: false
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	err := Execute(context.Background(), args, &out, &logs)
	return out.String(), logs.String(), err
}

func requireExitCode(t *testing.T, err error, code int) *ExitError {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected *ExitError, got %v", err)
	require.Equal(t, code, exitErr.Code)
	return exitErr
}

func TestExecute_UsageErrors(t *testing.T) {
	ci := writeFile(t, "ci.yml", ciTemplate)

	testCases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{name: "unknown flag", args: []string{"--this-is-not-a-valid-flag"}, wantMsg: "unknown flag"},
		{name: "unknown command", args: []string{"bogus"}, wantMsg: `unknown command "bogus"`},
		{name: "render without path", args: []string{"render"}, wantMsg: "a manifest path is required"},
		{name: "render with two paths", args: []string{"render", "a", "b"}, wantMsg: "accepts at most 1 arg"},
		{name: "bad var", args: []string{"render", "x.hcl", "--var", "novalue"}, wantMsg: `invalid --var "novalue"`},
		{name: "bad log level", args: []string{"--log-level", "loud", "render", "x.hcl"}, wantMsg: "invalid log-level"},
		{name: "expand without file", args: []string{"matrix", "expand"}, wantMsg: "accepts 1 arg"},
		{name: "expand bad format", args: []string{"matrix", "expand", ci, "--format", "xml"}, wantMsg: `invalid format "xml"`},
		{name: "run negative workers", args: []string{"matrix", "run", ci, "--workers", "-1"}, wantMsg: "invalid workers"},
		{name: "serve zero port", args: []string{"serve", "x.hcl", "--port", "0"}, wantMsg: "--port must be positive"},
		{name: "s3 without region", args: []string{"render", "x.hcl", "--s3-bucket", "docs"}, wantMsg: "s3-region is required"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := execute(t, tc.args...)
			exitErr := requireExitCode(t, err, ExitUsage)
			assert.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}

func TestExecute_Help(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "render")
	assert.Contains(t, out, "matrix")
}

func TestExecute_RenderToStdout(t *testing.T) {
	path := writeFile(t, "clone.hcl", manifest)

	out, logs, err := execute(t, "render", path, "--log-format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "// implementors/trait.Clone.js\n")
	assert.Contains(t, out, `implementors["libc"] = ["impl Clone for timeval"];`)
	assert.Contains(t, logs, `"msg":"Implementors handed off."`)
}

func TestExecute_RenderToDirectory(t *testing.T) {
	path := writeFile(t, "clone.hcl", manifest)
	outDir := t.TempDir()

	out, _, err := execute(t, "render", "--manifest", path, "--out", outDir)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.FileExists(t, filepath.Join(outDir, "implementors", "trait.Clone.js"))
}

func TestExecute_InputErrorsAreUsage(t *testing.T) {
	dupA := writeFile(t, "a.hcl", manifest)
	dupDir := filepath.Dir(dupA)
	require.NoError(t, os.WriteFile(filepath.Join(dupDir, "b.hcl"), []byte(manifest), 0600))

	testCases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{name: "missing manifest", args: []string{"render", filepath.Join(t.TempDir(), "missing.hcl")}, wantMsg: "failed to load manifests"},
		{name: "broken manifest", args: []string{"render", writeFile(t, "bad.hcl", "trait \"Clone\" {\n")}, wantMsg: "failed to parse HCL file"},
		{name: "duplicate trait", args: []string{"render", dupDir}, wantMsg: "duplicate trait"},
		{name: "empty directory", args: []string{"render", t.TempDir()}, wantMsg: "no manifest files found"},
		{name: "invalid CI template", args: []string{"matrix", "expand", writeFile(t, "ci.yml", "install: [a]\n")}, wantMsg: "environment matrix is empty"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := execute(t, tc.args...)
			exitErr := requireExitCode(t, err, ExitUsage)
			assert.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}

func TestExecute_FailedJobIsRuntimeError(t *testing.T) {
	ci := writeFile(t, "ci.yml", `environment:
  matrix:
  - CHANNEL: stable
    TARGET: x86_64-unknown-linux-gnu
install:
  - exit 3
build: false
`)

	_, _, err := execute(t, "matrix", "run", ci)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execution failed")
	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr), "a failing job is not a usage error")
}

func TestExecute_MatrixDryRun(t *testing.T) {
	ci := writeFile(t, "ci.yml", ciTemplate)

	out, _, err := execute(t, "matrix", "run", ci, "--dry-run", "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "[stable-x86_64-unknown-linux-gnu] $ rustup default stable\n")
}

func TestExecute_Version(t *testing.T) {
	out, _, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestParseVars(t *testing.T) {
	vars, err := parseVars([]string{"docs_root=../..", "empty=", "eq=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"docs_root": "../..", "empty": "", "eq": "a=b"}, vars)

	_, err = parseVars([]string{"=x"})
	requireExitCode(t, err, ExitUsage)
}
