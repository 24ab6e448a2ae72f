package app_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/specialistvlad/implgrid/internal/app"
	"github.com/specialistvlad/implgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ciTemplate = `os: Visual Studio 2015

environment:
  matrix:
  - CHANNEL: stable
    TARGET: x86_64-pc-windows-msvc
  - CHANNEL: nightly
    TARGET: i686-pc-windows-gnu
    MSYS_BITS: 32

install:
  - rustup-init.exe -y --default-host %TARGET% --default-toolchain %CHANNEL%
  - rustc -V

build: false

test_script:
#  - cargo test --verbose
`

const buildTemplate = `environment:
  matrix:
  - CHANNEL: stable
    TARGET: x86_64-unknown-linux-gnu
  - CHANNEL: beta
    TARGET: x86_64-unknown-linux-gnu
  - CHANNEL: nightly
    TARGET: x86_64-unknown-linux-gnu

install:
  - rustup default $CHANNEL

build_script:
  - cargo build --target ${TARGET}

test_script:
  - cargo test
`

func TestExpandMatrix_Text(t *testing.T) {
	h := testutil.NewHarness(t, map[string]string{"appveyor.yml": ciTemplate})
	a := h.App(t, app.Config{CITemplatePath: h.Path("appveyor.yml")})

	require.NoError(t, a.ExpandMatrix(context.Background(), "text"))

	out := h.Out.String()
	assert.Contains(t, out, "JOB")
	assert.Contains(t, out, "stable-x86_64-pc-windows-msvc")
	assert.Contains(t, out, "nightly-i686-pc-windows-gnu-32")
	assert.Contains(t, out, "disabled")
	assert.Contains(t, out, "0 steps (1 inert)")
}

func TestExpandMatrix_JSON(t *testing.T) {
	h := testutil.NewHarness(t, map[string]string{"appveyor.yml": ciTemplate})
	a := h.App(t, app.Config{CITemplatePath: h.Path("appveyor.yml")})

	require.NoError(t, a.ExpandMatrix(context.Background(), "json"))

	var jobs []struct {
		ID            string   `json:"id"`
		Image         string   `json:"image"`
		Bits          int      `json:"bits"`
		Env           []string `json:"env"`
		Install       []string `json:"install"`
		BuildDisabled bool     `json:"build_disabled"`
		InertTest     []string `json:"inert_test"`
	}
	require.NoError(t, json.Unmarshal([]byte(h.Out.String()), &jobs))
	require.Len(t, jobs, 2)

	assert.Equal(t, "stable-x86_64-pc-windows-msvc", jobs[0].ID)
	assert.Equal(t, "Visual Studio 2015", jobs[0].Image)
	assert.True(t, jobs[0].BuildDisabled)
	assert.Equal(t, []string{"cargo test --verbose"}, jobs[0].InertTest)
	assert.Len(t, jobs[0].Install, 2)

	assert.Equal(t, 32, jobs[1].Bits)
	assert.Contains(t, jobs[1].Env, "MSYS_BITS=32")
	assert.Contains(t, jobs[1].Env, "BITS=32")
}

func TestExpandMatrix_UnknownFormat(t *testing.T) {
	h := testutil.NewHarness(t, map[string]string{"appveyor.yml": ciTemplate})
	a := h.App(t, app.Config{CITemplatePath: h.Path("appveyor.yml")})

	err := a.ExpandMatrix(context.Background(), "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "yaml"`)
}

func TestRunMatrix_AllJobsSucceed(t *testing.T) {
	h := testutil.NewHarness(t, map[string]string{"ci.yml": buildTemplate})
	shell := &testutil.RecordingShell{}
	a := h.App(t, app.Config{CITemplatePath: h.Path("ci.yml"), WorkerCount: 3}).WithShell(shell)

	require.NoError(t, a.RunMatrix(context.Background()))

	assert.Equal(t, []string{
		"rustup default beta",
		"cargo build --target x86_64-unknown-linux-gnu",
		"cargo test",
	}, shell.Lines("beta-x86_64-unknown-linux-gnu"))

	out := h.Out.String()
	assert.Contains(t, out, "[stable-x86_64-unknown-linux-gnu] rustup default stable\n")
	assert.Contains(t, out, "succeeded,succeeded,succeeded")
	testutil.AssertLogged(t, h.Logs.String(), "Job succeeded.", "job", "nightly-x86_64-unknown-linux-gnu")
}

func TestRunMatrix_RunsJobsConcurrently(t *testing.T) {
	h := testutil.NewHarness(t, map[string]string{"ci.yml": buildTemplate})
	shell := &testutil.RecordingShell{Sleep: 50 * time.Millisecond}
	a := h.App(t, app.Config{CITemplatePath: h.Path("ci.yml"), WorkerCount: 3}).WithShell(shell)

	require.NoError(t, a.RunMatrix(context.Background()))

	stable, ok := shell.Times("stable-x86_64-unknown-linux-gnu")
	require.True(t, ok)
	nightly, ok := shell.Times("nightly-x86_64-unknown-linux-gnu")
	require.True(t, ok)
	assert.True(t, nightly.Start.Before(stable.End), "jobs should overlap with three workers")
}

func TestRunMatrix_FailureIsReported(t *testing.T) {
	h := testutil.NewHarness(t, map[string]string{"ci.yml": buildTemplate})
	shell := &testutil.RecordingShell{FailOn: "cargo build"}
	a := h.App(t, app.Config{CITemplatePath: h.Path("ci.yml")}).WithShell(shell)

	err := a.RunMatrix(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execution failed")

	assert.Equal(t, []string{
		"rustup default stable",
		"cargo build --target x86_64-unknown-linux-gnu",
	}, shell.Lines("stable-x86_64-unknown-linux-gnu"), "steps after a failure do not run")
	assert.Empty(t, shell.Lines("beta-x86_64-unknown-linux-gnu"), "one worker stops before the next job")
	assert.Contains(t, h.Out.String(), "succeeded,failed,skipped")
}

func TestRunMatrix_DryRun(t *testing.T) {
	h := testutil.NewHarness(t, map[string]string{"appveyor.yml": ciTemplate})
	a := h.App(t, app.Config{CITemplatePath: h.Path("appveyor.yml"), DryRun: true})

	require.NoError(t, a.RunMatrix(context.Background()))

	out := h.Out.String()
	assert.Contains(t, out, "[stable-x86_64-pc-windows-msvc] $ rustup-init.exe -y --default-host x86_64-pc-windows-msvc --default-toolchain stable\n")
	assert.Contains(t, out, "[nightly-i686-pc-windows-gnu-32] $ rustc -V\n")
	assert.Contains(t, out, "succeeded,succeeded,inert")
}
