package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/implgrid/internal/app"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Harness is a temporary workspace plus captured output for one test.
type Harness struct {
	Dir  string
	Out  *SafeBuffer
	Logs *SafeBuffer
}

// NewHarness writes files (relative path -> content) under a fresh temporary
// directory. Setting IMPLGRID_TEST_LOGS=true dumps the captured logs.
func NewHarness(t *testing.T, files map[string]string) *Harness {
	t.Helper()

	h := &Harness{Dir: t.TempDir(), Out: &SafeBuffer{}, Logs: &SafeBuffer{}}
	for name, content := range files {
		h.WriteFile(t, name, content)
	}

	t.Cleanup(func() {
		if os.Getenv("IMPLGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), h.Logs.String())
		}
	})
	return h
}

// WriteFile writes content to name relative to the harness directory.
func (h *Harness) WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := h.Path(name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// Path resolves name against the harness directory.
func (h *Harness) Path(name string) string {
	return filepath.Join(h.Dir, filepath.FromSlash(name))
}

// App validates cfg and returns an App writing to the harness buffers. Debug
// logging is forced so assertions can inspect every message.
func (h *Harness) App(t *testing.T, cfg app.Config) *app.App {
	t.Helper()
	cfg.LogLevel = "debug"
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	config, err := app.NewConfig(cfg)
	require.NoError(t, err)
	return app.NewApp(h.Out, h.Logs, config)
}
