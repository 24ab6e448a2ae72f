package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/specialistvlad/implgrid/internal/ctxlog"
	"github.com/specialistvlad/implgrid/internal/executor"
	"github.com/specialistvlad/implgrid/internal/handoff"
	"github.com/specialistvlad/implgrid/internal/implreg"
	"github.com/specialistvlad/implgrid/internal/metrics"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer // user-facing output: picked-up fragments, job tables
	logger  *slog.Logger
	config  *Config
	promReg *prometheus.Registry
	metrics *metrics.Metrics

	mu         sync.Mutex
	slots      map[string]*handoff.Slot // keyed by fragment path
	order      []string
	receiver   handoff.Receiver
	shell      executor.Shell
	httpServer *http.Server
}

// NewApp is the constructor for the main application. Logs go to logW,
// command output to outW.
func NewApp(outW, logW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())

	return &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		promReg: promReg,
		metrics: metrics.New(promReg),
		slots:   make(map[string]*handoff.Slot),
	}
}

// WithReceiver overrides the registration callback built from the
// configured sinks. It is used by tests and embedding programs.
func (a *App) WithReceiver(r handoff.Receiver) *App {
	a.receiver = r
	return a
}

// WithShell overrides the shell matrix jobs run through.
func (a *App) WithShell(s executor.Shell) *App {
	a.shell = s
	return a
}

// Metrics returns the application's collectors.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// withLogger returns ctx carrying the application logger.
func (a *App) withLogger(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// deliver hands every registry of catalog to a fresh slot. Slots with a
// receiver register immediately; the rest keep the snapshot pending.
func (a *App) deliver(ctx context.Context, catalog *implreg.Catalog, receiver handoff.Receiver) error {
	logger := ctxlog.FromContext(ctx)

	for _, reg := range catalog.Registries() {
		slot := handoff.NewSlot(a.metrics)
		if receiver != nil {
			slot.Attach(receiver)
		}

		key := reg.Trait().Path
		a.mu.Lock()
		if _, exists := a.slots[key]; exists {
			a.mu.Unlock()
			return inputError(fmt.Errorf("trait %q: fragment path %q is already used by another trait", reg.Trait().Name, key))
		}
		a.order = append(a.order, key)
		a.slots[key] = slot
		a.mu.Unlock()

		outcome, err := slot.Deliver(ctx, reg)
		if err != nil {
			return err
		}
		logger.Info("Implementors handed off.", "trait", reg.Trait().Name, "outcome", outcome.String(), "libraries", reg.Len())
	}
	return nil
}

// pending returns the buffered registry stored under a fragment path.
func (a *App) pending(path string) (*implreg.Registry, bool) {
	a.mu.Lock()
	slot, ok := a.slots[path]
	a.mu.Unlock()
	if !ok {
		return nil, false
	}
	return slot.Pending()
}

// pendingAll returns every buffered registry in delivery order.
func (a *App) pendingAll() []*implreg.Registry {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []*implreg.Registry
	for _, key := range a.order {
		if reg, ok := a.slots[key].Pending(); ok {
			out = append(out, reg)
		}
	}
	return out
}
