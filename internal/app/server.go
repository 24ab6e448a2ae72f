package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/specialistvlad/implgrid/internal/ctxlog"
	"github.com/specialistvlad/implgrid/internal/fragment"
	"github.com/specialistvlad/implgrid/internal/publish"
)

const shutdownTimeout = 5 * time.Second

// Handler returns the HTTP routes: health, metrics and pending fragments.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", a.healthHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(a.promReg, promhttp.HandlerOpts{}))
	r.Get("/traits", a.traitsHandler)
	r.Get("/"+publish.Prefix+"/*", a.fragmentHandler)
	return r
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

type traitView struct {
	Trait       string `json:"trait"`
	Path        string `json:"path"`
	Libraries   int    `json:"libraries"`
	Descriptors int    `json:"descriptors"`
}

// traitsHandler lists the snapshots waiting for pickup.
func (a *App) traitsHandler(w http.ResponseWriter, r *http.Request) {
	pending := a.pendingAll()
	views := make([]traitView, 0, len(pending))
	for _, reg := range pending {
		views = append(views, traitView{
			Trait:       reg.Trait().Name,
			Path:        publish.Prefix + "/" + reg.Trait().Path,
			Libraries:   reg.Len(),
			Descriptors: reg.DescriptorCount(),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(views); err != nil {
		a.logger.Error("Failed to encode trait list.", "error", err)
	}
}

// fragmentHandler serves the pending snapshot stored under the request path.
func (a *App) fragmentHandler(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	reg, ok := a.pending(key)
	if !ok {
		http.NotFound(w, r)
		return
	}
	body, err := fragment.Render(reg)
	if err != nil {
		a.logger.Error("Failed to render fragment.", "trait", reg.Trait().Name, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", fragment.ContentType)
	w.Write(body)
}

// startServer binds the configured port and serves Handler in the background.
func (a *App) startServer(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	addr := fmt.Sprintf(":%d", a.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: a.Handler(), ReadHeaderTimeout: 10 * time.Second}
	a.mu.Lock()
	a.httpServer = srv
	a.mu.Unlock()

	go func() {
		logger.Info("HTTP server starting.", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed unexpectedly.", "error", err)
		}
	}()
	return nil
}

func (a *App) closeServer(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.mu.Unlock()
	if srv == nil {
		logger.Debug("HTTP server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	logger.Info("Shutting down HTTP server.")
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed.", "error", err)
		return err
	}
	logger.Debug("HTTP server shut down gracefully.")
	return nil
}
