package app

import (
	"context"
	"fmt"
	"path"

	"github.com/specialistvlad/implgrid/internal/ctxlog"
	"github.com/specialistvlad/implgrid/internal/fragment"
	"github.com/specialistvlad/implgrid/internal/handoff"
	"github.com/specialistvlad/implgrid/internal/implreg"
	"github.com/specialistvlad/implgrid/internal/manifest"
	"github.com/specialistvlad/implgrid/internal/publish"
)

// LoadCatalog reads the configured manifests.
func (a *App) LoadCatalog(ctx context.Context) (*implreg.Catalog, error) {
	ctx = a.withLogger(ctx)
	if a.config.ManifestPath == "" {
		return nil, inputError(fmt.Errorf("manifest: %w", ErrMissingPath))
	}
	catalog, err := manifest.NewLoader(a.config.Vars).LoadPath(ctx, a.config.ManifestPath)
	if err != nil {
		return nil, inputError(fmt.Errorf("failed to load manifests: %w", err))
	}
	return catalog, nil
}

// sinks builds the registration callback from the configured outputs. It
// returns nil when no output is configured, which makes every hand-off take
// the buffer route.
func (a *App) sinks(ctx context.Context) (handoff.Receiver, error) {
	if a.receiver != nil {
		return a.receiver, nil
	}
	var multi publish.Multi
	if a.config.OutDir != "" {
		multi = append(multi, publish.NewDirSink(a.config.OutDir))
	}
	if a.config.S3.Bucket != "" {
		client, err := publish.NewS3Client(ctx, a.config.S3)
		if err != nil {
			return nil, err
		}
		multi = append(multi, publish.NewS3Sink(client, a.config.S3.Bucket, a.config.S3.Prefix))
	}
	if len(multi) == 0 {
		return nil, nil
	}
	return multi, nil
}

// Render loads the manifests and hands every registry off. Registries with
// no receiver to take them are picked up from their pending slot and written
// to the command output.
func (a *App) Render(ctx context.Context) error {
	ctx = a.withLogger(ctx)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("App.Render started.")

	catalog, err := a.LoadCatalog(ctx)
	if err != nil {
		return err
	}
	receiver, err := a.sinks(ctx)
	if err != nil {
		return err
	}
	if err := a.deliver(ctx, catalog, receiver); err != nil {
		return err
	}

	for _, reg := range a.pendingAll() {
		fmt.Fprintf(a.outW, "// %s\n", path.Join(publish.Prefix, reg.Trait().Path))
		if err := fragment.Write(a.outW, reg); err != nil {
			return fmt.Errorf("failed to write pending fragment for %q: %w", reg.Trait().Name, err)
		}
	}

	logger.Debug("App.Render finished.")
	return nil
}

// Serve loads the manifests, buffers every registry and serves the pending
// fragments over HTTP until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	ctx = a.withLogger(ctx)
	logger := ctxlog.FromContext(ctx)

	catalog, err := a.LoadCatalog(ctx)
	if err != nil {
		return err
	}
	if err := a.deliver(ctx, catalog, nil); err != nil {
		return err
	}

	if err := a.startServer(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	logger.Info("Shutdown requested.")
	return a.closeServer(context.WithoutCancel(ctx))
}
