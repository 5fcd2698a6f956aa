package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/shinji-kodama/brick/internal/model"
)

const (
	// changeBuffer bounds the change events waiting to be printed.
	changeBuffer = 64

	shutdownTimeout = 5 * time.Second
)

// runServe starts the dev server and prints every changed file until ctx
// is cancelled.
func (a *app) runServe(ctx context.Context) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	srv, cleanup, err := a.env.DevServer(cfg, a.logger)
	if err != nil {
		return model.EngineError("Failed to start the dev server", err)
	}
	changes, unsubscribe := srv.Subscribe(changeBuffer)

	// Stop is safe on a server that never bound its port.
	defer func() {
		unsubscribe()
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Stop(stopCtx); err != nil {
			a.logger.Warn().Err(err).Msg("dev server did not stop cleanly")
		}
		cleanup()
	}()

	if err := srv.Start(ctx); err != nil {
		return model.EngineError("Failed to start the dev server", err)
	}

	port := srv.Port()
	local := fmt.Sprintf("http://%s:%d/", cfg.Serve.Hostname, port)

	a.printer.Blank()
	a.printer.Banner("Brick component served!")
	a.printer.Blank()
	a.printer.URL("Local:", local)
	a.printer.URL("Network:", fmt.Sprintf("http://%s:%d/", a.env.LocalIPv4(), port))
	a.printer.Blank()
	a.printer.Notice("Watching for changes...")

	if cfg.Serve.Open {
		if err := a.env.OpenBrowser(local); err != nil {
			a.logger.Warn().Err(err).Msg("could not open a browser")
		}
	}

	stopped := make(chan error, 1)
	go func() { stopped <- srv.Wait() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-stopped:
			if err != nil {
				return model.EngineError("Dev server stopped", err)
			}
			return nil
		case c, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			a.printer.Changed(c.RelPath)
		}
	}
}
