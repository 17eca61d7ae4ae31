package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"printkeeper/internal/handler"
	"printkeeper/internal/hub"
	"printkeeper/internal/service"
	"printkeeper/internal/watcher"
)

func newServeCmd(flags *flagValues) *cobra.Command {
	var skipDiscovery bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Settle, reconcile the queue set, then serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				if !skipDiscovery {
					a.startupPass(ctx)
				}
				if ctx.Err() != nil {
					return nil
				}
				return a.serve(ctx)
			})
		},
	}
	cmd.Flags().BoolVar(&skipDiscovery, "skip-discovery", false, "serve immediately without the startup settle and reconciliation pass")
	return cmd
}

// startupPass waits for devices to settle and runs one reconciliation pass.
// A failed pass is logged; the API still starts.
func (a *app) startupPass(ctx context.Context) {
	delay := a.cfg.Boot.Delay.Duration()
	a.logger.Info().Dur("delay", delay).Msg("Waiting for printers to settle")
	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}

	report, err := a.reconciler.Run(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("Startup reconciliation failed")
		return
	}
	a.logger.Info().Str("pass_id", report.PassID).Msg(report.Summary())
}

func (a *app) serve(ctx context.Context) error {
	sseHub := hub.New(a.logger)
	go sseHub.Run()
	defer sseHub.Stop()

	eventChan := make(chan service.Event, 100)
	a.events.Subscribe(eventChan)
	go func() {
		for {
			select {
			case event := <-eventChan:
				sseHub.Publish(string(event.Type), event.Payload)
			case <-ctx.Done():
				return
			}
		}
	}()

	// a failed write can move the registry to its fallback; the watcher follows
	moves := make(chan string, 1)
	a.registry.OnRelocate(func(path string) {
		select {
		case moves <- path:
		default:
		}
	})
	registryWatcher := watcher.New(a.registry.Path(), func() {
		records := a.registry.Reload(ctx)
		a.logger.Info().Int("records", len(records)).Msg("Registry reloaded after edit")
	}, a.logger)
	go func() {
		if err := registryWatcher.Follow(ctx, moves); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn().Err(err).Msg("Registry edits will not be picked up until restart")
		}
	}()

	printers := handler.NewPrinterHandler(handler.Deps{
		Queues:     a.cups,
		Readiness:  a.gate,
		Dispatcher: a.dispatcher,
		Reconciler: a.reconciler,
		Registry:   a.registry,
		History:    a.history,
	}, a.retryPolicy(), a.cfg.Readiness.Remediate, a.logger)

	mux := http.NewServeMux()
	printers.Register(mux)
	mux.Handle("GET /events", sseHub)

	httpLog := a.logger.With().Str("component", "http").Logger()
	server := &http.Server{
		Addr: a.cfg.Addr(),
		Handler: handler.Chain(mux,
			handler.Recover(httpLog),
			handler.CORS(),
			handler.Logger(httpLog),
		),
		ReadTimeout: 10 * time.Second,
		// event streams stay open; a write deadline would cut them
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", server.Addr).Msg("Server listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info().Msg("Shutting down server...")
	sseHub.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("Server shutdown error")
	}

	a.logger.Info().Msg("Server stopped")
	return nil
}
