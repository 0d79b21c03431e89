package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/DoyleJ11/duel-engine/internal/config"
	"github.com/DoyleJ11/duel-engine/internal/httpapi"
	"github.com/DoyleJ11/duel-engine/internal/hub"
	"github.com/DoyleJ11/duel-engine/internal/logging"
	"github.com/DoyleJ11/duel-engine/internal/ws"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logging.New(cfg.Stage, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		// stderr/stdout syncs fail with EINVAL on some platforms
		if serr := log.Sync(); serr != nil && !errors.Is(serr, syscall.EINVAL) && !errors.Is(serr, syscall.ENOTTY) {
			err = multierr.Append(err, serr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The hub outlives the signal so lobbies can close their clients on shutdown.
	h := hub.NewHub(context.Background(), log)

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(h, ws.Options{
		OriginPatterns: cfg.AllowedOrigins,
		ClientBuffer:   cfg.ClientBuffer,
		Log:            log,
	}, log)

	srv := &http.Server{Addr: cfg.Addr(), Handler: handler}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("stage", cfg.Stage))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		// Stop taking requests first; handlers still in flight can reach the hub.
		err := srv.Shutdown(shutdownCtx)
		h.Send(hub.ShutdownHub{})
		return multierr.Combine(err, waitHub(shutdownCtx, h))
	})
	return g.Wait()
}

func waitHub(ctx context.Context, h *hub.Hub) error {
	select {
	case <-h.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("hub shutdown: %w", ctx.Err())
	}
}
