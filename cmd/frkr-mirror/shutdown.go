package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/frkr-io/frkr-mirror/internal/observability"
)

// shutdownTimeout bounds draining of proxied requests and in-flight mirrors.
const shutdownTimeout = 30 * time.Second

// run serves until ctx is cancelled, SIGINT or SIGTERM arrives, or a server
// fails, and then shuts everything down.
func run(ctx context.Context, app *application, logger observability.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)

	if err := serve(app.server, "proxy", errCh, logger); err != nil {
		return err
	}
	if app.metricsServer != nil {
		if err := serve(app.metricsServer, "metrics", errCh, logger); err != nil {
			_ = app.server.Close()
			return err
		}
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case serveErr = <-errCh:
		logger.Error("server failed", observability.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return errors.Join(serveErr, app.shutdown(shutdownCtx, logger))
}

// serve binds srv's address and serves on a goroutine. Bind errors are
// returned directly; later serve errors are sent on errCh.
func serve(srv *http.Server, name string, errCh chan<- error, logger observability.Logger) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	srv.Addr = ln.Addr().String()

	logger.Info("starting server",
		observability.String("name", name),
		observability.String("address", srv.Addr),
	)

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return nil
}

// shutdown stops accepting proxied requests, drains in-flight mirrors and
// stops the metrics server.
func (app *application) shutdown(ctx context.Context, logger observability.Logger) error {
	var errs []error

	logger.Info("stopping proxy server")
	if err := app.server.Shutdown(ctx); err != nil {
		logger.Error("failed to stop proxy server gracefully", observability.Error(err))
		errs = append(errs, err)
	}

	logger.Info("draining mirrors")
	if err := app.mirror.Close(ctx); err != nil {
		logger.Error("failed to drain mirrors", observability.Error(err))
		errs = append(errs, err)
	}

	if app.metricsServer != nil {
		logger.Info("stopping metrics server")
		if err := app.metricsServer.Shutdown(ctx); err != nil {
			logger.Error("failed to stop metrics server gracefully", observability.Error(err))
			errs = append(errs, err)
		}
	}

	logger.Info("frkr-mirror stopped")
	return errors.Join(errs...)
}
