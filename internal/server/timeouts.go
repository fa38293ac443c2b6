// internal/server/timeouts.go
//
// HTTP server helper with robust timeouts and graceful shutdown.
//
// Production hardening recommends:
//
//   • ReadHeaderTimeout – abort slow-loris headers (5 s)
//   • ReadTimeout       – cap body upload time (10 s)
//   • WriteTimeout      – cap total response time (15 s)
//   • IdleTimeout       – close keep-alives on idle clients (60 s)
//
// This helper centralises those defaults so cmd/gateway doesn’t repeat
// boilerplate.

package server

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ShutdownGrace bounds how long in-flight requests may finish on shutdown.
const ShutdownGrace = 10 * time.Second

// New constructs an *http.Server with sensible defaults.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Run serves until ctx is cancelled, then drains connections for at most
// ShutdownGrace.  A clean shutdown returns nil.
func Run(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
