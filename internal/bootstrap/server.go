package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-authgate/consentgate/internal/config"
	"github.com/go-authgate/consentgate/internal/logger"

	"github.com/appleboy/graceful"
)

// createHTTPServer creates the HTTP server instance
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// addServerRunningJob adds the HTTP server running job
func addServerRunningJob(m *graceful.Manager, srv *http.Server) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Named("bootstrap").Fatal("failed to start server", logger.Err(err))
			}
		}()
		<-ctx.Done()
		return nil
	})
}

// addServerShutdownJob stops the HTTP server, then runs release so that no
// in-flight request sees closed infrastructure.
func addServerShutdownJob(m *graceful.Manager, srv *http.Server, release func()) {
	m.AddShutdownJob(func() error {
		log := logger.Named("bootstrap")
		defer func() {
			release()
			_ = logger.Sync()
		}()

		log.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("server forced to shutdown", logger.Err(err))
			return err
		}

		log.Info("server exited")
		return nil
	})
}
