// Package server owns the listen and shutdown lifecycle of the HTTP and
// gRPC servers.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/grpc"

	kgrpc "github.com/shashiranjanraj/kachra/pkg/grpc"
	"github.com/shashiranjanraj/kachra/pkg/logger"
)

const defaultShutdownTimeout = 15 * time.Second

type Config struct {
	HTTPAddr        string
	GRPCPort        string
	Handler         http.Handler
	Health          kgrpc.HealthCheck
	ShutdownTimeout time.Duration
}

// Run serves until ctx is done or the HTTP listener fails, then stops
// accepting work and waits for in-flight requests up to ShutdownTimeout.
func Run(ctx context.Context, cfg Config) error {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           cfg.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// image generation may take up to 90s upstream
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	var gs *grpc.Server
	if cfg.GRPCPort != "" {
		s, _, err := kgrpc.Start(cfg.GRPCPort, cfg.Health)
		if err != nil {
			return err
		}
		gs = s
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		kgrpc.Stop(gs)
		return fmt.Errorf("http: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout.String())
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	err := srv.Shutdown(sctx)
	kgrpc.Stop(gs)
	if err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}
