package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/kachra/app/routes"
	"github.com/shashiranjanraj/kachra/config"
	"github.com/shashiranjanraj/kachra/internal/kernel"
	"github.com/shashiranjanraj/kachra/pkg/app"
	"github.com/shashiranjanraj/kachra/pkg/logger"
	"github.com/shashiranjanraj/kachra/pkg/router"
)

const closeTimeout = 10 * time.Second

// kachra serve
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run"},
	Short:   "Start the HTTP and gRPC servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		k, err := kernel.Boot(ctx)
		if err != nil {
			return err
		}
		defer func() {
			cctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			if err := k.Shutdown(cctx); err != nil {
				logger.Error("shutdown incomplete", "error", err)
			}
		}()

		return app.New().
			Routes(func(r *router.Router) { routes.RegisterAPI(r, k.Controllers) }).
			Check("store", k.Ping).
			Check("cache", k.CachePing()).
			RateLimit(config.RateLimit()).
			Serve(ctx, app.Ports{HTTP: config.AppPort(), GRPC: config.GRPCPort()})
	},
}

// kachra route:list
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered named routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.New().
			Routes(func(r *router.Router) { routes.RegisterAPI(r, routes.Controllers{}) }).
			PrintRoutes(os.Stdout)
	},
}
