package app

import (
	"context"

	"github.com/shashiranjanraj/kachra/internal/server"
)

// Ports names the listen ports. An empty GRPC port disables the gRPC
// health endpoint.
type Ports struct {
	HTTP string
	GRPC string
}

// Serve runs until ctx is cancelled, then drains both servers.
func (a *Application) Serve(ctx context.Context, ports Ports) error {
	return server.Run(ctx, server.Config{
		HTTPAddr: ":" + ports.HTTP,
		GRPCPort: ports.GRPC,
		Handler:  a.Handler(),
		Health:   a.healthy,
	})
}
