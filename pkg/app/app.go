// Package app assembles the HTTP handler and runs the HTTP and gRPC
// servers. It holds no marketplace code: routes and health checks are
// supplied by the caller.
//
//	err := app.New().
//	    Routes(func(r *router.Router) { routes.RegisterAPI(r, ctrls) }).
//	    Check("store", store.Ping).
//	    Serve(ctx, app.Ports{HTTP: "8080", GRPC: "9090"})
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/shashiranjanraj/kachra/pkg/router"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type namedCheck struct {
	name string
	fn   HealthCheck
}

// Application is the central configuration object. Build one with New,
// attach routes and checks, then call Serve or Handler.
type Application struct {
	routesFns []func(*router.Router)
	checks    []namedCheck
	rateLimit int
}

func New() *Application {
	return &Application{rateLimit: 200}
}

// Routes registers a route-registration callback. Callbacks run in order
// when the handler is built.
func (a *Application) Routes(fn func(*router.Router)) *Application {
	a.routesFns = append(a.routesFns, fn)
	return a
}

// Check adds a dependency probe to /health and the gRPC health service.
func (a *Application) Check(name string, fn HealthCheck) *Application {
	if fn != nil {
		a.checks = append(a.checks, namedCheck{name: name, fn: fn})
	}
	return a
}

// RateLimit sets the per-IP request budget per minute. Zero or less keeps
// the default of 200.
func (a *Application) RateLimit(perMinute int) *Application {
	if perMinute > 0 {
		a.rateLimit = perMinute
	}
	return a
}

// RouteList returns every API route in registration order.
func (a *Application) RouteList() []router.RouteInfo {
	r := router.New()
	for _, fn := range a.routesFns {
		fn(r)
	}
	return r.Routes()
}

// healthy runs every check and joins the failures.
func (a *Application) healthy(ctx context.Context) error {
	var failed []error
	for _, c := range a.checks {
		if err := c.fn(ctx); err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	return errors.Join(failed...)
}
