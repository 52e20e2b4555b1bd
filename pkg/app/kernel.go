package app

import (
	"context"
	"net/http"
	"time"

	"github.com/shashiranjanraj/kachra/pkg/metrics"
	"github.com/shashiranjanraj/kachra/pkg/middleware"
	"github.com/shashiranjanraj/kachra/pkg/reqid"
	"github.com/shashiranjanraj/kachra/pkg/response"
	"github.com/shashiranjanraj/kachra/pkg/router"
)

const healthTimeout = 2 * time.Second

// Handler builds the HTTP handler: the global middleware stack, /health,
// /metrics and every registered route.
func (a *Application) Handler() http.Handler {
	r := router.New()

	// Outermost first. Metrics see the full latency, the request id exists
	// before anything logs, and rejected callers are still counted.
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.DefaultCORSOptions()))
	r.Use(middleware.RateLimit(a.rateLimit, time.Minute))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { response.NotFound(w) })
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.HandleFunc("/metrics", metrics.Handler())
	r.Get("/health", "health", a.health)

	for _, fn := range a.routesFns {
		fn(r)
	}
	return r.Handler()
}

func (a *Application) health(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(a.checks))
	for _, c := range a.checks {
		if err := c.fn(ctx); err != nil {
			checks[c.name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[c.name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	response.JSON(w, status, map[string]any{"status": state, "checks": checks})
}
