package app_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kachra/pkg/app"
	"github.com/shashiranjanraj/kachra/pkg/router"
)

func ping(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHandlerMountsRoutesAndRequestID(t *testing.T) {
	h := app.New().
		Routes(func(r *router.Router) { r.Get("/api/ping", "ping", ping) }).
		Handler()

	rec := serve(h, http.MethodGet, "/api/ping")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = serve(h, http.MethodGet, "/api/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not found")

	rec = serve(h, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthReportsFailingChecks(t *testing.T) {
	healthy := app.New().Check("store", func(context.Context) error { return nil }).Handler()
	rec := serve(healthy, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"store":"ok"}}`, rec.Body.String())

	degraded := app.New().
		Check("store", func(context.Context) error { return nil }).
		Check("cache", func(context.Context) error { return errors.New("connection refused") }).
		Check("skipped", nil).
		Handler()
	rec = serve(degraded, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"store":"ok","cache":"connection refused"}}`, rec.Body.String())
}

func TestRateLimit(t *testing.T) {
	h := app.New().
		RateLimit(2).
		Routes(func(r *router.Router) { r.Get("/api/ping", "ping", ping) }).
		Handler()

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusNoContent, serve(h, http.MethodGet, "/api/ping").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, serve(h, http.MethodGet, "/api/ping").Code)
}

func TestPrintRoutesSorted(t *testing.T) {
	a := app.New().Routes(func(r *router.Router) {
		r.Post("/api/b", "b.store", ping)
		r.Get("/api/b", "b.index", ping)
		r.Get("/api/a", "a.index", ping)
	})

	var out bytes.Buffer
	require.NoError(t, a.PrintRoutes(&out))
	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 5)
	assert.Contains(t, string(lines[2]), "/api/a")
	assert.Contains(t, string(lines[3]), "GET")
	assert.Contains(t, string(lines[4]), "POST")

	out.Reset()
	require.NoError(t, app.New().PrintRoutes(&out))
	assert.Equal(t, "No routes registered.\n", out.String())
}

type fakeIndexes map[string][]string

func (f fakeIndexes) ListIndexes(_ context.Context, coll string) ([]string, error) {
	names, ok := f[coll]
	if !ok {
		return nil, errors.New("no such collection")
	}
	return names, nil
}

func TestPrintIndexes(t *testing.T) {
	ix := fakeIndexes{"products": {"_id_", "productId_unique"}}

	var out bytes.Buffer
	require.NoError(t, app.PrintIndexes(context.Background(), &out, ix, []string{"products"}))
	assert.Contains(t, out.String(), "productId_unique")

	err := app.PrintIndexes(context.Background(), &out, ix, []string{"users"})
	assert.ErrorContains(t, err, "users")
}
