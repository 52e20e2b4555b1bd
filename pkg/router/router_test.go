package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kachra/pkg/router"
)

func TestGroupMiddlewareAndNames(t *testing.T) {
	r := router.New()

	var order []string
	mark := func(tag string) router.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				order = append(order, tag)
				next.ServeHTTP(w, req)
			})
		}
	}

	seller := r.Group("/api").Group("/seller", mark("auth"), mark("role"))
	seller.Delete("/products/{productId}", "seller.products.destroy", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/seller/products/AB12C", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"auth", "role"}, order)

	url, err := r.URL("seller.products.destroy", map[string]string{"productId": "AB12C"})
	require.NoError(t, err)
	assert.Equal(t, "/api/seller/products/AB12C", url)

	_, err = r.URL("seller.products.destroy", nil)
	assert.Error(t, err)

	routes := r.Routes()
	require.Len(t, routes, 1)
	assert.Equal(t, router.RouteInfo{Method: http.MethodDelete, Path: "/api/seller/products/{productId}", Name: "seller.products.destroy"}, routes[0])
}
