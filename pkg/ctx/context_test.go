package ctx_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kachra/pkg/auth"
	appctx "github.com/shashiranjanraj/kachra/pkg/ctx"
	"github.com/shashiranjanraj/kachra/pkg/errs"
)

func serve(h appctx.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	appctx.Wrap(h)(rec, req)
	return rec
}

func TestSuccessEnvelope(t *testing.T) {
	rec := serve(func(c *appctx.Context) {
		c.Success(map[string]any{"productId": "AB12C"})
	}, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":200,"data":{"productId":"AB12C"}}`, rec.Body.String())
}

func TestCreatedAndStatus(t *testing.T) {
	rec := serve(func(c *appctx.Context) { c.Created(map[string]string{"requestId": "r1"}) },
		httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(func(c *appctx.Context) { c.Status(http.StatusNoContent) },
		httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestFailUsesErrorKind(t *testing.T) {
	rec := serve(func(c *appctx.Context) {
		c.Fail(errs.Forbidden("negotiation.resolve", "only the seller can resolve this request"))
	}, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "only the seller")
	assert.Contains(t, rec.Body.String(), `"code":"forbidden"`)
}

func TestIdentityAndParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products/AB12C?q=scrap", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{Email: "b@x.com", Role: "buyer"}))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("productId", "AB12C")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	serve(func(c *appctx.Context) {
		id, ok := c.Identity()
		assert.True(t, ok)
		assert.Equal(t, "b@x.com", id.Email)
		assert.Equal(t, "AB12C", c.Param("productId"))
		assert.Equal(t, "scrap", c.Query("q"))
		c.Success(nil)
	}, req)
}

func TestBindJSON(t *testing.T) {
	type offer struct {
		Phone         string `json:"phone"         validate:"required"`
		ExpectedPrice string `json:"expectedPrice" validate:"required,numeric,gte=0"`
	}

	var got offer
	rec := serve(func(c *appctx.Context) {
		if c.BindJSON(&got) {
			c.Success(nil)
		}
	}, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"555","expectedPrice":"80"}`)))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "555", got.Phone)

	rec = serve(func(c *appctx.Context) {
		var in offer
		assert.False(t, c.BindJSON(&in))
	}, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"","expectedPrice":"-1"}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Errors, "phone")
	assert.Contains(t, body.Errors, "expectedPrice")

	rec = serve(func(c *appctx.Context) {
		var in offer
		assert.False(t, c.BindJSON(&in))
	}, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecodeJSONSkipsValidation(t *testing.T) {
	rec := serve(func(c *appctx.Context) {
		var in struct {
			Phone string `json:"phone" validate:"required"`
		}
		if c.DecodeJSON(&in) {
			c.Success(nil)
		}
	}, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
}
