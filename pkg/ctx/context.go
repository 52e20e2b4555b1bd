// Package ctx provides the request context handlers are written against.
//
//	func (h *ProductController) Show(c *ctx.Context) {
//	    p, err := h.catalog.GetProduct(c.Context(), c.Param("productId"))
//	    if err != nil {
//	        c.Fail(err)
//	        return
//	    }
//	    c.Success(p)
//	}
//
//	router.Get("/products/{productId}", "products.show", ctx.Wrap(h.Show))
package ctx

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/kachra/pkg/auth"
	"github.com/shashiranjanraj/kachra/pkg/bind"
	"github.com/shashiranjanraj/kachra/pkg/errs"
	"github.com/shashiranjanraj/kachra/pkg/logger"
	"github.com/shashiranjanraj/kachra/pkg/response"
	"github.com/shashiranjanraj/kachra/pkg/validate"
)

// HandlerFunc is the context-aware handler signature.
type HandlerFunc func(c *Context)

// Wrap converts a HandlerFunc to a standard http.HandlerFunc.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := pool.Get().(*Context)
		c.W, c.R = w, r
		defer func() {
			c.W, c.R = nil, nil
			pool.Put(c)
		}()
		h(c)
	}
}

// Context wraps a request/response pair. It is only valid inside the
// handler it was passed to.
type Context struct {
	W http.ResponseWriter
	R *http.Request
}

var pool = sync.Pool{New: func() any { return new(Context) }}

// Param returns a URL path parameter.
func (c *Context) Param(key string) string { return chi.URLParam(c.R, key) }

// Query returns a query-string value, or "".
func (c *Context) Query(key string) string { return c.R.URL.Query().Get(key) }

// Context returns the request context.
func (c *Context) Context() context.Context { return c.R.Context() }

// Log returns the request-scoped logger.
func (c *Context) Log() *slog.Logger { return logger.WithCtx(c.R.Context()) }

// Identity returns the authenticated caller. Routes behind AuthMiddleware
// always have one.
func (c *Context) Identity() (auth.Identity, bool) { return auth.FromCtx(c.R.Context()) }

// BindJSON decodes the body into dest and validates it. On failure it
// answers 400 (malformed) or 422 (invalid) and returns false.
//
//	var in productPrompt
//	if !c.BindJSON(&in) {
//	    return
//	}
func (c *Context) BindJSON(dest any) bool {
	fields, err := bind.JSON(c.R, dest)
	if err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	if validate.HasErrors(fields) {
		c.Fail(errs.Validation("", fields))
		return false
	}
	return true
}

// DecodeJSON decodes the body without validating it, for handlers whose
// service validates.
func (c *Context) DecodeJSON(dest any) bool {
	if err := bind.Decode(c.R, dest); err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// Status writes a bodiless response.
func (c *Context) Status(code int) { c.W.WriteHeader(code) }

// JSON writes v as-is.
func (c *Context) JSON(code int, v any) {
	c.W.Header().Set("Content-Type", "application/json")
	c.W.WriteHeader(code)
	json.NewEncoder(c.W).Encode(v) //nolint:errcheck
}

// Success sends {"status":200,"data":...}.
func (c *Context) Success(data any) {
	c.JSON(http.StatusOK, response.Envelope{Status: http.StatusOK, Data: data})
}

// Created sends {"status":201,"data":...}.
func (c *Context) Created(data any) {
	c.JSON(http.StatusCreated, response.Envelope{Status: http.StatusCreated, Data: data})
}

// Error sends an envelope carrying only a message.
func (c *Context) Error(code int, message string) {
	c.JSON(code, response.Envelope{Status: code, Message: message})
}

// Fail maps a service error onto its status code. Unclassified errors are
// logged here; integrity failures are logged where they happen.
func (c *Context) Fail(err error) {
	switch errs.KindOf(err) {
	case errs.KindUnknown:
		c.Log().Error("request failed", "error", err)
	case errs.KindUpstream, errs.KindTimeout:
		c.Log().Warn("dependency failed", "error", err)
	}
	response.Fail(c.W, err)
}
