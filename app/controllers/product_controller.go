package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/kachra/app/services"
	"github.com/shashiranjanraj/kachra/pkg/ctx"
)

// ProductController serves the public catalog and the seller dashboard.
type ProductController struct {
	catalog *services.CatalogService
}

func NewProductController(catalog *services.CatalogService) *ProductController {
	return &ProductController{catalog: catalog}
}

// Index handles GET /api/products?q=.
func (h *ProductController) Index(c *ctx.Context) {
	ps, err := h.catalog.BrowseProducts(c.Context(), c.Query("q"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(ps)
}

func (h *ProductController) Show(c *ctx.Context) {
	p, err := h.catalog.GetProduct(c.Context(), c.Param("productId"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(p)
}

// Store handles POST /api/seller/products.
func (h *ProductController) Store(c *ctx.Context) {
	var in services.ListProductInput
	if !c.DecodeJSON(&in) {
		return
	}
	seller, _ := c.Identity()
	p, err := h.catalog.ListProduct(c.Context(), seller, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(p)
}

func (h *ProductController) Mine(c *ctx.Context) {
	seller, _ := c.Identity()
	ps, err := h.catalog.SellerProducts(c.Context(), seller)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(ps)
}

// Destroy handles DELETE /api/seller/products/{productId}.
func (h *ProductController) Destroy(c *ctx.Context) {
	seller, _ := c.Identity()
	if err := h.catalog.RemoveProduct(c.Context(), c.Param("productId"), seller); err != nil {
		c.Fail(err)
		return
	}
	c.Status(http.StatusNoContent)
}
