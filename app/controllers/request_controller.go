package controllers

import (
	"github.com/shashiranjanraj/kachra/app/models"
	"github.com/shashiranjanraj/kachra/app/services"
	"github.com/shashiranjanraj/kachra/pkg/ctx"
)

// RequestController exposes the offer lifecycle: buyers submit and track
// offers, sellers work through their inbox.
type RequestController struct {
	negotiation *services.NegotiationService
}

func NewRequestController(negotiation *services.NegotiationService) *RequestController {
	return &RequestController{negotiation: negotiation}
}

// Submit handles POST /api/buyer/requests.
func (h *RequestController) Submit(c *ctx.Context) {
	var in services.SubmitRequestInput
	if !c.DecodeJSON(&in) {
		return
	}
	buyer, _ := c.Identity()
	id, err := h.negotiation.SubmitRequest(c.Context(), buyer, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(map[string]string{"requestId": id})
}

// History handles GET /api/buyer/requests.
func (h *RequestController) History(c *ctx.Context) {
	buyer, _ := c.Identity()
	hs, err := h.negotiation.BuyerHistory(c.Context(), buyer)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(hs)
}

// Inbox handles GET /api/seller/requests.
func (h *RequestController) Inbox(c *ctx.Context) {
	seller, _ := c.Identity()
	rs, err := h.negotiation.SellerRequests(c.Context(), seller)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(rs)
}

func (h *RequestController) Accept(c *ctx.Context) { h.resolve(c, models.Accept) }

func (h *RequestController) Deny(c *ctx.Context) { h.resolve(c, models.Reject) }

func (h *RequestController) resolve(c *ctx.Context, d models.Decision) {
	seller, _ := c.Identity()
	res, err := h.negotiation.ResolveRequest(c.Context(), seller, c.Param("id"), d)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(res)
}
