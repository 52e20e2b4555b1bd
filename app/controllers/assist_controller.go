package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/kachra/app/services"
	"github.com/shashiranjanraj/kachra/pkg/bind"
	"github.com/shashiranjanraj/kachra/pkg/ctx"
	"github.com/shashiranjanraj/kachra/pkg/errs"
	"github.com/shashiranjanraj/kachra/pkg/fal"
)

type productPrompt struct {
	Name     string `json:"name"     validate:"required,max=120"`
	Category string `json:"category" validate:"nullable,max=80"`
}

type descriptionPrompt struct {
	Description string `json:"description" validate:"required,max=4000"`
}

// AssistController fronts the seller tools backed by generative models.
type AssistController struct {
	assist *services.AssistService
}

func NewAssistController(assist *services.AssistService) *AssistController {
	return &AssistController{assist: assist}
}

// Description handles POST /api/assist/description.
func (h *AssistController) Description(c *ctx.Context) {
	var in productPrompt
	if !c.BindJSON(&in) {
		return
	}
	text, err := h.assist.Describe(c.Context(), in.Name, in.Category)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(map[string]string{"description": text})
}

// Buyers handles POST /api/assist/buyers.
func (h *AssistController) Buyers(c *ctx.Context) {
	var in productPrompt
	if !c.BindJSON(&in) {
		return
	}
	buyers, err := h.assist.PotentialBuyers(c.Context(), in.Name, in.Category)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(buyers)
}

// Demand handles POST /api/assist/demand.
func (h *AssistController) Demand(c *ctx.Context) {
	var in productPrompt
	if !c.BindJSON(&in) {
		return
	}
	score, err := h.assist.Demand(c.Context(), in.Name)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(map[string]int{"demand": score})
}

// RawMaterials handles POST /api/assist/raw-materials.
func (h *AssistController) RawMaterials(c *ctx.Context) {
	var in descriptionPrompt
	if !c.BindJSON(&in) {
		return
	}
	rm, err := h.assist.RawMaterials(c.Context(), in.Description)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(rm)
}

// Proxy handles POST /api/proxy. It answers with fal's result as-is, or
// 500 {"error": message} on any failure.
func (h *AssistController) Proxy(c *ctx.Context) {
	var req fal.Request
	if err := bind.Decode(c.R, &req); err != nil {
		c.JSON(http.StatusInternalServerError, map[string]string{"error": fal.MsgFailed})
		return
	}
	res, err := h.assist.GenerateImage(c.Context(), req)
	if err != nil {
		c.Log().Warn("image generation failed", "error", err)
		c.JSON(http.StatusInternalServerError, map[string]string{"error": proxyMessage(err)})
		return
	}
	c.JSON(http.StatusOK, res)
}

func proxyMessage(err error) string {
	if msg := errs.MessageOf(err); errs.IsKind(err, errs.KindUpstream) && msg != "" {
		return msg
	}
	return fal.MsgFailed
}
