package controllers

import (
	"github.com/shashiranjanraj/kachra/app/services"
	"github.com/shashiranjanraj/kachra/pkg/ctx"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

// SignUp handles POST /api/auth/signup.
func (h *AuthController) SignUp(c *ctx.Context) {
	var in services.SignUpInput
	if !c.DecodeJSON(&in) {
		return
	}
	sess, err := h.auth.SignUp(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(sess)
}

// SignIn handles POST /api/auth/signin.
func (h *AuthController) SignIn(c *ctx.Context) {
	var in services.SignInInput
	if !c.DecodeJSON(&in) {
		return
	}
	sess, err := h.auth.SignIn(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(sess)
}

// Me handles GET /api/auth/me.
func (h *AuthController) Me(c *ctx.Context) {
	id, _ := c.Identity()
	u, err := h.auth.CurrentUser(c.Context(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(u)
}
