package routes

import (
	"github.com/shashiranjanraj/kachra/app/controllers"
	"github.com/shashiranjanraj/kachra/app/models"
	"github.com/shashiranjanraj/kachra/pkg/ctx"
	"github.com/shashiranjanraj/kachra/pkg/middleware"
	"github.com/shashiranjanraj/kachra/pkg/rbac"
	"github.com/shashiranjanraj/kachra/pkg/router"
)

// Controllers groups the handlers mounted by RegisterAPI. Zero values are
// enough for listing routes.
type Controllers struct {
	Auth     *controllers.AuthController
	Products *controllers.ProductController
	Requests *controllers.RequestController
	Assist   *controllers.AssistController
}

func RegisterAPI(r *router.Router, c Controllers) {
	api := r.Group("/api")

	api.Post("/auth/signup", "auth.signup", ctx.Wrap(c.Auth.SignUp))
	api.Post("/auth/signin", "auth.signin", ctx.Wrap(c.Auth.SignIn))
	api.Get("/auth/me", "auth.me", ctx.Wrap(c.Auth.Me), middleware.AuthMiddleware)

	api.Get("/products", "products.index", ctx.Wrap(c.Products.Index))
	api.Get("/products/{productId}", "products.show", ctx.Wrap(c.Products.Show))

	// image generation stays public
	api.Post("/proxy", "assist.image", ctx.Wrap(c.Assist.Proxy))

	seller := api.Group("/seller", middleware.AuthMiddleware, rbac.HasRole(models.RoleSeller))
	seller.Post("/products", "seller.products.store", ctx.Wrap(c.Products.Store))
	seller.Get("/products", "seller.products.index", ctx.Wrap(c.Products.Mine))
	seller.Delete("/products/{productId}", "seller.products.destroy", ctx.Wrap(c.Products.Destroy))
	seller.Get("/requests", "seller.requests.index", ctx.Wrap(c.Requests.Inbox))
	seller.Post("/requests/{id}/accept", "seller.requests.accept", ctx.Wrap(c.Requests.Accept))
	seller.Post("/requests/{id}/deny", "seller.requests.deny", ctx.Wrap(c.Requests.Deny))

	buyer := api.Group("/buyer", middleware.AuthMiddleware, rbac.HasRole(models.RoleBuyer))
	buyer.Post("/requests", "buyer.requests.store", ctx.Wrap(c.Requests.Submit))
	buyer.Get("/requests", "buyer.requests.index", ctx.Wrap(c.Requests.History))

	assist := api.Group("/assist", middleware.AuthMiddleware)
	assist.Post("/description", "assist.description", ctx.Wrap(c.Assist.Description))
	assist.Post("/buyers", "assist.buyers", ctx.Wrap(c.Assist.Buyers))
	assist.Post("/demand", "assist.demand", ctx.Wrap(c.Assist.Demand))
	assist.Post("/raw-materials", "assist.raw_materials", ctx.Wrap(c.Assist.RawMaterials))
}
