package seeders

import (
	"context"

	"github.com/shashiranjanraj/kachra/app/services"
	"github.com/shashiranjanraj/kachra/pkg/auth"
	"github.com/shashiranjanraj/kachra/pkg/errs"
)

// Demo account credentials. Development only.
const (
	DemoSellerEmail = "demo-seller@kachra.local"
	DemoBuyerEmail  = "demo-buyer@kachra.local"
	DemoPassword    = "kachra-demo-pass"
)

func init() {
	Register("demo", SeedDemo)
}

var demoListings = []services.ListProductInput{
	{Name: "Copper Wire Offcuts", Category: "Metals", Quantity: "40", Unit: "kg", Price: "450", Type: "Waste Product",
		Description: "Stripped offcuts from panel wiring, mixed gauges."},
	{Name: "Teak Sawdust", Category: "Wood", Quantity: "12", Unit: "bags", Price: "80", Type: "By Product",
		Description: "Fine sawdust from furniture finishing, dry and bagged."},
	{Name: "PET Bottle Flakes", Category: "Plastics", Quantity: "300", Unit: "kg", Price: "32.50", Type: "Waste Product",
		Description: "Washed clear PET flakes ready for extrusion."},
}

// SeedDemo creates a demo seller and buyer and lists a few products for the
// seller. A seller who already has listings is left alone.
func SeedDemo(ctx context.Context, d Deps) error {
	seller, err := ensureUser(ctx, d.Auth, "demo-yard", DemoSellerEmail, "seller", "Demo Yard")
	if err != nil {
		return err
	}
	if _, err := ensureUser(ctx, d.Auth, "demo-maker", DemoBuyerEmail, "buyer", ""); err != nil {
		return err
	}

	existing, err := d.Catalog.SellerProducts(ctx, seller)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, in := range demoListings {
		if _, err := d.Catalog.ListProduct(ctx, seller, in); err != nil {
			return err
		}
	}
	return nil
}

func ensureUser(ctx context.Context, a *services.AuthService, username, email, role, company string) (auth.Identity, error) {
	sess, err := a.SignUp(ctx, services.SignUpInput{
		Username:             username,
		Email:                email,
		Password:             DemoPassword,
		PasswordConfirmation: DemoPassword,
		Role:                 role,
		CompanyName:          company,
	})
	if errs.IsKind(err, errs.KindConflict) {
		sess, err = a.SignIn(ctx, services.SignInInput{Email: email, Password: DemoPassword})
	}
	if err != nil {
		return auth.Identity{}, err
	}
	return auth.Identity{UserID: sess.User.ID, Email: sess.User.Email, Role: sess.User.Role}, nil
}
