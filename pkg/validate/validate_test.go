package validate_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/kachra/pkg/validate"
)

type signupInput struct {
	Username             string `json:"username"              validate:"required,min=2,max=50"`
	Email                string `json:"email"                 validate:"required,email"`
	Password             string `json:"password"              validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"confirmed"`
	Role                 string `json:"role"                  validate:"required,in=buyer,seller"`
	Website              string `json:"website"               validate:"nullable,url"`
}

type offerInput struct {
	ProductID     string `json:"productId"     validate:"required,size=5,alpha_num"`
	OfferedPrice  string `json:"offeredPrice"  validate:"required,money"`
	ExpectedPrice string `json:"expectedPrice" validate:"required,numeric,gte=0"`
	Phone         string `json:"phone"         validate:"required,max=20"`
}

func TestValidInput(t *testing.T) {
	errs := validate.Struct(signupInput{
		Username:             "green_recyclers",
		Email:                "ops@green.example",
		Password:             "secret123",
		PasswordConfirmation: "secret123",
		Role:                 "seller",
	})
	assert.False(t, validate.HasErrors(errs), "unexpected errors: %v", errs)
}

func TestRequiredFails(t *testing.T) {
	errs := validate.Struct(signupInput{})
	assert.True(t, validate.HasErrors(errs))
	assert.Contains(t, errs, "username")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "role")
	assert.NotContains(t, errs, "website")
}

func TestEmailRule(t *testing.T) {
	type in struct {
		Email string `json:"email" validate:"required,email"`
	}
	assert.Contains(t, validate.Struct(in{Email: "not-an-email"}), "email")
	assert.False(t, validate.HasErrors(validate.Struct(in{Email: "buyer@example.com"})))
}

func TestInRule(t *testing.T) {
	type in struct {
		Role string `json:"role" validate:"required,in=buyer,seller"`
	}
	assert.True(t, validate.HasErrors(validate.Struct(in{Role: "admin"})))
	assert.False(t, validate.HasErrors(validate.Struct(in{Role: "buyer"})))
}

func TestConfirmedRule(t *testing.T) {
	type in struct {
		Password             string `json:"password"              validate:"required,min=8"`
		PasswordConfirmation string `json:"password_confirmation" validate:"confirmed"`
	}
	assert.True(t, validate.HasErrors(validate.Struct(in{Password: "secret123", PasswordConfirmation: "wrong"})))
	assert.False(t, validate.HasErrors(validate.Struct(in{Password: "secret123", PasswordConfirmation: "secret123"})))
}

func TestNullableSkipsRules(t *testing.T) {
	type in struct {
		Website string `json:"website" validate:"nullable,url"`
	}
	assert.False(t, validate.HasErrors(validate.Struct(in{Website: ""})))
	assert.True(t, validate.HasErrors(validate.Struct(in{Website: "not-a-url"})))
}

func TestOfferInput(t *testing.T) {
	ok := offerInput{ProductID: "AB12C", OfferedPrice: "1200.50", ExpectedPrice: "1500", Phone: "+91 98765 43210"}
	assert.False(t, validate.HasErrors(validate.Struct(ok)), "unexpected errors: %v", validate.Struct(ok))

	cases := []struct {
		name  string
		mut   func(*offerInput)
		field string
	}{
		{"short product code", func(o *offerInput) { o.ProductID = "AB1" }, "productId"},
		{"product code punctuation", func(o *offerInput) { o.ProductID = "AB-1C" }, "productId"},
		{"negative offer", func(o *offerInput) { o.OfferedPrice = "-5" }, "offeredPrice"},
		{"three decimals", func(o *offerInput) { o.OfferedPrice = "1.005" }, "offeredPrice"},
		{"non numeric expected", func(o *offerInput) { o.ExpectedPrice = "lots" }, "expectedPrice"},
		{"negative expected", func(o *offerInput) { o.ExpectedPrice = "-1" }, "expectedPrice"},
		{"missing phone", func(o *offerInput) { o.Phone = "  " }, "phone"},
		{"phone too long", func(o *offerInput) { o.Phone = "+91 98765 43210 98765 43210" }, "phone"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := ok
			tc.mut(&in)
			assert.Contains(t, validate.Struct(in), tc.field)
		})
	}
}

func TestBetweenRule(t *testing.T) {
	type in struct {
		Demand int `json:"demand" validate:"between=0,100"`
	}
	assert.True(t, validate.HasErrors(validate.Struct(in{Demand: 150})))
	assert.False(t, validate.HasErrors(validate.Struct(in{Demand: 75})))
}

func TestURLRule(t *testing.T) {
	type in struct {
		Site string `json:"site" validate:"required,url"`
	}
	assert.False(t, validate.HasErrors(validate.Struct(in{Site: "https://recycler.example.in"})))
	assert.True(t, validate.HasErrors(validate.Struct(in{Site: "not-a-url"})))
}

func TestAlphaDashRule(t *testing.T) {
	type in struct {
		Slug string `json:"slug" validate:"required,alpha_dash"`
	}
	assert.False(t, validate.HasErrors(validate.Struct(in{Slug: "fly-ash_2024"})))
	assert.True(t, validate.HasErrors(validate.Struct(in{Slug: "fly ash!"})))
}

func TestListValuesMayContainSpaces(t *testing.T) {
	type in struct {
		Type string `json:"type" validate:"required,in=Waste Product,By Product,max=13"`
	}
	assert.False(t, validate.HasErrors(validate.Struct(in{Type: "By Product"})))
	assert.False(t, validate.HasErrors(validate.Struct(in{Type: "Waste Product"})))
	assert.Equal(t, "The selected type is invalid.", validate.Struct(in{Type: "Gadget"})["type"])
}

func TestNumberStrings(t *testing.T) {
	type in struct {
		Quantity json.Number `json:"quantity" validate:"required,integer,gte=0"`
	}
	assert.False(t, validate.HasErrors(validate.Struct(in{Quantity: "12"})))
	assert.Equal(t, "The quantity field must be an integer.", validate.Struct(in{Quantity: "1.5"})["quantity"])
	assert.Equal(t, "The quantity must be greater than or equal to 0.", validate.Struct(in{Quantity: "-3"})["quantity"])
}

func TestConfirmationMessage(t *testing.T) {
	type in struct {
		Password             string `json:"password"`
		PasswordConfirmation string `json:"password_confirmation" validate:"confirmed"`
	}
	assert.Equal(t, "The password confirmation does not match.",
		validate.Struct(&in{Password: "a", PasswordConfirmation: "b"})["password_confirmation"])
}

func TestUnknownRulePanics(t *testing.T) {
	type in struct {
		Name string `json:"name" validate:"required,shiny"`
	}
	assert.Panics(t, func() { validate.Struct(in{Name: "x"}) })
}

func TestNonStructIsValid(t *testing.T) {
	assert.Empty(t, validate.Struct("not a struct"))
}
