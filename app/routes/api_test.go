package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kachra/app/controllers"
	"github.com/shashiranjanraj/kachra/app/repositories"
	"github.com/shashiranjanraj/kachra/app/routes"
	"github.com/shashiranjanraj/kachra/app/services"
	"github.com/shashiranjanraj/kachra/pkg/docstore"
	"github.com/shashiranjanraj/kachra/pkg/event"
	"github.com/shashiranjanraj/kachra/pkg/fal"
	"github.com/shashiranjanraj/kachra/pkg/router"
)

type stubText struct{ answer string }

func (s stubText) Generate(context.Context, string) (string, error) { return s.answer, nil }

type stubImages struct{ res *fal.Result }

func (s stubImages) Generate(context.Context, fal.Input) (*fal.Result, error) {
	if s.res == nil {
		return nil, errors.New("no images")
	}
	return s.res, nil
}

type envelope struct {
	Status  int               `json:"status"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

type api struct {
	t *testing.T
	h http.Handler
}

func newAPI(t *testing.T, text services.TextGenerator, images services.ImageGenerator) *api {
	t.Helper()
	store := docstore.NewMemory()
	bus := event.NewBus()

	products := repositories.NewProductRepository(store)
	requests := repositories.NewRequestRepository(store)
	history := repositories.NewHistoryRepository(store)

	catalog := services.NewCatalogService(products, bus)
	negotiation := services.NewNegotiationService(products, requests, history, bus)

	r := router.New()
	routes.RegisterAPI(r, routes.Controllers{
		Auth:     controllers.NewAuthController(services.NewAuthService(repositories.NewUserRepository(store))),
		Products: controllers.NewProductController(catalog),
		Requests: controllers.NewRequestController(negotiation),
		Assist:   controllers.NewAssistController(services.NewAssistService(text, images)),
	})
	return &api{t: t, h: r.Handler()}
}

func (a *api) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func (a *api) signUp(username, email, role string) string {
	a.t.Helper()
	rec, env := a.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username":              username,
		"email":                 email,
		"password":              "s3cret-pass",
		"password_confirmation": "s3cret-pass",
		"role":                  role,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var sess struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &sess))
	return sess.Token
}

func TestMarketplaceFlow(t *testing.T) {
	a := newAPI(t, nil, nil)
	sellerTok := a.signUp("yard", "s@x.com", "seller")
	buyerTok := a.signUp("maker", "b@x.com", "buyer")

	rec, env := a.do(http.MethodPost, "/api/seller/products", sellerTok, map[string]any{
		"name": "Scrap Metal", "category": "Metals", "quantity": 10, "unit": "kg",
		"price": 100, "type": "Waste Product",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var product struct {
		ProductID string `json:"productId"`
		Demand    int    `json:"demand"`
		Status    string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &product))
	assert.Len(t, product.ProductID, 5)
	assert.Equal(t, 50, product.Demand)
	assert.Equal(t, "Available", product.Status)

	rec, env = a.do(http.MethodGet, "/api/products?q=scrap", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), product.ProductID)

	rec, env = a.do(http.MethodPost, "/api/buyer/requests", buyerTok, map[string]any{
		"productId": product.ProductID, "phone": "555", "expectedPrice": 80,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var submitted struct {
		RequestID string `json:"requestId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &submitted))

	rec, env = a.do(http.MethodGet, "/api/seller/requests", sellerTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), submitted.RequestID)

	rec, _ = a.do(http.MethodPost, "/api/seller/requests/"+submitted.RequestID+"/accept", sellerTok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = a.do(http.MethodGet, "/api/products/"+product.ProductID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = a.do(http.MethodGet, "/api/buyer/requests", buyerTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []struct {
		RequestID string `json:"requestId"`
		Status    string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "Accepted", history[0].Status)

	// repeating the decision is harmless
	rec, _ = a.do(http.MethodPost, "/api/seller/requests/"+submitted.RequestID+"/accept", sellerTok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = a.do(http.MethodPost, "/api/seller/requests/"+submitted.RequestID+"/deny", sellerTok, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRoleGuards(t *testing.T) {
	a := newAPI(t, nil, nil)
	buyerTok := a.signUp("maker", "b@x.com", "buyer")
	sellerTok := a.signUp("yard", "s@x.com", "seller")

	rec, _ := a.do(http.MethodPost, "/api/seller/products", "", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = a.do(http.MethodPost, "/api/seller/products", buyerTok, map[string]any{})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = a.do(http.MethodPost, "/api/buyer/requests", sellerTok, map[string]any{})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := a.do(http.MethodGet, "/api/auth/me", buyerTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), "b@x.com")
}

func TestValidationErrorsAre422(t *testing.T) {
	a := newAPI(t, nil, nil)
	sellerTok := a.signUp("yard", "s@x.com", "seller")

	rec, env := a.do(http.MethodPost, "/api/seller/products", sellerTok, map[string]any{
		"name": "Scrap Metal", "category": "Metals", "quantity": 10, "unit": "kg",
		"price": 100, "type": "Gadget",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "validation", env.Code)
	assert.Contains(t, env.Errors, "type")

	rec, _ = a.do(http.MethodPost, "/api/auth/signin", "", map[string]string{
		"email": "s@x.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSellerCannotRemoveOthersProduct(t *testing.T) {
	a := newAPI(t, nil, nil)
	owner := a.signUp("yard", "s@x.com", "seller")
	other := a.signUp("rival", "other@x.com", "seller")

	_, env := a.do(http.MethodPost, "/api/seller/products", owner, map[string]any{
		"name": "Sawdust", "category": "Wood", "quantity": 3, "unit": "bags",
		"price": 5, "type": "By Product",
	})
	var p struct {
		ProductID string `json:"productId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &p))

	rec, _ := a.do(http.MethodDelete, "/api/seller/products/"+p.ProductID, other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = a.do(http.MethodDelete, "/api/seller/products/"+p.ProductID, owner, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAssistEndpoints(t *testing.T) {
	a := newAPI(t, stubText{answer: "Sure: [{\"name\":\"GreenCo\",\"website\":\"https://green.example\"}]"}, nil)
	tok := a.signUp("yard", "s@x.com", "seller")

	rec, env := a.do(http.MethodPost, "/api/assist/buyers", tok, map[string]string{"name": "Scrap Metal", "category": "Metals"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(env.Data), "GreenCo")

	rec, _ = a.do(http.MethodPost, "/api/assist/buyers", "", map[string]string{"name": "Scrap Metal"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env = a.do(http.MethodPost, "/api/assist/description", tok, map[string]string{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, env.Errors, "name")
}

func TestImageProxy(t *testing.T) {
	ok := newAPI(t, nil, stubImages{res: &fal.Result{
		Images: []fal.Image{{URL: "https://img.example/1.png"}},
		Prompt: "chair",
		Seed:   42,
	}})
	rec, _ := ok.do(http.MethodPost, "/api/proxy", "", map[string]any{"prompt": "chair", "seed": "42"})
	require.Equal(t, http.StatusOK, rec.Code)

	var res fal.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "https://img.example/1.png", res.Images[0].URL)
	assert.EqualValues(t, 42, res.Seed)

	failing := newAPI(t, nil, stubImages{})
	rec, _ = failing.do(http.MethodPost, "/api/proxy", "", map[string]any{"prompt": "chair"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to generate images."}`, rec.Body.String())
}

func TestRouteNames(t *testing.T) {
	r := router.New()
	routes.RegisterAPI(r, routes.Controllers{})

	url, err := r.URL("seller.requests.accept", map[string]string{"id": "abc"})
	require.NoError(t, err)
	assert.Equal(t, "/api/seller/requests/abc/accept", url)
	assert.Len(t, r.Routes(), 18)
}
