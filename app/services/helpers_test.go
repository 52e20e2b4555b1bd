package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kachra/app/models"
	"github.com/shashiranjanraj/kachra/app/repositories"
	"github.com/shashiranjanraj/kachra/app/services"
	"github.com/shashiranjanraj/kachra/pkg/auth"
	"github.com/shashiranjanraj/kachra/pkg/docstore"
	"github.com/shashiranjanraj/kachra/pkg/event"
)

var (
	seller      = auth.Identity{UserID: "u-seller", Email: "s@x.com", Role: models.RoleSeller}
	otherSeller = auth.Identity{UserID: "u-other", Email: "other@x.com", Role: models.RoleSeller}
	buyer       = auth.Identity{UserID: "u-buyer", Email: "b@x.com", Role: models.RoleBuyer}
	buyer2      = auth.Identity{UserID: "u-buyer2", Email: "b2@x.com", Role: models.RoleBuyer}
)

var errInjected = errors.New("injected store failure")

// faultyStore fails chosen operations on chosen collections. A lost
// acknowledgement applies the write once and still reports failure.
type faultyStore struct {
	*docstore.Memory

	mu     sync.Mutex
	faults map[string]error // "<op>:<collection>"
	lost   map[string]bool
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Memory: docstore.NewMemory(), faults: map[string]error{}, lost: map[string]bool{}}
}

func (f *faultyStore) loseAck(op, coll string) {
	f.mu.Lock()
	f.lost[op+":"+coll] = true
	f.mu.Unlock()
}

// ackLost consumes a pending lost acknowledgement.
func (f *faultyStore) ackLost(op, coll string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.lost[op+":"+coll] {
		return false
	}
	delete(f.lost, op+":"+coll)
	return true
}

func (f *faultyStore) fail(op, coll string) {
	f.mu.Lock()
	f.faults[op+":"+coll] = errInjected
	f.mu.Unlock()
}

func (f *faultyStore) heal() {
	f.mu.Lock()
	f.faults = map[string]error{}
	f.lost = map[string]bool{}
	f.mu.Unlock()
}

func (f *faultyStore) fault(op, coll string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.faults[op+":"+coll]
}

func (f *faultyStore) Insert(ctx context.Context, coll string, doc any) (string, error) {
	if f.ackLost("insert", coll) {
		_, _ = f.Memory.Insert(ctx, coll, doc)
		return "", errInjected
	}
	if err := f.fault("insert", coll); err != nil {
		return "", err
	}
	return f.Memory.Insert(ctx, coll, doc)
}

func (f *faultyStore) Update(ctx context.Context, coll, id string, fields docstore.Fields) error {
	if err := f.fault("update", coll); err != nil {
		return err
	}
	return f.Memory.Update(ctx, coll, id, fields)
}

func (f *faultyStore) Delete(ctx context.Context, coll, id string) error {
	if f.ackLost("delete", coll) {
		_ = f.Memory.Delete(ctx, coll, id)
		return errInjected
	}
	if err := f.fault("delete", coll); err != nil {
		return err
	}
	return f.Memory.Delete(ctx, coll, id)
}

type env struct {
	store       *faultyStore
	bus         *event.Bus
	products    *repositories.ProductRepository
	requests    *repositories.RequestRepository
	history     *repositories.HistoryRepository
	catalog     *services.CatalogService
	negotiation *services.NegotiationService
}

func newEnv(t *testing.T, opts ...services.CatalogOption) *env {
	t.Helper()
	raw := newFaultyStore()
	store := docstore.WithRetry(raw, docstore.RetryPolicy{Attempts: 3, Backoff: time.Millisecond, AttemptTimeout: time.Second})
	bus := event.NewBus()

	e := &env{
		store:    raw,
		bus:      bus,
		products: repositories.NewProductRepository(store),
		requests: repositories.NewRequestRepository(store),
		history:  repositories.NewHistoryRepository(store),
	}
	e.catalog = services.NewCatalogService(e.products, bus, opts...)
	e.negotiation = services.NewNegotiationService(e.products, e.requests, e.history, bus)
	return e
}

// seedProduct stores a listing directly, bypassing validation.
func (e *env) seedProduct(t *testing.T, code, name, price, owner string) models.Product {
	t.Helper()
	p := models.Product{
		ID:        docstore.NewID(),
		ProductID: code,
		Name:      name,
		Category:  "Metals",
		Quantity:  10,
		Unit:      "kg",
		Price:     models.MustMoney(price),
		Type:      models.TypeWasteProduct,
		Demand:    models.DefaultDemand,
		Status:    models.ProductAvailable,
		Email:     owner,
	}
	_, err := e.products.Create(context.Background(), &p)
	require.NoError(t, err)
	return p
}

func (e *env) submit(t *testing.T, who auth.Identity, code, expected string) string {
	t.Helper()
	id, err := e.negotiation.SubmitRequest(context.Background(), who, services.SubmitRequestInput{
		ProductID:     code,
		Phone:         "555",
		ExpectedPrice: jsonNumber(expected),
	})
	require.NoError(t, err)
	return id
}
