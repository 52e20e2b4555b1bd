package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shashiranjanraj/kachra/app/models"
	"github.com/shashiranjanraj/kachra/app/repositories"
	"github.com/shashiranjanraj/kachra/pkg/auth"
	"github.com/shashiranjanraj/kachra/pkg/cache"
	"github.com/shashiranjanraj/kachra/pkg/docstore"
	"github.com/shashiranjanraj/kachra/pkg/errs"
	"github.com/shashiranjanraj/kachra/pkg/event"
	"github.com/shashiranjanraj/kachra/pkg/logger"
	"github.com/shashiranjanraj/kachra/pkg/validate"
	"github.com/shashiranjanraj/kachra/pkg/workerpool"
)

const (
	productCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	productCodeLength   = 5
	productCodeAttempts = 5

	browseVersionKey = "products:version"
)

// ListingCache holds the browse listing under generation-versioned keys.
// *cache.Cache satisfies it, including a nil one.
type ListingCache interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Version(ctx context.Context, key string) int64
	Bump(ctx context.Context, key string) error
}

func browseKey(version int64) string {
	return "products:all:" + strconv.FormatInt(version, 10)
}

// ListProductInput is the seller's listing form.
type ListProductInput struct {
	Name        string      `json:"name"        validate:"required,max=120"`
	Category    string      `json:"category"    validate:"required,max=80"`
	Quantity    json.Number `json:"quantity"    validate:"required,integer,gte=0"`
	Unit        string      `json:"unit"        validate:"required,max=20"`
	Price       json.Number `json:"price"       validate:"required,numeric,gte=0"`
	Type        string      `json:"type"        validate:"required,in=Waste Product,By Product"`
	Description string      `json:"description" validate:"nullable,max=4000"`
}

// DemandScorer estimates market demand for a material on a 0..100 scale.
type DemandScorer interface {
	Demand(ctx context.Context, name string) (int, error)
}

// CatalogService owns product listings.
type CatalogService struct {
	products *repositories.ProductRepository
	cache    ListingCache
	bus      *event.Bus
	scorer   DemandScorer
	pool     *workerpool.Pool
}

type CatalogOption func(*CatalogService)

// WithCache caches the browse listing. A nil *cache.Cache disables caching.
func WithCache(c ListingCache) CatalogOption {
	return func(s *CatalogService) { s.cache = c }
}

// WithDemandScoring measures demand for every new listing on pool.
func WithDemandScoring(scorer DemandScorer, pool *workerpool.Pool) CatalogOption {
	return func(s *CatalogService) {
		s.scorer = scorer
		s.pool = pool
	}
}

func NewCatalogService(products *repositories.ProductRepository, bus *event.Bus, opts ...CatalogOption) *CatalogService {
	s := &CatalogService{products: products, bus: bus}
	for _, o := range opts {
		o(s)
	}
	if s.cache == nil {
		s.cache = (*cache.Cache)(nil)
	}
	bus.Listen(event.ProductRemoved, s.onProductRemoved)
	return s
}

// ListProduct validates the form and stores a new Available listing owned
// by seller, with the default demand until a measured one arrives.
func (s *CatalogService) ListProduct(ctx context.Context, seller auth.Identity, in ListProductInput) (models.Product, error) {
	const op = "catalog.list"

	if fields := validate.Struct(in); validate.HasErrors(fields) {
		return models.Product{}, errs.Validation(op, fields)
	}
	qty, err := strconv.Atoi(strings.TrimSpace(in.Quantity.String()))
	if err != nil {
		return models.Product{}, errs.Validation(op, map[string]string{"quantity": "The quantity field must be an integer."})
	}
	price, err := models.NewMoney(in.Price.String())
	if err != nil || price.IsNegative() {
		return models.Product{}, errs.Validation(op, map[string]string{"price": "The price must be a non-negative number."})
	}

	p := models.Product{
		Name:        strings.TrimSpace(in.Name),
		Category:    strings.TrimSpace(in.Category),
		Quantity:    qty,
		Unit:        strings.TrimSpace(in.Unit),
		Price:       price,
		Type:        in.Type,
		Description: strings.TrimSpace(in.Description),
		Demand:      models.DefaultDemand,
		Status:      models.ProductAvailable,
		Email:       seller.Email,
		CreatedAt:   time.Now().UTC(),
	}

	for attempt := 0; ; attempt++ {
		if attempt == productCodeAttempts {
			return models.Product{}, errs.Conflict(op, "could not allocate a product code, try again")
		}
		p.ProductID = newProductCode()
		_, err := s.products.FindByCode(ctx, p.ProductID)
		switch {
		case err == nil:
			continue
		case !errors.Is(err, docstore.ErrNotFound):
			return models.Product{}, err
		}

		p.ID = docstore.NewID()
		if _, err := s.products.Create(ctx, &p); err != nil {
			if errors.Is(err, docstore.ErrDuplicate) {
				continue
			}
			return models.Product{}, err
		}
		break
	}

	s.invalidate(ctx)
	s.bus.FireAsync(ctx, event.New(event.ProductListed, p.ProductID, p))
	s.scoreDemand(ctx, p)

	logger.WithCtx(ctx).Info("product listed", "product_id", p.ProductID, "seller", seller.Email)
	return p, nil
}

// BrowseProducts returns every listing whose name contains q, ignoring case.
// An empty q returns everything.
func (s *CatalogService) BrowseProducts(ctx context.Context, q string) ([]models.Product, error) {
	// The generation is read before the store, so a listing loaded just
	// before an invalidation is written under a key nobody reads again.
	key := browseKey(s.cache.Version(ctx, browseVersionKey))

	var all []models.Product
	if !s.cache.Get(ctx, key, &all) {
		var err error
		if all, err = s.products.All(ctx); err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, all, 0); err != nil {
			logger.WithCtx(ctx).Warn("cache set failed", "key", key, "error", err)
		}
	}

	needle := strings.ToLower(strings.TrimSpace(q))
	out := make([]models.Product, 0, len(all))
	for _, p := range all {
		if needle == "" || strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetProduct returns one listing by productId.
func (s *CatalogService) GetProduct(ctx context.Context, code string) (models.Product, error) {
	p, err := s.products.FindByCode(ctx, code)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.Product{}, errs.NotFound("catalog.get", "product %s not found", code)
	}
	return p, err
}

// SellerProducts lists the seller's own listings.
func (s *CatalogService) SellerProducts(ctx context.Context, seller auth.Identity) ([]models.Product, error) {
	ps, err := s.products.ByOwner(ctx, seller.Email)
	if ps == nil && err == nil {
		ps = []models.Product{}
	}
	return ps, err
}

// RemoveProduct withdraws a listing. Only its seller may remove it.
func (s *CatalogService) RemoveProduct(ctx context.Context, code string, requester auth.Identity) error {
	const op = "catalog.remove"

	p, err := s.products.FindByCode(ctx, code)
	if errors.Is(err, docstore.ErrNotFound) {
		return errs.NotFound(op, "product %s not found", code)
	}
	if err != nil {
		return err
	}
	if !p.OwnedBy(requester.Email) {
		return errs.Forbidden(op, "you do not own product %s", code)
	}

	if err := s.products.Delete(ctx, p.ID); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return err
	}

	logger.WithCtx(ctx).Info("product removed", "product_id", code, "seller", requester.Email)
	s.bus.Fire(ctx, event.New(event.ProductRemoved, code, RemovedProduct{Product: p, Reason: RemovalWithdrawn}))
	return nil
}

// AttachMeasuredDemand stores a measured demand score, clamped to 0..100.
func (s *CatalogService) AttachMeasuredDemand(ctx context.Context, code string, score int) error {
	p, err := s.products.FindByCode(ctx, code)
	if errors.Is(err, docstore.ErrNotFound) {
		return errs.NotFound("catalog.demand", "product %s not found", code)
	}
	if err != nil {
		return err
	}
	if err := s.products.SetDemand(ctx, p.ID, clampDemand(score)); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return errs.NotFound("catalog.demand", "product %s not found", code)
		}
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CatalogService) scoreDemand(ctx context.Context, p models.Product) {
	if s.scorer == nil || s.pool == nil {
		return
	}
	log := logger.WithCtx(ctx).With("product_id", p.ProductID)
	err := s.pool.Submit(func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(logger.InjectLogger(ctx, log), 30*time.Second)
		defer cancel()

		score, err := s.scorer.Demand(ctx, p.Name)
		if err != nil {
			log.Warn("demand scoring failed", "error", err)
			return
		}
		if err := s.AttachMeasuredDemand(ctx, p.ProductID, score); err != nil && !errs.IsKind(err, errs.KindNotFound) {
			log.Warn("demand update failed", "error", err)
		}
	})
	if err != nil {
		log.Warn("demand scoring skipped", "error", err)
	}
}

func (s *CatalogService) onProductRemoved(ctx context.Context, _ event.Event) error {
	s.invalidate(ctx)
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx, browseVersionKey); err != nil {
		logger.WithCtx(ctx).Warn("cache invalidate failed", "key", browseVersionKey, "error", err)
	}
}

// Removal reasons carried by product.removed events.
const (
	RemovalSold      = "sold"
	RemovalWithdrawn = "withdrawn"
)

// RemovedProduct is the payload of a product.removed event.
type RemovedProduct struct {
	Product models.Product `json:"product"`
	Reason  string         `json:"reason"`
}

func clampDemand(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}

// newProductCode draws productCodeLength characters uniformly from
// productCodeAlphabet.
func newProductCode() string {
	const n = len(productCodeAlphabet)
	const limit = 256 - 256%n

	out := make([]byte, 0, productCodeLength)
	buf := make([]byte, productCodeLength*2)
	for len(out) < productCodeLength {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand unavailable: " + err.Error())
		}
		for _, b := range buf {
			if int(b) < limit && len(out) < productCodeLength {
				out = append(out, productCodeAlphabet[int(b)%n])
			}
		}
	}
	return string(out)
}
