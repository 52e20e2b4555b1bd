package repositories

import (
	"context"

	"github.com/shashiranjanraj/kachra/app/models"
	"github.com/shashiranjanraj/kachra/pkg/docstore"
)

// ProductRepository reads and writes the products collection. Products are
// addressed by their public productId code; the document id stays internal.
type ProductRepository struct {
	col docstore.Collection[models.Product]
}

func NewProductRepository(store docstore.Store) *ProductRepository {
	return &ProductRepository{col: docstore.NewCollection[models.Product](store, models.ProductsCollection)}
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) (string, error) {
	return r.col.Insert(ctx, p)
}

// FindByCode returns the product with the given productId or
// docstore.ErrNotFound.
func (r *ProductRepository) FindByCode(ctx context.Context, code string) (models.Product, error) {
	return r.col.First(ctx, docstore.Filter{"productId": code})
}

func (r *ProductRepository) All(ctx context.Context) ([]models.Product, error) {
	return r.col.Find(ctx, nil)
}

func (r *ProductRepository) ByOwner(ctx context.Context, email string) ([]models.Product, error) {
	return r.col.Find(ctx, docstore.Filter{"email": email})
}

func (r *ProductRepository) SetDemand(ctx context.Context, id string, demand int) error {
	return r.col.Update(ctx, id, docstore.Fields{"demand": demand})
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return r.col.Delete(ctx, id)
}
