package repositories

import (
	"context"

	"github.com/shashiranjanraj/kachra/app/models"
	"github.com/shashiranjanraj/kachra/pkg/docstore"
)

// UserRepository handles the users collection.
type UserRepository struct {
	col docstore.Collection[models.User]
}

func NewUserRepository(store docstore.Store) *UserRepository {
	return &UserRepository{col: docstore.NewCollection[models.User](store, models.UsersCollection)}
}

// FindByEmail looks up a user by their email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.col.First(ctx, docstore.Filter{"email": email})
}

// FindByID looks up a user by document id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.col.Get(ctx, id)
}

// Create persists a new user and returns its id.
func (r *UserRepository) Create(ctx context.Context, u *models.User) (string, error) {
	return r.col.Insert(ctx, u)
}
