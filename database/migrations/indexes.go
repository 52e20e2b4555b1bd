// Package migrations holds the index migrations for the marketplace
// collections. Importing it registers them with pkg/migration.
package migrations

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/kachra/app/models"
	"github.com/shashiranjanraj/kachra/pkg/migration"
)

func init() {
	migration.Register("20260101000000_products_indexes", indexSet{
		coll: models.ProductsCollection,
		models: []mongo.IndexModel{
			{Keys: bson.D{{Key: "productId", Value: 1}}, Options: options.Index().SetName("productId_unique").SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("email")},
		},
	})
	migration.Register("20260101000001_requests_indexes", indexSet{
		coll: models.RequestsCollection,
		models: []mongo.IndexModel{
			{Keys: bson.D{{Key: "sellerEmail", Value: 1}}, Options: options.Index().SetName("sellerEmail")},
			{Keys: bson.D{{Key: "productId", Value: 1}, {Key: "status", Value: 1}}, Options: options.Index().SetName("productId_status")},
		},
	})
	migration.Register("20260101000002_request_history_indexes", indexSet{
		coll: models.RequestHistoryCollection,
		models: []mongo.IndexModel{
			{Keys: bson.D{{Key: "buyerEmail", Value: 1}}, Options: options.Index().SetName("buyerEmail")},
			{Keys: bson.D{{Key: "requestId", Value: 1}}, Options: options.Index().SetName("requestId")},
		},
	})
	migration.Register("20260101000003_users_indexes", indexSet{
		coll: models.UsersCollection,
		models: []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("email_unique").SetUnique(true)},
		},
	})
}

// indexSet creates a group of named indexes on one collection and drops
// them on rollback.
type indexSet struct {
	coll   string
	models []mongo.IndexModel
}

func (s indexSet) Up(ctx context.Context, ix migration.Indexer) error {
	_, err := ix.EnsureIndexes(ctx, s.coll, s.models)
	return err
}

func (s indexSet) Down(ctx context.Context, ix migration.Indexer) error {
	for _, m := range s.models {
		if err := ix.DropIndex(ctx, s.coll, *m.Options.Name); err != nil {
			return err
		}
	}
	return nil
}

// Collections lists every collection that carries managed indexes.
func Collections() []string {
	return []string{
		models.ProductsCollection,
		models.RequestsCollection,
		models.RequestHistoryCollection,
		models.UsersCollection,
	}
}
