package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Mongo is the MongoDB-backed Store.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo dials uri, verifies the connection with a ping and returns a
// store bound to database db.
func ConnectMongo(ctx context.Context, uri, db string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().ApplyURI(uri).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetRetryWrites(true).
		SetMaxPoolSize(50)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("docstore: connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("docstore: ping: %w", err)
	}

	return &Mongo{client: client, db: client.Database(db)}, nil
}

// Client exposes the underlying driver client, e.g. for the log sink.
func (m *Mongo) Client() *mongo.Client { return m.client }

// Database returns the bound database name.
func (m *Mongo) Database() string { return m.db.Name() }

func (m *Mongo) Insert(ctx context.Context, coll string, doc any) (string, error) {
	d, id, err := prepare(doc)
	if err != nil {
		return "", err
	}

	if _, err := m.db.Collection(coll).InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrDuplicate
		}
		return "", err
	}
	return id, nil
}

func (m *Mongo) FindByID(ctx context.Context, coll, id string, dest any) error {
	err := m.db.Collection(coll).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(dest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (m *Mongo) Find(ctx context.Context, coll string, filter Filter, dest any) error {
	f := bson.M(filter)
	if f == nil {
		f = bson.M{}
	}

	cur, err := m.db.Collection(coll).Find(ctx, f, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return err
	}
	return cur.All(ctx, dest)
}

func (m *Mongo) Update(ctx context.Context, coll, id string, fields Fields) error {
	set := make(bson.M, len(fields))
	for k, v := range fields {
		if k != "_id" {
			set[k] = v
		}
	}

	res, err := m.db.Collection(coll).UpdateByID(ctx, id, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) Delete(ctx context.Context, coll, id string) error {
	res, err := m.db.Collection(coll).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// EnsureIndexes creates the given indexes on coll if they do not exist and
// returns the index names.
func (m *Mongo) EnsureIndexes(ctx context.Context, coll string, models []mongo.IndexModel) ([]string, error) {
	if len(models) == 0 {
		return nil, nil
	}
	return m.db.Collection(coll).Indexes().CreateMany(ctx, models)
}

// ListIndexes returns the index names of coll.
func (m *Mongo) ListIndexes(ctx context.Context, coll string) ([]string, error) {
	cur, err := m.db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	var specs []struct {
		Name string `bson:"name"`
	}
	if err := cur.All(ctx, &specs); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	return names, nil
}

// DropIndex removes the named index from coll. A missing index is not an error.
func (m *Mongo) DropIndex(ctx context.Context, coll, name string) error {
	_, err := m.db.Collection(coll).Indexes().DropOne(ctx, name)
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Name == "IndexNotFound" {
		return nil
	}
	return err
}
