// Package docstore is the typed client for the marketplace's document
// database.
//
// Every backend speaks the same five calls (insert, read by id, read by
// equality filter, $set-style partial update, delete) and the same two
// sentinels, so services never see driver errors:
//
//	id, err := store.Insert(ctx, "products", &p)
//	err = store.FindByID(ctx, "products", id, &p)
//	if errors.Is(err, docstore.ErrNotFound) { ... }
//
// Document ids are strings generated on the client, which makes an insert
// safe to retry. Wrap a backend with WithRetry to get bounded retries,
// per-attempt timeouts and metrics.
package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when no document matches the id.
	ErrNotFound = errors.New("docstore: document not found")

	// ErrDuplicate is returned by Insert when the id is already taken.
	ErrDuplicate = errors.New("docstore: duplicate id")
)

// Filter matches documents whose top-level fields equal every given value.
type Filter map[string]any

// Fields is a partial update merged into a document, like Mongo's $set.
type Fields map[string]any

// Store is implemented by every backend.
type Store interface {
	// Insert stores doc and returns its id. A missing or empty "_id" is
	// filled with a fresh one.
	Insert(ctx context.Context, coll string, doc any) (string, error)
	// FindByID decodes the document with the given id into dest.
	FindByID(ctx context.Context, coll, id string, dest any) error
	// Find decodes every matching document into dest, a pointer to a slice.
	Find(ctx context.Context, coll string, filter Filter, dest any) error
	// Update merges fields into the document with the given id.
	Update(ctx context.Context, coll, id string, fields Fields) error
	// Delete removes the document with the given id.
	Delete(ctx context.Context, coll, id string) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// NewID returns a fresh document id.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// prepare marshals doc to an ordered document and makes sure it carries a
// string _id, generating one when absent.
func prepare(doc any) (bson.D, string, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, "", fmt.Errorf("docstore: marshal: %w", err)
	}

	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, "", fmt.Errorf("docstore: unmarshal: %w", err)
	}

	for i, e := range d {
		if e.Key != "_id" {
			continue
		}
		switch v := e.Value.(type) {
		case string:
			if v != "" {
				return d, v, nil
			}
		case primitive.ObjectID:
			id := v.Hex()
			d[i].Value = id
			return d, id, nil
		default:
			return nil, "", fmt.Errorf("docstore: unsupported _id type %T", e.Value)
		}
		id := NewID()
		d[i].Value = id
		return d, id, nil
	}

	id := NewID()
	return append(bson.D{{Key: "_id", Value: id}}, d...), id, nil
}
