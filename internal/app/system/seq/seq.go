// internal/app/system/seq/seq.go

// Package seq allocates stable numeric ids from a counters collection.
// Each named sequence is one document {_id: name, value: N}; Next does
// an atomic $inc upsert so concurrent allocators never collide.
package seq

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Sequence names used across the stores.
const (
	Users         = "users"
	Logins        = "logins"
	Groups        = "groups"
	Organizations = "organizations"
	Resources     = "resources"
	Prefs         = "prefs"
)

type Allocator struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Allocator {
	return &Allocator{c: db.Collection("counters")}
}

// Next returns the next id for the named sequence, starting at 1.
func (a *Allocator) Next(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc struct {
		Value int64 `bson:"value"`
	}
	err := a.c.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Value, nil
}
