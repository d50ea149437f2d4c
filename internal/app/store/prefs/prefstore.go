// internal/app/store/prefs/prefstore.go
package prefstore

import (
	"context"
	"time"

	"github.com/dalemusser/dochub/internal/app/system/seq"
	"github.com/dalemusser/dochub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c   *mongo.Collection
	ids *seq.Allocator
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("prefs"), ids: seq.New(db)}
}

// Set upserts the preference bag for (userID, orgID).
func (s *Store) Set(ctx context.Context, userID, orgID int64, prefs map[string]any) error {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID, "org_id": orgID},
		bson.M{"$set": bson.M{"prefs": prefs, "updated_at": now}})
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	id, err := s.ids.Next(ctx, seq.Prefs)
	if err != nil {
		return err
	}
	_, err = s.c.InsertOne(ctx, models.Prefs{
		ID:        id,
		UserID:    userID,
		OrgID:     orgID,
		Prefs:     prefs,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return err
}

// ListByUser returns all preference rows for a user.
func (s *Store) ListByUser(ctx context.Context, userID int64) ([]models.Prefs, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var prefs []models.Prefs
	if err := cur.All(ctx, &prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}

// DeleteByUser removes all preference rows for a user. Returns the
// number of rows deleted.
func (s *Store) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
