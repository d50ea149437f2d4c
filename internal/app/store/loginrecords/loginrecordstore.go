// internal/app/store/loginrecords/loginrecordstore.go
package loginrecordstore

import (
	"context"
	"time"

	"github.com/dalemusser/dochub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("login_records")}
}

// Create inserts a LoginRecord. If CreatedAt is zero, it's set to
// time.Now().UTC().
func (s *Store) Create(ctx context.Context, rec models.LoginRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, rec)
	return err
}

// ListRecentByUser returns a user's most recent login records,
// latest-first.
func (s *Store) ListRecentByUser(ctx context.Context, userID int64, limit int64) ([]models.LoginRecord, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var recs []models.LoginRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// DeleteByUser removes all login records for a user.
func (s *Store) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
