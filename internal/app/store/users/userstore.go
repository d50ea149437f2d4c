// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"time"

	"github.com/dalemusser/dochub/internal/app/system/normalize"
	"github.com/dalemusser/dochub/internal/app/system/seq"
	"github.com/dalemusser/dochub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c   *mongo.Collection
	ids *seq.Allocator
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users"), ids: seq.New(db)}
}

// GetByID loads a user by id. Returns mongo.ErrNoDocuments if absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByIDs loads a set of users. Missing ids are silently absent from
// the result; the map is keyed by user id.
func (s *Store) GetByIDs(ctx context.Context, ids []int64) (map[int64]models.User, error) {
	out := make(map[int64]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// GetByConnectID loads a user by stable external connect id. Returns
// mongo.ErrNoDocuments if absent.
func (s *Store) GetByConnectID(ctx context.Context, connectID string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"connect_id": connectID}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user after normalizing fields. The numeric id is
// allocated here and is stable for the life of the row.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	id, err := s.ids.Next(ctx, seq.Users)
	if err != nil {
		return models.User{}, err
	}
	u.ID = id
	u.Name = normalize.Name(u.Name)
	u.NameCI = text.Fold(u.Name)

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// Update holds the user fields a profile update may touch. nil pointers
// leave the stored value unchanged; the overwrite paths pass every
// field explicitly.
type Update struct {
	Name             *string
	Picture          *string
	ConnectID        *string
	Options          *models.UserOptions
	IsFirstTimeUser  *bool
	RefOrgID         **int64
	FirstLoginAt     *time.Time
	LastConnectionAt *time.Time
}

// Apply writes the non-nil fields of upd. Returns the number of matched
// rows (0 when the user does not exist).
func (s *Store) Apply(ctx context.Context, id int64, upd Update) (int64, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		name := normalize.Name(*upd.Name)
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if upd.Picture != nil {
		set["picture"] = *upd.Picture
	}
	if upd.ConnectID != nil {
		set["connect_id"] = *upd.ConnectID
	}
	if upd.Options != nil {
		set["options"] = *upd.Options
	}
	if upd.IsFirstTimeUser != nil {
		set["is_first_time_user"] = *upd.IsFirstTimeUser
	}
	if upd.RefOrgID != nil {
		set["ref_org_id"] = *upd.RefOrgID
	}
	if upd.FirstLoginAt != nil {
		set["first_login_at"] = *upd.FirstLoginAt
	}
	if upd.LastConnectionAt != nil {
		set["last_connection_at"] = *upd.LastConnectionAt
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

// Delete removes a user row. Returns the number of rows deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
