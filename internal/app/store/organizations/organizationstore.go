// internal/app/store/organizations/organizationstore.go
package organizationstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/dochub/internal/app/system/seq"
	"github.com/dalemusser/dochub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c   *mongo.Collection
	ids *seq.Allocator
}

// ErrDuplicatePersonalOrg is returned when a user already owns a
// personal organization.
var ErrDuplicatePersonalOrg = errors.New("user already has a personal organization")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("organizations"), ids: seq.New(db)}
}

func (s *Store) GetByID(ctx context.Context, id int64) (*models.Organization, error) {
	var org models.Organization
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&org); err != nil {
		return nil, err
	}
	return &org, nil
}

// GetByOwner loads the personal organization owned by userID. Returns
// mongo.ErrNoDocuments if the user has none.
func (s *Store) GetByOwner(ctx context.Context, userID int64) (*models.Organization, error) {
	var org models.Organization
	if err := s.c.FindOne(ctx, bson.M{"owner_id": userID}).Decode(&org); err != nil {
		return nil, err
	}
	return &org, nil
}

// Create inserts an organization row.
func (s *Store) Create(ctx context.Context, org models.Organization) (models.Organization, error) {
	id, err := s.ids.Next(ctx, seq.Organizations)
	if err != nil {
		return models.Organization{}, err
	}
	now := time.Now().UTC()
	org.ID = id
	org.NameCI = text.Fold(org.Name)
	org.CreatedAt = now
	org.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, org); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Organization{}, ErrDuplicatePersonalOrg
		}
		return models.Organization{}, err
	}
	return org, nil
}

// CreatePersonal creates the "Personal" organization a real user gets
// at first login.
func (s *Store) CreatePersonal(ctx context.Context, ownerID int64) (models.Organization, error) {
	return s.Create(ctx, models.Organization{
		Name:    models.PersonalOrgName,
		OwnerID: &ownerID,
	})
}

// DeleteByOwner removes the personal organization owned by userID.
// Returns the number of rows deleted (0 or 1).
func (s *Store) DeleteByOwner(ctx context.Context, userID int64) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"owner_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
