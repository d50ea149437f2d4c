// internal/app/store/logins/loginstore.go
package loginstore

// Terminology: User Identifiers
//   - UserID / userID / user_id: the numeric id that uniquely identifies a user row
//   - Email / email: the normalized (lowercase) address used for lookup and uniqueness
//   - DisplayEmail: the address as originally supplied, kept for presentation

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/dochub/internal/app/system/normalize"
	"github.com/dalemusser/dochub/internal/app/system/seq"
	"github.com/dalemusser/dochub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c   *mongo.Collection
	ids *seq.Allocator
}

// ErrDuplicateEmail is returned when a login row already exists for the
// normalized form of the supplied email. Callers racing on first login
// retry through accounts.GetUserByLoginWithRetry.
var ErrDuplicateEmail = errors.New("a login with this email already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("logins"), ids: seq.New(db)}
}

// GetByEmail looks up a login by case-insensitive email. Returns
// mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.Login, error) {
	var l models.Login
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts a login row for userID. The display email is preserved
// verbatim; the lookup key is the normalized form.
func (s *Store) Create(ctx context.Context, userID int64, displayEmail string) (models.Login, error) {
	id, err := s.ids.Next(ctx, seq.Logins)
	if err != nil {
		return models.Login{}, err
	}
	now := time.Now().UTC()
	l := models.Login{
		ID:           id,
		UserID:       userID,
		Email:        normalize.Email(displayEmail),
		DisplayEmail: displayEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.c.InsertOne(ctx, l); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Login{}, ErrDuplicateEmail
		}
		return models.Login{}, err
	}
	return l, nil
}

// GetByEmails returns the login rows for a set of emails keyed by
// normalized email. Emails with no login row are absent from the map.
func (s *Store) GetByEmails(ctx context.Context, emails []string) (map[string]models.Login, error) {
	out := make(map[string]models.Login, len(emails))
	if len(emails) == 0 {
		return out, nil
	}
	normalized := make([]string, 0, len(emails))
	for _, e := range emails {
		normalized = append(normalized, normalize.Email(e))
	}
	cur, err := s.c.Find(ctx, bson.M{"email": bson.M{"$in": normalized}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var logins []models.Login
	if err := cur.All(ctx, &logins); err != nil {
		return nil, err
	}
	for _, l := range logins {
		out[l.Email] = l
	}
	return out, nil
}

// ListByUser returns all login rows for a user, oldest first.
func (s *Store) ListByUser(ctx context.Context, userID int64) ([]models.Login, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var logins []models.Login
	if err := cur.All(ctx, &logins); err != nil {
		return nil, err
	}
	return logins, nil
}

// ReplaceForUser points the user's login at a new address, creating the
// row if the user had none. Used by the profile overwrite path.
func (s *Store) ReplaceForUser(ctx context.Context, userID int64, displayEmail string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{
			"email":         normalize.Email(displayEmail),
			"display_email": displayEmail,
			"updated_at":    time.Now().UTC(),
		}})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	if res.MatchedCount == 0 {
		_, err := s.Create(ctx, userID, displayEmail)
		return err
	}
	return nil
}

// UpdateDisplay refreshes the display casing for an existing normalized
// email without changing the lookup key.
func (s *Store) UpdateDisplay(ctx context.Context, email, displayEmail string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"email": normalize.Email(email)},
		bson.M{"$set": bson.M{
			"display_email": displayEmail,
			"updated_at":    time.Now().UTC(),
		}})
	return err
}

// DeleteByUser removes all login rows for a user. Returns the number of
// rows deleted.
func (s *Store) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
