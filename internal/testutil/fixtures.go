package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/dochub/internal/app/system/normalize"
	"github.com/dalemusser/dochub/internal/app/system/seq"
	"github.com/dalemusser/dochub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data. Rows are
// inserted directly, bypassing store validation, so tests can set up
// exactly the state they need.
type Fixtures struct {
	db  *mongo.Database
	ids *seq.Allocator
	t   *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, ids: seq.New(db), t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a test user with the given name.
func (f *Fixtures) CreateUser(ctx context.Context, name string) models.User {
	f.t.Helper()

	id, err := f.ids.Next(ctx, seq.Users)
	if err != nil {
		f.t.Fatalf("failed to allocate user id: %v", err)
	}
	now := time.Now().UTC()
	u := models.User{
		ID:        id,
		Name:      name,
		NameCI:    text.Fold(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateLogin creates a login row pointing at userID. The display
// email keeps the supplied casing.
func (f *Fixtures) CreateLogin(ctx context.Context, userID int64, displayEmail string) models.Login {
	f.t.Helper()

	id, err := f.ids.Next(ctx, seq.Logins)
	if err != nil {
		f.t.Fatalf("failed to allocate login id: %v", err)
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
	if _, err := f.db.Collection("logins").InsertOne(ctx, l); err != nil {
		f.t.Fatalf("failed to create test login: %v", err)
	}
	return l
}

// CreateUserWithLogin creates a user plus a login row in one step.
func (f *Fixtures) CreateUserWithLogin(ctx context.Context, name, displayEmail string) models.User {
	f.t.Helper()
	u := f.CreateUser(ctx, name)
	f.CreateLogin(ctx, u.ID, displayEmail)
	return u
}

// CreateGroup creates a group of the given type with the given member
// user ids, in the supplied order.
func (f *Fixtures) CreateGroup(ctx context.Context, groupType, name string, memberUserIDs ...int64) models.Group {
	f.t.Helper()

	id, err := f.ids.Next(ctx, seq.Groups)
	if err != nil {
		f.t.Fatalf("failed to allocate group id: %v", err)
	}
	if memberUserIDs == nil {
		memberUserIDs = []int64{}
	}
	now := time.Now().UTC()
	g := models.Group{
		ID:             id,
		Name:           name,
		NameCI:         text.Fold(name),
		Type:           groupType,
		MemberUserIDs:  memberUserIDs,
		MemberGroupIDs: []int64{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// CreateResource creates a resource with one ACL rule per supplied
// group id, in order.
func (f *Fixtures) CreateResource(ctx context.Context, kind, name string, groupIDs ...int64) models.Resource {
	f.t.Helper()

	id, err := f.ids.Next(ctx, seq.Resources)
	if err != nil {
		f.t.Fatalf("failed to allocate resource id: %v", err)
	}
	rules := make([]models.ACLRule, 0, len(groupIDs))
	for _, gid := range groupIDs {
		rules = append(rules, models.ACLRule{GroupID: gid})
	}
	now := time.Now().UTC()
	r := models.Resource{
		ID:        id,
		Kind:      kind,
		Name:      name,
		NameCI:    text.Fold(name),
		ACLRules:  rules,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("resources").InsertOne(ctx, r); err != nil {
		f.t.Fatalf("failed to create test resource: %v", err)
	}
	return r
}
