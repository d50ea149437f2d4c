// internal/app/store/resources/resourcestore.go
package resourcestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/dochub/internal/app/system/seq"
	"github.com/dalemusser/dochub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the Resource ACL Index: each protected resource carries an
// ordered list of ACL rules, each naming exactly one group. The store
// also owns the join that loads rule groups with their direct member
// users, which is what the access resolver walks.
type Store struct {
	c      *mongo.Collection
	groups *mongo.Collection
	users  *mongo.Collection
	ids    *seq.Allocator
}

// ErrResourceNotFound is returned when an operation references a
// resource id that does not resolve.
var ErrResourceNotFound = errors.New("resource not found")

var errBadKind = errors.New(`resource kind must be "organization", "workspace" or "document"`)

func New(db *mongo.Database) *Store {
	return &Store{
		c:      db.Collection("resources"),
		groups: db.Collection("groups"),
		users:  db.Collection("users"),
		ids:    seq.New(db),
	}
}

// Create inserts a resource with an ordered list of ACL rules naming
// the given groups.
func (s *Store) Create(ctx context.Context, kind, name string, groupIDs ...int64) (models.Resource, error) {
	switch kind {
	case models.ResourceKindOrganization, models.ResourceKindWorkspace, models.ResourceKindDocument:
	default:
		return models.Resource{}, errBadKind
	}

	id, err := s.ids.Next(ctx, seq.Resources)
	if err != nil {
		return models.Resource{}, err
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
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.Resource{}, err
	}
	return r, nil
}

// AddRule appends an ACL rule naming groupID to the resource's rule
// list.
func (s *Store) AddRule(ctx context.Context, resourceID, groupID int64) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": resourceID},
		bson.M{
			"$push": bson.M{"acl_rules": models.ACLRule{GroupID: groupID}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrResourceNotFound
	}
	return nil
}

// RemoveRulesForGroup strips every ACL rule naming groupID from all
// resources. Used when a group is retired from sharing entirely.
func (s *Store) RemoveRulesForGroup(ctx context.Context, groupID int64) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"acl_rules.group_id": groupID},
		bson.M{"$pull": bson.M{"acl_rules": bson.M{"group_id": groupID}}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// GetByID loads a bare resource (rules carry group ids only). Returns
// mongo.ErrNoDocuments if absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*models.Resource, error) {
	var r models.Resource
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetWithGroups loads a resource with each ACL rule's group attached,
// and each group's direct member users populated. Sub-groups are not
// expanded; callers needing nested resolution walk the group store.
func (s *Store) GetWithGroups(ctx context.Context, id int64) (*models.Resource, error) {
	rs, err := s.ListWithGroupsByIDs(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(rs) == 0 {
		return nil, ErrResourceNotFound
	}
	return &rs[0], nil
}

// ListWithGroupsByIDs loads a set of resources with rule groups and
// their direct member users populated, in the order the ids were
// supplied. Unknown ids are skipped.
func (s *Store) ListWithGroupsByIDs(ctx context.Context, ids []int64) ([]models.Resource, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var loaded []models.Resource
	if err := cur.All(ctx, &loaded); err != nil {
		return nil, err
	}

	byID := make(map[int64]models.Resource, len(loaded))
	var groupIDs []int64
	for _, r := range loaded {
		byID[r.ID] = r
		for _, rule := range r.ACLRules {
			groupIDs = append(groupIDs, rule.GroupID)
		}
	}

	groupsByID, err := s.loadGroupsWithUsers(ctx, groupIDs)
	if err != nil {
		return nil, err
	}

	out := make([]models.Resource, 0, len(loaded))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			continue
		}
		for i := range r.ACLRules {
			if g, ok := groupsByID[r.ACLRules[i].GroupID]; ok {
				r.ACLRules[i].Group = g
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// loadGroupsWithUsers loads groups by id with their direct member users
// populated in stored array order.
func (s *Store) loadGroupsWithUsers(ctx context.Context, groupIDs []int64) (map[int64]*models.Group, error) {
	out := make(map[int64]*models.Group)
	if len(groupIDs) == 0 {
		return out, nil
	}

	cur, err := s.groups.Find(ctx, bson.M{"_id": bson.M{"$in": groupIDs}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var groups []models.Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}

	var userIDs []int64
	for _, g := range groups {
		userIDs = append(userIDs, g.MemberUserIDs...)
	}
	usersByID, err := s.loadUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	for i := range groups {
		g := &groups[i]
		g.MemberUsers = make([]models.User, 0, len(g.MemberUserIDs))
		for _, uid := range g.MemberUserIDs {
			if u, ok := usersByID[uid]; ok {
				g.MemberUsers = append(g.MemberUsers, u)
			}
		}
		out[g.ID] = g
	}
	return out, nil
}

func (s *Store) loadUsers(ctx context.Context, ids []int64) (map[int64]models.User, error) {
	out := make(map[int64]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
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
