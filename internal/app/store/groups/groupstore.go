// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/dochub/internal/app/system/seq"
	"github.com/dalemusser/dochub/internal/app/system/txn"
	"github.com/dalemusser/dochub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c     *mongo.Collection
	users *mongo.Collection
	ids   *seq.Allocator
}

var (
	// ErrGroupNotFound is returned when an operation references a group
	// id that does not resolve.
	ErrGroupNotFound = errors.New("group not found")

	// ErrTeamContainsGroups rejects team groups with member sub-groups;
	// only role groups may nest.
	ErrTeamContainsGroups = errors.New("team groups cannot contain groups")

	// ErrSelfContainment rejects a group listing itself as a member group.
	ErrSelfContainment = errors.New("group cannot contain itself")

	// ErrTypeChange rejects overwrites that try to change a role
	// group's type.
	ErrTypeChange = errors.New("cannot change type of role group")

	// ErrDuplicateTeamName is returned when a team group's name
	// collides with another team group. Role groups may share any name.
	ErrDuplicateTeamName = errors.New("a team group with this name already exists")

	errBadType = errors.New(`group type must be "team" or "role"`)
)

func New(db *mongo.Database) *Store {
	return &Store{
		c:     db.Collection("groups"),
		users: db.Collection("users"),
		ids:   seq.New(db),
	}
}

// Descriptor is the caller-supplied shape of a group for create and
// overwrite calls. Overwrites replace the full member sets: a field
// left empty clears the stored set, it does not mean "unchanged".
type Descriptor struct {
	Name           string
	Type           string // "team" | "role"
	MemberUserIDs  []int64
	MemberGroupIDs []int64
}

// Create validates and persists a new group, returning it with member
// collections resolved.
func (s *Store) Create(ctx context.Context, d Descriptor) (*models.Group, error) {
	switch d.Type {
	case models.GroupTypeTeam, models.GroupTypeRole:
	default:
		return nil, errBadType
	}
	if d.Type == models.GroupTypeTeam && len(d.MemberGroupIDs) > 0 {
		return nil, ErrTeamContainsGroups
	}

	var g models.Group
	err := txn.WithTxn(ctx, s.c.Database().Client(), func(ctx context.Context) error {
		if d.Type == models.GroupTypeTeam {
			if err := s.checkTeamName(ctx, d.Name, 0); err != nil {
				return err
			}
		}
		id, err := s.ids.Next(ctx, seq.Groups)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		g = models.Group{
			ID:             id,
			Name:           d.Name,
			NameCI:         text.Fold(d.Name),
			Type:           d.Type,
			MemberUserIDs:  dedupe(d.MemberUserIDs),
			MemberGroupIDs: dedupe(d.MemberGroupIDs),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if _, err := s.c.InsertOne(ctx, g); err != nil {
			if wafflemongo.IsDup(err) {
				return ErrDuplicateTeamName
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetWithMembersByID(ctx, g.ID)
}

// OverwriteTeam replaces a team group wholesale: name and member users
// are set to exactly what the descriptor carries. Team groups never
// carry member groups.
func (s *Store) OverwriteTeam(ctx context.Context, id int64, d Descriptor) (*models.Group, error) {
	if d.Type != "" && d.Type != models.GroupTypeTeam {
		return nil, ErrTypeChange
	}
	if len(d.MemberGroupIDs) > 0 {
		return nil, ErrTeamContainsGroups
	}

	err := txn.WithTxn(ctx, s.c.Database().Client(), func(ctx context.Context) error {
		if err := s.checkTeamName(ctx, d.Name, id); err != nil {
			return err
		}
		return s.overwrite(ctx, id, models.GroupTypeTeam, d)
	})
	if err != nil {
		return nil, err
	}
	return s.GetWithMembersByID(ctx, id)
}

// OverwriteRole replaces a role group wholesale. The descriptor may not
// change the group's type or list the group as its own member.
func (s *Store) OverwriteRole(ctx context.Context, id int64, d Descriptor) (*models.Group, error) {
	if d.Type != "" && d.Type != models.GroupTypeRole {
		return nil, ErrTypeChange
	}
	for _, gid := range d.MemberGroupIDs {
		if gid == id {
			return nil, ErrSelfContainment
		}
	}

	err := txn.WithTxn(ctx, s.c.Database().Client(), func(ctx context.Context) error {
		return s.overwrite(ctx, id, models.GroupTypeRole, d)
	})
	if err != nil {
		return nil, err
	}
	return s.GetWithMembersByID(ctx, id)
}

func (s *Store) overwrite(ctx context.Context, id int64, wantType string, d Descriptor) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "type": wantType},
		bson.M{"$set": bson.M{
			"name":             d.Name,
			"name_ci":          text.Fold(d.Name),
			"member_user_ids":  dedupe(d.MemberUserIDs),
			"member_group_ids": dedupe(d.MemberGroupIDs),
			"updated_at":       time.Now().UTC(),
		}})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateTeamName
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrGroupNotFound
	}
	return nil
}

// Delete removes a group and strips it from every parent group's
// member_group_ids. Groups the deleted group listed as members are
// only dereferenced, never deleted.
func (s *Store) Delete(ctx context.Context, id int64) error {
	return txn.WithTxn(ctx, s.c.Database().Client(), func(ctx context.Context) error {
		res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return ErrGroupNotFound
		}
		_, err = s.c.UpdateMany(ctx,
			bson.M{"member_group_ids": id},
			bson.M{"$pull": bson.M{"member_group_ids": id}})
		return err
	})
}

// RemoveUserFromAll strips a user from every group's member_user_ids.
// Part of the cascading user delete. Returns the number of groups
// touched.
func (s *Store) RemoveUserFromAll(ctx context.Context, userID int64) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"member_user_ids": userID},
		bson.M{"$pull": bson.M{"member_user_ids": userID}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// GetByID loads a bare group (no member expansion). Returns
// mongo.ErrNoDocuments if absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetWithMembersByID loads a group with member users and member
// sub-groups populated, one level deep. Returns (nil, nil) when the id
// does not resolve.
func (s *Store) GetWithMembersByID(ctx context.Context, id int64) (*models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	if err := s.expand(ctx, []*models.Group{&g}); err != nil {
		return nil, err
	}
	return &g, nil
}

// ListWithMembers returns every group with members populated one level
// deep, in creation order.
func (s *Store) ListWithMembers(ctx context.Context) ([]models.Group, error) {
	return s.listWithMembers(ctx, bson.M{})
}

// ListWithMembersByType returns all groups of one type with members
// populated one level deep, in creation order.
func (s *Store) ListWithMembersByType(ctx context.Context, groupType string) ([]models.Group, error) {
	switch groupType {
	case models.GroupTypeTeam, models.GroupTypeRole:
	default:
		return nil, errBadType
	}
	return s.listWithMembers(ctx, bson.M{"type": groupType})
}

func (s *Store) listWithMembers(ctx context.Context, filter bson.M) ([]models.Group, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var groups []models.Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}

	refs := make([]*models.Group, len(groups))
	for i := range groups {
		refs[i] = &groups[i]
	}
	if err := s.expand(ctx, refs); err != nil {
		return nil, err
	}
	return groups, nil
}

// expand populates MemberUsers and MemberGroups for each group from the
// stored id arrays, preserving array order. Expansion is one level:
// sub-groups come back bare.
func (s *Store) expand(ctx context.Context, groups []*models.Group) error {
	var userIDs, groupIDs []int64
	for _, g := range groups {
		userIDs = append(userIDs, g.MemberUserIDs...)
		groupIDs = append(groupIDs, g.MemberGroupIDs...)
	}

	usersByID, err := s.loadUsers(ctx, dedupe(userIDs))
	if err != nil {
		return err
	}
	groupsByID, err := s.loadGroups(ctx, dedupe(groupIDs))
	if err != nil {
		return err
	}

	for _, g := range groups {
		g.MemberUsers = make([]models.User, 0, len(g.MemberUserIDs))
		for _, uid := range g.MemberUserIDs {
			if u, ok := usersByID[uid]; ok {
				g.MemberUsers = append(g.MemberUsers, u)
			}
		}
		g.MemberGroups = make([]models.Group, 0, len(g.MemberGroupIDs))
		for _, gid := range g.MemberGroupIDs {
			if sub, ok := groupsByID[gid]; ok {
				g.MemberGroups = append(g.MemberGroups, sub)
			}
		}
	}
	return nil
}

func (s *Store) loadUsers(ctx context.Context, ids []int64) (map[int64]models.User, error) {
	out := make(map[int64]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
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

func (s *Store) loadGroups(ctx context.Context, ids []int64) (map[int64]models.Group, error) {
	out := make(map[int64]models.Group, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var groups []models.Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	for _, g := range groups {
		out[g.ID] = g
	}
	return out, nil
}

// checkTeamName enforces team-name uniqueness against other team groups
// only; excludeID skips the group being overwritten. The partial unique
// index backs this up under concurrency, the pre-check gives the stable
// error before the insert is attempted.
func (s *Store) checkTeamName(ctx context.Context, name string, excludeID int64) error {
	filter := bson.M{"type": models.GroupTypeTeam, "name_ci": text.Fold(name)}
	if excludeID != 0 {
		filter["_id"] = bson.M{"$ne": excludeID}
	}
	n, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicateTeamName
	}
	return nil
}

// dedupe drops repeated ids, keeping first-seen order. Member arrays
// are sets for equality but keep insertion order for deterministic
// output.
func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
