// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup (EnsureSchema). Each ensure* function is
idempotent. We aggregate errors so any problem is visible and startup
can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureLogins(ctx, db); err != nil {
		problems = append(problems, "logins: "+err.Error())
	}
	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureGroups(ctx, db); err != nil {
		problems = append(problems, "groups: "+err.Error())
	}
	if err := ensureOrganizations(ctx, db); err != nil {
		problems = append(problems, "organizations: "+err.Error())
	}
	if err := ensureResources(ctx, db); err != nil {
		problems = append(problems, "resources: "+err.Error())
	}
	if err := ensurePrefs(ctx, db); err != nil {
		problems = append(problems, "prefs: "+err.Error())
	}
	if err := ensureLoginRecords(ctx, db); err != nil {
		problems = append(problems, "login_records: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// ensureIndexSet creates each desired index, tolerating ones that
// already exist. Startup logs every index so operators can see what
// the deployment enforces.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, ms []mongo.IndexModel) error {
	var errs []string
	for _, m := range ms {
		name := ""
		if m.Options != nil && m.Options.Name != nil {
			name = *m.Options.Name
		}
		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isOptionsConflictErr(err) || isAlreadyExistsErr(err) {
				zap.L().Info("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", name))
				continue
			}
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with
// the same keys already exists under a different name.
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

func isAlreadyExistsErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexKeySpecsConflict")
}

func ensureLogins(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("logins")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Exactly one login row per distinct normalized email. The
		// duplicate-key error from this index is what the login upsert
		// retry path absorbs.
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_logins_email"),
		},
		// All logins for a user (cascading delete, projection joins)
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_logins_user"),
		},
	})
}

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Stable external identity for SSO-synced accounts. Sparse:
		// most users have no connect id.
		{
			Keys:    bson.D{{Key: "connect_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_users_connectid"),
		},
		// Name search path for profile completion
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_users_nameci__id"),
		},
	})
}

func ensureGroups(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("groups")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Team names are unique among teams only; role groups may share
		// a name with any group. Partial index scoped to type=team.
		{
			Keys: bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"type": "team"}).
				SetName("uniq_groups_team_nameci"),
		},
		// List-by-type reads
		{
			Keys:    bson.D{{Key: "type", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_groups_type__id"),
		},
		// Parent lookups during group delete (strip deleted group from
		// member_group_ids arrays)
		{
			Keys:    bson.D{{Key: "member_group_ids", Value: 1}},
			Options: options.Index().SetName("idx_groups_membergroups"),
		},
		// Membership cleanup during user delete
		{
			Keys:    bson.D{{Key: "member_user_ids", Value: 1}},
			Options: options.Index().SetName("idx_groups_memberusers"),
		},
	})
}

func ensureOrganizations(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("organizations")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// A user owns at most one personal organization.
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_orgs_owner"),
		},
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_orgs_nameci__id"),
		},
	})
}

func ensureResources(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("resources")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "kind", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_resources_kind__id"),
		},
		// "Which resources grant through this group" — used by admin
		// tooling and by group delete sanity checks.
		{
			Keys:    bson.D{{Key: "acl_rules.group_id", Value: 1}},
			Options: options.Index().SetName("idx_resources_aclgroup"),
		},
	})
}

func ensurePrefs(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("prefs")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "org_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_prefs_user_org"),
		},
	})
}

// Helpful for dashboards that show recent activity / login lists.
func ensureLoginRecords(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("login_records")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_logins_user_created"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_logins_created"),
		},
	})
}
