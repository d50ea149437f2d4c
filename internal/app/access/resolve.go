// internal/app/access/resolve.go
//
// Pure resolution over already-loaded groups and resources. Nothing in
// this package touches the database; callers load what they need via
// the group and resource stores and hand the values in.
package access

import (
	"github.com/dalemusser/dochub/internal/domain/models"
)

// ResourceUsers returns the deduplicated union of the direct member
// users behind the ACL rules of the given resources, preserving
// first-seen order. If groupNames is non-empty, only rules whose group
// name is in the list contribute users.
//
// Only a group's direct memberUsers are read; sub-groups are never
// expanded here. Callers needing nested resolution resolve the group
// tree with the group store first.
func ResourceUsers(resources []models.Resource, groupNames ...string) []models.User {
	var allowed map[string]bool
	if len(groupNames) > 0 {
		allowed = make(map[string]bool, len(groupNames))
		for _, n := range groupNames {
			allowed[n] = true
		}
	}

	var users []models.User
	seen := make(map[int64]bool)
	for _, r := range resources {
		for _, rule := range r.ACLRules {
			g := rule.Group
			if g == nil {
				continue
			}
			if allowed != nil && !allowed[g.Name] {
				continue
			}
			for _, u := range g.MemberUsers {
				if seen[u.ID] {
					continue
				}
				seen[u.ID] = true
				users = append(users, u)
			}
		}
	}
	return users
}

// UsersWithRole maps each group's name to its member-user list with
// any excluded ids removed. A group whose MemberUsers were never
// loaded maps to nil, which is distinct from a loaded-but-empty list.
func UsersWithRole(groups []models.Group, excludedUserIDs []int64) map[string][]models.User {
	excluded := make(map[int64]bool, len(excludedUserIDs))
	for _, id := range excludedUserIDs {
		excluded[id] = true
	}

	out := make(map[string][]models.User, len(groups))
	for _, g := range groups {
		if g.MemberUsers == nil {
			out[g.Name] = nil
			continue
		}
		users := make([]models.User, 0, len(g.MemberUsers))
		for _, u := range g.MemberUsers {
			if excluded[u.ID] {
				continue
			}
			users = append(users, u)
		}
		out[g.Name] = users
	}
	return out
}
