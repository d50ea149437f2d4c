// internal/domain/models/group.go
package models

import "time"

// Group types. A team is a named set of people and may never contain
// sub-groups; a role is an access-control tier and may contain users
// and/or sub-groups.
const (
	GroupTypeTeam = "team"
	GroupTypeRole = "role"
)

// Group is the authorization unit ACL rules point at.
//
// Member arrays are ordered: equality over memberships is set-like, but
// insertion order is preserved so listings are deterministic. Callers
// needing presentation order sort client-side.
type Group struct {
	ID     int64  `bson:"_id" json:"id"`
	Name   string `bson:"name" json:"name"`
	NameCI string `bson:"name_ci" json:"name_ci"`
	Type   string `bson:"type" json:"type"` // "team" | "role"

	MemberUserIDs  []int64 `bson:"member_user_ids" json:"member_user_ids"`
	MemberGroupIDs []int64 `bson:"member_group_ids" json:"member_group_ids"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`

	// Populated only by the *WithMembers* readers, one level deep.
	// nil means "not loaded"; an empty non-nil slice means "loaded,
	// no members". Callers rely on that distinction.
	MemberUsers  []User  `bson:"-" json:"member_users,omitempty"`
	MemberGroups []Group `bson:"-" json:"member_groups,omitempty"`
}

// IsTeam reports whether g is a team-type group.
func (g Group) IsTeam() bool { return g.Type == GroupTypeTeam }
