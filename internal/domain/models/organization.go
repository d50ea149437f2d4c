// internal/domain/models/organization.go
package models

import "time"

// PersonalOrgName is the name every auto-created personal organization
// gets at first login.
const PersonalOrgName = "Personal"

// Organization is a top-level sharable container. Personal
// organizations are owned by exactly one user and are deleted with that
// user.
type Organization struct {
	ID     int64  `bson:"_id" json:"id"`
	Name   string `bson:"name" json:"name"`
	NameCI string `bson:"name_ci" json:"name_ci"`

	// OwnerID is set only on personal organizations.
	OwnerID *int64 `bson:"owner_id,omitempty" json:"owner_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsPersonal reports whether the organization is a user's personal org.
func (o Organization) IsPersonal() bool { return o.OwnerID != nil }
