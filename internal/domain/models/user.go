// internal/domain/models/user.go
package models

import "time"

// User is an identity record. A user that represents a real login
// identity always has at least one Login row with a non-empty display
// email; login rows live in the logins collection and are joined on
// demand (see loginstore).
//
// NOTE:
//   - Group membership is not embedded on User. Groups carry ordered
//     member_user_ids arrays; walk the groups collection to discover a
//     user's groups.
type User struct {
	ID     int64  `bson:"_id" json:"id"`
	Name   string `bson:"name" json:"name"`
	NameCI string `bson:"name_ci" json:"name_ci"` // lowercase, diacritics-stripped

	Picture   string `bson:"picture,omitempty" json:"picture,omitempty"`
	ConnectID string `bson:"connect_id,omitempty" json:"connect_id,omitempty"`

	Options UserOptions `bson:"options" json:"options"`

	IsFirstTimeUser bool `bson:"is_first_time_user" json:"is_first_time_user"`

	// RefOrgID points at the user's personal organization, when one was
	// created for them at first login.
	RefOrgID *int64 `bson:"ref_org_id,omitempty" json:"ref_org_id,omitempty"`

	FirstLoginAt     *time.Time `bson:"first_login_at,omitempty" json:"first_login_at,omitempty"`
	LastConnectionAt *time.Time `bson:"last_connection_at,omitempty" json:"last_connection_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// UserOptions is the free-form options bag carried on a user row.
type UserOptions struct {
	Locale       string `bson:"locale,omitempty" json:"locale,omitempty"`
	AuthSubject  string `bson:"auth_subject,omitempty" json:"authSubject,omitempty"`
	IsConsultant bool   `bson:"is_consultant,omitempty" json:"isConsultant,omitempty"`
	IsPartner    bool   `bson:"is_partner,omitempty" json:"isPartner,omitempty"`
}

// IsZero reports whether no option field is set.
func (o UserOptions) IsZero() bool {
	return o == UserOptions{}
}
