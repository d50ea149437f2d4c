// internal/domain/models/fulluser.go
package models

// FullUser is the outward-facing projection of a user the API layer
// hands to callers. It is built by accounts.MakeFullUser and never
// persisted.
//
// Anonymous and IsSupport are mutually exclusive and absent for
// ordinary users.
type FullUser struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Picture   string      `json:"picture,omitempty"`
	ConnectID string      `json:"connect_id,omitempty"`
	Options   UserOptions `json:"options"`

	IsFirstTimeUser bool `json:"is_first_time_user,omitempty"`
	Anonymous       bool `json:"anonymous,omitempty"`
	IsSupport       bool `json:"is_support,omitempty"`

	RefOrgID *int64 `json:"ref_org_id,omitempty"`
}
