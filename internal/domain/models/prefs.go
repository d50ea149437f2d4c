// internal/domain/models/prefs.go
package models

import "time"

// Prefs is a per-(user, organization) preference row. Rows are removed
// when their user is deleted.
type Prefs struct {
	ID     int64 `bson:"_id" json:"id"`
	UserID int64 `bson:"user_id" json:"user_id"`
	OrgID  int64 `bson:"org_id" json:"org_id"`

	Prefs map[string]any `bson:"prefs" json:"prefs"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
