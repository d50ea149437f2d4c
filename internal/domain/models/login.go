// internal/domain/models/login.go
package models

import "time"

// Login maps a normalized email to a user.
//
// Email is the lowercase form used for lookup and uniqueness (exactly
// one login row per distinct normalized email, enforced by a unique
// index). DisplayEmail preserves the casing the address was originally
// supplied with, for presentation.
type Login struct {
	ID           int64  `bson:"_id" json:"id"`
	UserID       int64  `bson:"user_id" json:"user_id"`
	Email        string `bson:"email" json:"email"`
	DisplayEmail string `bson:"display_email" json:"display_email"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
