// internal/domain/models/loginrecord.go
package models

import "time"

// LoginRecord is an audit row appended on every successful login
// resolution. Dashboards read recent activity from this collection.
type LoginRecord struct {
	UserID    int64     `bson:"user_id" json:"user_id"`
	Email     string    `bson:"email" json:"email"`
	Provider  string    `bson:"provider,omitempty" json:"provider,omitempty"`
	IP        string    `bson:"ip,omitempty" json:"ip,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
