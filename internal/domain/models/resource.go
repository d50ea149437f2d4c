// internal/domain/models/resource.go
package models

import "time"

// Resource kinds that can carry ACL rules.
const (
	ResourceKindOrganization = "organization"
	ResourceKindWorkspace    = "workspace"
	ResourceKindDocument     = "document"
)

// ACLRule grants a group's members some access on the resource that
// carries it. Each rule names exactly one group.
type ACLRule struct {
	GroupID int64 `bson:"group_id" json:"group_id"`

	// Group is populated by resourcestore.GetWithGroups and carries the
	// group's direct member users. nil when the rule was loaded bare.
	Group *Group `bson:"-" json:"group,omitempty"`
}

// Resource is anything that can be shared: an organization, a
// workspace, or a document. The ACL rule list is ordered.
type Resource struct {
	ID     int64  `bson:"_id" json:"id"`
	Kind   string `bson:"kind" json:"kind"`
	Name   string `bson:"name" json:"name"`
	NameCI string `bson:"name_ci" json:"name_ci"`

	ACLRules []ACLRule `bson:"acl_rules" json:"acl_rules"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
