package domain

import "time"

// RoutingRule is an ordered keyword-matching rule that assigns new tickets to
// a team and optionally a fixed assignee. Keywords are stored normalized:
// trimmed, lowercased, deduplicated, empties dropped.
type RoutingRule struct {
	ID         string
	Name       string
	Keywords   []string
	TeamID     string
	AssigneeID *string
	Priority   int
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
