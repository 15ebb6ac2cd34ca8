package domain

import "time"

// AccessGrant gives a staff member view access to another team's tickets
// without moving their primary team assignment.
type AccessGrant struct {
	ID        string
	StaffID   string
	TeamID    string
	CreatedAt time.Time
}
