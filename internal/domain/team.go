package domain

import "time"

// AssignmentStrategy controls how new tickets are handed to team members.
type AssignmentStrategy string

const (
	AssignmentStrategyManual     AssignmentStrategy = "MANUAL"
	AssignmentStrategyRoundRobin AssignmentStrategy = "ROUND_ROBIN"
)

// Team owns tickets and carries the round-robin rotation pointer.
type Team struct {
	ID                 string
	Name               string
	Code               string
	Strategy           AssignmentStrategy
	LastAssignedUserID *string
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TeamMember links a staff member to a team. Membership creation order is the
// round-robin ring order.
type TeamMember struct {
	ID        string
	TeamID    string
	StaffID   string
	CreatedAt time.Time
}
