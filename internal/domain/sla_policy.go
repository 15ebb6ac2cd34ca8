package domain

import "time"

// SlaPolicy defines response and resolution targets for one priority. A
// policy either belongs to a team (TeamID set) or is a global default.
type SlaPolicy struct {
	ID                 string
	TeamID             *string
	Priority           TicketPriority
	FirstResponseHours int
	ResolutionHours    int
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
