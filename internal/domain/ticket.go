package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew                TicketStatus = "NEW"
	TicketStatusTriaged            TicketStatus = "TRIAGED"
	TicketStatusAssigned           TicketStatus = "ASSIGNED"
	TicketStatusInProgress         TicketStatus = "IN_PROGRESS"
	TicketStatusWaitingOnRequester TicketStatus = "WAITING_ON_REQUESTER"
	TicketStatusWaitingOnVendor    TicketStatus = "WAITING_ON_VENDOR"
	TicketStatusResolved           TicketStatus = "RESOLVED"
	TicketStatusClosed             TicketStatus = "CLOSED"
	TicketStatusReopened           TicketStatus = "REOPENED"
)

// IsWaiting reports whether the status pauses the resolution clock.
func (s TicketStatus) IsWaiting() bool {
	return s == TicketStatusWaitingOnRequester || s == TicketStatusWaitingOnVendor
}

// IsValid reports whether the status is a known lifecycle state.
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusNew, TicketStatusTriaged, TicketStatusAssigned,
		TicketStatusInProgress, TicketStatusWaitingOnRequester,
		TicketStatusWaitingOnVendor, TicketStatusResolved,
		TicketStatusClosed, TicketStatusReopened:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency, P1 highest.
type TicketPriority string

const (
	TicketPriorityP1 TicketPriority = "P1"
	TicketPriorityP2 TicketPriority = "P2"
	TicketPriorityP3 TicketPriority = "P3"
	TicketPriorityP4 TicketPriority = "P4"
)

// IsValid reports whether the priority is one of P1-P4.
func (p TicketPriority) IsValid() bool {
	switch p {
	case TicketPriorityP1, TicketPriorityP2, TicketPriorityP3, TicketPriorityP4:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          string
	Number      int64
	RequesterID string
	TeamID      *string
	AssigneeID  *string
	Subject     string
	Description string
	Status      TicketStatus
	Priority    TicketPriority

	FirstResponseDueAt *time.Time
	FirstResponseAt    *time.Time
	DueAt              *time.Time
	SlaPausedAt        *time.Time

	ResolvedAt  *time.Time
	ClosedAt    *time.Time
	CompletedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayCode derives the human-facing ticket code from the owning team's
// short code, the creation date and the sequential number. Unrouted tickets
// use the GEN prefix.
func (t *Ticket) DisplayCode(teamCode string) string {
	if teamCode == "" {
		teamCode = "GEN"
	}
	return fmt.Sprintf("%s_%s_%d", teamCode, t.CreatedAt.Format("20060102"), t.Number)
}
