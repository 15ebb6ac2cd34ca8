package domain

import "time"

// TicketEventType captures what changed in an audit entry.
type TicketEventType string

const (
	EventTypeCreated         TicketEventType = "CREATED"
	EventTypeStatusChange    TicketEventType = "STATUS_CHANGE"
	EventTypeAssigneeChange  TicketEventType = "ASSIGNEE_CHANGE"
	EventTypePriorityChange  TicketEventType = "PRIORITY_CHANGE"
	EventTypeTeamChange      TicketEventType = "TEAM_CHANGE"
	EventTypeMessageAdded    TicketEventType = "MESSAGE_ADDED"
	EventTypeSlaClockChanged TicketEventType = "SLA_CLOCK_CHANGED"
)

// TicketEvent is an immutable audit trail entry. Old and new values carry the
// fields relevant to the event type.
type TicketEvent struct {
	ID        string
	TicketID  string
	EventType TicketEventType
	ActorType MessageAuthorType
	ActorID   *string
	OldValue  map[string]any
	NewValue  map[string]any
	CreatedAt time.Time
}
