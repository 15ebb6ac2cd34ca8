package dto

import (
	"github.com/deskgate/deskgate/internal/domain"
)

// StaffLoginRequest payload.
type StaffLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordResetRequest payload for initiating reset.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest payload for confirming reset.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AssignRequest payload. A nil assignee asks the round-robin resolver to
// pick one.
type AssignRequest struct {
	AssigneeID *string `json:"assignee_id"`
}

// TransferRequest payload for moving a ticket to another team.
type TransferRequest struct {
	TeamID     string  `json:"team_id"`
	AssigneeID *string `json:"assignee_id"`
}

// TransitionRequest payload for status changes.
type TransitionRequest struct {
	Status  domain.TicketStatus `json:"status"`
	Comment string              `json:"comment"`
}

// PriorityRequest payload for priority changes.
type PriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// BulkRequest payload for multi-ticket operations.
type BulkRequest struct {
	Operation  string                `json:"operation"`
	TicketIDs  []string              `json:"ticket_ids"`
	AssigneeID *string               `json:"assignee_id"`
	TeamID     string                `json:"team_id"`
	Status     domain.TicketStatus   `json:"status"`
	Priority   domain.TicketPriority `json:"priority"`
	Comment    string                `json:"comment"`
}

// MessageRequest payload for staff messages; message_type defaults to a
// public reply.
type MessageRequest struct {
	Body        string                    `json:"body"`
	MessageType *domain.TicketMessageType `json:"message_type,omitempty"`
}
