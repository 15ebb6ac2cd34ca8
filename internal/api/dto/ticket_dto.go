package dto

import (
	"time"

	"github.com/deskgate/deskgate/internal/domain"
	"github.com/deskgate/deskgate/internal/sla"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject      string                `json:"subject"`
	Description  string                `json:"description"`
	Priority     domain.TicketPriority `json:"priority"`
	CustomFields map[string]any        `json:"custom_fields"`
}

// CreateMessageRequest payload for requester replies.
type CreateMessageRequest struct {
	Body string `json:"body"`
}

// TicketSummary response.
type TicketSummary struct {
	ID         string                `json:"id"`
	Number     int64                 `json:"number"`
	TeamID     *string               `json:"team_id"`
	AssigneeID *string               `json:"assignee_id"`
	Subject    string                `json:"subject"`
	Status     domain.TicketStatus   `json:"status"`
	Priority   domain.TicketPriority `json:"priority"`
	SlaStatus  sla.Status            `json:"sla_status"`
	DueAt      *time.Time            `json:"due_at"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID                 string                  `json:"id"`
	Number             int64                   `json:"number"`
	Code               string                  `json:"code"`
	RequesterID        string                  `json:"requester_id"`
	TeamID             *string                 `json:"team_id"`
	AssigneeID         *string                 `json:"assignee_id"`
	Subject            string                  `json:"subject"`
	Description        string                  `json:"description"`
	Status             domain.TicketStatus     `json:"status"`
	Priority           domain.TicketPriority   `json:"priority"`
	SlaStatus          sla.Status              `json:"sla_status"`
	FirstResponseDueAt *time.Time              `json:"first_response_due_at"`
	FirstResponseAt    *time.Time              `json:"first_response_at"`
	DueAt              *time.Time              `json:"due_at"`
	SlaPausedAt        *time.Time              `json:"sla_paused_at"`
	ResolvedAt         *time.Time              `json:"resolved_at"`
	ClosedAt           *time.Time              `json:"closed_at"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
	Messages           []TicketMessageResponse `json:"messages"`
}

// TicketMessageResponse represents a thread message.
type TicketMessageResponse struct {
	ID          string                   `json:"id"`
	MessageType domain.TicketMessageType `json:"message_type"`
	AuthorType  domain.MessageAuthorType `json:"author_type"`
	AuthorID    *string                  `json:"author_id"`
	Body        string                   `json:"body"`
	CreatedAt   time.Time                `json:"created_at"`
}

// TicketEventResponse represents an audit trail entry.
type TicketEventResponse struct {
	ID        string                   `json:"id"`
	EventType domain.TicketEventType   `json:"event_type"`
	ActorType domain.MessageAuthorType `json:"actor_type"`
	ActorID   *string                  `json:"actor_id"`
	OldValue  map[string]any           `json:"old_value,omitempty"`
	NewValue  map[string]any           `json:"new_value,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
}
