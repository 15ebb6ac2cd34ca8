package dto

import (
	"time"

	"github.com/deskgate/deskgate/internal/domain"
)

// RoutingRuleRequest payload for creating or updating a routing rule.
type RoutingRuleRequest struct {
	Name       string   `json:"name"`
	Keywords   []string `json:"keywords"`
	TeamID     string   `json:"team_id"`
	AssigneeID *string  `json:"assignee_id"`
	Priority   int      `json:"priority"`
	IsActive   *bool    `json:"is_active"`
}

// RoutingRuleResponse response.
type RoutingRuleResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Keywords   []string  `json:"keywords"`
	TeamID     string    `json:"team_id"`
	AssigneeID *string   `json:"assignee_id"`
	Priority   int       `json:"priority"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TeamRequest payload for creating or updating a team.
type TeamRequest struct {
	Name     string                    `json:"name"`
	Code     string                    `json:"code"`
	Strategy domain.AssignmentStrategy `json:"strategy"`
	IsActive *bool                     `json:"is_active"`
}

// TeamResponse response.
type TeamResponse struct {
	ID                 string                    `json:"id"`
	Name               string                    `json:"name"`
	Code               string                    `json:"code"`
	Strategy           domain.AssignmentStrategy `json:"strategy"`
	LastAssignedUserID *string                   `json:"last_assigned_user_id"`
	IsActive           bool                      `json:"is_active"`
	CreatedAt          time.Time                 `json:"created_at"`
}

// TeamMemberRequest payload.
type TeamMemberRequest struct {
	StaffID string `json:"staff_id"`
}

// SlaPolicyRequest payload for creating or updating an SLA policy. A nil
// team_id defines a global default.
type SlaPolicyRequest struct {
	TeamID             *string               `json:"team_id"`
	Priority           domain.TicketPriority `json:"priority"`
	FirstResponseHours int                   `json:"first_response_hours"`
	ResolutionHours    int                   `json:"resolution_hours"`
	IsActive           *bool                 `json:"is_active"`
}

// SlaPolicyResponse response.
type SlaPolicyResponse struct {
	ID                 string                `json:"id"`
	TeamID             *string               `json:"team_id"`
	Priority           domain.TicketPriority `json:"priority"`
	FirstResponseHours int                   `json:"first_response_hours"`
	ResolutionHours    int                   `json:"resolution_hours"`
	IsActive           bool                  `json:"is_active"`
}

// AccessGrantRequest payload.
type AccessGrantRequest struct {
	StaffID string `json:"staff_id"`
	TeamID  string `json:"team_id"`
}
