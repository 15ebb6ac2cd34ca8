// Package access holds the pure per-role view/write decision functions. The
// same predicates gate every mutating operation and shape list-query scopes,
// so tickets can never be reached through a list that the detail endpoints
// would deny.
package access

import "github.com/deskgate/deskgate/internal/domain"

// Actor is the authenticated caller as the policy sees it.
type Actor struct {
	Kind           domain.SubjectType
	ID             string
	Role           domain.StaffRole
	TeamID         *string
	GrantedTeamIDs []string
}

// UserActor builds an Actor for a requester.
func UserActor(userID string) Actor {
	return Actor{Kind: domain.SubjectTypeUser, ID: userID}
}

// StaffActor builds an Actor for a staff member plus their view grants.
func StaffActor(staff *domain.StaffMember, grantedTeamIDs []string) Actor {
	return Actor{
		Kind:           domain.SubjectTypeStaff,
		ID:             staff.ID,
		Role:           staff.Role,
		TeamID:         staff.TeamID,
		GrantedTeamIDs: grantedTeamIDs,
	}
}

// capability describes what a staff role may do. One table lookup replaces
// per-operation role branching.
type capability struct {
	viewAll      bool
	writeAll     bool
	teamScoped   bool
	assignedOnly bool
}

var roleCapabilities = map[domain.StaffRole]capability{
	domain.StaffRoleAdmin:    {viewAll: true, writeAll: true},
	domain.StaffRoleTeamLead: {teamScoped: true},
	domain.StaffRoleAgent:    {teamScoped: true, assignedOnly: true},
}

// CanView reports whether the actor may read the ticket.
func (a Actor) CanView(ticket *domain.Ticket) bool {
	if a.Kind == domain.SubjectTypeUser {
		return ticket.RequesterID == a.ID
	}
	caps, ok := roleCapabilities[a.Role]
	if !ok {
		return false
	}
	if caps.viewAll {
		return true
	}
	if a.inPrimaryTeam(ticket) {
		if !caps.assignedOnly {
			return true
		}
		if ticket.AssigneeID == nil || *ticket.AssigneeID == a.ID {
			return true
		}
	}
	// Explicit grants give view access beyond the primary team.
	if ticket.TeamID != nil {
		for _, teamID := range a.GrantedTeamIDs {
			if teamID == *ticket.TeamID {
				return true
			}
		}
	}
	return false
}

// CanWrite reports whether the actor may mutate the ticket (assign, transfer,
// transition, priority). Requesters never pass CanWrite; their only write
// surface is posting public replies, gated by CanReply.
func (a Actor) CanWrite(ticket *domain.Ticket) bool {
	if a.Kind != domain.SubjectTypeStaff {
		return false
	}
	caps, ok := roleCapabilities[a.Role]
	if !ok {
		return false
	}
	if caps.writeAll {
		return true
	}
	if !a.inPrimaryTeam(ticket) {
		return false
	}
	if caps.assignedOnly {
		return ticket.AssigneeID == nil || *ticket.AssigneeID == a.ID
	}
	return true
}

// CanReply reports whether the actor may post a public reply. Posting is a
// mutation, so for staff it follows CanWrite; a view grant alone is not
// enough to join the thread.
func (a Actor) CanReply(ticket *domain.Ticket) bool {
	if a.Kind == domain.SubjectTypeUser {
		return ticket.RequesterID == a.ID
	}
	return a.CanWrite(ticket)
}

func (a Actor) inPrimaryTeam(ticket *domain.Ticket) bool {
	return a.TeamID != nil && ticket.TeamID != nil && *a.TeamID == *ticket.TeamID
}

// Scope translates the actor's eligibility into list-query constraints. The
// repository renders it into SQL so list results match the predicates above.
type Scope struct {
	All          bool
	RequesterID  *string
	TeamID       *string
	ViewTeamIDs  []string
	AssigneeID   *string
	OrUnassigned bool
	Empty        bool
}

// BuildScope computes the list filter for the actor.
func (a Actor) BuildScope() Scope {
	if a.Kind == domain.SubjectTypeUser {
		id := a.ID
		return Scope{RequesterID: &id}
	}
	caps, ok := roleCapabilities[a.Role]
	if !ok {
		return Scope{Empty: true}
	}
	if caps.viewAll {
		return Scope{All: true}
	}
	scope := Scope{TeamID: a.TeamID, ViewTeamIDs: a.GrantedTeamIDs}
	if a.TeamID == nil && len(a.GrantedTeamIDs) == 0 {
		scope.Empty = true
		return scope
	}
	if caps.assignedOnly {
		id := a.ID
		scope.AssigneeID = &id
		scope.OrUnassigned = true
	}
	return scope
}
