package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/deskgate/deskgate/internal/access"
	"github.com/deskgate/deskgate/internal/domain"
	"github.com/deskgate/deskgate/internal/events"
	"github.com/deskgate/deskgate/internal/repository"
	"github.com/deskgate/deskgate/internal/sla"
	apperrors "github.com/deskgate/deskgate/pkg/util"
)

// AssignmentService handles assigning tickets to staff and transferring them
// between teams. It owns the round-robin assignee resolver.
type AssignmentService struct {
	store      repository.Store
	resolver   *sla.Resolver
	dispatcher events.Dispatcher
	now        func() time.Time
}

// AssignmentDependencies bundles collaborator requirements.
type AssignmentDependencies struct {
	Store      repository.Store
	Resolver   *sla.Resolver
	Dispatcher events.Dispatcher
	Now        func() time.Time
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &AssignmentService{
		store:      deps.Store,
		resolver:   deps.Resolver,
		dispatcher: deps.Dispatcher,
		now:        now,
	}
}

// Assign sets the ticket's assignee. A nil assigneeID asks the team's
// strategy to pick one; today only round-robin resolves, any other strategy
// is a validation error. Assigning a ticket still in NEW, TRIAGED or
// REOPENED promotes it to ASSIGNED with its own status-changed event.
func (s *AssignmentService) Assign(ctx context.Context, actor access.Actor, ticketID string, assigneeID *string) (*domain.Ticket, error) {
	var (
		result   *domain.Ticket
		promoted bool
		oldState domain.TicketStatus
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, store repository.Store) error {
		ticket, err := getTicket(ctx, store, ticketID)
		if err != nil {
			return err
		}
		if !actor.CanWrite(ticket) {
			return apperrors.NewForbidden("access denied")
		}

		resolved, err := s.resolveAssignee(ctx, store, ticket, assigneeID)
		if err != nil {
			return err
		}

		oldAssignee := ticket.AssigneeID
		ticket.AssigneeID = resolved

		oldState = ticket.Status
		switch ticket.Status {
		case domain.TicketStatusNew, domain.TicketStatusTriaged, domain.TicketStatusReopened:
			ticket.Status = domain.TicketStatusAssigned
			promoted = true
		}

		if err := store.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		if err := recordAssigneeChange(ctx, store, actor, ticket.ID, oldAssignee, ticket.AssigneeID); err != nil {
			return err
		}
		if promoted {
			if err := recordStatusChange(ctx, store, actor, ticket.ID, oldState, ticket.Status, "assigned"); err != nil {
				return err
			}
		}
		result = ticket
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: result.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketAssignedPayload{
			AssigneeStaffID: result.AssigneeID,
			TeamID:          result.TeamID,
		},
	})
	if promoted {
		s.publish(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: result.ID,
			Actor:    eventActor(actor),
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldState,
				NewStatus: result.Status,
				Comment:   "assigned",
			},
		})
	}
	return result, nil
}

// Transfer moves the ticket to another team, re-anchoring both SLA due
// timestamps from the old team's targets to the new team's. The assignee is
// kept only when explicitly supplied and a member of the new team; otherwise
// the ticket arrives unassigned.
func (s *AssignmentService) Transfer(ctx context.Context, actor access.Actor, ticketID, newTeamID string, assigneeID *string) (*domain.Ticket, error) {
	var (
		result  *domain.Ticket
		oldTeam *string
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, store repository.Store) error {
		ticket, err := getTicket(ctx, store, ticketID)
		if err != nil {
			return err
		}
		if !actor.CanWrite(ticket) {
			return apperrors.NewForbidden("access denied")
		}

		team, err := store.Teams().GetByID(ctx, newTeamID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("team", map[string]any{"team_id": newTeamID})
			}
			return err
		}
		if !team.IsActive {
			return apperrors.NewValidationError("team inactive", map[string]any{"team_id": newTeamID})
		}
		if assigneeID != nil {
			member, err := store.Teams().IsMember(ctx, team.ID, *assigneeID)
			if err != nil {
				return err
			}
			if !member {
				return apperrors.NewValidationError("assignee is not a member of the target team",
					map[string]any{"team_id": team.ID, "staff_id": *assigneeID})
			}
		}

		oldTargets, err := s.resolver.Resolve(ctx, ticket.TeamID, ticket.Priority)
		if err != nil {
			return err
		}
		newTargets, err := s.resolver.Resolve(ctx, &team.ID, ticket.Priority)
		if err != nil {
			return err
		}

		oldTeam = ticket.TeamID
		oldAssignee := ticket.AssigneeID
		oldDue := ticket.DueAt
		ticket.TeamID = &team.ID
		ticket.AssigneeID = assigneeID
		sla.Reanchor(ticket, oldTargets, newTargets)

		if err := store.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		event := &domain.TicketEvent{
			TicketID:  ticket.ID,
			EventType: domain.EventTypeTeamChange,
			ActorType: actorType(actor),
			ActorID:   actorID(actor),
			OldValue:  map[string]any{"team_id": oldTeam, "due_at": oldDue},
			NewValue:  map[string]any{"team_id": ticket.TeamID, "due_at": ticket.DueAt},
		}
		if err := store.Events().Create(ctx, event); err != nil {
			return err
		}
		if !equalPtr(oldAssignee, ticket.AssigneeID) {
			if err := recordAssigneeChange(ctx, store, actor, ticket.ID, oldAssignee, ticket.AssigneeID); err != nil {
				return err
			}
		}
		result = ticket
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketTransferred,
		TicketID: result.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketTransferredPayload{
			OldTeamID:  oldTeam,
			NewTeamID:  newTeamID,
			AssigneeID: result.AssigneeID,
		},
	})
	return result, nil
}

func (s *AssignmentService) resolveAssignee(ctx context.Context, store repository.Store, ticket *domain.Ticket, assigneeID *string) (*string, error) {
	if assigneeID != nil {
		assignee, err := store.Staff().GetByID(ctx, *assigneeID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("staff", map[string]any{"staff_id": *assigneeID})
			}
			return nil, err
		}
		if !assignee.Active {
			return nil, apperrors.NewValidationError("assignee inactive", map[string]any{"staff_id": assignee.ID})
		}
		if ticket.TeamID != nil {
			member, err := store.Teams().IsMember(ctx, *ticket.TeamID, assignee.ID)
			if err != nil {
				return nil, err
			}
			if !member {
				return nil, apperrors.NewValidationError("assignee is not a member of the ticket's team",
					map[string]any{"team_id": *ticket.TeamID, "staff_id": assignee.ID})
			}
		}
		return &assignee.ID, nil
	}

	if ticket.TeamID == nil {
		return nil, apperrors.NewValidationError("assignee required for tickets without a team", nil)
	}
	resolved, err := s.ResolveRoundRobin(ctx, store, *ticket.TeamID)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return nil, apperrors.NewValidationError("team cannot auto-assign; provide an assignee",
			map[string]any{"team_id": *ticket.TeamID})
	}
	return resolved, nil
}

// ResolveRoundRobin advances the team's rotation pointer and returns the next
// assignee. The strategy check happens before any lock; for round-robin teams
// the team row is then re-read under FOR UPDATE so concurrent ticket
// creations against the same team serialize on the pointer advance, and the
// pointer write lands in the same transaction before the lock releases.
// Non-round-robin teams and empty member rings resolve to nil.
func (s *AssignmentService) ResolveRoundRobin(ctx context.Context, store repository.Store, teamID string) (*string, error) {
	team, err := store.Teams().GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("team", map[string]any{"team_id": teamID})
		}
		return nil, err
	}
	if team.Strategy != domain.AssignmentStrategyRoundRobin {
		return nil, nil
	}

	team, err = store.Teams().GetByIDForUpdate(ctx, teamID)
	if err != nil {
		return nil, err
	}
	members, err := store.Teams().ListMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}
	next := nextRoundRobinMember(members, team.LastAssignedUserID)
	if err := store.Teams().SetLastAssigned(ctx, teamID, next); err != nil {
		return nil, err
	}
	return &next, nil
}

// nextRoundRobinMember picks the member after lastID in ring order, wrapping
// to the first. A nil or departed lastID restarts at the first member.
func nextRoundRobinMember(members []domain.TeamMember, lastID *string) string {
	if lastID == nil {
		return members[0].StaffID
	}
	for i, member := range members {
		if member.StaffID == *lastID {
			return members[(i+1)%len(members)].StaffID
		}
	}
	return members[0].StaffID
}

func (s *AssignmentService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = s.now()
	_ = s.dispatcher.Publish(ctx, event)
}
