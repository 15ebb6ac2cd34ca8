package service

import (
	"context"
	"errors"
	"strings"
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

// CustomFieldsService validates and normalizes custom field values at ticket
// creation. It is an external collaborator; this core only invokes it.
type CustomFieldsService interface {
	ValidateAndNormalize(ctx context.Context, values map[string]any) (map[string]any, error)
}

// TicketService coordinates the ticket lifecycle: creation with routing and
// SLA anchoring, the status state machine, priority changes and the message
// thread that drives the first-response clock.
type TicketService struct {
	store        repository.Store
	resolver     *sla.Resolver
	routing      *RoutingService
	assignments  *AssignmentService
	customFields CustomFieldsService
	dispatcher   events.Dispatcher
	now          func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store        repository.Store
	Resolver     *sla.Resolver
	Routing      *RoutingService
	Assignments  *AssignmentService
	CustomFields CustomFieldsService
	Dispatcher   events.Dispatcher
	Now          func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject      string
	Description  string
	Priority     domain.TicketPriority
	CustomFields map[string]any
}

// TicketListFilter describes listing filters on top of the caller's scope.
type TicketListFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	AssigneeID  *string
	TeamID      *string
	SlaStatus   *sla.Status
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	UpdatedFrom *time.Time
	UpdatedTo   *time.Time
	SortBy      string
	Limit       int
	Offset      int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		store:        deps.Store,
		resolver:     deps.Resolver,
		routing:      deps.Routing,
		assignments:  deps.Assignments,
		customFields: deps.CustomFields,
		dispatcher:   deps.Dispatcher,
		now:          now,
	}
}

// allowedTransitions is the status edge table. Self-loops are handled as
// no-ops before the table is consulted.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusNew: {
		domain.TicketStatusTriaged, domain.TicketStatusAssigned, domain.TicketStatusInProgress,
		domain.TicketStatusWaitingOnRequester, domain.TicketStatusWaitingOnVendor,
		domain.TicketStatusResolved, domain.TicketStatusClosed,
	},
	domain.TicketStatusTriaged: {
		domain.TicketStatusAssigned, domain.TicketStatusInProgress,
		domain.TicketStatusWaitingOnRequester, domain.TicketStatusWaitingOnVendor,
		domain.TicketStatusResolved, domain.TicketStatusClosed,
	},
	domain.TicketStatusAssigned: {
		domain.TicketStatusInProgress,
		domain.TicketStatusWaitingOnRequester, domain.TicketStatusWaitingOnVendor,
		domain.TicketStatusResolved, domain.TicketStatusClosed,
	},
	domain.TicketStatusInProgress: {
		domain.TicketStatusWaitingOnRequester, domain.TicketStatusWaitingOnVendor,
		domain.TicketStatusResolved, domain.TicketStatusClosed,
	},
	domain.TicketStatusWaitingOnRequester: {
		domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed,
	},
	domain.TicketStatusWaitingOnVendor: {
		domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed,
	},
	domain.TicketStatusResolved: {
		domain.TicketStatusReopened, domain.TicketStatusClosed,
	},
	domain.TicketStatusClosed: {
		domain.TicketStatusReopened,
	},
	domain.TicketStatusReopened: {
		domain.TicketStatusTriaged, domain.TicketStatusAssigned, domain.TicketStatusInProgress,
		domain.TicketStatusWaitingOnRequester, domain.TicketStatusWaitingOnVendor,
		domain.TicketStatusResolved, domain.TicketStatusClosed,
	},
}

// IsValidTransition reports whether the edge is in the table.
func IsValidTransition(current, next domain.TicketStatus) bool {
	if current == next {
		return true
	}
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Create routes, SLA-anchors and persists a new ticket for a requester.
func (s *TicketService) Create(ctx context.Context, requesterID string, input TicketCreateInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityP3
	}
	if !priority.IsValid() {
		return nil, apperrors.NewValidationError("malformed priority", map[string]any{"priority": priority})
	}

	customFields := input.CustomFields
	if s.customFields != nil && len(customFields) > 0 {
		normalized, err := s.customFields.ValidateAndNormalize(ctx, customFields)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		customFields = normalized
	}

	var ticket *domain.Ticket
	err := s.store.RunInTx(ctx, func(ctx context.Context, store repository.Store) error {
		decision, err := s.routing.Route(ctx, store, subject, description)
		if err != nil {
			return err
		}

		var teamID, assigneeID *string
		if decision != nil {
			teamID = &decision.TeamID
			assigneeID = decision.AssigneeID
			if assigneeID == nil {
				assigneeID, err = s.assignments.ResolveRoundRobin(ctx, store, decision.TeamID)
				if err != nil {
					return err
				}
			}
		}

		targets, err := s.resolver.Resolve(ctx, teamID, priority)
		if err != nil {
			return err
		}

		now := s.now()
		ticket = &domain.Ticket{
			RequesterID: requesterID,
			TeamID:      teamID,
			AssigneeID:  assigneeID,
			Subject:     subject,
			Description: description,
			Status:      domain.TicketStatusNew,
			Priority:    priority,
		}
		sla.ApplyCreation(ticket, now, targets)

		if err := store.Tickets().Create(ctx, ticket); err != nil {
			return err
		}
		event := &domain.TicketEvent{
			TicketID:  ticket.ID,
			EventType: domain.EventTypeCreated,
			ActorType: domain.AuthorTypeUser,
			ActorID:   &requesterID,
			NewValue: map[string]any{
				"team_id":       teamID,
				"assignee_id":   assigneeID,
				"priority":      priority,
				"due_at":        ticket.DueAt,
				"custom_fields": customFields,
			},
		}
		return store.Events().Create(ctx, event)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{Type: domain.SubjectTypeUser, UserID: &requesterID},
		Payload: events.TicketCreatedPayload{
			TeamID:     ticket.TeamID,
			AssigneeID: ticket.AssigneeID,
			Priority:   ticket.Priority,
			Subject:    ticket.Subject,
		},
	})
	return ticket, nil
}

// Transition applies a status change through the edge table. A transition to
// the current status is a legal no-op. The ticket update, SLA adjustments and
// audit event commit atomically.
func (s *TicketService) Transition(ctx context.Context, actor access.Actor, ticketID string, newStatus domain.TicketStatus, comment string) (*domain.Ticket, error) {
	if !newStatus.IsValid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}

	var (
		result    *domain.Ticket
		oldStatus domain.TicketStatus
		noop      bool
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, store repository.Store) error {
		ticket, err := getTicket(ctx, store, ticketID)
		if err != nil {
			return err
		}
		if !actor.CanWrite(ticket) {
			return apperrors.NewForbidden("access denied")
		}
		if ticket.Status == newStatus {
			result = ticket
			noop = true
			return nil
		}
		if !IsValidTransition(ticket.Status, newStatus) {
			return apperrors.NewInvalidTransition(string(ticket.Status), string(newStatus))
		}

		oldStatus = ticket.Status
		if err := s.applyTransition(ctx, ticket, newStatus, s.now()); err != nil {
			return err
		}

		if err := store.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		if err := recordStatusChange(ctx, store, actor, ticket.ID, oldStatus, newStatus, comment); err != nil {
			return err
		}
		result = ticket
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if noop {
		return result, nil
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: result.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Comment:   comment,
		},
	})
	return result, nil
}

// applyTransition mutates lifecycle timestamps and the SLA clock for an
// accepted edge. Invariant afterwards: SlaPausedAt is non-nil iff the new
// status is a waiting status.
func (s *TicketService) applyTransition(ctx context.Context, ticket *domain.Ticket, newStatus domain.TicketStatus, now time.Time) error {
	wasWaiting := ticket.Status.IsWaiting()

	switch {
	case newStatus == domain.TicketStatusReopened:
		// Reopen resets the resolution clock rather than shifting it.
		targets, err := s.resolver.Resolve(ctx, ticket.TeamID, ticket.Priority)
		if err != nil {
			return err
		}
		sla.ResetOnReopen(ticket, now, targets)
		ticket.ResolvedAt = nil
		ticket.ClosedAt = nil
		ticket.CompletedAt = nil
	case newStatus.IsWaiting():
		if !wasWaiting {
			sla.Pause(ticket, now)
		}
	default:
		if wasWaiting {
			sla.Resume(ticket, now)
		}
	}

	switch newStatus {
	case domain.TicketStatusResolved:
		ticket.ResolvedAt = &now
		if ticket.CompletedAt == nil {
			ticket.CompletedAt = &now
		}
	case domain.TicketStatusClosed:
		ticket.ClosedAt = &now
		if ticket.CompletedAt == nil {
			ticket.CompletedAt = &now
		}
	}

	ticket.Status = newStatus
	return nil
}

// ChangePriority re-anchors both SLA due timestamps from the old priority's
// targets to the new priority's, preserving elapsed time and pause debt.
func (s *TicketService) ChangePriority(ctx context.Context, actor access.Actor, ticketID string, newPriority domain.TicketPriority) (*domain.Ticket, error) {
	if !newPriority.IsValid() {
		return nil, apperrors.NewValidationError("malformed priority", map[string]any{"priority": newPriority})
	}

	var (
		result      *domain.Ticket
		oldPriority domain.TicketPriority
		noop        bool
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, store repository.Store) error {
		ticket, err := getTicket(ctx, store, ticketID)
		if err != nil {
			return err
		}
		if !actor.CanWrite(ticket) {
			return apperrors.NewForbidden("access denied")
		}
		if ticket.Priority == newPriority {
			result = ticket
			noop = true
			return nil
		}

		oldTargets, err := s.resolver.Resolve(ctx, ticket.TeamID, ticket.Priority)
		if err != nil {
			return err
		}
		newTargets, err := s.resolver.Resolve(ctx, ticket.TeamID, newPriority)
		if err != nil {
			return err
		}

		oldPriority = ticket.Priority
		oldDue := ticket.DueAt
		ticket.Priority = newPriority
		sla.Reanchor(ticket, oldTargets, newTargets)

		if err := store.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		event := &domain.TicketEvent{
			TicketID:  ticket.ID,
			EventType: domain.EventTypePriorityChange,
			ActorType: actorType(actor),
			ActorID:   actorID(actor),
			OldValue:  map[string]any{"priority": oldPriority, "due_at": oldDue},
			NewValue:  map[string]any{"priority": newPriority, "due_at": ticket.DueAt},
		}
		if err := store.Events().Create(ctx, event); err != nil {
			return err
		}
		result = ticket
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if noop {
		return result, nil
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketPriorityChanged,
		TicketID: result.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketPriorityChangedPayload{
			OldPriority: oldPriority,
			NewPriority: newPriority,
		},
	})
	return result, nil
}

// AddMessage appends a reply or internal note. The first public reply by a
// non-requester stamps the ticket's first-response time, exactly once.
func (s *TicketService) AddMessage(ctx context.Context, actor access.Actor, ticketID string, messageType domain.TicketMessageType, body string) (*domain.TicketMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("body required", nil)
	}

	var (
		message       *domain.TicketMessage
		firstResponse bool
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, store repository.Store) error {
		ticket, err := getTicket(ctx, store, ticketID)
		if err != nil {
			return err
		}

		switch actor.Kind {
		case domain.SubjectTypeUser:
			if !actor.CanReply(ticket) {
				return apperrors.NewForbidden("access denied")
			}
			if messageType != domain.MessageTypePublicReply {
				return apperrors.NewForbidden("requesters can only post public replies")
			}
		case domain.SubjectTypeStaff:
			// Grants widen visibility only; posting is a mutation and
			// needs write access.
			if !actor.CanWrite(ticket) {
				return apperrors.NewForbidden("access denied")
			}
		default:
			return apperrors.NewUnauthorized("unknown actor")
		}

		id := actor.ID
		message = &domain.TicketMessage{
			TicketID:    ticket.ID,
			AuthorType:  actorType(actor),
			AuthorID:    &id,
			MessageType: messageType,
			Body:        body,
		}
		if err := store.Messages().Create(ctx, message); err != nil {
			return err
		}

		if messageType == domain.MessageTypePublicReply &&
			actor.Kind == domain.SubjectTypeStaff &&
			sla.MarkFirstResponse(ticket, s.now()) {
			firstResponse = true
			if err := store.Tickets().Update(ctx, ticket); err != nil {
				return err
			}
			event := &domain.TicketEvent{
				TicketID:  ticket.ID,
				EventType: domain.EventTypeSlaClockChanged,
				ActorType: actorType(actor),
				ActorID:   &id,
				NewValue:  map[string]any{"first_response_at": ticket.FirstResponseAt},
			}
			if err := store.Events().Create(ctx, event); err != nil {
				return err
			}
		}

		event := &domain.TicketEvent{
			TicketID:  ticket.ID,
			EventType: domain.EventTypeMessageAdded,
			ActorType: actorType(actor),
			ActorID:   &id,
			NewValue:  map[string]any{"message_id": message.ID, "message_type": messageType},
		}
		return store.Events().Create(ctx, event)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: message.TicketID,
		Actor:    eventActor(actor),
		Payload: events.TicketMessageAddedPayload{
			MessageID:     message.ID,
			MessageType:   message.MessageType,
			AuthorType:    message.AuthorType,
			AuthorID:      message.AuthorID,
			FirstResponse: firstResponse,
		},
	})
	return message, nil
}

// Get fetches a ticket, enforcing view access.
func (s *TicketService) Get(ctx context.Context, actor access.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := getTicket(ctx, s.store, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !actor.CanView(ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// List returns tickets visible to the actor, narrowed by the filter.
func (s *TicketService) List(ctx context.Context, actor access.Actor, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Scope:       actor.BuildScope(),
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		AssigneeID:  filter.AssigneeID,
		TeamID:      filter.TeamID,
		SlaStatus:   filter.SlaStatus,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		UpdatedFrom: filter.UpdatedFrom,
		UpdatedTo:   filter.UpdatedTo,
		SortBy:      filter.SortBy,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	tickets, err := s.store.Tickets().ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListMessages returns the ticket thread; internal notes are filtered out
// for requesters.
func (s *TicketService) ListMessages(ctx context.Context, actor access.Actor, ticketID string) ([]domain.TicketMessage, error) {
	ticket, err := getTicket(ctx, s.store, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !actor.CanView(ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	messages, err := s.store.Messages().ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if actor.Kind != domain.SubjectTypeUser {
		return messages, nil
	}
	visible := make([]domain.TicketMessage, 0, len(messages))
	for _, message := range messages {
		if message.MessageType == domain.MessageTypeInternalNote {
			continue
		}
		visible = append(visible, message)
	}
	return visible, nil
}

// ListEvents returns the audit trail. Requesters see only status, assignee
// and team changes.
func (s *TicketService) ListEvents(ctx context.Context, actor access.Actor, ticketID string, limit, offset int) ([]domain.TicketEvent, error) {
	ticket, err := getTicket(ctx, s.store, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !actor.CanView(ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	entries, err := s.store.Events().ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if actor.Kind != domain.SubjectTypeUser {
		return entries, nil
	}
	visible := make([]domain.TicketEvent, 0, len(entries))
	for _, entry := range entries {
		switch entry.EventType {
		case domain.EventTypeStatusChange, domain.EventTypeAssigneeChange, domain.EventTypeTeamChange:
			visible = append(visible, entry)
		}
	}
	return visible, nil
}

// DisplayCode resolves the ticket's team-code prefix for presentation.
// Unrouted tickets and lookup failures fall back to the generic prefix.
func (s *TicketService) DisplayCode(ctx context.Context, ticket *domain.Ticket) string {
	if ticket.TeamID != nil {
		if team, err := s.store.Teams().GetByID(ctx, *ticket.TeamID); err == nil {
			return ticket.DisplayCode(team.Code)
		}
	}
	return ticket.DisplayCode("")
}

// SlaStatus derives the ticket's SLA state for presentation.
func (s *TicketService) SlaStatus(ticket *domain.Ticket) sla.Status {
	return sla.DeriveStatus(ticket, s.now())
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = s.now()
	_ = s.dispatcher.Publish(ctx, event)
}

func getTicket(ctx context.Context, store repository.Store, ticketID string) (*domain.Ticket, error) {
	ticket, err := store.Tickets().GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	return ticket, nil
}

func recordStatusChange(ctx context.Context, store repository.Store, actor access.Actor, ticketID string, oldStatus, newStatus domain.TicketStatus, comment string) error {
	return store.Events().Create(ctx, &domain.TicketEvent{
		TicketID:  ticketID,
		EventType: domain.EventTypeStatusChange,
		ActorType: actorType(actor),
		ActorID:   actorID(actor),
		OldValue:  map[string]any{"status": oldStatus},
		NewValue:  map[string]any{"status": newStatus, "comment": comment},
	})
}

func recordAssigneeChange(ctx context.Context, store repository.Store, actor access.Actor, ticketID string, oldAssignee, newAssignee *string) error {
	return store.Events().Create(ctx, &domain.TicketEvent{
		TicketID:  ticketID,
		EventType: domain.EventTypeAssigneeChange,
		ActorType: actorType(actor),
		ActorID:   actorID(actor),
		OldValue:  map[string]any{"assignee_staff_id": oldAssignee},
		NewValue:  map[string]any{"assignee_staff_id": newAssignee},
	})
}

func eventActor(actor access.Actor) events.Actor {
	id := actor.ID
	if actor.Kind == domain.SubjectTypeUser {
		return events.Actor{Type: domain.SubjectTypeUser, UserID: &id}
	}
	return events.Actor{Type: domain.SubjectTypeStaff, StaffID: &id}
}

func actorType(actor access.Actor) domain.MessageAuthorType {
	if actor.Kind == domain.SubjectTypeUser {
		return domain.AuthorTypeUser
	}
	return domain.AuthorTypeStaff
}

func actorID(actor access.Actor) *string {
	id := actor.ID
	return &id
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
