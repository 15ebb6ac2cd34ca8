package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/deskgate/deskgate/internal/api/dto"
	"github.com/deskgate/deskgate/internal/auth"
	"github.com/deskgate/deskgate/internal/domain"
	"github.com/deskgate/deskgate/internal/service"
	"github.com/deskgate/deskgate/internal/sla"
	apperrors "github.com/deskgate/deskgate/pkg/util"
)

// TicketsHandler manages end-user ticket endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		Subject:      req.Subject,
		Description:  req.Description,
		Priority:     req.Priority,
		CustomFields: req.CustomFields,
	}
	ticket, err := h.tickets.Create(c.UserContext(), principal.User.ID, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummaryResponse(h.tickets, ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	filter := parseTicketListQuery(c)
	tickets, err := h.tickets.List(c.UserContext(), principal.Actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummaryResponse(h.tickets, &tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	ticket, err := h.tickets.Get(c.UserContext(), principal.Actor, c.Params("id"))
	if err != nil {
		return err
	}
	messages, err := h.tickets.ListMessages(c.UserContext(), principal.Actor, ticket.ID)
	if err != nil {
		return err
	}
	detail := ticketDetailResponse(h.tickets, ticket, messages)
	detail.Code = h.tickets.DisplayCode(c.UserContext(), ticket)
	return c.JSON(fiber.Map{"data": detail})
}

// AddMessage POST /tickets/:id/messages.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	message, err := h.tickets.AddMessage(c.UserContext(), principal.Actor, c.Params("id"), domain.MessageTypePublicReply, req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messageResponse(message)})
}

// ListEvents GET /tickets/:id/events.
func (h *TicketsHandler) ListEvents(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	limit := parseIntQuery(c.Query("limit"), 100)
	offset := parseIntQuery(c.Query("offset"), 0)
	entries, err := h.tickets.ListEvents(c.UserContext(), principal.Actor, c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": eventResponses(entries)})
}

func ticketSummaryResponse(tickets *service.TicketService, ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:         ticket.ID,
		Number:     ticket.Number,
		TeamID:     ticket.TeamID,
		AssigneeID: ticket.AssigneeID,
		Subject:    ticket.Subject,
		Status:     ticket.Status,
		Priority:   ticket.Priority,
		SlaStatus:  tickets.SlaStatus(ticket),
		DueAt:      ticket.DueAt,
		CreatedAt:  ticket.CreatedAt,
		UpdatedAt:  ticket.UpdatedAt,
	}
}

func ticketDetailResponse(tickets *service.TicketService, ticket *domain.Ticket, messages []domain.TicketMessage) dto.TicketDetailResponse {
	msgs := make([]dto.TicketMessageResponse, 0, len(messages))
	for i := range messages {
		msgs = append(msgs, messageResponse(&messages[i]))
	}
	return dto.TicketDetailResponse{
		ID:                 ticket.ID,
		Number:             ticket.Number,
		RequesterID:        ticket.RequesterID,
		TeamID:             ticket.TeamID,
		AssigneeID:         ticket.AssigneeID,
		Subject:            ticket.Subject,
		Description:        ticket.Description,
		Status:             ticket.Status,
		Priority:           ticket.Priority,
		SlaStatus:          tickets.SlaStatus(ticket),
		FirstResponseDueAt: ticket.FirstResponseDueAt,
		FirstResponseAt:    ticket.FirstResponseAt,
		DueAt:              ticket.DueAt,
		SlaPausedAt:        ticket.SlaPausedAt,
		ResolvedAt:         ticket.ResolvedAt,
		ClosedAt:           ticket.ClosedAt,
		CreatedAt:          ticket.CreatedAt,
		UpdatedAt:          ticket.UpdatedAt,
		Messages:           msgs,
	}
}

func messageResponse(message *domain.TicketMessage) dto.TicketMessageResponse {
	return dto.TicketMessageResponse{
		ID:          message.ID,
		MessageType: message.MessageType,
		AuthorType:  message.AuthorType,
		AuthorID:    message.AuthorID,
		Body:        message.Body,
		CreatedAt:   message.CreatedAt,
	}
}

func eventResponses(entries []domain.TicketEvent) []dto.TicketEventResponse {
	resp := make([]dto.TicketEventResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketEventResponse{
			ID:        entry.ID,
			EventType: entry.EventType,
			ActorType: entry.ActorType,
			ActorID:   entry.ActorID,
			OldValue:  entry.OldValue,
			NewValue:  entry.NewValue,
			CreatedAt: entry.CreatedAt,
		})
	}
	return resp
}

func parseTicketListQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if search := strings.TrimSpace(c.Query("q")); search != "" {
		filter.SearchTerm = &search
	}
	if slaStr := strings.ToUpper(strings.TrimSpace(c.Query("sla_status"))); slaStr != "" {
		status := sla.Status(slaStr)
		filter.SlaStatus = &status
	}
	if from := parseTimeQuery(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTimeQuery(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	if from := parseTimeQuery(c.Query("updated_from")); from != nil {
		filter.UpdatedFrom = from
	}
	if to := parseTimeQuery(c.Query("updated_to")); to != nil {
		filter.UpdatedTo = to
	}
	filter.SortBy = c.Query("sort")
	page := parseIntQuery(c.Query("page"), 1)
	pageSize := parseIntQuery(c.Query("page_size"), 20)
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTimeQuery(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseIntQuery(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}
