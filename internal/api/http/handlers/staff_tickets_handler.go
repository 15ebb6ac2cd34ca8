package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/deskgate/deskgate/internal/api/dto"
	"github.com/deskgate/deskgate/internal/auth"
	"github.com/deskgate/deskgate/internal/domain"
	"github.com/deskgate/deskgate/internal/service"
	apperrors "github.com/deskgate/deskgate/pkg/util"
)

// StaffTicketsHandler exposes the staff-side ticket operations: queue
// listing, assignment, transfer, status and priority changes, and bulk
// variants of the same.
type StaffTicketsHandler struct {
	tickets     *service.TicketService
	assignments *service.AssignmentService
	bulk        *service.BulkService
}

// NewStaffTicketsHandler constructs handler.
func NewStaffTicketsHandler(tickets *service.TicketService, assignments *service.AssignmentService, bulk *service.BulkService) *StaffTicketsHandler {
	return &StaffTicketsHandler{tickets: tickets, assignments: assignments, bulk: bulk}
}

// ListTickets GET /staff/tickets.
func (h *StaffTicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	filter := parseTicketListQuery(c)
	if assignee := strings.TrimSpace(c.Query("assignee_id")); assignee != "" {
		filter.AssigneeID = &assignee
	}
	if team := strings.TrimSpace(c.Query("team_id")); team != "" {
		filter.TeamID = &team
	}
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

// GetTicket GET /staff/tickets/:id.
func (h *StaffTicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
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

// Assign POST /staff/tickets/:id/assign.
func (h *StaffTicketsHandler) Assign(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.assignments.Assign(c.UserContext(), principal.Actor, c.Params("id"), req.AssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaryResponse(h.tickets, ticket)})
}

// Transfer POST /staff/tickets/:id/transfer.
func (h *StaffTicketsHandler) Transfer(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TeamID == "" {
		return apperrors.NewValidationError("team_id required", nil)
	}
	ticket, err := h.assignments.Transfer(c.UserContext(), principal.Actor, c.Params("id"), req.TeamID, req.AssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaryResponse(h.tickets, ticket)})
}

// Transition POST /staff/tickets/:id/status.
func (h *StaffTicketsHandler) Transition(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.Transition(c.UserContext(), principal.Actor, c.Params("id"), req.Status, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaryResponse(h.tickets, ticket)})
}

// ChangePriority POST /staff/tickets/:id/priority.
func (h *StaffTicketsHandler) ChangePriority(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.PriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.ChangePriority(c.UserContext(), principal.Actor, c.Params("id"), req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaryResponse(h.tickets, ticket)})
}

// AddMessage POST /staff/tickets/:id/messages.
func (h *StaffTicketsHandler) AddMessage(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	messageType := domain.MessageTypePublicReply
	if req.MessageType != nil {
		messageType = *req.MessageType
	}
	if messageType != domain.MessageTypePublicReply && messageType != domain.MessageTypeInternalNote {
		return apperrors.NewValidationError("unknown message type", map[string]any{"message_type": messageType})
	}
	message, err := h.tickets.AddMessage(c.UserContext(), principal.Actor, c.Params("id"), messageType, req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messageResponse(message)})
}

// ListEvents GET /staff/tickets/:id/events.
func (h *StaffTicketsHandler) ListEvents(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	limit := parseIntQuery(c.Query("limit"), 100)
	offset := parseIntQuery(c.Query("offset"), 0)
	entries, err := h.tickets.ListEvents(c.UserContext(), principal.Actor, c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": eventResponses(entries)})
}

// Bulk POST /staff/tickets/bulk.
func (h *StaffTicketsHandler) Bulk(c *fiber.Ctx) error {
	principal, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.BulkRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	params := service.BulkParams{
		AssigneeID: req.AssigneeID,
		TeamID:     req.TeamID,
		Status:     req.Status,
		Priority:   req.Priority,
		Comment:    req.Comment,
	}
	result, err := h.bulk.Execute(c.UserContext(), principal.Actor, service.BulkOperationKind(req.Operation), req.TicketIDs, params)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

func staffPrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	return principal, nil
}
