package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deskgate/deskgate/internal/api/dto"
	"github.com/deskgate/deskgate/internal/domain"
	"github.com/deskgate/deskgate/internal/service"
	apperrors "github.com/deskgate/deskgate/pkg/util"
)

// AdminHandler exposes routing rule, team, SLA policy and access grant
// management. Routes are gated to the admin role.
type AdminHandler struct {
	routing *service.RoutingService
	admin   *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(routing *service.RoutingService, admin *service.AdminService) *AdminHandler {
	return &AdminHandler{routing: routing, admin: admin}
}

// CreateRoutingRule POST /admin/routing-rules.
func (h *AdminHandler) CreateRoutingRule(c *fiber.Ctx) error {
	input, err := parseRuleRequest(c)
	if err != nil {
		return err
	}
	rule, err := h.routing.CreateRule(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ruleResponse(rule)})
}

// UpdateRoutingRule PUT /admin/routing-rules/:id.
func (h *AdminHandler) UpdateRoutingRule(c *fiber.Ctx) error {
	input, err := parseRuleRequest(c)
	if err != nil {
		return err
	}
	rule, err := h.routing.UpdateRule(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleResponse(rule)})
}

// ListRoutingRules GET /admin/routing-rules.
func (h *AdminHandler) ListRoutingRules(c *fiber.Ctx) error {
	rules, err := h.routing.ListRules(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.RoutingRuleResponse, 0, len(rules))
	for i := range rules {
		items = append(items, ruleResponse(&rules[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateTeam POST /admin/teams.
func (h *AdminHandler) CreateTeam(c *fiber.Ctx) error {
	var req dto.TeamRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	team, err := h.admin.CreateTeam(c.UserContext(), service.TeamInput{
		Name:     req.Name,
		Code:     req.Code,
		Strategy: req.Strategy,
		IsActive: req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": teamResponse(team)})
}

// UpdateTeam PUT /admin/teams/:id.
func (h *AdminHandler) UpdateTeam(c *fiber.Ctx) error {
	var req dto.TeamRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	team, err := h.admin.UpdateTeam(c.UserContext(), c.Params("id"), service.TeamInput{
		Name:     req.Name,
		Code:     req.Code,
		Strategy: req.Strategy,
		IsActive: req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": teamResponse(team)})
}

// ListTeams GET /admin/teams.
func (h *AdminHandler) ListTeams(c *fiber.Ctx) error {
	activeOnly := c.QueryBool("active_only", false)
	teams, err := h.admin.ListTeams(c.UserContext(), activeOnly)
	if err != nil {
		return err
	}
	items := make([]dto.TeamResponse, 0, len(teams))
	for i := range teams {
		items = append(items, teamResponse(&teams[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddTeamMember POST /admin/teams/:id/members.
func (h *AdminHandler) AddTeamMember(c *fiber.Ctx) error {
	var req dto.TeamMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.StaffID == "" {
		return apperrors.NewValidationError("staff_id required", nil)
	}
	if err := h.admin.AddTeamMember(c.UserContext(), c.Params("id"), req.StaffID); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"status": "ok"}})
}

// RemoveTeamMember DELETE /admin/teams/:id/members/:staffId.
func (h *AdminHandler) RemoveTeamMember(c *fiber.Ctx) error {
	if err := h.admin.RemoveTeamMember(c.UserContext(), c.Params("id"), c.Params("staffId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "ok"}})
}

// CreateSlaPolicy POST /admin/sla-policies.
func (h *AdminHandler) CreateSlaPolicy(c *fiber.Ctx) error {
	var req dto.SlaPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	policy, err := h.admin.CreateSlaPolicy(c.UserContext(), service.SlaPolicyInput{
		TeamID:             req.TeamID,
		Priority:           req.Priority,
		FirstResponseHours: req.FirstResponseHours,
		ResolutionHours:    req.ResolutionHours,
		IsActive:           req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": policyResponse(policy)})
}

// ListSlaPolicies GET /admin/sla-policies.
func (h *AdminHandler) ListSlaPolicies(c *fiber.Ctx) error {
	policies, err := h.admin.ListSlaPolicies(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.SlaPolicyResponse, 0, len(policies))
	for i := range policies {
		items = append(items, policyResponse(&policies[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GrantAccess POST /admin/access-grants.
func (h *AdminHandler) GrantAccess(c *fiber.Ctx) error {
	var req dto.AccessGrantRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.StaffID == "" || req.TeamID == "" {
		return apperrors.NewValidationError("staff_id and team_id required", nil)
	}
	if err := h.admin.GrantAccess(c.UserContext(), req.StaffID, req.TeamID); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"status": "ok"}})
}

// RevokeAccess DELETE /admin/access-grants/:staffId/:teamId.
func (h *AdminHandler) RevokeAccess(c *fiber.Ctx) error {
	if err := h.admin.RevokeAccess(c.UserContext(), c.Params("staffId"), c.Params("teamId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "ok"}})
}

func parseRuleRequest(c *fiber.Ctx) (service.RoutingRuleInput, error) {
	var req dto.RoutingRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return service.RoutingRuleInput{}, apperrors.NewValidationError("invalid payload", nil)
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return service.RoutingRuleInput{
		Name:       req.Name,
		Keywords:   req.Keywords,
		TeamID:     req.TeamID,
		AssigneeID: req.AssigneeID,
		Priority:   req.Priority,
		IsActive:   active,
	}, nil
}

func ruleResponse(rule *domain.RoutingRule) dto.RoutingRuleResponse {
	return dto.RoutingRuleResponse{
		ID:         rule.ID,
		Name:       rule.Name,
		Keywords:   rule.Keywords,
		TeamID:     rule.TeamID,
		AssigneeID: rule.AssigneeID,
		Priority:   rule.Priority,
		IsActive:   rule.IsActive,
		CreatedAt:  rule.CreatedAt,
		UpdatedAt:  rule.UpdatedAt,
	}
}

func teamResponse(team *domain.Team) dto.TeamResponse {
	return dto.TeamResponse{
		ID:                 team.ID,
		Name:               team.Name,
		Code:               team.Code,
		Strategy:           team.Strategy,
		LastAssignedUserID: team.LastAssignedUserID,
		IsActive:           team.IsActive,
		CreatedAt:          team.CreatedAt,
	}
}

func policyResponse(policy *domain.SlaPolicy) dto.SlaPolicyResponse {
	return dto.SlaPolicyResponse{
		ID:                 policy.ID,
		TeamID:             policy.TeamID,
		Priority:           policy.Priority,
		FirstResponseHours: policy.FirstResponseHours,
		ResolutionHours:    policy.ResolutionHours,
		IsActive:           policy.IsActive,
	}
}
