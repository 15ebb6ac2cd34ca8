package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/deskgate/deskgate/internal/domain"
	"github.com/deskgate/deskgate/internal/repository"
	apperrors "github.com/deskgate/deskgate/pkg/util"
)

// AdminService manages teams, SLA policies and access grants. All operations
// are admin-gated at the route level.
type AdminService struct {
	store repository.Store
}

// NewAdminService constructs the service.
func NewAdminService(store repository.Store) *AdminService {
	return &AdminService{store: store}
}

// TeamInput describes team creation and update payloads.
type TeamInput struct {
	Name     string
	Code     string
	Strategy domain.AssignmentStrategy
	IsActive *bool
}

// SlaPolicyInput describes SLA policy payloads. A nil TeamID defines a
// global default for the priority.
type SlaPolicyInput struct {
	TeamID             *string
	Priority           domain.TicketPriority
	FirstResponseHours int
	ResolutionHours    int
	IsActive           *bool
}

// CreateTeam validates and persists a new team.
func (s *AdminService) CreateTeam(ctx context.Context, input TeamInput) (*domain.Team, error) {
	name := strings.TrimSpace(input.Name)
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if name == "" || code == "" {
		return nil, apperrors.NewValidationError("name and code required", nil)
	}
	strategy := input.Strategy
	if strategy == "" {
		strategy = domain.AssignmentStrategyManual
	}
	if strategy != domain.AssignmentStrategyManual && strategy != domain.AssignmentStrategyRoundRobin {
		return nil, apperrors.NewValidationError("unknown assignment strategy", map[string]any{"strategy": strategy})
	}

	team := &domain.Team{
		Name:     name,
		Code:     code,
		Strategy: strategy,
		IsActive: true,
	}
	if input.IsActive != nil {
		team.IsActive = *input.IsActive
	}
	if err := s.store.Teams().Create(ctx, team); err != nil {
		return nil, apperrors.MapError(err)
	}
	return team, nil
}

// UpdateTeam applies a partial team update.
func (s *AdminService) UpdateTeam(ctx context.Context, teamID string, input TeamInput) (*domain.Team, error) {
	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		team.Name = name
	}
	if code := strings.ToUpper(strings.TrimSpace(input.Code)); code != "" {
		team.Code = code
	}
	if input.Strategy != "" {
		if input.Strategy != domain.AssignmentStrategyManual && input.Strategy != domain.AssignmentStrategyRoundRobin {
			return nil, apperrors.NewValidationError("unknown assignment strategy", map[string]any{"strategy": input.Strategy})
		}
		team.Strategy = input.Strategy
	}
	if input.IsActive != nil {
		team.IsActive = *input.IsActive
	}
	if err := s.store.Teams().Update(ctx, team); err != nil {
		return nil, apperrors.MapError(err)
	}
	return team, nil
}

// ListTeams returns all teams, optionally active only.
func (s *AdminService) ListTeams(ctx context.Context, activeOnly bool) ([]domain.Team, error) {
	teams, err := s.store.Teams().List(ctx, activeOnly)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return teams, nil
}

// AddTeamMember appends a staff member to the team's rotation ring.
func (s *AdminService) AddTeamMember(ctx context.Context, teamID, staffID string) error {
	if _, err := s.getTeam(ctx, teamID); err != nil {
		return err
	}
	staff, err := s.store.Staff().GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("staff member", map[string]any{"staff_id": staffID})
		}
		return apperrors.MapError(err)
	}
	member := &domain.TeamMember{TeamID: teamID, StaffID: staff.ID}
	if err := s.store.Teams().AddMember(ctx, member); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// RemoveTeamMember drops a staff member from the team.
func (s *AdminService) RemoveTeamMember(ctx context.Context, teamID, staffID string) error {
	if err := s.store.Teams().RemoveMember(ctx, teamID, staffID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// CreateSlaPolicy validates and persists an SLA policy.
func (s *AdminService) CreateSlaPolicy(ctx context.Context, input SlaPolicyInput) (*domain.SlaPolicy, error) {
	if err := s.validatePolicy(ctx, input); err != nil {
		return nil, err
	}
	policy := &domain.SlaPolicy{
		TeamID:             input.TeamID,
		Priority:           input.Priority,
		FirstResponseHours: input.FirstResponseHours,
		ResolutionHours:    input.ResolutionHours,
		IsActive:           true,
	}
	if input.IsActive != nil {
		policy.IsActive = *input.IsActive
	}
	if err := s.store.SlaPolicies().Create(ctx, policy); err != nil {
		return nil, apperrors.MapError(err)
	}
	return policy, nil
}

// ListSlaPolicies returns all policies.
func (s *AdminService) ListSlaPolicies(ctx context.Context) ([]domain.SlaPolicy, error) {
	policies, err := s.store.SlaPolicies().List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return policies, nil
}

// GrantAccess gives a staff member view access to a team's tickets.
func (s *AdminService) GrantAccess(ctx context.Context, staffID, teamID string) error {
	if _, err := s.getTeam(ctx, teamID); err != nil {
		return err
	}
	if _, err := s.store.Staff().GetByID(ctx, staffID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("staff member", map[string]any{"staff_id": staffID})
		}
		return apperrors.MapError(err)
	}
	grant := &domain.AccessGrant{StaffID: staffID, TeamID: teamID}
	if err := s.store.Grants().Create(ctx, grant); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// RevokeAccess removes a view grant.
func (s *AdminService) RevokeAccess(ctx context.Context, staffID, teamID string) error {
	if err := s.store.Grants().Delete(ctx, staffID, teamID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *AdminService) validatePolicy(ctx context.Context, input SlaPolicyInput) error {
	if !input.Priority.IsValid() {
		return apperrors.NewValidationError("malformed priority", map[string]any{"priority": input.Priority})
	}
	if input.FirstResponseHours <= 0 || input.ResolutionHours <= 0 {
		return apperrors.NewValidationError("first_response_hours and resolution_hours must be positive", nil)
	}
	if input.TeamID != nil {
		if _, err := s.getTeam(ctx, *input.TeamID); err != nil {
			return err
		}
	}
	return nil
}

func (s *AdminService) getTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	team, err := s.store.Teams().GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("team", map[string]any{"team_id": teamID})
		}
		return nil, apperrors.MapError(err)
	}
	return team, nil
}
