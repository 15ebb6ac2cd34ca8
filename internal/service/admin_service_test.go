package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskgate/deskgate/internal/domain"
	apperrors "github.com/deskgate/deskgate/pkg/util"
)

func TestCreateTeamDefaults(t *testing.T) {
	fx := newFixture()
	admin := NewAdminService(fx.store)

	team, err := admin.CreateTeam(context.Background(), TeamInput{Name: "IT Support", Code: "it"})
	require.NoError(t, err)

	assert.Equal(t, "IT", team.Code, "team codes are stored uppercased")
	assert.Equal(t, domain.AssignmentStrategyManual, team.Strategy)
	assert.True(t, team.IsActive)
}

func TestCreateTeamValidation(t *testing.T) {
	fx := newFixture()
	admin := NewAdminService(fx.store)

	_, err := admin.CreateTeam(context.Background(), TeamInput{Name: "", Code: "IT"})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = admin.CreateTeam(context.Background(), TeamInput{Name: "IT", Code: "IT", Strategy: "LOTTERY"})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestUpdateTeamPartial(t *testing.T) {
	fx := newFixture()
	admin := NewAdminService(fx.store)
	team := fx.seedTeam(t, "IT", "IT", domain.AssignmentStrategyManual)

	inactive := false
	updated, err := admin.UpdateTeam(context.Background(), team.ID, TeamInput{
		Strategy: domain.AssignmentStrategyRoundRobin,
		IsActive: &inactive,
	})
	require.NoError(t, err)

	assert.Equal(t, "IT", updated.Name, "omitted fields are kept")
	assert.Equal(t, domain.AssignmentStrategyRoundRobin, updated.Strategy)
	assert.False(t, updated.IsActive)
}

func TestTeamMembership(t *testing.T) {
	fx := newFixture()
	admin := NewAdminService(fx.store)
	team := fx.seedTeam(t, "IT", "IT", domain.AssignmentStrategyRoundRobin)
	staff := fx.seedStaff(t, "alice", domain.StaffRoleAgent, &team.ID)

	require.NoError(t, admin.AddTeamMember(context.Background(), team.ID, staff.ID))
	member, err := fx.store.Teams().IsMember(context.Background(), team.ID, staff.ID)
	require.NoError(t, err)
	assert.True(t, member)

	err = admin.AddTeamMember(context.Background(), team.ID, "missing")
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	require.NoError(t, admin.RemoveTeamMember(context.Background(), team.ID, staff.ID))
	member, err = fx.store.Teams().IsMember(context.Background(), team.ID, staff.ID)
	require.NoError(t, err)
	assert.False(t, member)
}

func TestCreateSlaPolicyValidation(t *testing.T) {
	fx := newFixture()
	admin := NewAdminService(fx.store)
	team := fx.seedTeam(t, "IT", "IT", domain.AssignmentStrategyManual)

	policy, err := admin.CreateSlaPolicy(context.Background(), SlaPolicyInput{
		TeamID:             &team.ID,
		Priority:           domain.TicketPriorityP1,
		FirstResponseHours: 1,
		ResolutionHours:    4,
	})
	require.NoError(t, err)
	assert.True(t, policy.IsActive)

	_, err = admin.CreateSlaPolicy(context.Background(), SlaPolicyInput{
		Priority: "P0", FirstResponseHours: 1, ResolutionHours: 4,
	})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = admin.CreateSlaPolicy(context.Background(), SlaPolicyInput{
		Priority: domain.TicketPriorityP1, FirstResponseHours: 0, ResolutionHours: 4,
	})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	missing := "missing"
	_, err = admin.CreateSlaPolicy(context.Background(), SlaPolicyInput{
		TeamID: &missing, Priority: domain.TicketPriorityP1, FirstResponseHours: 1, ResolutionHours: 4,
	})
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestGrantAndRevokeAccess(t *testing.T) {
	fx := newFixture()
	admin := NewAdminService(fx.store)
	team := fx.seedTeam(t, "HR", "HR", domain.AssignmentStrategyManual)
	staff := fx.seedStaff(t, "alice", domain.StaffRoleAgent, nil)

	require.NoError(t, admin.GrantAccess(context.Background(), staff.ID, team.ID))
	teamIDs, err := fx.store.Grants().ListTeamIDsForStaff(context.Background(), staff.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{team.ID}, teamIDs)

	err = admin.GrantAccess(context.Background(), staff.ID, "missing")
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	require.NoError(t, admin.RevokeAccess(context.Background(), staff.ID, team.ID))
	teamIDs, err = fx.store.Grants().ListTeamIDsForStaff(context.Background(), staff.ID)
	require.NoError(t, err)
	assert.Empty(t, teamIDs)
}
