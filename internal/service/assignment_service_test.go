package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskgate/deskgate/internal/domain"
	apperrors "github.com/deskgate/deskgate/pkg/util"
)

func TestRoundRobinAdvancesAndWraps(t *testing.T) {
	fx := newFixture()
	team := fx.seedTeam(t, "IT", "IT", domain.AssignmentStrategyRoundRobin)
	var ids []string
	for _, name := range []string{"alice", "bob", "carol"} {
		staff := fx.seedStaff(t, name, domain.StaffRoleAgent, &team.ID)
		fx.addMember(t, team.ID, staff.ID)
		ids = append(ids, staff.ID)
	}
	require.NoError(t, fx.store.Teams().SetLastAssigned(context.Background(), team.ID, ids[1]))

	next, err := fx.assignments.ResolveRoundRobin(context.Background(), fx.store, team.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, ids[2], *next)

	// The pointer advanced, so the next call wraps to the first member.
	next, err = fx.assignments.ResolveRoundRobin(context.Background(), fx.store, team.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, ids[0], *next)
}

func TestRoundRobinDepartedPointerRestartsAtFirst(t *testing.T) {
	fx := newFixture()
	team := fx.seedTeam(t, "IT", "IT", domain.AssignmentStrategyRoundRobin)
	staff := fx.seedStaff(t, "alice", domain.StaffRoleAgent, &team.ID)
	fx.addMember(t, team.ID, staff.ID)
	require.NoError(t, fx.store.Teams().SetLastAssigned(context.Background(), team.ID, "gone"))

	next, err := fx.assignments.ResolveRoundRobin(context.Background(), fx.store, team.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, staff.ID, *next)
}

func TestRoundRobinEmptyRingResolvesNil(t *testing.T) {
	fx := newFixture()
	team := fx.seedTeam(t, "IT", "IT", domain.AssignmentStrategyRoundRobin)

	next, err := fx.assignments.ResolveRoundRobin(context.Background(), fx.store, team.ID)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestRoundRobinManualTeamResolvesNil(t *testing.T) {
	fx := newFixture()
	team := fx.seedTeam(t, "HR", "HR", domain.AssignmentStrategyManual)
	staff := fx.seedStaff(t, "alice", domain.StaffRoleAgent, &team.ID)
	fx.addMember(t, team.ID, staff.ID)

	next, err := fx.assignments.ResolveRoundRobin(context.Background(), fx.store, team.ID)
	require.NoError(t, err)
	assert.Nil(t, next)

	stored, err := fx.store.Teams().GetByID(context.Background(), team.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastAssignedUserID, "manual teams never advance the pointer")
}

func TestAssignPromotesFreshTicket(t *testing.T) {
	fx := newFixture()
	team := fx.seedTeam(t, "IT", "IT", domain.AssignmentStrategyManual)
	staff := fx.seedStaff(t, "alice", domain.StaffRoleAgent, &team.ID)
	fx.addMember(t, team.ID, staff.ID)
	ticket := fx.seedTicket(t, "user-1", &team.ID, nil, domain.TicketStatusNew, domain.TicketPriorityP3)

	updated, err := fx.assignments.Assign(context.Background(), adminActor(), ticket.ID, &staff.ID)
	require.NoError(t, err)

	require.NotNil(t, updated.AssigneeID)
	assert.Equal(t, staff.ID, *updated.AssigneeID)
	assert.Equal(t, domain.TicketStatusAssigned, updated.Status)
	assert.Len(t, fx.store.eventsOfType(domain.EventTypeAssigneeChange), 1)
	assert.Len(t, fx.store.eventsOfType(domain.EventTypeStatusChange), 1)
}

func TestAssignInProgressKeepsStatus(t *testing.T) {
	fx := newFixture()
	team := fx.seedTeam(t, "IT", "IT", domain.AssignmentStrategyManual)
	staff := fx.seedStaff(t, "alice", domain.StaffRoleAgent, &team.ID)
	fx.addMember(t, team.ID, staff.ID)
	ticket := fx.seedTicket(t, "user-1", &team.ID, nil, domain.TicketStatusInProgress, domain.TicketPriorityP3)

	updated, err := fx.assignments.Assign(context.Background(), adminActor(), ticket.ID, &staff.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.Empty(t, fx.store.eventsOfType(domain.EventTypeStatusChange))
}

func TestAssignRejectsNonMember(t *testing.T) {
	fx := newFixture()
	team := fx.seedTeam(t, "IT", "IT", domain.AssignmentStrategyManual)
	outsider := fx.seedStaff(t, "bob", domain.StaffRoleAgent, nil)
	ticket := fx.seedTicket(t, "user-1", &team.ID, nil, domain.TicketStatusNew, domain.TicketPriorityP3)

	_, err := fx.assignments.Assign(context.Background(), adminActor(), ticket.ID, &outsider.ID)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestAssignRejectsInactiveStaff(t *testing.T) {
	fx := newFixture()
	team := fx.seedTeam(t, "IT", "IT", domain.AssignmentStrategyManual)
	staff := fx.seedStaff(t, "alice", domain.StaffRoleAgent, &team.ID)
	fx.addMember(t, team.ID, staff.ID)
	staff.Active = false
	require.NoError(t, fx.store.Staff().Update(context.Background(), staff))
	ticket := fx.seedTicket(t, "user-1", &team.ID, nil, domain.TicketStatusNew, domain.TicketPriorityP3)

	_, err := fx.assignments.Assign(context.Background(), adminActor(), ticket.ID, &staff.ID)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestTransferReanchorsToTargetTeamPolicy(t *testing.T) {
	fx := newFixture()
	source := fx.seedTeam(t, "IT", "IT", domain.AssignmentStrategyManual)
	target := fx.seedTeam(t, "HR", "HR", domain.AssignmentStrategyManual)
	require.NoError(t, fx.store.SlaPolicies().Create(context.Background(), &domain.SlaPolicy{
		TeamID:             &target.ID,
		Priority:           domain.TicketPriorityP3,
		FirstResponseHours: 2,
		ResolutionHours:    12,
		IsActive:           true,
	}))
	agent := fx.seedStaff(t, "alice", domain.StaffRoleAgent, &source.ID)
	ticket := fx.seedTicket(t, "user-1", &source.ID, &agent.ID, domain.TicketStatusInProgress, domain.TicketPriorityP3)

	updated, err := fx.assignments.Transfer(context.Background(), adminActor(), ticket.ID, target.ID, nil)
	require.NoError(t, err)

	require.NotNil(t, updated.TeamID)
	assert.Equal(t, target.ID, *updated.TeamID)
	assert.Nil(t, updated.AssigneeID, "assignee is dropped unless explicitly kept")
	// Re-anchored from creation: fallback P3 (8h/72h) to the target's 2h/12h.
	assert.Equal(t, fixtureBase.Add(12*time.Hour), *updated.DueAt)
	assert.Equal(t, fixtureBase.Add(2*time.Hour), *updated.FirstResponseDueAt)
	assert.Len(t, fx.store.eventsOfType(domain.EventTypeTeamChange), 1)
	assert.Len(t, fx.store.eventsOfType(domain.EventTypeAssigneeChange), 1)
}

func TestTransferKeepsAssigneeOnlyWhenTargetMember(t *testing.T) {
	fx := newFixture()
	source := fx.seedTeam(t, "IT", "IT", domain.AssignmentStrategyManual)
	target := fx.seedTeam(t, "HR", "HR", domain.AssignmentStrategyManual)
	agent := fx.seedStaff(t, "alice", domain.StaffRoleAgent, &source.ID)
	ticket := fx.seedTicket(t, "user-1", &source.ID, &agent.ID, domain.TicketStatusInProgress, domain.TicketPriorityP3)

	_, err := fx.assignments.Transfer(context.Background(), adminActor(), ticket.ID, target.ID, &agent.ID)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	fx.addMember(t, target.ID, agent.ID)
	updated, err := fx.assignments.Transfer(context.Background(), adminActor(), ticket.ID, target.ID, &agent.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.AssigneeID)
	assert.Equal(t, agent.ID, *updated.AssigneeID)
}

func TestTransferToInactiveTeamRejected(t *testing.T) {
	fx := newFixture()
	source := fx.seedTeam(t, "IT", "IT", domain.AssignmentStrategyManual)
	target := fx.seedTeam(t, "HR", "HR", domain.AssignmentStrategyManual)
	target.IsActive = false
	require.NoError(t, fx.store.Teams().Update(context.Background(), target))
	ticket := fx.seedTicket(t, "user-1", &source.ID, nil, domain.TicketStatusNew, domain.TicketPriorityP3)

	_, err := fx.assignments.Transfer(context.Background(), adminActor(), ticket.ID, target.ID, nil)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = fx.assignments.Transfer(context.Background(), adminActor(), ticket.ID, "missing", nil)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}
