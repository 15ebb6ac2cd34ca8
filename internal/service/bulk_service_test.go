package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskgate/deskgate/internal/access"
	"github.com/deskgate/deskgate/internal/domain"
	apperrors "github.com/deskgate/deskgate/pkg/util"
)

func TestBulkTransitionMixedOutcome(t *testing.T) {
	fx := newFixture()
	var ids []string
	for i := 0; i < 10; i++ {
		ticket := fx.seedTicket(t, fmt.Sprintf("user-%d", i), nil, nil, domain.TicketStatusNew, domain.TicketPriorityP3)
		ids = append(ids, ticket.ID)
	}
	ids = append(ids, "missing-1", "missing-2")

	result, err := fx.bulk.Execute(context.Background(), adminActor(), BulkOpTransition, ids, BulkParams{
		Status: domain.TicketStatusInProgress,
	})
	require.NoError(t, err, "individual failures never fail the batch")

	assert.Equal(t, 10, result.SuccessCount)
	assert.Equal(t, 2, result.FailedCount)
	require.Len(t, result.Errors, 2)
	failedIDs := map[string]bool{result.Errors[0].TicketID: true, result.Errors[1].TicketID: true}
	assert.True(t, failedIDs["missing-1"])
	assert.True(t, failedIDs["missing-2"])

	for _, id := range ids[:10] {
		ticket, err := fx.store.Tickets().GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
	}
}

func TestBulkBoundedConcurrency(t *testing.T) {
	fx := newFixture()
	var ids []string
	for i := 0; i < 40; i++ {
		ticket := fx.seedTicket(t, fmt.Sprintf("user-%d", i), nil, nil, domain.TicketStatusNew, domain.TicketPriorityP3)
		ids = append(ids, ticket.ID)
	}

	result, err := fx.bulk.Execute(context.Background(), adminActor(), BulkOpTransition, ids, BulkParams{
		Status: domain.TicketStatusTriaged,
	})
	require.NoError(t, err)

	assert.Equal(t, 40, result.SuccessCount)
	assert.LessOrEqual(t, fx.store.maxInFlight, bulkConcurrency)
	assert.GreaterOrEqual(t, fx.store.maxInFlight, 1)
}

func TestBulkPriorityChange(t *testing.T) {
	fx := newFixture()
	a := fx.seedTicket(t, "user-1", nil, nil, domain.TicketStatusInProgress, domain.TicketPriorityP3)
	b := fx.seedTicket(t, "user-2", nil, nil, domain.TicketStatusInProgress, domain.TicketPriorityP3)

	result, err := fx.bulk.Execute(context.Background(), adminActor(), BulkOpPriority, []string{a.ID, b.ID}, BulkParams{
		Priority: domain.TicketPriorityP1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)

	for _, id := range []string{a.ID, b.ID} {
		ticket, err := fx.store.Tickets().GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketPriorityP1, ticket.Priority)
	}
}

func TestBulkPerTicketAccessChecks(t *testing.T) {
	fx := newFixture()
	team := fx.seedTeam(t, "IT", "IT", domain.AssignmentStrategyManual)
	lead := fx.seedStaff(t, "lead", domain.StaffRoleTeamLead, &team.ID)
	inTeam := fx.seedTicket(t, "user-1", &team.ID, nil, domain.TicketStatusNew, domain.TicketPriorityP3)
	outside := fx.seedTicket(t, "user-2", nil, nil, domain.TicketStatusNew, domain.TicketPriorityP3)

	actor := access.StaffActor(lead, nil)
	result, err := fx.bulk.Execute(context.Background(), actor, BulkOpTransition, []string{inTeam.ID, outside.ID}, BulkParams{
		Status: domain.TicketStatusTriaged,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, outside.ID, result.Errors[0].TicketID)
}

func TestBulkBatchLevelValidation(t *testing.T) {
	fx := newFixture()

	_, err := fx.bulk.Execute(context.Background(), adminActor(), BulkOpTransition, nil, BulkParams{
		Status: domain.TicketStatusTriaged,
	})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = fx.bulk.Execute(context.Background(), adminActor(), BulkOperationKind("MERGE"), []string{"tkt-1"}, BulkParams{})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = fx.bulk.Execute(context.Background(), adminActor(), BulkOpTransfer, []string{"tkt-1"}, BulkParams{})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = fx.bulk.Execute(context.Background(), adminActor(), BulkOpTransition, []string{"tkt-1"}, BulkParams{
		Status: domain.TicketStatus("BOGUS"),
	})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}
