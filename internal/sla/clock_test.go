package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskgate/deskgate/internal/domain"
)

var clockBase = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newAnchoredTicket(t *testing.T, targets Targets) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{Status: domain.TicketStatusNew, Priority: domain.TicketPriorityP2}
	ApplyCreation(ticket, clockBase, targets)
	return ticket
}

func TestApplyCreationAnchorsBothDeadlines(t *testing.T) {
	ticket := newAnchoredTicket(t, Targets{FirstResponseHours: 4, ResolutionHours: 24})

	require.NotNil(t, ticket.FirstResponseDueAt)
	require.NotNil(t, ticket.DueAt)
	assert.Equal(t, clockBase.Add(4*time.Hour), *ticket.FirstResponseDueAt)
	assert.Equal(t, clockBase.Add(24*time.Hour), *ticket.DueAt)
}

func TestMarkFirstResponseStampsOnce(t *testing.T) {
	ticket := newAnchoredTicket(t, Targets{FirstResponseHours: 4, ResolutionHours: 24})

	first := clockBase.Add(30 * time.Minute)
	assert.True(t, MarkFirstResponse(ticket, first))
	require.NotNil(t, ticket.FirstResponseAt)
	assert.Equal(t, first, *ticket.FirstResponseAt)

	assert.False(t, MarkFirstResponse(ticket, clockBase.Add(2*time.Hour)))
	assert.Equal(t, first, *ticket.FirstResponseAt, "second response must not move the stamp")
}

func TestPauseResumeShiftsDueByPausedDuration(t *testing.T) {
	ticket := newAnchoredTicket(t, Targets{FirstResponseHours: 4, ResolutionHours: 24})
	originalDue := *ticket.DueAt

	pausedAt := clockBase.Add(2 * time.Hour)
	Pause(ticket, pausedAt)
	require.NotNil(t, ticket.SlaPausedAt)

	delta := 5 * time.Hour
	Resume(ticket, pausedAt.Add(delta))

	assert.Nil(t, ticket.SlaPausedAt)
	require.NotNil(t, ticket.DueAt)
	assert.Equal(t, originalDue.Add(delta), *ticket.DueAt)
}

func TestResumeWithoutPauseIsNoop(t *testing.T) {
	ticket := newAnchoredTicket(t, Targets{FirstResponseHours: 4, ResolutionHours: 24})
	originalDue := *ticket.DueAt

	Resume(ticket, clockBase.Add(3*time.Hour))

	assert.Nil(t, ticket.SlaPausedAt)
	assert.Equal(t, originalDue, *ticket.DueAt)
}

func TestResetOnReopenIgnoresPauseDebt(t *testing.T) {
	ticket := newAnchoredTicket(t, Targets{FirstResponseHours: 4, ResolutionHours: 24})
	responded := clockBase.Add(time.Hour)
	MarkFirstResponse(ticket, responded)
	Pause(ticket, clockBase.Add(2*time.Hour))

	reopenedAt := clockBase.Add(72 * time.Hour)
	ResetOnReopen(ticket, reopenedAt, Targets{FirstResponseHours: 4, ResolutionHours: 24})

	require.NotNil(t, ticket.DueAt)
	assert.Equal(t, reopenedAt.Add(24*time.Hour), *ticket.DueAt)
	assert.Nil(t, ticket.SlaPausedAt)
	require.NotNil(t, ticket.FirstResponseAt)
	assert.Equal(t, responded, *ticket.FirstResponseAt, "reopen must not touch the first-response clock")
}

func TestReanchorPreservesElapsedTime(t *testing.T) {
	old := Targets{FirstResponseHours: 8, ResolutionHours: 72}
	ticket := newAnchoredTicket(t, old)

	// Pause debt already shifted the resolution deadline by 6h.
	shifted := ticket.DueAt.Add(6 * time.Hour)
	ticket.DueAt = &shifted

	now := Targets{FirstResponseHours: 1, ResolutionHours: 4}
	Reanchor(ticket, old, now)

	require.NotNil(t, ticket.FirstResponseDueAt)
	require.NotNil(t, ticket.DueAt)
	assert.Equal(t, clockBase.Add(1*time.Hour), *ticket.FirstResponseDueAt)
	assert.Equal(t, clockBase.Add(6*time.Hour).Add(4*time.Hour), *ticket.DueAt,
		"new deadline keeps the pause shift recovered from the old one")
}

func TestReanchorRoundTripsBackToOriginal(t *testing.T) {
	old := Targets{FirstResponseHours: 8, ResolutionHours: 72}
	ticket := newAnchoredTicket(t, old)
	originalFirst := *ticket.FirstResponseDueAt
	originalDue := *ticket.DueAt

	tighter := Targets{FirstResponseHours: 1, ResolutionHours: 4}
	Reanchor(ticket, old, tighter)
	Reanchor(ticket, tighter, old)

	assert.Equal(t, originalFirst, *ticket.FirstResponseDueAt)
	assert.Equal(t, originalDue, *ticket.DueAt)
}

func TestDeriveStatus(t *testing.T) {
	now := clockBase.Add(10 * time.Hour)
	due := func(at time.Time) *time.Time { return &at }

	cases := []struct {
		name   string
		ticket domain.Ticket
		want   Status
	}{
		{"completed", domain.Ticket{CompletedAt: due(now), Status: domain.TicketStatusResolved}, StatusMet},
		{"waiting", domain.Ticket{Status: domain.TicketStatusWaitingOnRequester, DueAt: due(now.Add(time.Hour))}, StatusPaused},
		{"no deadline", domain.Ticket{Status: domain.TicketStatusNew}, StatusNone},
		{"past due", domain.Ticket{Status: domain.TicketStatusInProgress, DueAt: due(now.Add(-time.Minute))}, StatusBreached},
		{"inside at-risk window", domain.Ticket{Status: domain.TicketStatusInProgress, DueAt: due(now.Add(AtRiskWindow))}, StatusAtRisk},
		{"well before due", domain.Ticket{Status: domain.TicketStatusInProgress, DueAt: due(now.Add(AtRiskWindow + time.Minute))}, StatusOnTrack},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveStatus(&tc.ticket, now))
		})
	}
}
