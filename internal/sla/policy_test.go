package sla

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskgate/deskgate/internal/domain"
)

type stubPolicyStore struct {
	teamPolicies    map[string]*domain.SlaPolicy
	defaultPolicies map[domain.TicketPriority]*domain.SlaPolicy
	err             error
}

func (s *stubPolicyStore) GetTeamPolicy(_ context.Context, teamID string, priority domain.TicketPriority) (*domain.SlaPolicy, error) {
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.teamPolicies[teamID+"/"+string(priority)]; ok {
		return p, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *stubPolicyStore) GetDefaultPolicy(_ context.Context, priority domain.TicketPriority) (*domain.SlaPolicy, error) {
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.defaultPolicies[priority]; ok {
		return p, nil
	}
	return nil, pgx.ErrNoRows
}

func strPtr(s string) *string { return &s }

func TestResolveTeamPolicyWins(t *testing.T) {
	store := &stubPolicyStore{
		teamPolicies: map[string]*domain.SlaPolicy{
			"team-1/P2": {FirstResponseHours: 2, ResolutionHours: 12, IsActive: true},
		},
		defaultPolicies: map[domain.TicketPriority]*domain.SlaPolicy{
			domain.TicketPriorityP2: {FirstResponseHours: 6, ResolutionHours: 36, IsActive: true},
		},
	}
	resolver := NewResolver(store)

	targets, err := resolver.Resolve(context.Background(), strPtr("team-1"), domain.TicketPriorityP2)
	require.NoError(t, err)
	assert.Equal(t, Targets{FirstResponseHours: 2, ResolutionHours: 12}, targets)
}

func TestResolveFallsBackToDefaultPolicy(t *testing.T) {
	store := &stubPolicyStore{
		defaultPolicies: map[domain.TicketPriority]*domain.SlaPolicy{
			domain.TicketPriorityP2: {FirstResponseHours: 6, ResolutionHours: 36, IsActive: true},
		},
	}
	resolver := NewResolver(store)

	targets, err := resolver.Resolve(context.Background(), strPtr("team-9"), domain.TicketPriorityP2)
	require.NoError(t, err)
	assert.Equal(t, Targets{FirstResponseHours: 6, ResolutionHours: 36}, targets)
}

func TestResolveInactivePoliciesAreSkipped(t *testing.T) {
	store := &stubPolicyStore{
		teamPolicies: map[string]*domain.SlaPolicy{
			"team-1/P1": {FirstResponseHours: 2, ResolutionHours: 12, IsActive: false},
		},
		defaultPolicies: map[domain.TicketPriority]*domain.SlaPolicy{
			domain.TicketPriorityP1: {FirstResponseHours: 3, ResolutionHours: 18, IsActive: false},
		},
	}
	resolver := NewResolver(store)

	targets, err := resolver.Resolve(context.Background(), strPtr("team-1"), domain.TicketPriorityP1)
	require.NoError(t, err)
	assert.Equal(t, Targets{FirstResponseHours: 1, ResolutionHours: 4}, targets)
}

func TestResolveHardcodedFallback(t *testing.T) {
	resolver := NewResolver(&stubPolicyStore{})

	cases := []struct {
		priority domain.TicketPriority
		want     Targets
	}{
		{domain.TicketPriorityP1, Targets{1, 4}},
		{domain.TicketPriorityP2, Targets{4, 24}},
		{domain.TicketPriorityP3, Targets{8, 72}},
		{domain.TicketPriorityP4, Targets{24, 168}},
	}
	for _, tc := range cases {
		t.Run(string(tc.priority), func(t *testing.T) {
			targets, err := resolver.Resolve(context.Background(), nil, tc.priority)
			require.NoError(t, err)
			assert.Equal(t, tc.want, targets)
		})
	}
}

func TestResolveInvalidPriorityDefaultsToP3(t *testing.T) {
	resolver := NewResolver(&stubPolicyStore{})

	targets, err := resolver.Resolve(context.Background(), nil, domain.TicketPriority("P9"))
	require.NoError(t, err)
	assert.Equal(t, Targets{FirstResponseHours: 8, ResolutionHours: 72}, targets)
}

func TestResolveStorageErrorPropagates(t *testing.T) {
	boom := errors.New("connection reset")
	resolver := NewResolver(&stubPolicyStore{err: boom})

	_, err := resolver.Resolve(context.Background(), strPtr("team-1"), domain.TicketPriorityP2)
	assert.ErrorIs(t, err, boom)
}
