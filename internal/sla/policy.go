package sla

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/deskgate/deskgate/internal/domain"
)

// Targets are the resolved response/resolution hours for one ticket.
type Targets struct {
	FirstResponseHours int
	ResolutionHours    int
}

// fallbackTargets is the hardcoded floor used when neither a team policy nor
// a global default exists for a priority. Lookup never yields "no SLA".
var fallbackTargets = map[domain.TicketPriority]Targets{
	domain.TicketPriorityP1: {FirstResponseHours: 1, ResolutionHours: 4},
	domain.TicketPriorityP2: {FirstResponseHours: 4, ResolutionHours: 24},
	domain.TicketPriorityP3: {FirstResponseHours: 8, ResolutionHours: 72},
	domain.TicketPriorityP4: {FirstResponseHours: 24, ResolutionHours: 168},
}

// PolicyStore is the persistence surface the resolver needs.
type PolicyStore interface {
	GetTeamPolicy(ctx context.Context, teamID string, priority domain.TicketPriority) (*domain.SlaPolicy, error)
	GetDefaultPolicy(ctx context.Context, priority domain.TicketPriority) (*domain.SlaPolicy, error)
}

// Resolver looks up SLA targets with team-specific > global default >
// fallback precedence.
type Resolver struct {
	policies PolicyStore
}

// NewResolver constructs a resolver.
func NewResolver(policies PolicyStore) *Resolver {
	return &Resolver{policies: policies}
}

// Resolve returns the targets for a (priority, team) pair. teamID may be nil
// for unrouted tickets. Missing policies fall through; only storage failures
// are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, teamID *string, priority domain.TicketPriority) (Targets, error) {
	if !priority.IsValid() {
		priority = domain.TicketPriorityP3
	}
	if r != nil && r.policies != nil {
		if teamID != nil {
			policy, err := r.policies.GetTeamPolicy(ctx, *teamID, priority)
			switch {
			case err == nil && policy.IsActive:
				return Targets{policy.FirstResponseHours, policy.ResolutionHours}, nil
			case err != nil && !errors.Is(err, pgx.ErrNoRows):
				return Targets{}, err
			}
		}
		policy, err := r.policies.GetDefaultPolicy(ctx, priority)
		switch {
		case err == nil && policy.IsActive:
			return Targets{policy.FirstResponseHours, policy.ResolutionHours}, nil
		case err != nil && !errors.Is(err, pgx.ErrNoRows):
			return Targets{}, err
		}
	}
	return fallbackTargets[priority], nil
}
