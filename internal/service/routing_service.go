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

// RouteDecision is the outcome of evaluating routing rules for a new ticket.
type RouteDecision struct {
	RuleID     string
	TeamID     string
	AssigneeID *string
}

// RoutingService evaluates ordered keyword rules against new tickets and
// owns rule authoring.
type RoutingService struct {
	store repository.Store
}

// NewRoutingService constructs the service.
func NewRoutingService(store repository.Store) *RoutingService {
	return &RoutingService{store: store}
}

// Route picks a target team (and optional fixed assignee) for a ticket.
// Rules are evaluated in (priority, name) order; a rule matches when any of
// its keywords is a substring of the lowercased subject+description, and the
// first match wins. A nil decision means no rule matched and the caller
// decides the fallback.
func (s *RoutingService) Route(ctx context.Context, store repository.Store, subject, description string) (*RouteDecision, error) {
	rules, err := store.Rules().ListActive(ctx)
	if err != nil {
		return nil, err
	}
	text := strings.ToLower(subject + " " + description)

	for _, rule := range rules {
		if !ruleMatches(rule, text) {
			continue
		}
		decision := &RouteDecision{RuleID: rule.ID, TeamID: rule.TeamID}
		if rule.AssigneeID != nil {
			// A fixed assignee is honored only while they remain a member
			// of the target team; otherwise route team-only.
			member, err := store.Teams().IsMember(ctx, rule.TeamID, *rule.AssigneeID)
			if err != nil {
				return nil, err
			}
			if member {
				decision.AssigneeID = rule.AssigneeID
			}
		}
		return decision, nil
	}
	return nil, nil
}

func ruleMatches(rule domain.RoutingRule, text string) bool {
	for _, keyword := range rule.Keywords {
		if keyword != "" && strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// NormalizeKeywords trims, lowercases, deduplicates and drops empty
// keywords, preserving first-seen order. Normalization happens once at
// authoring time, never at match time. It is idempotent.
func NormalizeKeywords(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	normalized := make([]string, 0, len(raw))
	for _, keyword := range raw {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		if _, dup := seen[keyword]; dup {
			continue
		}
		seen[keyword] = struct{}{}
		normalized = append(normalized, keyword)
	}
	return normalized
}

// RoutingRuleInput describes rule authoring payload.
type RoutingRuleInput struct {
	Name       string
	Keywords   []string
	TeamID     string
	AssigneeID *string
	Priority   int
	IsActive   bool
}

// CreateRule validates and persists a routing rule.
func (s *RoutingService) CreateRule(ctx context.Context, input RoutingRuleInput) (*domain.RoutingRule, error) {
	rule, err := s.buildRule(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := s.store.Rules().Create(ctx, rule); err != nil {
		return nil, apperrors.MapError(err)
	}
	return rule, nil
}

// UpdateRule replaces an existing rule's definition.
func (s *RoutingService) UpdateRule(ctx context.Context, ruleID string, input RoutingRuleInput) (*domain.RoutingRule, error) {
	existing, err := s.store.Rules().GetByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("routing rule", map[string]any{"rule_id": ruleID})
		}
		return nil, apperrors.MapError(err)
	}
	rule, err := s.buildRule(ctx, input)
	if err != nil {
		return nil, err
	}
	rule.ID = existing.ID
	if err := s.store.Rules().Update(ctx, rule); err != nil {
		return nil, apperrors.MapError(err)
	}
	return rule, nil
}

// ListRules returns every rule in evaluation order.
func (s *RoutingService) ListRules(ctx context.Context) ([]domain.RoutingRule, error) {
	rules, err := s.store.Rules().List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rules, nil
}

func (s *RoutingService) buildRule(ctx context.Context, input RoutingRuleInput) (*domain.RoutingRule, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("rule name required", nil)
	}
	keywords := NormalizeKeywords(input.Keywords)
	if len(keywords) == 0 {
		return nil, apperrors.NewValidationError("at least one keyword required", nil)
	}
	team, err := s.store.Teams().GetByID(ctx, input.TeamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("team", map[string]any{"team_id": input.TeamID})
		}
		return nil, apperrors.MapError(err)
	}
	if input.AssigneeID != nil {
		member, err := s.store.Teams().IsMember(ctx, team.ID, *input.AssigneeID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if !member {
			return nil, apperrors.NewValidationError("assignee is not a member of the target team",
				map[string]any{"team_id": team.ID, "staff_id": *input.AssigneeID})
		}
	}
	return &domain.RoutingRule{
		Name:       name,
		Keywords:   keywords,
		TeamID:     team.ID,
		AssigneeID: input.AssigneeID,
		Priority:   input.Priority,
		IsActive:   input.IsActive,
	}, nil
}
