package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/deskgate/deskgate/internal/domain"
)

// RoutingRuleRepository persists keyword routing rules.
type RoutingRuleRepository interface {
	Create(ctx context.Context, rule *domain.RoutingRule) error
	Update(ctx context.Context, rule *domain.RoutingRule) error
	GetByID(ctx context.Context, id string) (*domain.RoutingRule, error)
	// ListActive returns active rules in evaluation order: priority
	// ascending, ties broken by name.
	ListActive(ctx context.Context) ([]domain.RoutingRule, error)
	List(ctx context.Context) ([]domain.RoutingRule, error)
}

type routingRuleRepository struct {
	db DB
}

const ruleColumns = `id, name, keywords, team_id, assignee_staff_id, priority, is_active, created_at, updated_at`

func (r *routingRuleRepository) Create(ctx context.Context, rule *domain.RoutingRule) error {
	const query = `
        INSERT INTO routing_rules (name, keywords, team_id, assignee_staff_id, priority, is_active)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		rule.Name,
		rule.Keywords,
		rule.TeamID,
		rule.AssigneeID,
		rule.Priority,
		rule.IsActive,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}

func (r *routingRuleRepository) Update(ctx context.Context, rule *domain.RoutingRule) error {
	const query = `
        UPDATE routing_rules SET name=$1, keywords=$2, team_id=$3, assignee_staff_id=$4,
            priority=$5, is_active=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := r.db.Exec(ctx, query,
		rule.Name,
		rule.Keywords,
		rule.TeamID,
		rule.AssigneeID,
		rule.Priority,
		rule.IsActive,
		rule.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *routingRuleRepository) GetByID(ctx context.Context, id string) (*domain.RoutingRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM routing_rules WHERE id=$1`
	var rule domain.RoutingRule
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&rule.ID,
		&rule.Name,
		&rule.Keywords,
		&rule.TeamID,
		&rule.AssigneeID,
		&rule.Priority,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *routingRuleRepository) ListActive(ctx context.Context) ([]domain.RoutingRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM routing_rules WHERE is_active ORDER BY priority ASC, name ASC`
	return r.list(ctx, query)
}

func (r *routingRuleRepository) List(ctx context.Context) ([]domain.RoutingRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM routing_rules ORDER BY priority ASC, name ASC`
	return r.list(ctx, query)
}

func (r *routingRuleRepository) list(ctx context.Context, query string) ([]domain.RoutingRule, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RoutingRule
	for rows.Next() {
		var rule domain.RoutingRule
		if err := rows.Scan(
			&rule.ID,
			&rule.Name,
			&rule.Keywords,
			&rule.TeamID,
			&rule.AssigneeID,
			&rule.Priority,
			&rule.IsActive,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}
