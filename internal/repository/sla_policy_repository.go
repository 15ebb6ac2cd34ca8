package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/deskgate/deskgate/internal/domain"
)

// SlaPolicyRepository persists SLA policies. GetTeamPolicy and
// GetDefaultPolicy satisfy sla.PolicyStore.
type SlaPolicyRepository interface {
	Create(ctx context.Context, policy *domain.SlaPolicy) error
	Update(ctx context.Context, policy *domain.SlaPolicy) error
	GetTeamPolicy(ctx context.Context, teamID string, priority domain.TicketPriority) (*domain.SlaPolicy, error)
	GetDefaultPolicy(ctx context.Context, priority domain.TicketPriority) (*domain.SlaPolicy, error)
	List(ctx context.Context) ([]domain.SlaPolicy, error)
}

type slaPolicyRepository struct {
	db DB
}

const slaPolicyColumns = `id, team_id, priority, first_response_hours, resolution_hours, is_active, created_at, updated_at`

func (r *slaPolicyRepository) Create(ctx context.Context, policy *domain.SlaPolicy) error {
	const query = `
        INSERT INTO sla_policies (team_id, priority, first_response_hours, resolution_hours, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		policy.TeamID,
		policy.Priority,
		policy.FirstResponseHours,
		policy.ResolutionHours,
		policy.IsActive,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
}

func (r *slaPolicyRepository) Update(ctx context.Context, policy *domain.SlaPolicy) error {
	const query = `
        UPDATE sla_policies SET team_id=$1, priority=$2, first_response_hours=$3,
            resolution_hours=$4, is_active=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.db.Exec(ctx, query,
		policy.TeamID,
		policy.Priority,
		policy.FirstResponseHours,
		policy.ResolutionHours,
		policy.IsActive,
		policy.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slaPolicyRepository) GetTeamPolicy(ctx context.Context, teamID string, priority domain.TicketPriority) (*domain.SlaPolicy, error) {
	query := `SELECT ` + slaPolicyColumns + `
        FROM sla_policies WHERE team_id=$1 AND priority=$2 AND is_active
        ORDER BY updated_at DESC LIMIT 1`
	return r.fetchSingle(ctx, query, teamID, priority)
}

func (r *slaPolicyRepository) GetDefaultPolicy(ctx context.Context, priority domain.TicketPriority) (*domain.SlaPolicy, error) {
	query := `SELECT ` + slaPolicyColumns + `
        FROM sla_policies WHERE team_id IS NULL AND priority=$1 AND is_active
        ORDER BY updated_at DESC LIMIT 1`
	return r.fetchSingle(ctx, query, priority)
}

func (r *slaPolicyRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.SlaPolicy, error) {
	var policy domain.SlaPolicy
	if err := r.db.QueryRow(ctx, query, args...).Scan(
		&policy.ID,
		&policy.TeamID,
		&policy.Priority,
		&policy.FirstResponseHours,
		&policy.ResolutionHours,
		&policy.IsActive,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *slaPolicyRepository) List(ctx context.Context) ([]domain.SlaPolicy, error) {
	query := `SELECT ` + slaPolicyColumns + ` FROM sla_policies ORDER BY team_id NULLS FIRST, priority ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SlaPolicy
	for rows.Next() {
		var policy domain.SlaPolicy
		if err := rows.Scan(
			&policy.ID,
			&policy.TeamID,
			&policy.Priority,
			&policy.FirstResponseHours,
			&policy.ResolutionHours,
			&policy.IsActive,
			&policy.CreatedAt,
			&policy.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, policy)
	}
	return result, rows.Err()
}
