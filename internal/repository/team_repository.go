package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/deskgate/deskgate/internal/domain"
)

// TeamRepository manages persistence for teams and their member rings.
type TeamRepository interface {
	Create(ctx context.Context, team *domain.Team) error
	Update(ctx context.Context, team *domain.Team) error
	GetByID(ctx context.Context, id string) (*domain.Team, error)
	// GetByIDForUpdate takes an exclusive row lock. Only meaningful inside
	// RunInTx; the round-robin resolver depends on it to serialize pointer
	// advances against the same team.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Team, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Team, error)
	SetLastAssigned(ctx context.Context, teamID, staffID string) error

	AddMember(ctx context.Context, member *domain.TeamMember) error
	RemoveMember(ctx context.Context, teamID, staffID string) error
	ListMembers(ctx context.Context, teamID string) ([]domain.TeamMember, error)
	IsMember(ctx context.Context, teamID, staffID string) (bool, error)
}

type teamRepository struct {
	db DB
}

const teamColumns = `id, name, code, strategy, last_assigned_user_id, is_active, created_at, updated_at`

func (r *teamRepository) Create(ctx context.Context, team *domain.Team) error {
	const query = `
        INSERT INTO teams (name, code, strategy, is_active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		team.Name,
		team.Code,
		team.Strategy,
		team.IsActive,
	).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)
}

func (r *teamRepository) Update(ctx context.Context, team *domain.Team) error {
	const query = `
        UPDATE teams SET name=$1, code=$2, strategy=$3, last_assigned_user_id=$4, is_active=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.db.Exec(ctx, query,
		team.Name,
		team.Code,
		team.Strategy,
		team.LastAssignedUserID,
		team.IsActive,
		team.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *teamRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *teamRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id=$1 FOR UPDATE`
	return r.fetchSingle(ctx, query, id)
}

func (r *teamRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Team, error) {
	var team domain.Team
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&team.ID,
		&team.Name,
		&team.Code,
		&team.Strategy,
		&team.LastAssignedUserID,
		&team.IsActive,
		&team.CreatedAt,
		&team.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepository) List(ctx context.Context, activeOnly bool) ([]domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Team
	for rows.Next() {
		var team domain.Team
		if err := rows.Scan(
			&team.ID,
			&team.Name,
			&team.Code,
			&team.Strategy,
			&team.LastAssignedUserID,
			&team.IsActive,
			&team.CreatedAt,
			&team.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, team)
	}
	return result, rows.Err()
}

func (r *teamRepository) SetLastAssigned(ctx context.Context, teamID, staffID string) error {
	const query = `UPDATE teams SET last_assigned_user_id=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.db.Exec(ctx, query, staffID, teamID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *teamRepository) AddMember(ctx context.Context, member *domain.TeamMember) error {
	const query = `
        INSERT INTO team_members (team_id, staff_id)
        VALUES ($1,$2)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query, member.TeamID, member.StaffID).
		Scan(&member.ID, &member.CreatedAt)
}

func (r *teamRepository) RemoveMember(ctx context.Context, teamID, staffID string) error {
	const query = `DELETE FROM team_members WHERE team_id=$1 AND staff_id=$2`
	cmd, err := r.db.Exec(ctx, query, teamID, staffID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListMembers returns the team's members ordered by membership creation
// time. This order is the round-robin ring.
func (r *teamRepository) ListMembers(ctx context.Context, teamID string) ([]domain.TeamMember, error) {
	const query = `
        SELECT id, team_id, staff_id, created_at
        FROM team_members WHERE team_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TeamMember
	for rows.Next() {
		var member domain.TeamMember
		if err := rows.Scan(&member.ID, &member.TeamID, &member.StaffID, &member.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, member)
	}
	return result, rows.Err()
}

func (r *teamRepository) IsMember(ctx context.Context, teamID, staffID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM team_members WHERE team_id=$1 AND staff_id=$2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, teamID, staffID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
