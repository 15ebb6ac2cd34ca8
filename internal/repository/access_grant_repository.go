package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/deskgate/deskgate/internal/domain"
)

// AccessGrantRepository persists view-only team grants for staff.
type AccessGrantRepository interface {
	Create(ctx context.Context, grant *domain.AccessGrant) error
	Delete(ctx context.Context, staffID, teamID string) error
	ListTeamIDsForStaff(ctx context.Context, staffID string) ([]string, error)
}

type accessGrantRepository struct {
	db DB
}

func (r *accessGrantRepository) Create(ctx context.Context, grant *domain.AccessGrant) error {
	const query = `
        INSERT INTO access_grants (staff_id, team_id)
        VALUES ($1,$2)
        ON CONFLICT (staff_id, team_id) DO UPDATE SET staff_id=EXCLUDED.staff_id
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query, grant.StaffID, grant.TeamID).
		Scan(&grant.ID, &grant.CreatedAt)
}

func (r *accessGrantRepository) Delete(ctx context.Context, staffID, teamID string) error {
	const query = `DELETE FROM access_grants WHERE staff_id=$1 AND team_id=$2`
	cmd, err := r.db.Exec(ctx, query, staffID, teamID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accessGrantRepository) ListTeamIDsForStaff(ctx context.Context, staffID string) ([]string, error) {
	const query = `SELECT team_id FROM access_grants WHERE staff_id=$1`
	rows, err := r.db.Query(ctx, query, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var teamID string
		if err := rows.Scan(&teamID); err != nil {
			return nil, err
		}
		result = append(result, teamID)
	}
	return result, rows.Err()
}
