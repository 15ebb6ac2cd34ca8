package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/deskgate/deskgate/internal/access"
	"github.com/deskgate/deskgate/internal/domain"
	"github.com/deskgate/deskgate/internal/sla"
)

// TicketFilter captures list-query parameters. Scope carries the caller's
// access eligibility; the other fields are user-chosen filters on top of it.
type TicketFilter struct {
	Scope       access.Scope
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	AssigneeID  *string
	TeamID      *string
	SlaStatus   *sla.Status
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	UpdatedFrom *time.Time
	UpdatedTo   *time.Time
	SortBy      string
	Limit       int
	Offset      int
}

// ticketSortColumns is the allow-list for dynamic ORDER BY selection. Unknown
// keys fall back to updated_at.
var ticketSortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"due_at":     "due_at",
	"priority":   "priority",
	"number":     "number",
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number int64) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	db DB
}

const ticketColumns = `id, number, requester_user_id, team_id, assignee_staff_id, subject, description,
               status, priority, first_response_due_at, first_response_at, due_at, sla_paused_at,
               resolved_at, closed_at, completed_at, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (requester_user_id, team_id, assignee_staff_id, subject, description,
            status, priority, first_response_due_at, due_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, number, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.RequesterID,
		ticket.TeamID,
		ticket.AssigneeID,
		ticket.Subject,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.FirstResponseDueAt,
		ticket.DueAt,
	).Scan(&ticket.ID, &ticket.Number, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET team_id=$1, assignee_staff_id=$2, subject=$3, description=$4,
            status=$5, priority=$6, first_response_due_at=$7, first_response_at=$8, due_at=$9,
            sla_paused_at=$10, resolved_at=$11, closed_at=$12, completed_at=$13, updated_at=NOW()
        WHERE id=$14`
	cmd, err := r.db.Exec(ctx, query,
		ticket.TeamID,
		ticket.AssigneeID,
		ticket.Subject,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.FirstResponseDueAt,
		ticket.FirstResponseAt,
		ticket.DueAt,
		ticket.SlaPausedAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.CompletedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE number=$1`
	return r.fetchSingle(ctx, query, number)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.db.QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	if filter.Scope.Empty {
		return []domain.Ticket{}, nil
	}

	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	clauses, args = appendScopeClauses(clauses, args, filter.Scope)

	if filter.TeamID != nil {
		args = append(args, *filter.TeamID)
		clauses = append(clauses, fmt.Sprintf("team_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_staff_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SlaStatus != nil {
		clauses = append(clauses, slaStatusClause(*filter.SlaStatus))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.UpdatedFrom != nil {
		args = append(args, *filter.UpdatedFrom)
		clauses = append(clauses, fmt.Sprintf("updated_at >= $%d", len(args)))
	}
	if filter.UpdatedTo != nil {
		args = append(args, *filter.UpdatedTo)
		clauses = append(clauses, fmt.Sprintf("updated_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(subject) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	sortColumn, ok := ticketSortColumns[filter.SortBy]
	if !ok {
		sortColumn = "updated_at"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY %s DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), sortColumn, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func appendScopeClauses(clauses []string, args []any, scope access.Scope) ([]string, []any) {
	if scope.All {
		return clauses, args
	}
	if scope.RequesterID != nil {
		args = append(args, *scope.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_user_id=$%d", len(args)))
		return clauses, args
	}

	var alternatives []string
	if scope.TeamID != nil {
		args = append(args, *scope.TeamID)
		teamClause := fmt.Sprintf("team_id=$%d", len(args))
		if scope.AssigneeID != nil {
			args = append(args, *scope.AssigneeID)
			assigneeClause := fmt.Sprintf("assignee_staff_id=$%d", len(args))
			if scope.OrUnassigned {
				assigneeClause = fmt.Sprintf("(%s OR assignee_staff_id IS NULL)", assigneeClause)
			}
			teamClause = fmt.Sprintf("(%s AND %s)", teamClause, assigneeClause)
		}
		alternatives = append(alternatives, teamClause)
	}
	if len(scope.ViewTeamIDs) > 0 {
		placeholders := make([]string, len(scope.ViewTeamIDs))
		for i, teamID := range scope.ViewTeamIDs {
			args = append(args, teamID)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		alternatives = append(alternatives, fmt.Sprintf("team_id IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(alternatives) > 0 {
		clauses = append(clauses, "("+strings.Join(alternatives, " OR ")+")")
	}
	return clauses, args
}

// slaStatusClause renders a derived SLA state as a WHERE fragment so list
// filtering matches sla.DeriveStatus.
func slaStatusClause(status sla.Status) string {
	const live = "completed_at IS NULL AND status NOT IN ('WAITING_ON_REQUESTER','WAITING_ON_VENDOR')"
	window := fmt.Sprintf("INTERVAL '%d hours'", int(sla.AtRiskWindow.Hours()))
	switch status {
	case sla.StatusMet:
		return "completed_at IS NOT NULL"
	case sla.StatusPaused:
		return "completed_at IS NULL AND status IN ('WAITING_ON_REQUESTER','WAITING_ON_VENDOR')"
	case sla.StatusBreached:
		return live + " AND due_at IS NOT NULL AND due_at < NOW()"
	case sla.StatusAtRisk:
		return live + " AND due_at IS NOT NULL AND due_at >= NOW() AND due_at <= NOW() + " + window
	case sla.StatusOnTrack:
		return live + " AND due_at IS NOT NULL AND due_at > NOW() + " + window
	default:
		return live + " AND due_at IS NULL"
	}
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.RequesterID,
		&ticket.TeamID,
		&ticket.AssigneeID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.FirstResponseDueAt,
		&ticket.FirstResponseAt,
		&ticket.DueAt,
		&ticket.SlaPausedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.CompletedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
