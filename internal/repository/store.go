package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the query surface shared by pgxpool.Pool and pgx.Tx, letting the same
// repository code run inside and outside a transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store bundles the repositories over one query surface. RunInTx yields a
// tx-scoped Store so a ticket update, its SLA fields and its audit event
// commit or roll back as one unit.
type Store interface {
	Tickets() TicketRepository
	Messages() TicketMessageRepository
	Events() TicketEventRepository
	Teams() TeamRepository
	Rules() RoutingRuleRepository
	SlaPolicies() SlaPolicyRepository
	Staff() StaffRepository
	Users() UserRepository
	Grants() AccessGrantRepository
	PasswordResets() PasswordResetRepository

	// RunInTx executes fn inside a transaction. Concurrent mutations of the
	// same ticket are not serialized beyond the database's row-level write
	// behavior; last write wins. The team row lock taken by the round-robin
	// path is the only pessimistic lock in the system.
	RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

type pgxStore struct {
	db   DB
	pool *pgxpool.Pool
}

// NewStore builds the pgx-backed store.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgxStore{db: pool, pool: pool}
}

func (s *pgxStore) Tickets() TicketRepository { return &ticketRepository{db: s.db} }
func (s *pgxStore) Messages() TicketMessageRepository { return &ticketMessageRepository{db: s.db} }
func (s *pgxStore) Events() TicketEventRepository { return &ticketEventRepository{db: s.db} }
func (s *pgxStore) Teams() TeamRepository { return &teamRepository{db: s.db} }
func (s *pgxStore) Rules() RoutingRuleRepository { return &routingRuleRepository{db: s.db} }
func (s *pgxStore) SlaPolicies() SlaPolicyRepository { return &slaPolicyRepository{db: s.db} }
func (s *pgxStore) Staff() StaffRepository { return &staffRepository{db: s.db} }
func (s *pgxStore) Users() UserRepository { return &userRepository{db: s.db} }
func (s *pgxStore) Grants() AccessGrantRepository { return &accessGrantRepository{db: s.db} }
func (s *pgxStore) PasswordResets() PasswordResetRepository { return &passwordResetRepository{db: s.db} }

func (s *pgxStore) RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	if s.pool == nil {
		// Already transaction-scoped; join the surrounding transaction.
		return fn(ctx, s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgxStore{db: tx})
	})
}
