package service

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/deskgate/deskgate/internal/access"
	"github.com/deskgate/deskgate/internal/domain"
	apperrors "github.com/deskgate/deskgate/pkg/util"
)

// bulkConcurrency caps the number of in-flight single-ticket operations.
const bulkConcurrency = 5

// BulkOperationKind selects the single-ticket operation to apply per id.
type BulkOperationKind string

const (
	BulkOpAssign     BulkOperationKind = "ASSIGN"
	BulkOpTransfer   BulkOperationKind = "TRANSFER"
	BulkOpTransition BulkOperationKind = "TRANSITION"
	BulkOpPriority   BulkOperationKind = "PRIORITY"
)

// BulkParams carries the operation-specific arguments. Only the fields for
// the selected kind are consulted.
type BulkParams struct {
	AssigneeID *string
	TeamID     string
	Status     domain.TicketStatus
	Priority   domain.TicketPriority
	Comment    string
}

// BulkError is one failed id and why.
type BulkError struct {
	TicketID string `json:"ticket_id"`
	Message  string `json:"message"`
}

// BulkResult is the mixed outcome of a batch.
type BulkResult struct {
	SuccessCount int         `json:"success_count"`
	FailedCount  int         `json:"failed_count"`
	Errors       []BulkError `json:"errors"`
}

// BulkService fans a single-ticket operation out over a list of ticket ids
// with bounded parallelism. Each id commits or fails on its own; there is no
// cross-ticket transaction and no cancellation once an id is scheduled.
type BulkService struct {
	tickets     *TicketService
	assignments *AssignmentService
}

// NewBulkService constructs the service.
func NewBulkService(tickets *TicketService, assignments *AssignmentService) *BulkService {
	return &BulkService{tickets: tickets, assignments: assignments}
}

// Execute applies the operation to every id and returns per-id outcomes. The
// batch itself never fails on an individual ticket's error; only an invalid
// kind or an empty id list rejects the whole request.
func (s *BulkService) Execute(ctx context.Context, actor access.Actor, kind BulkOperationKind, ticketIDs []string, params BulkParams) (*BulkResult, error) {
	if len(ticketIDs) == 0 {
		return nil, apperrors.NewValidationError("ticket_ids required", nil)
	}
	apply, err := s.operation(kind, params)
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		result BulkResult
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(bulkConcurrency)
	for _, ticketID := range ticketIDs {
		ticketID := ticketID
		group.Go(func() error {
			opErr := apply(groupCtx, actor, ticketID)
			mu.Lock()
			defer mu.Unlock()
			if opErr != nil {
				result.FailedCount++
				result.Errors = append(result.Errors, BulkError{
					TicketID: ticketID,
					Message:  apperrors.ToDomainError(opErr).Message,
				})
			} else {
				result.SuccessCount++
			}
			// Errors stay in the result; returning nil keeps the group from
			// cancelling the remaining ids.
			return nil
		})
	}
	_ = group.Wait()
	return &result, nil
}

func (s *BulkService) operation(kind BulkOperationKind, params BulkParams) (func(context.Context, access.Actor, string) error, error) {
	switch kind {
	case BulkOpAssign:
		return func(ctx context.Context, actor access.Actor, ticketID string) error {
			_, err := s.assignments.Assign(ctx, actor, ticketID, params.AssigneeID)
			return err
		}, nil
	case BulkOpTransfer:
		if params.TeamID == "" {
			return nil, apperrors.NewValidationError("team_id required", nil)
		}
		return func(ctx context.Context, actor access.Actor, ticketID string) error {
			_, err := s.assignments.Transfer(ctx, actor, ticketID, params.TeamID, params.AssigneeID)
			return err
		}, nil
	case BulkOpTransition:
		if !params.Status.IsValid() {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": params.Status})
		}
		return func(ctx context.Context, actor access.Actor, ticketID string) error {
			_, err := s.tickets.Transition(ctx, actor, ticketID, params.Status, params.Comment)
			return err
		}, nil
	case BulkOpPriority:
		if !params.Priority.IsValid() {
			return nil, apperrors.NewValidationError("malformed priority", map[string]any{"priority": params.Priority})
		}
		return func(ctx context.Context, actor access.Actor, ticketID string) error {
			_, err := s.tickets.ChangePriority(ctx, actor, ticketID, params.Priority)
			return err
		}, nil
	default:
		return nil, apperrors.NewValidationError("unknown bulk operation", map[string]any{"kind": kind})
	}
}
