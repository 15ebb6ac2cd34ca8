package sla

import (
	"time"

	"github.com/deskgate/deskgate/internal/domain"
)

// AtRiskWindow is how close to the resolution deadline a ticket may get
// before its derived status flips from OnTrack to AtRisk.
const AtRiskWindow = 4 * time.Hour

// Status is the derived SLA state of a ticket. It is computed for filtering
// and presentation, never stored.
type Status string

const (
	StatusMet      Status = "MET"
	StatusPaused   Status = "PAUSED"
	StatusBreached Status = "BREACHED"
	StatusAtRisk   Status = "AT_RISK"
	StatusOnTrack  Status = "ON_TRACK"
	StatusNone     Status = "NO_SLA"
)

// ApplyCreation anchors both due timestamps at ticket creation.
func ApplyCreation(t *domain.Ticket, now time.Time, targets Targets) {
	firstResponse := now.Add(time.Duration(targets.FirstResponseHours) * time.Hour)
	due := now.Add(time.Duration(targets.ResolutionHours) * time.Hour)
	t.FirstResponseDueAt = &firstResponse
	t.DueAt = &due
}

// MarkFirstResponse stamps FirstResponseAt exactly once. Returns true when
// the stamp was applied.
func MarkFirstResponse(t *domain.Ticket, now time.Time) bool {
	if t.FirstResponseAt != nil {
		return false
	}
	t.FirstResponseAt = &now
	return true
}

// Pause records the moment the ticket entered a waiting status. No other
// SLA field changes.
func Pause(t *domain.Ticket, now time.Time) {
	paused := now
	t.SlaPausedAt = &paused
}

// Resume shifts the resolution deadline forward by the paused duration and
// clears the pause marker.
func Resume(t *domain.Ticket, now time.Time) {
	if t.SlaPausedAt != nil && t.DueAt != nil {
		shifted := t.DueAt.Add(now.Sub(*t.SlaPausedAt))
		t.DueAt = &shifted
	}
	t.SlaPausedAt = nil
}

// ResetOnReopen restarts the resolution clock from now. First-response
// fields are untouched by reopen.
func ResetOnReopen(t *domain.Ticket, now time.Time, targets Targets) {
	due := now.Add(time.Duration(targets.ResolutionHours) * time.Hour)
	t.DueAt = &due
	t.SlaPausedAt = nil
}

// Reanchor recomputes both due timestamps after a priority change or team
// transfer. Subtracting the old targets recovers the original anchor point,
// so elapsed time and prior pause shifting are preserved instead of the
// clock restarting from now.
func Reanchor(t *domain.Ticket, oldTargets, newTargets Targets) {
	if t.FirstResponseDueAt != nil {
		anchor := t.FirstResponseDueAt.Add(-time.Duration(oldTargets.FirstResponseHours) * time.Hour)
		due := anchor.Add(time.Duration(newTargets.FirstResponseHours) * time.Hour)
		t.FirstResponseDueAt = &due
	}
	if t.DueAt != nil {
		anchor := t.DueAt.Add(-time.Duration(oldTargets.ResolutionHours) * time.Hour)
		due := anchor.Add(time.Duration(newTargets.ResolutionHours) * time.Hour)
		t.DueAt = &due
	}
}

// DeriveStatus computes the ticket's SLA state at the given instant.
func DeriveStatus(t *domain.Ticket, now time.Time) Status {
	switch {
	case t.CompletedAt != nil:
		return StatusMet
	case t.Status.IsWaiting():
		return StatusPaused
	case t.DueAt == nil:
		return StatusNone
	case t.DueAt.Before(now):
		return StatusBreached
	case !t.DueAt.After(now.Add(AtRiskWindow)):
		return StatusAtRisk
	default:
		return StatusOnTrack
	}
}
