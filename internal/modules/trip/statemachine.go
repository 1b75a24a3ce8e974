// README: Centralized trip state machine; every mutator goes through Apply, Match or Cancel.
package trip

import (
	"fmt"
	"time"

	"github.com/milagros-hr/proyecto-transport/internal/types"
)

// AllowedTransitions represents the trip state flow as code. Cancellation is allowed from
// every non-terminal state.
var AllowedTransitions = map[Status][]Status{
	StatusPending:    {StatusWithOffers, StatusAccepted, StatusConfirmed, StatusCancelledByRider, StatusCancelledByDriver},
	StatusWithOffers: {StatusAccepted, StatusConfirmed, StatusCancelledByRider, StatusCancelledByDriver},
	StatusAccepted:   {StatusConfirmed, StatusCancelledByRider, StatusCancelledByDriver},
	StatusConfirmed:  {StatusInProgress, StatusCancelledByRider, StatusCancelledByDriver},
	StatusInProgress: {StatusCompleted, StatusCancelledByRider, StatusCancelledByDriver},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Apply moves r to state to and appends a history entry. On error r is left untouched.
func Apply(r *Request, to Status, actor types.ID, reason string, at time.Time) error {
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, r.Status, to)
	}
	if to.Matched() && (r.DriverID == nil || r.AgreedPrice == nil) {
		return fmt.Errorf("%w: %s requires a driver and an agreed price", ErrInvalidState, to)
	}

	from := r.Status
	r.Status = to
	r.UpdatedAt = at
	switch {
	case to == StatusAccepted:
		r.AcceptedAt = &at
	case to == StatusConfirmed:
		r.ConfirmedAt = &at
	case to == StatusInProgress:
		r.StartedAt = &at
	case to == StatusCompleted:
		r.CompletedAt = &at
	case to.Cancelled():
		r.CancelledAt = &at
		r.AgreedPrice = nil
	}
	r.History = append(r.History, Transition{From: from, State: to, At: at, ActorID: actor, Reason: reason})
	return nil
}

// Match binds a driver and price to an open request and moves it to accepted or confirmed.
func Match(r *Request, driverID types.ID, price float64, to Status, reason string, at time.Time) error {
	if !r.Status.Open() || !to.Matched() || !CanTransition(r.Status, to) {
		return fmt.Errorf("%w: cannot match request in %s", ErrInvalidState, r.Status)
	}
	if price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}
	prevDriver, prevPrice := r.DriverID, r.AgreedPrice
	r.DriverID = &driverID
	r.AgreedPrice = &price
	if err := Apply(r, to, driverID, reason, at); err != nil {
		r.DriverID, r.AgreedPrice = prevDriver, prevPrice
		return err
	}
	return nil
}

// Cancel lets the rider or the assigned driver abandon a non-terminal request.
// A cancelling driver is released from the request and remembered as the last
// cancelling driver.
func Cancel(r *Request, actor types.ID, reason string, at time.Time) (types.Role, error) {
	role, ok := r.Participant(actor)
	if !ok {
		return "", fmt.Errorf("%w: user %s is not part of request %s", ErrUnauthorized, actor, r.ID)
	}
	if r.Status.Terminal() {
		return "", fmt.Errorf("%w: request already %s", ErrInvalidState, r.Status)
	}
	to := StatusCancelledByRider
	if role == types.RoleDriver {
		to = StatusCancelledByDriver
	}
	if err := Apply(r, to, actor, reason, at); err != nil {
		return "", err
	}
	r.CancelReason = reason
	r.CancelledBy = role
	if role == types.RoleDriver {
		d := *r.DriverID
		r.LastCancellingDriverID = &d
		r.DriverID = nil
	}
	return role, nil
}
