package orders

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// transition is one row of the order state machine.
type transition struct {
	From   Status
	Action Action
	Actors []Role
	To     Status
}

// transitions is the only definition of which actions are legal. Buyer and
// seller views, the client controller and the server all consult it.
var transitions = []transition{
	{From: StatusPending, Action: ActionConfirm, Actors: []Role{RoleSeller}, To: StatusConfirmed},
	{From: StatusConfirmed, Action: ActionShip, Actors: []Role{RoleSeller}, To: StatusShipping},
	{From: StatusShipping, Action: ActionDeliver, Actors: []Role{RoleSeller}, To: StatusDelivered},
	{From: StatusDelivered, Action: ActionComplete, Actors: []Role{RoleBuyer}, To: StatusCompleted},
	{From: StatusPending, Action: ActionCancel, Actors: []Role{RoleBuyer, RoleSeller}, To: StatusCancelled},
	{From: StatusConfirmed, Action: ActionCancel, Actors: []Role{RoleBuyer, RoleSeller}, To: StatusCancelled},
}

// InvalidTransitionError reports an action that the table does not allow
// for the current status and role. It is a caller bug, not user input.
type InvalidTransitionError struct {
	From   Status
	Action Action
	Role   Role
}

func (e *InvalidTransitionError) Error() string {
	if e.From.IsTerminal() {
		return fmt.Sprintf("invalid transition: order is %s (terminal), %s cannot %s", e.From, e.Role, e.Action)
	}
	return fmt.Sprintf("invalid transition: %s cannot %s an order in status %s", e.Role, e.Action, e.From)
}

// ErrReasonRequired is returned by Apply when cancelling without a reason.
var ErrReasonRequired = errors.New("cancellation reason is required")

// Next looks up the status reached by role performing action from status from.
func Next(from Status, action Action, role Role) (Status, error) {
	for _, t := range transitions {
		if t.From != from || t.Action != action {
			continue
		}
		for _, actor := range t.Actors {
			if actor == role {
				return t.To, nil
			}
		}
	}
	return "", &InvalidTransitionError{From: from, Action: action, Role: role}
}

// Can reports whether Next would succeed.
func Can(from Status, action Action, role Role) bool {
	_, err := Next(from, action, role)
	return err == nil
}

// AllowedActions lists the actions role may take on an order in status, in
// table order. Terminal statuses yield nothing.
func AllowedActions(status Status, role Role) []Action {
	var out []Action
	for _, t := range transitions {
		if t.From != status {
			continue
		}
		for _, actor := range t.Actors {
			if actor == role {
				out = append(out, t.Action)
				break
			}
		}
	}
	return out
}

// Apply returns a copy of o advanced by action. Amounts and items are never
// touched, so the totals invariant holds across every transition.
func Apply(o Order, action Action, role Role, reason string, now time.Time) (Order, error) {
	to, err := Next(o.Status, action, role)
	if err != nil {
		return o, err
	}

	reason = strings.TrimSpace(reason)
	if action == ActionCancel && reason == "" {
		return o, ErrReasonRequired
	}

	next := o
	next.OrderItems = append([]OrderItem(nil), o.OrderItems...)
	next.Status = to
	next.UpdatedAt = now

	ts := now
	switch to {
	case StatusConfirmed:
		next.ConfirmedAt = &ts
	case StatusShipping:
		next.ShippedAt = &ts
	case StatusDelivered:
		next.DeliveredAt = &ts
	case StatusCompleted:
		next.CompletedAt = &ts
	case StatusCancelled:
		next.CancelledAt = &ts
		next.CancellationReason = reason
		next.CancelledBy = role
	}
	return next, nil
}
