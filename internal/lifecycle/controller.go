// Package lifecycle drives order transitions from the client side: the
// transition table is checked before any request, one request per order is
// in flight at a time, and the cached order only changes when the service
// answers.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/imrishuroy/campus-orderflow/internal/logging"
	"github.com/imrishuroy/campus-orderflow/internal/orders"
	"github.com/imrishuroy/campus-orderflow/internal/validation"
)

// ErrOrderBusy is returned while another request for the same order is in
// flight.
var ErrOrderBusy = errors.New("order has a request in flight")

// Transitioner is the remote side of a transition.
type Transitioner interface {
	Transition(ctx context.Context, orderID string, action orders.Action, reason string) (orders.Order, error)
}

// Controller is safe for concurrent use.
type Controller struct {
	remote Transitioner
	logger *zap.Logger

	mu     sync.Mutex
	busy   map[string]struct{}
	cached map[string]orders.Order
}

// NewController returns a Controller that sends transitions to remote.
func NewController(remote Transitioner, logger *zap.Logger) *Controller {
	return &Controller{
		remote: remote,
		logger: logging.OrNop(logger),
		busy:   map[string]struct{}{},
		cached: map[string]orders.Order{},
	}
}

// Track stores orders as the current known state, e.g. after a list call.
// Orders with a request in flight are skipped.
func (c *Controller) Track(list ...orders.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, o := range list {
		if _, inFlight := c.busy[o.ID]; inFlight {
			continue
		}
		c.cached[o.ID] = o
	}
}

// Cached returns the last state the service confirmed for id.
func (c *Controller) Cached(id string) (orders.Order, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.cached[id]
	return o, ok
}

// Busy reports whether a request for orderID is in flight.
func (c *Controller) Busy(orderID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.busy[orderID]
	return ok
}

// NextActions lists what role may do with order now. A busy order offers
// nothing.
func (c *Controller) NextActions(order orders.Order, role orders.Role) []orders.Action {
	if c.Busy(order.ID) {
		return nil
	}
	return orders.AllowedActions(order.Status, role)
}

// Advance performs a non-cancel action.
func (c *Controller) Advance(ctx context.Context, order orders.Order, role orders.Role, action orders.Action) (orders.Order, error) {
	if action == orders.ActionCancel {
		return orders.Order{}, validation.NewError("action", "use Cancel to cancel an order")
	}
	return c.run(ctx, order, role, action, "")
}

// Cancel cancels order with a reason. A blank reason is rejected before the
// transition table is consulted.
func (c *Controller) Cancel(ctx context.Context, order orders.Order, role orders.Role, reason string) (orders.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return orders.Order{}, validation.NewError("reason", "must not be blank")
	}
	return c.run(ctx, order, role, orders.ActionCancel, reason)
}

func (c *Controller) run(ctx context.Context, order orders.Order, role orders.Role, action orders.Action, reason string) (orders.Order, error) {
	if _, err := orders.Next(order.Status, action, role); err != nil {
		return orders.Order{}, err
	}

	if !c.acquire(order.ID) {
		return orders.Order{}, fmt.Errorf("%s %s: %w", action, order.ID, ErrOrderBusy)
	}
	defer c.release(order.ID)

	updated, err := c.remote.Transition(ctx, order.ID, action, reason)
	if err != nil {
		c.logger.Warn("order transition failed",
			zap.String("order_id", order.ID),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return orders.Order{}, err
	}

	c.mu.Lock()
	c.cached[updated.ID] = updated
	c.mu.Unlock()

	c.logger.Info("order transitioned",
		zap.String("order_id", updated.ID),
		zap.String("action", string(action)),
		zap.String("from", string(order.Status)),
		zap.String("to", string(updated.Status)),
	)
	return updated, nil
}

func (c *Controller) acquire(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.busy[id]; ok {
		return false
	}
	c.busy[id] = struct{}{}
	return true
}

func (c *Controller) release(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.busy, id)
}
