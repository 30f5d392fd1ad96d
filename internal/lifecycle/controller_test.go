package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/campus-orderflow/internal/lifecycle"
	"github.com/imrishuroy/campus-orderflow/internal/orders"
	"github.com/imrishuroy/campus-orderflow/internal/validation"
)

// fakeRemote applies transitions with the shared table, like the service,
// acting as role.
type fakeRemote struct {
	mu     sync.Mutex
	orders map[string]orders.Order
	role   orders.Role
	calls  int
	err    error
	gate   chan struct{}
}

func newRemote(list ...orders.Order) *fakeRemote {
	r := &fakeRemote{orders: map[string]orders.Order{}, role: orders.RoleSeller}
	for _, o := range list {
		r.orders[o.ID] = o
	}
	return r
}

func (r *fakeRemote) Transition(_ context.Context, id string, action orders.Action, reason string) (orders.Order, error) {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return orders.Order{}, r.err
	}
	next, err := orders.Apply(r.orders[id], action, r.role, reason, time.Now())
	if err != nil {
		return orders.Order{}, err
	}
	r.orders[id] = next
	return next, nil
}

func (r *fakeRemote) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func order(status orders.Status) orders.Order {
	price := decimal.NewFromInt(150000)
	return orders.Order{
		ID:           "o-1",
		Status:       status,
		Buyer:        orders.Party{ID: "buyer"},
		Seller:       orders.Party{ID: "seller"},
		ProductTotal: price,
		ShippingFee:  decimal.Zero,
		TotalAmount:  price,
		OrderItems:   []orders.OrderItem{{ProductID: "1", Price: price, SellerID: "seller"}},
	}
}

func TestConfirmTwice(t *testing.T) {
	pending := order(orders.StatusPending)
	remote := newRemote(pending)
	c := lifecycle.NewController(remote, nil)

	confirmed, err := c.Advance(context.Background(), pending, orders.RoleSeller, orders.ActionConfirm)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)

	cached, ok := c.Cached("o-1")
	require.True(t, ok)
	assert.Equal(t, orders.StatusConfirmed, cached.Status)

	_, err = c.Advance(context.Background(), confirmed, orders.RoleSeller, orders.ActionConfirm)
	var invalid *orders.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 1, remote.Calls())
}

func TestBuyerCancelsConfirmedThenShipFails(t *testing.T) {
	confirmed := order(orders.StatusConfirmed)
	remote := newRemote(confirmed)
	remote.role = orders.RoleBuyer
	c := lifecycle.NewController(remote, nil)

	cancelled, err := c.Cancel(context.Background(), confirmed, orders.RoleBuyer, "  changed my mind ")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCancelled, cancelled.Status)
	assert.Equal(t, "changed my mind", cancelled.CancellationReason)
	assert.Equal(t, orders.RoleBuyer, cancelled.CancelledBy)

	_, err = c.Advance(context.Background(), cancelled, orders.RoleSeller, orders.ActionShip)
	var invalid *orders.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 1, remote.Calls())
}

func TestCancelWithBlankReasonSendsNothing(t *testing.T) {
	pending := order(orders.StatusPending)
	remote := newRemote(pending)
	c := lifecycle.NewController(remote, nil)
	c.Track(pending)

	for _, reason := range []string{"", "   ", "\t\n"} {
		_, err := c.Cancel(context.Background(), pending, orders.RoleBuyer, reason)
		var verr *validation.Error
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "reason")
	}

	assert.Zero(t, remote.Calls())
	cached, _ := c.Cached("o-1")
	assert.Equal(t, orders.StatusPending, cached.Status)
}

func TestCompleteThenCancelRejected(t *testing.T) {
	delivered := order(orders.StatusDelivered)
	remote := newRemote(delivered)
	remote.role = orders.RoleBuyer
	c := lifecycle.NewController(remote, nil)

	completed, err := c.Advance(context.Background(), delivered, orders.RoleBuyer, orders.ActionComplete)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCompleted, completed.Status)

	_, err = c.Cancel(context.Background(), completed, orders.RoleBuyer, "too late")
	var invalid *orders.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Empty(t, c.NextActions(completed, orders.RoleBuyer))
	assert.Empty(t, c.NextActions(completed, orders.RoleSeller))
}

func TestCancelOnlyThroughCancel(t *testing.T) {
	c := lifecycle.NewController(newRemote(), nil)
	_, err := c.Advance(context.Background(), order(orders.StatusPending), orders.RoleBuyer, orders.ActionCancel)
	var verr *validation.Error
	assert.ErrorAs(t, err, &verr)
}

func TestRemoteErrorKeepsCachedState(t *testing.T) {
	pending := order(orders.StatusPending)
	remote := newRemote(pending)
	remote.err = errors.New("409 status changed")
	c := lifecycle.NewController(remote, nil)
	c.Track(pending)

	_, err := c.Advance(context.Background(), pending, orders.RoleSeller, orders.ActionConfirm)
	require.Error(t, err)

	cached, ok := c.Cached("o-1")
	require.True(t, ok)
	assert.Equal(t, orders.StatusPending, cached.Status)
	assert.False(t, c.Busy("o-1"))
}

func TestBusyWhileInFlight(t *testing.T) {
	pending := order(orders.StatusPending)
	remote := newRemote(pending)
	remote.gate = make(chan struct{})
	c := lifecycle.NewController(remote, nil)
	c.Track(pending)

	done := make(chan error, 1)
	go func() {
		_, err := c.Advance(context.Background(), pending, orders.RoleSeller, orders.ActionConfirm)
		done <- err
	}()

	require.Eventually(t, func() bool { return c.Busy("o-1") }, time.Second, time.Millisecond)
	assert.Empty(t, c.NextActions(pending, orders.RoleSeller))

	// no optimistic update while the request is pending
	cached, _ := c.Cached("o-1")
	assert.Equal(t, orders.StatusPending, cached.Status)

	_, err := c.Cancel(context.Background(), pending, orders.RoleSeller, "out of stock")
	assert.ErrorIs(t, err, lifecycle.ErrOrderBusy)

	close(remote.gate)
	require.NoError(t, <-done)
	assert.False(t, c.Busy("o-1"))

	cached, _ = c.Cached("o-1")
	assert.Equal(t, orders.StatusConfirmed, cached.Status)
	assert.Equal(t, 1, remote.Calls())
}

func TestNextActions(t *testing.T) {
	c := lifecycle.NewController(newRemote(), nil)
	assert.Equal(t, []orders.Action{orders.ActionConfirm, orders.ActionCancel}, c.NextActions(order(orders.StatusPending), orders.RoleSeller))
	assert.Equal(t, []orders.Action{orders.ActionCancel}, c.NextActions(order(orders.StatusPending), orders.RoleBuyer))
	assert.Equal(t, []orders.Action{orders.ActionComplete}, c.NextActions(order(orders.StatusDelivered), orders.RoleBuyer))
}
