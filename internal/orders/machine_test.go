package orders_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/campus-orderflow/internal/orders"
)

type move struct {
	from   orders.Status
	action orders.Action
	role   orders.Role
}

// legal is written out independently of the package table on purpose.
var legal = map[move]orders.Status{
	{orders.StatusPending, orders.ActionConfirm, orders.RoleSeller}:   orders.StatusConfirmed,
	{orders.StatusConfirmed, orders.ActionShip, orders.RoleSeller}:    orders.StatusShipping,
	{orders.StatusShipping, orders.ActionDeliver, orders.RoleSeller}:  orders.StatusDelivered,
	{orders.StatusDelivered, orders.ActionComplete, orders.RoleBuyer}: orders.StatusCompleted,
	{orders.StatusPending, orders.ActionCancel, orders.RoleBuyer}:     orders.StatusCancelled,
	{orders.StatusPending, orders.ActionCancel, orders.RoleSeller}:    orders.StatusCancelled,
	{orders.StatusConfirmed, orders.ActionCancel, orders.RoleBuyer}:   orders.StatusCancelled,
	{orders.StatusConfirmed, orders.ActionCancel, orders.RoleSeller}:  orders.StatusCancelled,
}

func TestNext_FullGrid(t *testing.T) {
	for _, from := range orders.AllStatuses {
		for _, action := range orders.AllActions {
			for _, role := range []orders.Role{orders.RoleBuyer, orders.RoleSeller} {
				to, err := orders.Next(from, action, role)
				want, ok := legal[move{from, action, role}]
				if ok {
					require.NoError(t, err, "%s %s %s", from, action, role)
					assert.Equal(t, want, to)
					continue
				}
				var ite *orders.InvalidTransitionError
				require.True(t, errors.As(err, &ite), "%s %s %s should be rejected", from, action, role)
				assert.Equal(t, from, ite.From)
				assert.Equal(t, action, ite.Action)
				assert.Equal(t, role, ite.Role)
				assert.False(t, orders.Can(from, action, role))
			}
		}
	}
}

func TestTerminalStatusesAcceptNothing(t *testing.T) {
	for _, st := range []orders.Status{orders.StatusCompleted, orders.StatusCancelled} {
		assert.True(t, st.IsTerminal())
		assert.Empty(t, orders.AllowedActions(st, orders.RoleBuyer))
		assert.Empty(t, orders.AllowedActions(st, orders.RoleSeller))
		for i := 0; i < 3; i++ {
			_, err := orders.Next(st, orders.ActionCancel, orders.RoleBuyer)
			assert.ErrorContains(t, err, "terminal")
		}
	}
}

func TestAllowedActions(t *testing.T) {
	tests := []struct {
		status orders.Status
		role   orders.Role
		want   []orders.Action
	}{
		{orders.StatusPending, orders.RoleSeller, []orders.Action{orders.ActionConfirm, orders.ActionCancel}},
		{orders.StatusPending, orders.RoleBuyer, []orders.Action{orders.ActionCancel}},
		{orders.StatusConfirmed, orders.RoleSeller, []orders.Action{orders.ActionShip, orders.ActionCancel}},
		{orders.StatusConfirmed, orders.RoleBuyer, []orders.Action{orders.ActionCancel}},
		{orders.StatusShipping, orders.RoleSeller, []orders.Action{orders.ActionDeliver}},
		{orders.StatusShipping, orders.RoleBuyer, nil},
		{orders.StatusDelivered, orders.RoleBuyer, []orders.Action{orders.ActionComplete}},
		{orders.StatusDelivered, orders.RoleSeller, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.status)+"/"+string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, orders.AllowedActions(tt.status, tt.role))
		})
	}
}

func TestApply_HappyPathKeepsTotals(t *testing.T) {
	o := sampleOrder()
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	steps := []struct {
		action orders.Action
		role   orders.Role
		want   orders.Status
	}{
		{orders.ActionConfirm, orders.RoleSeller, orders.StatusConfirmed},
		{orders.ActionShip, orders.RoleSeller, orders.StatusShipping},
		{orders.ActionDeliver, orders.RoleSeller, orders.StatusDelivered},
		{orders.ActionComplete, orders.RoleBuyer, orders.StatusCompleted},
	}
	for i, step := range steps {
		at := now.Add(time.Duration(i) * time.Hour)
		next, err := orders.Apply(o, step.action, step.role, "", at)
		require.NoError(t, err)
		assert.Equal(t, step.want, next.Status)
		assert.Equal(t, at, next.UpdatedAt)
		require.NoError(t, next.CheckInvariants())
		o = next
	}

	require.NotNil(t, o.ConfirmedAt)
	require.NotNil(t, o.ShippedAt)
	require.NotNil(t, o.DeliveredAt)
	require.NotNil(t, o.CompletedAt)
	assert.Nil(t, o.CancelledAt)

	_, err := orders.Apply(o, orders.ActionCancel, orders.RoleBuyer, "too late", now)
	var ite *orders.InvalidTransitionError
	assert.ErrorAs(t, err, &ite)
}

func TestApply_Cancel(t *testing.T) {
	o := sampleOrder()
	o.Status = orders.StatusConfirmed
	now := time.Now().UTC()

	_, err := orders.Apply(o, orders.ActionCancel, orders.RoleBuyer, "   ", now)
	assert.ErrorIs(t, err, orders.ErrReasonRequired)

	next, err := orders.Apply(o, orders.ActionCancel, orders.RoleBuyer, "  changed my mind ", now)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCancelled, next.Status)
	assert.Equal(t, "changed my mind", next.CancellationReason)
	assert.Equal(t, orders.RoleBuyer, next.CancelledBy)
	require.NotNil(t, next.CancelledAt)
	assert.Equal(t, orders.StatusConfirmed, o.Status, "input order must not change")

	_, err = orders.Apply(next, orders.ActionShip, orders.RoleSeller, "", now)
	var ite *orders.InvalidTransitionError
	assert.ErrorAs(t, err, &ite)
}

func TestCheckInvariants(t *testing.T) {
	o := sampleOrder()
	require.NoError(t, o.CheckInvariants())

	bad := o
	bad.TotalAmount = bad.TotalAmount.Add(decimal.NewFromInt(1))
	assert.Error(t, bad.CheckInvariants())

	mixed := sampleOrder()
	mixed.OrderItems[1].SellerID = "someone-else"
	assert.Error(t, mixed.CheckInvariants())
}

func TestParse(t *testing.T) {
	st, err := orders.ParseStatus("shipping")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusShipping, st)
	_, err = orders.ParseStatus("lost")
	assert.Error(t, err)

	a, err := orders.ParseAction("CONFIRM")
	require.NoError(t, err)
	assert.Equal(t, orders.ActionConfirm, a)
	_, err = orders.ParseAction("refund")
	assert.Error(t, err)
}

func TestRoleOf(t *testing.T) {
	o := sampleOrder()
	r, ok := o.RoleOf("seller-a")
	assert.True(t, ok)
	assert.Equal(t, orders.RoleSeller, r)
	r, ok = o.RoleOf("buyer-1")
	assert.True(t, ok)
	assert.Equal(t, orders.RoleBuyer, r)
	_, ok = o.RoleOf("stranger")
	assert.False(t, ok)
}

func sampleOrder() orders.Order {
	return orders.Order{
		ID:             "order-1",
		OrderCode:      "ORD-261001-ABC123",
		Status:         orders.StatusPending,
		Buyer:          orders.Party{ID: "buyer-1", Name: "Lan"},
		Seller:         orders.Party{ID: "seller-a", Name: "Minh"},
		DeliveryMethod: orders.DeliveryHandDelivery,
		ShippingFee:    decimal.Zero,
		ProductTotal:   decimal.NewFromInt(150000),
		TotalAmount:    decimal.NewFromInt(150000),
		OrderItems: []orders.OrderItem{
			{ProductID: "1", Title: "Calculus textbook", Price: decimal.NewFromInt(100000), SellerID: "seller-a"},
			{ProductID: "2", Title: "Desk lamp", Price: decimal.NewFromInt(50000), SellerID: "seller-a"},
		},
		CreatedAt: time.Date(2026, 9, 30, 8, 0, 0, 0, time.UTC),
	}
}
