// Package events carries order lifecycle events from the service to the
// worker over SQS.
package events

import (
	"time"

	"github.com/imrishuroy/campus-orderflow/internal/orders"
)

// Event types
const (
	TypeOrderCreated      = "order.created"
	TypeOrderTransitioned = "order.transitioned"
)

// MetricOrderTransitions is the CloudWatch metric the worker records.
const MetricOrderTransitions = "OrderTransitions"

// actionCreate labels creations in the Action dimension.
const actionCreate = "create"

// Event is the message body.
type Event struct {
	Type      string        `json:"type"`
	OrderID   string        `json:"orderId"`
	OrderCode string        `json:"orderCode"`
	From      orders.Status `json:"from,omitempty"`
	To        orders.Status `json:"to"`
	Action    orders.Action `json:"action,omitempty"`
	Actor     orders.Role   `json:"actor,omitempty"`
	BuyerID   string        `json:"buyerId"`
	SellerID  string        `json:"sellerId"`
	At        time.Time     `json:"at"`
}

// Created describes a new order.
func Created(o orders.Order) Event {
	return Event{
		Type:      TypeOrderCreated,
		OrderID:   o.ID,
		OrderCode: o.OrderCode,
		To:        o.Status,
		Actor:     orders.RoleBuyer,
		BuyerID:   o.Buyer.ID,
		SellerID:  o.Seller.ID,
		At:        o.CreatedAt,
	}
}

// Transitioned describes next, reached from from by role doing action.
func Transitioned(from orders.Status, next orders.Order, action orders.Action, role orders.Role) Event {
	return Event{
		Type:      TypeOrderTransitioned,
		OrderID:   next.ID,
		OrderCode: next.OrderCode,
		From:      from,
		To:        next.Status,
		Action:    action,
		Actor:     role,
		BuyerID:   next.Buyer.ID,
		SellerID:  next.Seller.ID,
		At:        next.UpdatedAt,
	}
}

func (e Event) actionLabel() string {
	if e.Action == "" {
		return actionCreate
	}
	return string(e.Action)
}
