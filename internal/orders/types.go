package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle status of an order.
type Status string

// Order statuses
const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusShipping  Status = "SHIPPING"
	StatusDelivered Status = "DELIVERED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusShipping,
	StatusDelivered,
	StatusCompleted,
	StatusCancelled,
}

// IsTerminal reports whether no further action is accepted in s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus accepts a status name in any letter case.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(v)))
	for _, known := range AllStatuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", v)
}

// Role is the side an actor plays on an order.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// Valid reports whether r is buyer or seller.
func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleSeller
}

// Action is a transition trigger.
type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionShip     Action = "ship"
	ActionDeliver  Action = "deliver"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

// AllActions lists every action.
var AllActions = []Action{ActionConfirm, ActionShip, ActionDeliver, ActionComplete, ActionCancel}

// ParseAction accepts an action name in any letter case.
func ParseAction(v string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(v)))
	for _, known := range AllActions {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown order action %q", v)
}

// DeliveryMethod is how the goods change hands. BOTH is only a product
// capability; an order always carries SHIPPER or HAND_DELIVERY.
type DeliveryMethod string

const (
	DeliveryShipper      DeliveryMethod = "SHIPPER"
	DeliveryHandDelivery DeliveryMethod = "HAND_DELIVERY"
	DeliveryBoth         DeliveryMethod = "BOTH"
)

// Supports reports whether a product declaring m can be delivered with method.
func (m DeliveryMethod) Supports(method DeliveryMethod) bool {
	if m == DeliveryBoth {
		return method == DeliveryShipper || method == DeliveryHandDelivery
	}
	return m == method
}

// Party is a buyer or seller reference with display info.
type Party struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// OrderItem is a snapshot of a product taken when the order was created.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	Price     decimal.Decimal `json:"price"`
	SellerID  string          `json:"sellerId"`
}

// Order is the durable record created by checkout.
type Order struct {
	ID              string         `json:"id"`
	OrderCode       string         `json:"orderCode"`
	Status          Status         `json:"status"`
	Buyer           Party          `json:"buyer"`
	Seller          Party          `json:"seller"`
	DeliveryMethod  DeliveryMethod `json:"deliveryMethod"`
	DeliveryAddress string         `json:"deliveryAddress"`
	DeliveryPhone   string         `json:"deliveryPhone"`
	DeliveryNotes   string         `json:"deliveryNotes,omitempty"`

	ShippingFee  decimal.Decimal `json:"shippingFee"`
	ProductTotal decimal.Decimal `json:"productTotal"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`

	OrderItems []OrderItem `json:"orderItems"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	ShippedAt   *time.Time `json:"shippedAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`

	CancellationReason string `json:"cancellationReason,omitempty"`
	CancelledBy        Role   `json:"cancelledBy,omitempty"`
}

// RoleOf returns the role userID plays on the order.
func (o Order) RoleOf(userID string) (Role, bool) {
	switch {
	case userID == "":
		return "", false
	case o.Seller.ID == userID:
		return RoleSeller, true
	case o.Buyer.ID == userID:
		return RoleBuyer, true
	}
	return "", false
}

// CheckInvariants verifies the amount and single-seller invariants.
func (o Order) CheckInvariants() error {
	if !o.TotalAmount.Equal(o.ProductTotal.Add(o.ShippingFee)) {
		return fmt.Errorf("order %s: total %s != product total %s + shipping %s",
			o.ID, o.TotalAmount, o.ProductTotal, o.ShippingFee)
	}
	sum := decimal.Zero
	for _, it := range o.OrderItems {
		if it.SellerID != o.Seller.ID {
			return fmt.Errorf("order %s: item %s belongs to seller %s, order seller is %s",
				o.ID, it.ProductID, it.SellerID, o.Seller.ID)
		}
		sum = sum.Add(it.Price)
	}
	if !sum.Equal(o.ProductTotal) {
		return fmt.Errorf("order %s: items sum %s != product total %s", o.ID, sum, o.ProductTotal)
	}
	return nil
}
