package validation

import (
	"strings"

	"github.com/imrishuroy/campus-orderflow/internal/orders"
)

// MinAddressLength is the shortest accepted delivery address, after trimming.
const MinAddressLength = 10

// OrderItemRef names one product to order.
type OrderItemRef struct {
	ProductID string `json:"productId" validate:"required"`
}

// CreateOrderRequest is the payload for POST /orders. The client validates it
// before sending and the server validates it again on receipt.
type CreateOrderRequest struct {
	OrderItems      []OrderItemRef        `json:"orderItems" validate:"required,min=1,dive"`
	DeliveryMethod  orders.DeliveryMethod `json:"deliveryMethod" validate:"required,oneof=SHIPPER HAND_DELIVERY"`
	DeliveryAddress string                `json:"deliveryAddress" validate:"required,address"`
	DeliveryPhone   string                `json:"deliveryPhone" validate:"required,phone"`
	DeliveryNotes   string                `json:"deliveryNotes,omitempty" validate:"max=500"`
}

// ProductIDs returns the referenced product ids in request order.
func (r CreateOrderRequest) ProductIDs() []string {
	ids := make([]string, 0, len(r.OrderItems))
	for _, it := range r.OrderItems {
		ids = append(ids, it.ProductID)
	}
	return ids
}

// Normalized trims free text and strips phone separators.
func (r CreateOrderRequest) Normalized() CreateOrderRequest {
	r.DeliveryAddress = strings.TrimSpace(r.DeliveryAddress)
	r.DeliveryPhone = NormalizePhone(r.DeliveryPhone)
	r.DeliveryNotes = strings.TrimSpace(r.DeliveryNotes)
	return r
}

// CancelOrderRequest is the payload for PUT /orders/{id}/cancel.
type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"notblank,max=500"`
}
