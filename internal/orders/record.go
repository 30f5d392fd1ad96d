package orders

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// orderRecord is the item shape in the orders table. Amounts are stored as
// decimal strings so no precision is lost in the round trip.
type orderRecord struct {
	OrderID         string       `dynamodbav:"order_id"` // PK
	OrderCode       string       `dynamodbav:"order_code"`
	Status          string       `dynamodbav:"status"`
	BuyerID         string       `dynamodbav:"buyer_id"` // buyer_id-index
	BuyerName       string       `dynamodbav:"buyer_name,omitempty"`
	SellerID        string       `dynamodbav:"seller_id"` // seller_id-index
	SellerName      string       `dynamodbav:"seller_name,omitempty"`
	DeliveryMethod  string       `dynamodbav:"delivery_method"`
	DeliveryAddress string       `dynamodbav:"delivery_address"`
	DeliveryPhone   string       `dynamodbav:"delivery_phone"`
	DeliveryNotes   string       `dynamodbav:"delivery_notes,omitempty"`
	ShippingFee     string       `dynamodbav:"shipping_fee"`
	ProductTotal    string       `dynamodbav:"product_total"`
	TotalAmount     string       `dynamodbav:"total_amount"`
	Items           []itemRecord `dynamodbav:"items"`

	CreatedAt   time.Time  `dynamodbav:"created_at"`
	UpdatedAt   time.Time  `dynamodbav:"updated_at"`
	ConfirmedAt *time.Time `dynamodbav:"confirmed_at,omitempty"`
	ShippedAt   *time.Time `dynamodbav:"shipped_at,omitempty"`
	DeliveredAt *time.Time `dynamodbav:"delivered_at,omitempty"`
	CompletedAt *time.Time `dynamodbav:"completed_at,omitempty"`
	CancelledAt *time.Time `dynamodbav:"cancelled_at,omitempty"`

	CancellationReason string `dynamodbav:"cancellation_reason,omitempty"`
	CancelledBy        string `dynamodbav:"cancelled_by,omitempty"`
}

type itemRecord struct {
	ProductID string `dynamodbav:"product_id"`
	Title     string `dynamodbav:"title"`
	ImageURL  string `dynamodbav:"image_url,omitempty"`
	Price     string `dynamodbav:"price"`
	SellerID  string `dynamodbav:"seller_id"`
}

func toRecord(o Order) orderRecord {
	items := make([]itemRecord, 0, len(o.OrderItems))
	for _, it := range o.OrderItems {
		items = append(items, itemRecord{
			ProductID: it.ProductID,
			Title:     it.Title,
			ImageURL:  it.ImageURL,
			Price:     it.Price.String(),
			SellerID:  it.SellerID,
		})
	}

	return orderRecord{
		OrderID:            o.ID,
		OrderCode:          o.OrderCode,
		Status:             string(o.Status),
		BuyerID:            o.Buyer.ID,
		BuyerName:          o.Buyer.Name,
		SellerID:           o.Seller.ID,
		SellerName:         o.Seller.Name,
		DeliveryMethod:     string(o.DeliveryMethod),
		DeliveryAddress:    o.DeliveryAddress,
		DeliveryPhone:      o.DeliveryPhone,
		DeliveryNotes:      o.DeliveryNotes,
		ShippingFee:        o.ShippingFee.String(),
		ProductTotal:       o.ProductTotal.String(),
		TotalAmount:        o.TotalAmount.String(),
		Items:              items,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
		ConfirmedAt:        o.ConfirmedAt,
		ShippedAt:          o.ShippedAt,
		DeliveredAt:        o.DeliveredAt,
		CompletedAt:        o.CompletedAt,
		CancelledAt:        o.CancelledAt,
		CancellationReason: o.CancellationReason,
		CancelledBy:        string(o.CancelledBy),
	}
}

func fromRecord(r orderRecord) (Order, error) {
	amounts := make([]decimal.Decimal, 3)
	for i, raw := range []string{r.ShippingFee, r.ProductTotal, r.TotalAmount} {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return Order{}, fmt.Errorf("order %s: amount %q is not valid: %w", r.OrderID, raw, err)
		}
		amounts[i] = d
	}

	items := make([]OrderItem, 0, len(r.Items))
	for _, it := range r.Items {
		price, err := decimal.NewFromString(it.Price)
		if err != nil {
			return Order{}, fmt.Errorf("order %s: item %s price %q is not valid: %w", r.OrderID, it.ProductID, it.Price, err)
		}
		items = append(items, OrderItem{
			ProductID: it.ProductID,
			Title:     it.Title,
			ImageURL:  it.ImageURL,
			Price:     price,
			SellerID:  it.SellerID,
		})
	}

	return Order{
		ID:                 r.OrderID,
		OrderCode:          r.OrderCode,
		Status:             Status(r.Status),
		Buyer:              Party{ID: r.BuyerID, Name: r.BuyerName},
		Seller:             Party{ID: r.SellerID, Name: r.SellerName},
		DeliveryMethod:     DeliveryMethod(r.DeliveryMethod),
		DeliveryAddress:    r.DeliveryAddress,
		DeliveryPhone:      r.DeliveryPhone,
		DeliveryNotes:      r.DeliveryNotes,
		ShippingFee:        amounts[0],
		ProductTotal:       amounts[1],
		TotalAmount:        amounts[2],
		OrderItems:         items,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		ConfirmedAt:        r.ConfirmedAt,
		ShippedAt:          r.ShippedAt,
		DeliveredAt:        r.DeliveredAt,
		CompletedAt:        r.CompletedAt,
		CancelledAt:        r.CancelledAt,
		CancellationReason: r.CancellationReason,
		CancelledBy:        Role(r.CancelledBy),
	}, nil
}
