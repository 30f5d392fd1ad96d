// Package catalog is the product listing store the order authority reads
// snapshots from.
package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/campus-orderflow/internal/orders"
)

// Product is a marketplace listing. Listings are single units.
type Product struct {
	ID             string                `json:"id"`
	Title          string                `json:"title"`
	Price          decimal.Decimal       `json:"price"`
	Seller         orders.Party          `json:"seller"`
	DeliveryMethod orders.DeliveryMethod `json:"deliveryMethod"`
	ImageURL       string                `json:"imageUrl,omitempty"`
}

// Snapshot copies the fields an order keeps forever.
func (p Product) Snapshot() orders.OrderItem {
	return orders.OrderItem{
		ProductID: p.ID,
		Title:     p.Title,
		ImageURL:  p.ImageURL,
		Price:     p.Price,
		SellerID:  p.Seller.ID,
	}
}

type productRecord struct {
	ProductID      string `dynamodbav:"product_id"` // PK
	Title          string `dynamodbav:"title"`
	Price          string `dynamodbav:"price"`
	SellerID       string `dynamodbav:"seller_id"`
	SellerName     string `dynamodbav:"seller_name,omitempty"`
	DeliveryMethod string `dynamodbav:"delivery_method"`
	ImageURL       string `dynamodbav:"image_url,omitempty"`
}
