// Package cart holds the buyer's local cart and groups it by seller.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/campus-orderflow/internal/catalog"
	"github.com/imrishuroy/campus-orderflow/internal/orders"
)

// Item is one listing in the cart. Listings are single units, so there is no
// quantity.
type Item struct {
	ID             string                `json:"id"`
	Title          string                `json:"title"`
	Price          decimal.Decimal       `json:"price"`
	Seller         orders.Party          `json:"seller"`
	DeliveryMethod orders.DeliveryMethod `json:"deliveryMethod"`
	ImageURL       string                `json:"imageUrl,omitempty"`
}

// ItemFromProduct copies a catalog product into a cart item.
func ItemFromProduct(p catalog.Product) Item {
	return Item{
		ID:             p.ID,
		Title:          p.Title,
		Price:          p.Price,
		Seller:         p.Seller,
		DeliveryMethod: p.DeliveryMethod,
		ImageURL:       p.ImageURL,
	}
}
