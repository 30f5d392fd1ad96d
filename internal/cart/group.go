package cart

import (
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/campus-orderflow/internal/orders"
)

// SellerGroup is the slice of a cart that one seller fulfils. Checkout turns
// exactly one group into one order.
type SellerGroup struct {
	SellerID string          `json:"sellerId"`
	Seller   orders.Party    `json:"seller"`
	Items    []Item          `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// IDs returns the item ids of the group in cart order.
func (g SellerGroup) IDs() []string {
	ids := make([]string, 0, len(g.Items))
	for _, it := range g.Items {
		ids = append(ids, it.ID)
	}
	return ids
}

// Group partitions items by seller id. Groups appear in order of each
// seller's first item; items keep cart order inside a group.
func Group(items []Item) []SellerGroup {
	index := make(map[string]int)
	var groups []SellerGroup
	for _, it := range items {
		i, ok := index[it.Seller.ID]
		if !ok {
			i = len(groups)
			index[it.Seller.ID] = i
			groups = append(groups, SellerGroup{
				SellerID: it.Seller.ID,
				Seller:   it.Seller,
				Subtotal: decimal.Zero,
			})
		}
		groups[i].Items = append(groups[i].Items, it)
		groups[i].Subtotal = groups[i].Subtotal.Add(it.Price)
	}
	return groups
}

// GroupFor returns the group for sellerID.
func GroupFor(items []Item, sellerID string) (SellerGroup, bool) {
	for _, g := range Group(items) {
		if g.SellerID == sellerID {
			return g, true
		}
	}
	return SellerGroup{}, false
}
