package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/imrishuroy/campus-orderflow/internal/catalog"
)

var (
	// ErrAlreadyInCart is returned when adding an id the cart already holds.
	ErrAlreadyInCart = errors.New("item already in cart")
	// ErrInvalidItem is returned for items without an id or seller, or with a
	// negative price.
	ErrInvalidItem = errors.New("invalid cart item")
)

// Catalog resolves a product id into a listing.
type Catalog interface {
	Product(ctx context.Context, productID string) (catalog.Product, error)
}

// Store is the buyer's cart. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	items []Item
}

// NewStore returns a cart holding items, rejecting invalid or repeated ones.
func NewStore(items ...Item) (*Store, error) {
	s := &Store{}
	for _, it := range items {
		if err := s.Add(it); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends item to the cart.
func (s *Store) Add(item Item) error {
	switch {
	case item.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidItem)
	case item.Seller.ID == "":
		return fmt.Errorf("%w: item %s has no seller", ErrInvalidItem, item.ID)
	case item.Price.IsNegative():
		return fmt.Errorf("%w: item %s has negative price %s", ErrInvalidItem, item.ID, item.Price)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(item.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrAlreadyInCart, item.ID)
	}
	s.items = append(s.items, item)
	return nil
}

// AddFromCatalog looks productID up and adds the listing.
func (s *Store) AddFromCatalog(ctx context.Context, c Catalog, productID string) (Item, error) {
	p, err := c.Product(ctx, productID)
	if err != nil {
		return Item{}, fmt.Errorf("lookup product %s: %w", productID, err)
	}
	item := ItemFromProduct(p)
	if err := s.Add(item); err != nil {
		return Item{}, err
	}
	return item, nil
}

// Remove deletes id and reports whether it was present.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return true
}

// RemoveAll deletes every id in ids and returns how many were present.
// Other items keep their order.
func (s *Store) RemoveAll(ids []string) int {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	removed := 0
	for _, it := range s.items {
		if _, ok := drop[it.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	// release references held past the new length
	for i := len(kept); i < len(s.items); i++ {
		s.items[i] = Item{}
	}
	s.items = kept
	return removed
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// Items returns a copy of the cart in insertion order.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Item(nil), s.items...)
}

// Len returns the number of items in the cart.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Groups partitions the current cart by seller.
func (s *Store) Groups() []SellerGroup {
	return Group(s.Items())
}

func (s *Store) indexOf(id string) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
