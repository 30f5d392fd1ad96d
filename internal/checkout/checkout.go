// Package checkout turns one seller group of the cart into an order.
package checkout

import (
	"context"
	"sort"
	"strings"
	"sync"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/campus-orderflow/internal/cart"
	"github.com/imrishuroy/campus-orderflow/internal/logging"
	"github.com/imrishuroy/campus-orderflow/internal/orders"
	"github.com/imrishuroy/campus-orderflow/internal/validation"
)

// OrderCreator is the remote side of checkout.
type OrderCreator interface {
	CreateOrder(ctx context.Context, idempotencyKey string, req validation.CreateOrderRequest) (orders.Order, error)
}

// Details is what the buyer fills in on the checkout form.
type Details struct {
	Method  orders.DeliveryMethod
	Address string
	Phone   string
	Notes   string
}

// Coordinator validates a checkout, submits it, and only then removes the
// ordered items from the cart.
type Coordinator struct {
	cart      *cart.Store
	creator   OrderCreator
	validator *validatorv10.Validate
	logger    *zap.Logger

	mu      sync.Mutex
	pending map[string]string // attempt fingerprint -> idempotency key
}

// NewCoordinator returns a Coordinator that removes ordered items from store.
func NewCoordinator(store *cart.Store, creator OrderCreator, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		cart:      store,
		creator:   creator,
		validator: validation.New(),
		logger:    logging.OrNop(logger),
		pending:   map[string]string{},
	}
}

// AvailableDeliveryMethods is the union of the methods the group's items
// offer, SHIPPER first. A BOTH item opens both methods.
func AvailableDeliveryMethods(group cart.SellerGroup) []orders.DeliveryMethod {
	var shipper, hand bool
	for _, it := range group.Items {
		switch it.DeliveryMethod {
		case orders.DeliveryBoth:
			shipper, hand = true, true
		case orders.DeliveryShipper:
			shipper = true
		case orders.DeliveryHandDelivery:
			hand = true
		}
	}

	var out []orders.DeliveryMethod
	if shipper {
		out = append(out, orders.DeliveryShipper)
	}
	if hand {
		out = append(out, orders.DeliveryHandDelivery)
	}
	return out
}

// LockedDeliveryMethod returns the only offered method, if there is exactly one.
func LockedDeliveryMethod(group cart.SellerGroup) (orders.DeliveryMethod, bool) {
	methods := AvailableDeliveryMethods(group)
	if len(methods) != 1 {
		return "", false
	}
	return methods[0], true
}

// attemptKey returns the idempotency key of the checkout attempt req belongs
// to. An identical request reuses the key until an order has been created for
// it; after that the same request starts a new attempt.
func (c *Coordinator) attemptKey(req validation.CreateOrderRequest) (fingerprint, key string) {
	fingerprint = attemptFingerprint(req)

	c.mu.Lock()
	defer c.mu.Unlock()
	key, ok := c.pending[fingerprint]
	if !ok {
		key = uuid.NewString()
		c.pending[fingerprint] = key
	}
	return fingerprint, key
}

func (c *Coordinator) finish(fingerprint string) {
	c.mu.Lock()
	delete(c.pending, fingerprint)
	c.mu.Unlock()
}

func attemptFingerprint(req validation.CreateOrderRequest) string {
	ids := make([]string, 0, len(req.OrderItems))
	for _, ref := range req.OrderItems {
		ids = append(ids, ref.ProductID)
	}
	sort.Strings(ids)
	return strings.Join([]string{
		strings.Join(ids, ","),
		string(req.DeliveryMethod),
		req.DeliveryAddress,
		req.DeliveryPhone,
		req.DeliveryNotes,
	}, "\x00")
}

// Submit creates the order for group. On any error the cart is left as it was
// and a retry of the same request is sent with the same idempotency key.
func (c *Coordinator) Submit(ctx context.Context, group cart.SellerGroup, d Details) (orders.Order, error) {
	req, err := c.Prepare(group, d)
	if err != nil {
		return orders.Order{}, err
	}

	fingerprint, key := c.attemptKey(req)
	order, err := c.creator.CreateOrder(ctx, key, req)
	if err != nil {
		c.logger.Warn("checkout failed",
			zap.String("seller_id", group.SellerID),
			zap.String("idempotency_key", key),
			zap.Error(err),
		)
		return orders.Order{}, err
	}

	c.finish(fingerprint)
	removed := c.cart.RemoveAll(group.IDs())
	c.logger.Info("checkout succeeded",
		zap.String("order_id", order.ID),
		zap.String("order_code", order.OrderCode),
		zap.Int("removed_items", removed),
	)
	return order, nil
}

// Prepare runs every local check and returns the request Submit would send.
func (c *Coordinator) Prepare(group cart.SellerGroup, d Details) (validation.CreateOrderRequest, error) {
	if len(group.Items) == 0 {
		return validation.CreateOrderRequest{}, validation.NewError("orderItems", "must not be empty")
	}
	for _, it := range group.Items {
		if it.Seller.ID != group.SellerID {
			return validation.CreateOrderRequest{}, validation.NewError("orderItems", "must all belong to seller "+group.SellerID)
		}
	}

	offered := false
	for _, m := range AvailableDeliveryMethods(group) {
		if m == d.Method {
			offered = true
			break
		}
	}
	if !offered {
		return validation.CreateOrderRequest{}, validation.NewError("deliveryMethod", "is not offered for these items")
	}

	req := validation.CreateOrderRequest{
		DeliveryMethod:  d.Method,
		DeliveryAddress: d.Address,
		DeliveryPhone:   d.Phone,
		DeliveryNotes:   d.Notes,
	}
	for _, id := range group.IDs() {
		req.OrderItems = append(req.OrderItems, validation.OrderItemRef{ProductID: id})
	}
	if err := validation.Check(c.validator, req); err != nil {
		return validation.CreateOrderRequest{}, err
	}
	return req.Normalized(), nil
}
