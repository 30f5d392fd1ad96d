package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/imrishuroy/campus-orderflow/internal/auth"
	"github.com/imrishuroy/campus-orderflow/internal/catalog"
	"github.com/imrishuroy/campus-orderflow/internal/events"
	"github.com/imrishuroy/campus-orderflow/internal/idempotency"
	"github.com/imrishuroy/campus-orderflow/internal/orders"
	"github.com/imrishuroy/campus-orderflow/internal/validation"
)

// IdempotencyHeader must be sent with POST /orders.
const IdempotencyHeader = "Idempotency-Key"

// RegisterOrdersRoutes registers routes for order API. r must run the auth
// middleware.
func RegisterOrdersRoutes(r gin.IRoutes, cfg HandlerConfig) {
	h := newOrdersHandler(cfg)
	v := validation.New()

	r.POST("/orders", func(c *gin.Context) { h.create(c, v) })
	r.GET("/orders/bought", func(c *gin.Context) { h.list(c, orders.RoleBuyer) })
	r.GET("/orders/sold", func(c *gin.Context) { h.list(c, orders.RoleSeller) })
	r.GET("/orders/bought/count", func(c *gin.Context) { h.count(c, orders.RoleBuyer) })
	r.GET("/orders/sold/count", func(c *gin.Context) { h.count(c, orders.RoleSeller) })
	r.PUT("/orders/:id/:action", func(c *gin.Context) { h.transition(c, v) })
}

func (h *ordersHandler) create(c *gin.Context, v *validatorv10.Validate) {
	ctx := c.Request.Context()
	buyer, _ := auth.ActorFrom(c)

	// Require idempotency key header
	key := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
	if key == "" {
		abortError(c, http.StatusBadRequest, "missing_idempotency_key", IdempotencyHeader+" header is required")
		return
	}
	// keys are per buyer, so two buyers can never replay each other's orders
	scopedKey := buyer.ID + "/" + key

	// Bind + validate request
	var req validation.CreateOrderRequest
	if err := validation.BindAndValidate(c, &req, v); err != nil {
		// BindAndValidate already wrote a 400
		return
	}
	req = req.Normalized()
	hash := requestHash(req)

	rec, err := h.idempotency.Get(ctx, scopedKey)
	if err != nil {
		abortStoreError(c, fmt.Errorf("idempotency lookup: %w", err))
		return
	}
	if rec != nil {
		h.replay(c, rec, hash)
		return
	}

	order, verr, err := h.buildOrder(c, buyer, req)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	if verr != nil {
		abortValidation(c, verr)
		return
	}

	// Attempt the transact write to create idempotency + order atomically
	record := h.idempotency.NewRecord(scopedKey, order.ID, buyer.ID, hash)
	err = h.orders.CreateWithIdempotency(ctx, h.idempotency.TableName(), record, order)
	if errors.Is(err, orders.ErrIdempotencyConflict) {
		// a concurrent request with the same key won the race
		rec, getErr := h.idempotency.Get(ctx, scopedKey)
		if getErr != nil || rec == nil {
			abortError(c, http.StatusConflict, "request_in_progress", "an identical request is being processed")
			return
		}
		h.replay(c, rec, hash)
		return
	}
	if err != nil {
		abortStoreError(c, fmt.Errorf("create order: %w", err))
		return
	}

	body, err := json.Marshal(order)
	if err != nil {
		abortStoreError(c, fmt.Errorf("marshal order: %w", err))
		return
	}
	if err := h.idempotency.MarkDone(ctx, scopedKey, string(body), http.StatusCreated); err != nil {
		// the order exists; a replay falls back to reading it
		h.logger.Warn("mark idempotency done", zap.String("order_id", order.ID), zap.Error(err))
	}

	h.events.Publish(ctx, events.Created(order))
	h.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("order_code", order.OrderCode),
		zap.String("buyer_id", buyer.ID),
		zap.String("seller_id", order.Seller.ID),
	)

	c.Header("Location", "/orders/"+order.ID)
	c.Data(http.StatusCreated, "application/json; charset=utf-8", body)
}

// replay answers a repeated create with the original response. A key sent
// again with a different request is rejected.
func (h *ordersHandler) replay(c *gin.Context, rec *idempotency.IdempotencyRecord, hash string) {
	if rec.RequestHash != "" && rec.RequestHash != hash {
		abortError(c, http.StatusUnprocessableEntity, "idempotency_key_reused", "this "+IdempotencyHeader+" was already used for a different request")
		return
	}
	if rec.Status == idempotency.StatusDone && rec.ResponseBody != "" {
		status := rec.ResponseStatus
		if status == 0 {
			status = http.StatusCreated
		}
		c.Data(status, "application/json; charset=utf-8", []byte(rec.ResponseBody))
		return
	}

	order, err := h.orders.Get(c.Request.Context(), rec.OrderID)
	if errors.Is(err, orders.ErrNotFound) {
		abortError(c, http.StatusConflict, "request_in_progress", "an identical request is being processed")
		return
	}
	if err != nil {
		abortStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// requestHash fingerprints a normalized create request. Product order does
// not matter.
func requestHash(req validation.CreateOrderRequest) string {
	ids := make([]string, 0, len(req.OrderItems))
	for _, ref := range req.OrderItems {
		ids = append(ids, ref.ProductID)
	}
	sort.Strings(ids)

	sum := sha256.New()
	for _, part := range []string{
		strings.Join(ids, ","),
		string(req.DeliveryMethod),
		req.DeliveryAddress,
		req.DeliveryPhone,
		req.DeliveryNotes,
	} {
		sum.Write([]byte(part))
		sum.Write([]byte{0})
	}
	return hex.EncodeToString(sum.Sum(nil))
}

// buildOrder resolves the products and applies the create rules. A rule
// violation comes back as the second result.
func (h *ordersHandler) buildOrder(c *gin.Context, buyer orders.Party, req validation.CreateOrderRequest) (orders.Order, *validation.Error, error) {
	ctx := c.Request.Context()

	var seller orders.Party
	items := make([]orders.OrderItem, 0, len(req.OrderItems))
	productTotal := decimal.Zero
	for i, ref := range req.OrderItems {
		field := fmt.Sprintf("orderItems[%d].productId", i)

		p, err := h.catalog.Get(ctx, ref.ProductID)
		if errors.Is(err, catalog.ErrNotFound) {
			return orders.Order{}, validation.NewError(field, "product does not exist"), nil
		}
		if err != nil {
			return orders.Order{}, nil, fmt.Errorf("load product %s: %w", ref.ProductID, err)
		}

		switch {
		case i == 0:
			seller = p.Seller
		case p.Seller.ID != seller.ID:
			return orders.Order{}, validation.NewError("orderItems", "all products must come from one seller"), nil
		}
		if !p.DeliveryMethod.Supports(req.DeliveryMethod) {
			return orders.Order{}, validation.NewError("deliveryMethod", fmt.Sprintf("product %s does not offer %s", p.ID, req.DeliveryMethod)), nil
		}

		items = append(items, p.Snapshot())
		productTotal = productTotal.Add(p.Price)
	}
	if seller.ID == buyer.ID {
		return orders.Order{}, validation.NewError("orderItems", "you cannot buy your own products"), nil
	}

	fee := decimal.Zero
	if req.DeliveryMethod == orders.DeliveryShipper {
		fee = h.shippingFee
	}

	now := h.now().UTC()
	id := uuid.NewString()
	return orders.Order{
		ID:              id,
		OrderCode:       orderCode(id, now),
		Status:          orders.StatusPending,
		Buyer:           buyer,
		Seller:          seller,
		DeliveryMethod:  req.DeliveryMethod,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryPhone:   req.DeliveryPhone,
		DeliveryNotes:   req.DeliveryNotes,
		ShippingFee:     fee,
		ProductTotal:    productTotal,
		TotalAmount:     productTotal.Add(fee),
		OrderItems:      items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil, nil
}

// orderCode is ORD-YYMMDD-XXXXXX, the suffix taken from the order id.
func orderCode(id string, at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return "ORD-" + at.Format("060102") + "-" + suffix
}

func (h *ordersHandler) list(c *gin.Context, role orders.Role) {
	actor, _ := auth.ActorFrom(c)

	var status *orders.Status
	if raw := c.Query("status"); raw != "" {
		st, err := orders.ParseStatus(raw)
		if err != nil {
			abortValidation(c, validation.NewError("status", err.Error()))
			return
		}
		status = &st
	}

	list, err := h.orders.ListByParty(c.Request.Context(), role, actor.ID, status)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *ordersHandler) count(c *gin.Context, role orders.Role) {
	actor, _ := auth.ActorFrom(c)

	counts, err := h.orders.CountByStatus(c.Request.Context(), role, actor.ID)
	if err != nil {
		abortStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *ordersHandler) transition(c *gin.Context, v *validatorv10.Validate) {
	ctx := c.Request.Context()
	actor, _ := auth.ActorFrom(c)

	action, err := orders.ParseAction(c.Param("action"))
	if err != nil {
		abortError(c, http.StatusNotFound, "unknown_action", err.Error())
		return
	}

	var reason string
	if action == orders.ActionCancel {
		var req validation.CancelOrderRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		reason = req.Reason
	}

	current, err := h.orders.Get(ctx, c.Param("id"))
	if err != nil {
		abortStoreError(c, err)
		return
	}
	role, ok := current.RoleOf(actor.ID)
	if !ok {
		abortError(c, http.StatusForbidden, "forbidden", "you are not a party of this order")
		return
	}

	next, err := orders.Apply(current, action, role, reason, h.now().UTC())
	if err != nil {
		abortStoreError(c, err)
		return
	}
	if err := h.orders.Transition(ctx, current.Status, next); err != nil {
		abortStoreError(c, err)
		return
	}

	h.events.Publish(ctx, events.Transitioned(current.Status, next, action, role))
	h.logger.Info("order transitioned",
		zap.String("order_id", next.ID),
		zap.String("action", string(action)),
		zap.String("role", string(role)),
		zap.String("from", string(current.Status)),
		zap.String("to", string(next.Status)),
	)
	c.JSON(http.StatusOK, next)
}
