// Package client talks to the order service over its REST interface.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/imrishuroy/campus-orderflow/internal/catalog"
	"github.com/imrishuroy/campus-orderflow/internal/config"
	"github.com/imrishuroy/campus-orderflow/internal/logging"
	"github.com/imrishuroy/campus-orderflow/internal/orders"
	"github.com/imrishuroy/campus-orderflow/internal/validation"
)

// IdempotencyHeader carries the key that makes POST /orders safe to repeat.
const IdempotencyHeader = "Idempotency-Key"

// TokenSource supplies the bearer credential sent with every request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client is the REST client of the order service. No request is retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *zap.Logger
}

func New(cfg config.ClientConfig, tokens TokenSource, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     tokens,
		logger:     logging.OrNop(logger),
	}
}

// CreateOrder sends POST /orders with the given idempotency key.
func (c *Client) CreateOrder(ctx context.Context, idempotencyKey string, req validation.CreateOrderRequest) (orders.Order, error) {
	var out orders.Order
	headers := map[string]string{IdempotencyHeader: idempotencyKey}
	if err := c.do(ctx, http.MethodPost, "/orders", headers, req, &out); err != nil {
		return orders.Order{}, err
	}
	return out, nil
}

// ListOrders returns the caller's orders as role, newest first. A nil status
// lists every status.
func (c *Client) ListOrders(ctx context.Context, role orders.Role, status *orders.Status) ([]orders.Order, error) {
	path, err := rolePath(role)
	if err != nil {
		return nil, err
	}
	if status != nil {
		path += "?" + url.Values{"status": {status.String()}}.Encode()
	}

	var out []orders.Order
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountOrders returns the per-status counts of the caller's orders as role.
func (c *Client) CountOrders(ctx context.Context, role orders.Role) (map[orders.Status]int, error) {
	path, err := rolePath(role)
	if err != nil {
		return nil, err
	}

	var out map[orders.Status]int
	if err := c.do(ctx, http.MethodGet, path+"/count", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Transition sends PUT /orders/{id}/{action}. reason is only sent for cancel.
func (c *Client) Transition(ctx context.Context, orderID string, action orders.Action, reason string) (orders.Order, error) {
	path := "/orders/" + url.PathEscape(orderID) + "/" + string(action)

	var body any
	if action == orders.ActionCancel {
		body = validation.CancelOrderRequest{Reason: reason}
	}

	var out orders.Order
	if err := c.do(ctx, http.MethodPut, path, nil, body, &out); err != nil {
		return orders.Order{}, err
	}
	return out, nil
}

// Product fetches a listing snapshot.
func (c *Client) Product(ctx context.Context, productID string) (catalog.Product, error) {
	var out catalog.Product
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(productID), nil, nil, &out); err != nil {
		return catalog.Product{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("get token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("order service call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, raw []byte) error {
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(raw, apiErr); err != nil || (apiErr.Code == "" && apiErr.Message == "") {
		apiErr.Code = ""
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
	}
	return apiErr
}

func rolePath(role orders.Role) (string, error) {
	switch role {
	case orders.RoleBuyer:
		return "/orders/bought", nil
	case orders.RoleSeller:
		return "/orders/sold", nil
	}
	return "", fmt.Errorf("unknown role %q", role)
}
