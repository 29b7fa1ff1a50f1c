package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dinepos/kds/internal/kitchen"
)

const defaultRequestTimeout = 10 * time.Second

// StatusError reports a non-2xx response from the order service.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream responded %d", e.Code)
}

// Client talks to the remote order service's REST API. It implements
// kitchen.Gateway.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given base URL (no trailing slash).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultRequestTimeout},
	}
}

type listOrdersResponse struct {
	Orders []kitchen.Order `json:"orders"`
}

// ListOrders fetches the full current order list: GET /orders.
func (c *Client) ListOrders(ctx context.Context) ([]kitchen.Order, error) {
	var resp listOrdersResponse
	if err := c.do(ctx, http.MethodGet, "/orders", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// UpdateOrderStatus notifies the order service of a status transition:
// PUT /orders/{id}/status with {"orderStatus": status}.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	body := map[string]string{"orderStatus": status}
	return c.do(ctx, http.MethodPut, "/orders/"+orderID+"/status", body, nil)
}

// UpdateOrderItems pushes the full edited items array:
// PUT /orders/{id} with {"items": [...]}.
func (c *Client) UpdateOrderItems(ctx context.Context, orderID string, items []kitchen.Item) error {
	body := map[string]any{"items": items}
	return c.do(ctx, http.MethodPut, "/orders/"+orderID, body, nil)
}

// DeleteOrder removes an order: DELETE /orders/{id}. Deletion is
// idempotent — a 404 for an already-deleted order is success.
func (c *Client) DeleteOrder(ctx context.Context, orderID string) error {
	err := c.do(ctx, http.MethodDelete, "/orders/"+orderID, nil, nil)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return nil
	}
	return err
}

// SetTableOccupied flags a table as occupied:
// PATCH /tables/{tableId}/status with {"status": "Occupied"}.
func (c *Client) SetTableOccupied(ctx context.Context, tableID string) error {
	body := map[string]string{"status": "Occupied"}
	return c.do(ctx, http.MethodPatch, "/tables/"+tableID+"/status", body, nil)
}

// do issues one JSON request and decodes the response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Code: resp.StatusCode}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
