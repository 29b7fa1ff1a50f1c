package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/dinepos/kds/internal/kitchen"
	"github.com/dinepos/kds/internal/upstream"
)

// mockController implements BoardController with overridable functions.
type mockController struct {
	boardFn        func() []kitchen.BoardOrder
	orderFn        func(orderID string) (kitchen.Order, bool)
	acceptFn       func(ctx context.Context, orderID string) error
	rejectFn       func(ctx context.Context, orderID string) error
	startCookingFn func(ctx context.Context, orderID string, minutes int) error
	markReadyFn    func(ctx context.Context, orderID string) error
	editItemsFn    func(ctx context.Context, orderID string, items []kitchen.Item) error
}

func (m *mockController) Board() []kitchen.BoardOrder {
	if m.boardFn != nil {
		return m.boardFn()
	}
	return nil
}

func (m *mockController) Order(orderID string) (kitchen.Order, bool) {
	if m.orderFn != nil {
		return m.orderFn(orderID)
	}
	return kitchen.Order{}, false
}

func (m *mockController) Accept(ctx context.Context, orderID string) error {
	if m.acceptFn != nil {
		return m.acceptFn(ctx, orderID)
	}
	return nil
}

func (m *mockController) Reject(ctx context.Context, orderID string) error {
	if m.rejectFn != nil {
		return m.rejectFn(ctx, orderID)
	}
	return nil
}

func (m *mockController) StartCooking(ctx context.Context, orderID string, minutes int) error {
	if m.startCookingFn != nil {
		return m.startCookingFn(ctx, orderID, minutes)
	}
	return nil
}

func (m *mockController) MarkReady(ctx context.Context, orderID string) error {
	if m.markReadyFn != nil {
		return m.markReadyFn(ctx, orderID)
	}
	return nil
}

func (m *mockController) EditItems(ctx context.Context, orderID string, items []kitchen.Item) error {
	if m.editItemsFn != nil {
		return m.editItemsFn(ctx, orderID, items)
	}
	return nil
}

func newKitchenRouter(ctrl BoardController) chi.Router {
	r := chi.NewRouter()
	h := NewKitchenHandler(ctrl, 15)
	r.Route("/kitchen", h.RegisterRoutes)
	return r
}

func doRequest(t *testing.T, r chi.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestListReturnsBoard(t *testing.T) {
	ctrl := &mockController{
		boardFn: func() []kitchen.BoardOrder {
			return []kitchen.BoardOrder{
				{Order: kitchen.Order{ID: "o1", Status: "cooking"}, CookingRemaining: 12},
			}
		},
	}
	rec := doRequest(t, newKitchenRouter(ctrl), http.MethodGet, "/kitchen/orders", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	var resp struct {
		Orders []kitchen.BoardOrder `json:"orders"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Orders) != 1 || resp.Orders[0].CookingRemaining != 12 {
		t.Errorf("board: %+v", resp.Orders)
	}
}

func TestAcceptReturnsRefreshedBoard(t *testing.T) {
	var acceptedID string
	ctrl := &mockController{
		acceptFn: func(ctx context.Context, orderID string) error {
			acceptedID = orderID
			return nil
		},
		boardFn: func() []kitchen.BoardOrder {
			return []kitchen.BoardOrder{{Order: kitchen.Order{ID: "o1", Status: "accepted"}}}
		},
	}
	rec := doRequest(t, newKitchenRouter(ctrl), http.MethodPost, "/kitchen/orders/o1/accept", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if acceptedID != "o1" {
		t.Errorf("accepted order: got %q, want o1", acceptedID)
	}
	if !strings.Contains(rec.Body.String(), `"orders"`) {
		t.Errorf("expected refreshed board in response, got %s", rec.Body.String())
	}
}

func TestStartCookingUsesDefaultMinutes(t *testing.T) {
	var gotMinutes int
	ctrl := &mockController{
		startCookingFn: func(ctx context.Context, orderID string, minutes int) error {
			gotMinutes = minutes
			return nil
		},
	}
	r := newKitchenRouter(ctrl)

	rec := doRequest(t, r, http.MethodPost, "/kitchen/orders/o1/cooking", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if gotMinutes != 15 {
		t.Errorf("minutes: got %d, want default 15", gotMinutes)
	}

	rec = doRequest(t, r, http.MethodPost, "/kitchen/orders/o1/cooking", `{"minutes":25}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if gotMinutes != 25 {
		t.Errorf("minutes: got %d, want 25", gotMinutes)
	}
}

func TestStartCookingRejectsNegativeMinutes(t *testing.T) {
	ctrl := &mockController{}
	rec := doRequest(t, newKitchenRouter(ctrl), http.MethodPost, "/kitchen/orders/o1/cooking", `{"minutes":-5}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestEditItemsForwardsBody(t *testing.T) {
	var gotItems []kitchen.Item
	ctrl := &mockController{
		editItemsFn: func(ctx context.Context, orderID string, items []kitchen.Item) error {
			gotItems = items
			return nil
		},
	}
	body := `{"items":[{"name":"Garlic Naan","quantity":2,"price":60}]}`
	rec := doRequest(t, newKitchenRouter(ctrl), http.MethodPut, "/kitchen/orders/o1/items", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if len(gotItems) != 1 || gotItems[0].Name != "Garlic Naan" || gotItems[0].Quantity != 2 {
		t.Errorf("items: %+v", gotItems)
	}
}

func TestActionErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"unknown order", kitchen.ErrUnknownOrder, http.StatusNotFound},
		{"illegal transition", kitchen.ErrIllegalTransition, http.StatusConflict},
		{"action in flight", kitchen.ErrActionInFlight, http.StatusConflict},
		{"invalid duration", kitchen.ErrInvalidDuration, http.StatusBadRequest},
		{"board closed", kitchen.ErrClosed, http.StatusServiceUnavailable},
		{"upstream rejected", &upstream.StatusError{Code: 500}, http.StatusBadGateway},
		{"upstream unreachable", context.DeadlineExceeded, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &mockController{
				acceptFn: func(ctx context.Context, orderID string) error { return tt.err },
			}
			rec := doRequest(t, newKitchenRouter(ctrl), http.MethodPost, "/kitchen/orders/o1/accept", "")
			if rec.Code != tt.wantCode {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestEditItemsNoItemsIsBadRequest(t *testing.T) {
	ctrl := &mockController{
		editItemsFn: func(ctx context.Context, orderID string, items []kitchen.Item) error {
			return kitchen.ErrNoItems
		},
	}
	rec := doRequest(t, newKitchenRouter(ctrl), http.MethodPut, "/kitchen/orders/o1/items", `{"items":[]}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestBill(t *testing.T) {
	ctrl := &mockController{
		orderFn: func(orderID string) (kitchen.Order, bool) {
			if orderID != "o1" {
				return kitchen.Order{}, false
			}
			return kitchen.Order{
				ID:          "o1",
				OrderNumber: "ORD-7",
				Table:       "T4",
				Items: []kitchen.Item{
					{Name: "Paneer Tikka", Quantity: 2, UnitPrice: decimal.NewFromInt(180)},
				},
			}, true
		},
	}
	r := newKitchenRouter(ctrl)

	rec := doRequest(t, r, http.MethodGet, "/kitchen/orders/o1/bill", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	var resp struct {
		OrderNumber string `json:"order_number"`
		Subtotal    string `json:"subtotal"`
		SGST        string `json:"sgst"`
		CGST        string `json:"cgst"`
		GrandTotal  string `json:"grand_total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.OrderNumber != "ORD-7" {
		t.Errorf("order number: got %s", resp.OrderNumber)
	}
	if resp.Subtotal != "360.00" || resp.SGST != "9.00" || resp.GrandTotal != "378.00" {
		t.Errorf("bill totals: %+v", resp)
	}

	rec = doRequest(t, r, http.MethodGet, "/kitchen/orders/missing/bill", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing order bill: got %d, want 404", rec.Code)
	}
}
