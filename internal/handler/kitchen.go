package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dinepos/kds/internal/billing"
	"github.com/dinepos/kds/internal/kitchen"
	"github.com/dinepos/kds/internal/upstream"
)

// BoardController defines the lifecycle operations needed by board
// handlers. Satisfied by *kitchen.Controller; narrow interface for
// testability.
type BoardController interface {
	Board() []kitchen.BoardOrder
	Order(orderID string) (kitchen.Order, bool)
	Accept(ctx context.Context, orderID string) error
	Reject(ctx context.Context, orderID string) error
	StartCooking(ctx context.Context, orderID string, minutes int) error
	MarkReady(ctx context.Context, orderID string) error
	EditItems(ctx context.Context, orderID string, items []kitchen.Item) error
}

// KitchenHandler exposes the kitchen board and its lifecycle actions.
type KitchenHandler struct {
	ctrl                  BoardController
	cookingDefaultMinutes int
}

// NewKitchenHandler creates a new KitchenHandler.
func NewKitchenHandler(ctrl BoardController, cookingDefaultMinutes int) *KitchenHandler {
	if cookingDefaultMinutes <= 0 {
		cookingDefaultMinutes = 15
	}
	return &KitchenHandler{ctrl: ctrl, cookingDefaultMinutes: cookingDefaultMinutes}
}

// RegisterRoutes registers board endpoints on the given Chi router.
// Expected to be mounted under /kitchen.
func (h *KitchenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.List)
	r.Post("/orders/{id}/accept", h.Accept)
	r.Post("/orders/{id}/reject", h.Reject)
	r.Post("/orders/{id}/cooking", h.StartCooking)
	r.Post("/orders/{id}/ready", h.MarkReady)
	r.Put("/orders/{id}/items", h.EditItems)
	r.Get("/orders/{id}/bill", h.Bill)
}

// --- Request / Response types ---

type boardResponse struct {
	Orders []kitchen.BoardOrder `json:"orders"`
}

type startCookingRequest struct {
	Minutes int `json:"minutes"`
}

type editItemsRequest struct {
	Items []kitchen.Item `json:"items"`
}

type billLineResponse struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Total     string `json:"total"`
}

type billResponse struct {
	OrderID     string             `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	Table       string             `json:"table"`
	Lines       []billLineResponse `json:"lines"`
	Subtotal    string             `json:"subtotal"`
	SGST        string             `json:"sgst"`
	CGST        string             `json:"cgst"`
	GrandTotal  string             `json:"grand_total"`
}

// --- Handlers ---

// List handles GET /kitchen/orders.
func (h *KitchenHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, boardResponse{Orders: h.ctrl.Board()})
}

// Accept handles POST /kitchen/orders/{id}/accept.
func (h *KitchenHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.ctrl.Accept)
}

// Reject handles POST /kitchen/orders/{id}/reject.
func (h *KitchenHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.ctrl.Reject)
}

// StartCooking handles POST /kitchen/orders/{id}/cooking.
// An empty body or zero minutes uses the configured default.
func (h *KitchenHandler) StartCooking(w http.ResponseWriter, r *http.Request) {
	var req startCookingRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.Minutes < 0 {
		writeError(w, http.StatusBadRequest, "minutes must be positive")
		return
	}
	if req.Minutes == 0 {
		req.Minutes = h.cookingDefaultMinutes
	}

	h.action(w, r, func(ctx context.Context, id string) error {
		return h.ctrl.StartCooking(ctx, id, req.Minutes)
	})
}

// MarkReady handles POST /kitchen/orders/{id}/ready.
func (h *KitchenHandler) MarkReady(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.ctrl.MarkReady)
}

// EditItems handles PUT /kitchen/orders/{id}/items.
func (h *KitchenHandler) EditItems(w http.ResponseWriter, r *http.Request) {
	var req editItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.action(w, r, func(ctx context.Context, id string) error {
		return h.ctrl.EditItems(ctx, id, req.Items)
	})
}

// Bill handles GET /kitchen/orders/{id}/bill.
func (h *KitchenHandler) Bill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	order, ok := h.ctrl.Order(id)
	if !ok {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	bill := billing.Compute(order.Items)
	resp := billResponse{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Table:       order.Table,
		Lines:       make([]billLineResponse, 0, len(bill.Lines)),
		Subtotal:    bill.Subtotal.StringFixed(2),
		SGST:        bill.SGST.StringFixed(2),
		CGST:        bill.CGST.StringFixed(2),
		GrandTotal:  bill.GrandTotal.StringFixed(2),
	}
	for _, line := range bill.Lines {
		resp.Lines = append(resp.Lines, billLineResponse{
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
			Total:     line.Total.StringFixed(2),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// action runs one lifecycle action and maps controller errors to HTTP
// statuses. On success the full refreshed board is returned so the UI can
// re-render in one round trip.
func (h *KitchenHandler) action(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, orderID string) error) {
	id := chi.URLParam(r, "id")

	if err := fn(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, kitchen.ErrUnknownOrder):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, kitchen.ErrIllegalTransition):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, kitchen.ErrActionInFlight):
			writeError(w, http.StatusConflict, "another action is in progress for this order")
		case errors.Is(err, kitchen.ErrNoItems):
			writeError(w, http.StatusBadRequest, "order must keep at least one item")
		case errors.Is(err, kitchen.ErrInvalidDuration):
			writeError(w, http.StatusBadRequest, "minutes must be positive")
		case errors.Is(err, kitchen.ErrClosed):
			writeError(w, http.StatusServiceUnavailable, "board is shutting down")
		case isUpstreamError(err):
			writeError(w, http.StatusBadGateway, "order service rejected the update")
		default:
			writeError(w, http.StatusBadGateway, "order service unreachable")
		}
		return
	}

	writeJSON(w, http.StatusOK, boardResponse{Orders: h.ctrl.Board()})
}

func isUpstreamError(err error) bool {
	var se *upstream.StatusError
	return errors.As(err, &se)
}
