package kitchen

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dinepos/kds/internal/enum"
)

// Errors returned by the lifecycle controller.
var (
	ErrUnknownOrder      = errors.New("unknown order")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrActionInFlight    = errors.New("another action is in flight for this order")
	ErrNoItems           = errors.New("order must keep at least one item")
	ErrInvalidDuration   = errors.New("cooking duration must be positive")
	ErrClosed            = errors.New("controller is closed")
)

const gatewayTimeout = 10 * time.Second

// Gateway is the upstream order service as consumed by the controller.
// Satisfied by *upstream.Client; narrow interface for testability.
type Gateway interface {
	ListOrders(ctx context.Context) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) error
	UpdateOrderItems(ctx context.Context, orderID string, items []Item) error
	DeleteOrder(ctx context.Context, orderID string) error
	SetTableOccupied(ctx context.Context, tableID string) error
}

// Notifier receives board change events for fan-out to UI clients.
// A nil Notifier is allowed.
type Notifier interface {
	Notify(event string, payload any)
}

// Config tunes the controller's countdowns.
type Config struct {
	// TickInterval is the shared sweep period. Defaults to 1s.
	TickInterval time.Duration
	// RejectionGrace is how long a rejected order stays on the board before
	// it is deleted upstream. Defaults to 90s.
	RejectionGrace time.Duration
}

// Controller drives every order on the board through its lifecycle:
//
//	pending → accepted → cooking → ready
//	pending → rejected → (deleted after the grace period)
//
// It owns the Store and the Scheduler outright; feed events, user actions,
// and timer expiries all funnel through it. Illegal transitions are
// rejected locally and never reach the upstream service; server-notifying
// transitions only commit local state after the upstream call succeeds.
type Controller struct {
	store  *Store
	timers *Scheduler
	gw     Gateway
	notify Notifier
	grace  time.Duration

	connected atomic.Bool

	mu       sync.Mutex
	inflight map[string]bool
	closed   bool
}

// NewController builds a controller with its own store and scheduler.
// Call Run to start the countdown sweep and Close to tear everything down.
func NewController(gw Gateway, notify Notifier, cfg Config) *Controller {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.RejectionGrace <= 0 {
		cfg.RejectionGrace = 90 * time.Second
	}
	c := &Controller{
		store:    NewStore(),
		gw:       gw,
		notify:   notify,
		grace:    cfg.RejectionGrace,
		inflight: make(map[string]bool),
	}
	c.timers = NewScheduler(cfg.TickInterval, c.handleExpiry)
	return c
}

// Run starts the countdown sweep goroutine.
func (c *Controller) Run() {
	go c.timers.Run()
}

// Close stops the countdown sweep and marks the controller disposed. No
// timer side effect or feed event is applied afterwards. Safe to call
// more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.timers.Stop()
}

// FeedConnected reports whether the order feed is currently believed
// healthy (set on connect, cleared when the retry budget is exhausted).
func (c *Controller) FeedConnected() bool {
	return c.connected.Load()
}

// Order returns a copy of one board order.
func (c *Controller) Order(orderID string) (Order, bool) {
	return c.store.Get(orderID)
}

// BoardOrder is one board entry with its live countdown readings.
type BoardOrder struct {
	Order
	CookingRemaining   int `json:"cookingRemainingMinutes"`
	RejectionRemaining int `json:"rejectionRemainingMinutes"`
}

// Board returns the full board, newest order first, with remaining minutes
// for both countdown kinds.
func (c *Controller) Board() []BoardOrder {
	orders := c.store.Snapshot()
	board := make([]BoardOrder, 0, len(orders))
	for _, o := range orders {
		board = append(board, BoardOrder{
			Order:              o,
			CookingRemaining:   c.timers.Remaining(o.ID, enum.TimerCooking),
			RejectionRemaining: c.timers.Remaining(o.ID, enum.TimerRejection),
		})
	}
	return board
}

// Remaining returns the minutes left on one countdown.
func (c *Controller) Remaining(orderID, kind string) int {
	return c.timers.Remaining(orderID, kind)
}

// --- User actions ---

// Accept moves a pending order to accepted.
func (c *Controller) Accept(ctx context.Context, orderID string) error {
	release, err := c.begin(orderID)
	if err != nil {
		return err
	}
	defer release()

	o, err := c.requireStatus(orderID, enum.OrderStatusAccepted, enum.OrderStatusPending)
	if err != nil {
		return err
	}
	if err := c.gw.UpdateOrderStatus(ctx, orderID, enum.OrderStatusAccepted); err != nil {
		return fmt.Errorf("accept order %s: %w", orderID, err)
	}
	o.Status = enum.OrderStatusAccepted
	c.commit(o)
	return nil
}

// Reject moves a pending order to rejected and arms the rejection clock;
// when it expires the order is deleted upstream and leaves the board.
func (c *Controller) Reject(ctx context.Context, orderID string) error {
	release, err := c.begin(orderID)
	if err != nil {
		return err
	}
	defer release()

	o, err := c.requireStatus(orderID, enum.OrderStatusRejected, enum.OrderStatusPending)
	if err != nil {
		return err
	}
	if err := c.gw.UpdateOrderStatus(ctx, orderID, enum.OrderStatusRejected); err != nil {
		return fmt.Errorf("reject order %s: %w", orderID, err)
	}
	o.Status = enum.OrderStatusRejected
	c.commit(o)
	c.timers.Start(orderID, enum.TimerRejection, c.grace)
	return nil
}

// StartCooking moves an accepted order to cooking and arms the cooking
// countdown for the given number of minutes.
func (c *Controller) StartCooking(ctx context.Context, orderID string, minutes int) error {
	if minutes <= 0 {
		return ErrInvalidDuration
	}

	release, err := c.begin(orderID)
	if err != nil {
		return err
	}
	defer release()

	o, err := c.requireStatus(orderID, enum.OrderStatusCooking, enum.OrderStatusAccepted)
	if err != nil {
		return err
	}
	if err := c.gw.UpdateOrderStatus(ctx, orderID, enum.OrderStatusCooking); err != nil {
		return fmt.Errorf("start cooking order %s: %w", orderID, err)
	}
	o.Status = enum.OrderStatusCooking
	c.commit(o)
	c.timers.Start(orderID, enum.TimerCooking, time.Duration(minutes)*time.Minute)
	return nil
}

// MarkReady moves a cooking order to ready and cancels its countdown.
func (c *Controller) MarkReady(ctx context.Context, orderID string) error {
	release, err := c.begin(orderID)
	if err != nil {
		return err
	}
	defer release()

	o, err := c.requireStatus(orderID, enum.OrderStatusReady, enum.OrderStatusCooking)
	if err != nil {
		return err
	}
	if err := c.gw.UpdateOrderStatus(ctx, orderID, enum.OrderStatusReady); err != nil {
		return fmt.Errorf("mark order %s ready: %w", orderID, err)
	}
	o.Status = enum.OrderStatusReady
	c.commit(o)
	c.timers.Cancel(orderID, enum.TimerCooking)
	return nil
}

// EditItems replaces an order's items while it is accepted or cooking.
// The edit is applied optimistically and rolled back if the upstream call
// fails. An edit that would leave the order empty is rejected.
func (c *Controller) EditItems(ctx context.Context, orderID string, items []Item) error {
	items = NormalizeItems(items)
	if len(items) == 0 {
		return ErrNoItems
	}

	release, err := c.begin(orderID)
	if err != nil {
		return err
	}
	defer release()

	prev, ok := c.store.Get(orderID)
	if !ok {
		return ErrUnknownOrder
	}
	if prev.Status != enum.OrderStatusAccepted && prev.Status != enum.OrderStatusCooking {
		log.Printf("edit rejected for order %s in status %s", orderID, prev.Status)
		return fmt.Errorf("%w: cannot edit items while %s", ErrIllegalTransition, prev.Status)
	}

	c.store.ApplyLocalEdit(orderID, items)
	if err := c.gw.UpdateOrderItems(ctx, orderID, items); err != nil {
		c.store.ApplyLocalEdit(orderID, prev.Items)
		return fmt.Errorf("update items for order %s: %w", orderID, err)
	}

	if o, ok := c.store.Get(orderID); ok {
		c.notifyOrder(enum.BoardEventOrderUpdated, o)
	}
	return nil
}

// --- Feed callbacks (upstream.EventHandler) ---

// OnConnected resyncs the full board; events missed while disconnected
// cannot otherwise be recovered.
func (c *Controller) OnConnected(ctx context.Context) {
	c.connected.Store(true)
	if err := c.Resync(ctx); err != nil {
		log.Printf("board resync failed: %v", err)
	}
}

// OnConnectionError records that the feed is down after its retry budget
// was exhausted.
func (c *Controller) OnConnectionError(err error) {
	c.connected.Store(false)
	log.Printf("order feed unavailable: %v", err)
}

// OnOrderEvent applies one feed event to the board. Unknown actions are a
// forward-compatible no-op.
func (c *Controller) OnOrderEvent(evt OrderEvent) {
	if c.isClosed() {
		return
	}

	switch evt.Action {
	case enum.EventActionCreate:
		if !c.store.ApplyCreate(evt.Order) {
			return // duplicate delivery
		}
		c.notifyOrder(enum.BoardEventOrderCreated, evt.Order)
		if evt.TableID != "" {
			go c.markTableOccupied(evt.TableID)
		}

	case enum.EventActionStatusUpdate:
		if !c.store.ApplyStatusUpdate(evt.Order) {
			log.Printf("dropped stale update for order %s", evt.Order.ID)
			return
		}
		c.reconcileTimers(evt.Order)
		c.notifyOrder(enum.BoardEventOrderUpdated, evt.Order)
	}
}

// Resync replaces board state with the upstream's full order list: every
// listed order is applied, and local orders the upstream no longer knows
// are dropped along with their countdowns.
func (c *Controller) Resync(ctx context.Context) error {
	orders, err := c.gw.ListOrders(ctx)
	if err != nil {
		return fmt.Errorf("list orders: %w", err)
	}

	seen := make(map[string]bool, len(orders))
	for _, o := range orders {
		seen[o.ID] = true
		if c.store.ApplyStatusUpdate(o) {
			c.reconcileTimers(o)
		}
	}
	for _, o := range c.store.Snapshot() {
		if seen[o.ID] {
			continue
		}
		c.store.Remove(o.ID)
		c.timers.CancelAll(o.ID)
		c.notifyRemoved(o.ID)
	}

	log.Printf("board resynced: %d orders", len(orders))
	return nil
}

// --- Internals ---

// begin reserves an order for a single in-flight action, serializing user
// actions per order.
func (c *Controller) begin(orderID string) (release func(), err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.inflight[orderID] {
		return nil, ErrActionInFlight
	}
	c.inflight[orderID] = true

	return func() {
		c.mu.Lock()
		delete(c.inflight, orderID)
		c.mu.Unlock()
	}, nil
}

// requireStatus fetches an order and validates that the requested target
// status is legal from its current one.
func (c *Controller) requireStatus(orderID, to string, from string) (Order, error) {
	o, ok := c.store.Get(orderID)
	if !ok {
		return Order{}, ErrUnknownOrder
	}
	if o.Status != from {
		log.Printf("rejected transition %s -> %s for order %s", o.Status, to, orderID)
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.Status, to)
	}
	return o, nil
}

// commit stores a confirmed transition and fans it out.
func (c *Controller) commit(o Order) {
	c.store.ApplyStatusUpdate(o)
	c.notifyOrder(enum.BoardEventOrderUpdated, o)
}

// handleExpiry is the scheduler's expiry callback. A cooking countdown
// ending has no side effect; a rejection countdown ending deletes the order
// upstream and drops it from the board. A failed deletion keeps the entry
// so the next sweep retries it.
func (c *Controller) handleExpiry(orderID, kind string) error {
	if c.isClosed() || kind != enum.TimerRejection {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gatewayTimeout)
	defer cancel()

	if err := c.gw.DeleteOrder(ctx, orderID); err != nil {
		log.Printf("delete rejected order %s failed, will retry: %v", orderID, err)
		return err
	}
	if c.store.Remove(orderID) {
		c.notifyRemoved(orderID)
	}
	return nil
}

// reconcileTimers aligns countdowns with a server-confirmed status. The
// cooking countdown is left alone while the server still says cooking (the
// event carries no duration to re-arm it with).
func (c *Controller) reconcileTimers(o Order) {
	switch o.Status {
	case enum.OrderStatusReady:
		c.timers.Cancel(o.ID, enum.TimerCooking)
	case enum.OrderStatusRejected:
		if !c.timers.Active(o.ID, enum.TimerRejection) {
			c.timers.Start(o.ID, enum.TimerRejection, c.grace)
		}
	case enum.OrderStatusPending, enum.OrderStatusAccepted:
		c.timers.CancelAll(o.ID)
	}
}

// markTableOccupied flags the table upstream when an order lands on the
// board. Best effort: failures are logged, never propagated.
func (c *Controller) markTableOccupied(tableID string) {
	ctx, cancel := context.WithTimeout(context.Background(), gatewayTimeout)
	defer cancel()

	if err := c.gw.SetTableOccupied(ctx, tableID); err != nil {
		log.Printf("mark table %s occupied: %v", tableID, err)
	}
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller) notifyOrder(event string, o Order) {
	if c.notify != nil {
		c.notify.Notify(event, o)
	}
}

type removedPayload struct {
	OrderID string `json:"orderId"`
}

func (c *Controller) notifyRemoved(orderID string) {
	if c.notify != nil {
		c.notify.Notify(enum.BoardEventOrderRemoved, removedPayload{OrderID: orderID})
	}
}
