package kitchen

import (
	"sort"
	"sync"
)

// Store is the in-memory kitchen board: every order currently in flight,
// keyed by the upstream order ID. It is the single source of truth the
// board handlers and the websocket hub render from.
//
// All operations are pure map transformations; no network calls originate
// here. Mutations come from exactly three callers: feed-event application,
// lifecycle transitions, and timer expiry.
type Store struct {
	mu     sync.RWMutex
	orders map[string]Order
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{orders: make(map[string]Order)}
}

// ApplyCreate inserts a new order. The feed may redeliver create events, so
// an already-present ID is a no-op. Returns true if the order was inserted.
func (s *Store) ApplyCreate(o Order) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID]; exists {
		return false
	}
	s.orders[o.ID] = o.Clone()
	return true
}

// ApplyStatusUpdate replaces the stored order wholesale, or inserts it if
// absent (a statusUpdate for an unknown order is treated as a create).
// An event strictly older than the stored revision is rejected; equal
// revisions apply, preserving last-write-wins for same-instant updates.
// Returns true if the order was applied.
func (s *Store) ApplyStatusUpdate(o Order) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, exists := s.orders[o.ID]; exists && o.UpdatedAt.Before(cur.UpdatedAt) {
		return false
	}
	s.orders[o.ID] = o.Clone()
	return true
}

// ApplyLocalEdit replaces an order's items without touching its status or
// revision. Zero-quantity lines are dropped. Returns false if the order is
// unknown.
func (s *Store) ApplyLocalEdit(orderID string, items []Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.orders[orderID]
	if !exists {
		return false
	}
	cur.Items = NormalizeItems(items)
	s.orders[orderID] = cur
	return true
}

// Remove deletes an order. Returns true if it was present.
func (s *Store) Remove(orderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[orderID]; !exists {
		return false
	}
	delete(s.orders, orderID)
	return true
}

// Get returns a copy of the order with the given ID.
func (s *Store) Get(orderID string) (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok {
		return Order{}, false
	}
	return o.Clone(), true
}

// Snapshot returns copies of all orders, newest first (createdAt
// descending), the display order of the board.
func (s *Store) Snapshot() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of orders on the board.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
